// internal/formspec/answers.go
package formspec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"era-intake/internal/common/validation"
)

const (
	CodeRequired      = "REQUIRED_FIELD_MISSING"
	CodePattern       = "PATTERN_MISMATCH"
	CodeMinLength     = "MIN_LENGTH_VIOLATION"
	CodeMaxLength     = "MAX_LENGTH_VIOLATION"
	CodeMinimum       = "MINIMUM_VIOLATION"
	CodeMaximum       = "MAXIMUM_VIOLATION"
	CodeInvalidOption = "INVALID_OPTION"
	CodeInvalidType   = "INVALID_TYPE"
	CodeMinSelected   = "MIN_SELECTED_VIOLATION"
)

const dateLayout = "2006-01-02"

// Submit turns the captured answers into the answer map to persist. Hidden fields are
// dropped, multi-choice selections become option-ordered value lists, other values
// pass through unchanged, and keys that are not fields of spec are discarded. Any
// returned error means the submission must be rejected.
func Submit(spec *Spec, raw Answers) (Answers, []validation.ValidationError) {
	out := make(Answers)
	if spec == nil {
		return out, nil
	}

	visible := Visible(spec, raw)
	var errs []validation.ValidationError

	for i := range spec.Fields {
		f := &spec.Fields[i]
		if !visible[f.ID] {
			continue
		}
		value, present := raw[f.ID]

		if !f.Type.Known() {
			if present {
				out[f.ID] = value
			}
			continue
		}

		if f.Type.IsMulti() {
			selection, fieldErrs := normalizeSelection(f, value)
			errs = append(errs, fieldErrs...)
			out[f.ID] = selection
			continue
		}

		if present {
			out[f.ID] = value
		}
		errs = append(errs, checkValue(f, value)...)
	}

	return out, errs
}

func normalizeSelection(f *Field, value interface{}) ([]string, []validation.ValidationError) {
	var errs []validation.ValidationError
	for _, v := range selectedValues(value) {
		if !f.HasOption(v) {
			errs = append(errs, fieldError(f, CodeInvalidOption, fmt.Sprintf("%q is not an option", v)))
		}
	}
	selection := selectedInOrder(f.Options, value)
	if f.Required && len(selection) == 0 {
		errs = append(errs, fieldError(f, CodeRequired, "select at least one option"))
	} else if f.MinSelected != nil && len(selection) > 0 && len(selection) < *f.MinSelected {
		errs = append(errs, fieldError(f, CodeMinSelected, fmt.Sprintf("select at least %d options", *f.MinSelected)))
	}
	return selection, errs
}

func checkValue(f *Field, value interface{}) []validation.ValidationError {
	if isEmpty(value) {
		if f.Required {
			return []validation.ValidationError{fieldError(f, CodeRequired, "this field is required")}
		}
		return nil
	}

	switch f.Type {
	case FieldTypeText, FieldTypeTextarea:
		s, ok := value.(string)
		if !ok {
			return []validation.ValidationError{fieldError(f, CodeInvalidType, "expected text")}
		}
		return checkText(f, s)

	case FieldTypeNumber, FieldTypeCurrency:
		n, ok := numericValue(value)
		if !ok {
			return []validation.ValidationError{fieldError(f, CodeInvalidType, "expected a number")}
		}
		var errs []validation.ValidationError
		if f.Min != nil && n < *f.Min {
			errs = append(errs, fieldError(f, CodeMinimum, fmt.Sprintf("must be at least %s", formatNumber(*f.Min))))
		}
		if f.Max != nil && n > *f.Max {
			errs = append(errs, fieldError(f, CodeMaximum, fmt.Sprintf("must be at most %s", formatNumber(*f.Max))))
		}
		return errs

	case FieldTypeDate:
		s, ok := value.(string)
		if !ok {
			return []validation.ValidationError{fieldError(f, CodeInvalidType, "expected a date")}
		}
		if _, err := time.Parse(dateLayout, s); err != nil {
			return []validation.ValidationError{fieldError(f, CodeInvalidType, "expected a date as YYYY-MM-DD")}
		}

	case FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			return []validation.ValidationError{fieldError(f, CodeInvalidType, "expected true or false")}
		}

	case FieldTypeSelect, FieldTypeRadio:
		s, ok := stringify(value)
		if !ok || !f.HasOption(s) {
			return []validation.ValidationError{fieldError(f, CodeInvalidOption, fmt.Sprintf("%v is not an option", value))}
		}
	}
	return nil
}

func checkText(f *Field, s string) []validation.ValidationError {
	v := f.Validations
	if v == nil {
		return nil
	}
	var errs []validation.ValidationError
	n := utf8.RuneCountInString(s)
	if v.MinLength != nil && n < *v.MinLength {
		errs = append(errs, fieldError(f, CodeMinLength, fmt.Sprintf("must be at least %d characters", *v.MinLength)))
	}
	if v.MaxLength != nil && n > *v.MaxLength {
		errs = append(errs, fieldError(f, CodeMaxLength, fmt.Sprintf("must be at most %d characters", *v.MaxLength)))
	}
	if v.Pattern != "" {
		// whole-value match, as an HTML pattern attribute would
		re, err := regexp.Compile("^(?:" + v.Pattern + ")$")
		if err == nil && !re.MatchString(s) {
			errs = append(errs, fieldError(f, CodePattern, "has an invalid format"))
		}
	}
	return errs
}

// numericValue accepts JSON numbers and numeric strings as typed into an input.
func numericValue(v interface{}) (float64, bool) {
	if n, ok := asFloat(v); ok {
		return n, true
	}
	if s, ok := v.(string); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return n, err == nil
	}
	return 0, false
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func fieldError(f *Field, code, message string) validation.ValidationError {
	return validation.ValidationError{Field: f.ID, Message: message, Code: code}
}

// MergeAnswers overlays update on base, key by key.
func MergeAnswers(base, update Answers) Answers {
	out := make(Answers, len(base)+len(update))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range update {
		out[k] = v
	}
	return out
}
