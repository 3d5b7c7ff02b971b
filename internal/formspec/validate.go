// internal/formspec/validate.go
package formspec

import (
	"encoding/json"
	"fmt"
	"regexp"

	"era-intake/internal/common/validation"
)

const (
	CodeInvalidJSON      = "INVALID_JSON"
	CodeNotObject        = "NOT_AN_OBJECT"
	CodeDuplicateID      = "DUPLICATE_ID"
	CodeOptionsRequired  = "OPTIONS_REQUIRED"
	CodeUnknownReference = "UNKNOWN_REFERENCE"
	CodeSelfReference    = "SELF_REFERENCE"
	CodeCyclicReference  = "CYCLIC_REFERENCE"
	CodeInvalidPattern   = "INVALID_PATTERN"
	CodeInvalidRange     = "INVALID_RANGE"
)

// ValidateJSON parses data and validates the result.
func ValidateJSON(data []byte) *Result {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return &Result{Errors: []validation.ValidationError{{
			Field:   "(root)",
			Message: fmt.Sprintf("not valid JSON: %v", err),
			Code:    CodeInvalidJSON,
		}}}
	}
	return Validate(raw)
}

// Validate folds synonyms, checks the document against the structural schema and the
// cross-field rules, and decodes it into a canonical Spec. raw is a decoded JSON value;
// other Go values are round-tripped through encoding/json first.
func Validate(raw interface{}) *Result {
	doc, err := asDocument(raw)
	if err != nil {
		return &Result{Errors: []validation.ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    CodeNotObject,
		}}}
	}

	canonical, notes := normalizeDocument(doc)
	result := &Result{Warnings: notes}

	structural := specSchema.Validate(canonical)
	if !structural.Valid {
		result.Errors = structural.Errors
		return result
	}

	encoded, err := json.Marshal(canonical)
	if err != nil {
		result.Errors = []validation.ValidationError{{Field: "(root)", Message: err.Error(), Code: CodeInvalidJSON}}
		return result
	}
	var spec Spec
	if err := json.Unmarshal(encoded, &spec); err != nil {
		result.Errors = []validation.ValidationError{{Field: "(root)", Message: err.Error(), Code: CodeInvalidJSON}}
		return result
	}

	if errs := checkFields(&spec); len(errs) > 0 {
		result.Errors = errs
		return result
	}

	result.Spec = &spec
	return result
}

func asDocument(raw interface{}) (map[string]interface{}, error) {
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("spec is empty")
	case map[string]interface{}:
		return v, nil
	case []byte:
		var out interface{}
		if err := json.Unmarshal(v, &out); err != nil {
			return nil, fmt.Errorf("not valid JSON: %w", err)
		}
		return asDocument(out)
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("spec is not JSON-encodable: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, err
	}
	doc, ok := out.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("spec must be a JSON object, got %T", out)
	}
	return doc, nil
}

// checkFields enforces the rules the schema cannot express.
func checkFields(spec *Spec) []validation.ValidationError {
	var errs []validation.ValidationError

	index := make(map[string]int, len(spec.Fields))
	for i, f := range spec.Fields {
		if prev, dup := index[f.ID]; dup {
			errs = append(errs, validation.ValidationError{
				Field:   fmt.Sprintf("fields.%d.id", i),
				Message: fmt.Sprintf("duplicate field id %q (first used by fields.%d)", f.ID, prev),
				Code:    CodeDuplicateID,
			})
			continue
		}
		index[f.ID] = i
	}

	for i, f := range spec.Fields {
		path := fmt.Sprintf("fields.%d", i)

		if f.Type.IsChoice() && len(f.Options) == 0 {
			errs = append(errs, validation.ValidationError{
				Field:   path + ".options",
				Message: fmt.Sprintf("%s field requires at least one option", f.Type),
				Code:    CodeOptionsRequired,
			})
		}

		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			errs = append(errs, validation.ValidationError{
				Field:   path + ".min",
				Message: "min is greater than max",
				Code:    CodeInvalidRange,
			})
		}

		if v := f.Validations; v != nil {
			if v.Pattern != "" {
				if _, err := regexp.Compile(v.Pattern); err != nil {
					errs = append(errs, validation.ValidationError{
						Field:   path + ".validations.pattern",
						Message: fmt.Sprintf("pattern does not compile: %v", err),
						Code:    CodeInvalidPattern,
					})
				}
			}
			if v.MinLength != nil && v.MaxLength != nil && *v.MinLength > *v.MaxLength {
				errs = append(errs, validation.ValidationError{
					Field:   path + ".validations.minLength",
					Message: "minLength is greater than maxLength",
					Code:    CodeInvalidRange,
				})
			}
		}

		if p := f.ShowIf; p != nil {
			switch {
			case p.Field == f.ID:
				errs = append(errs, validation.ValidationError{
					Field:   path + ".showIf.field",
					Message: "visibility predicate references its own field",
					Code:    CodeSelfReference,
				})
			default:
				if _, ok := index[p.Field]; !ok {
					errs = append(errs, validation.ValidationError{
						Field:   path + ".showIf.field",
						Message: fmt.Sprintf("visibility predicate references unknown field %q", p.Field),
						Code:    CodeUnknownReference,
					})
				}
			}
		}
	}

	if len(errs) == 0 {
		errs = append(errs, checkCycles(spec)...)
	}
	return errs
}

// checkCycles follows each showIf chain; every reference must end at an
// unconditional field.
func checkCycles(spec *Spec) []validation.ValidationError {
	var errs []validation.ValidationError
	for i, f := range spec.Fields {
		seen := map[string]bool{f.ID: true}
		cur := f
		for cur.ShowIf != nil {
			next, ok := spec.FieldByID(cur.ShowIf.Field)
			if !ok {
				break
			}
			if seen[next.ID] {
				errs = append(errs, validation.ValidationError{
					Field:   fmt.Sprintf("fields.%d.showIf.field", i),
					Message: fmt.Sprintf("visibility predicates form a cycle through %q", next.ID),
					Code:    CodeCyclicReference,
				})
				break
			}
			seen[next.ID] = true
			cur = *next
		}
	}
	return errs
}
