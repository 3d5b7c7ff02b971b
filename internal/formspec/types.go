// internal/formspec/types.go
package formspec

import (
	"encoding/json"

	"era-intake/internal/common/validation"
)

// FieldType is the canonical field type tag of a dynamic form field.
type FieldType string

const (
	FieldTypeText          FieldType = "text"
	FieldTypeTextarea      FieldType = "textarea"
	FieldTypeNumber        FieldType = "number"
	FieldTypeBoolean       FieldType = "boolean"
	FieldTypeDate          FieldType = "date"
	FieldTypeCurrency      FieldType = "currency"
	FieldTypeSelect        FieldType = "select"
	FieldTypeRadio         FieldType = "radio"
	FieldTypeCheckboxGroup FieldType = "checkbox-group"
	FieldTypeMultiselect   FieldType = "multiselect"
)

// DefaultVersion is assigned when a spec omits version.
const DefaultVersion = "1.0"

// FieldTypes lists the accepted types in display order.
var FieldTypes = []FieldType{
	FieldTypeText, FieldTypeTextarea, FieldTypeNumber, FieldTypeBoolean, FieldTypeDate,
	FieldTypeCurrency, FieldTypeSelect, FieldTypeRadio, FieldTypeCheckboxGroup, FieldTypeMultiselect,
}

// Known reports whether t is one of the enumerated types.
func (t FieldType) Known() bool {
	for _, known := range FieldTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsChoice reports whether fields of this type carry an options list.
func (t FieldType) IsChoice() bool {
	switch t {
	case FieldTypeSelect, FieldTypeRadio, FieldTypeCheckboxGroup, FieldTypeMultiselect:
		return true
	}
	return false
}

// IsMulti reports whether the answer is a list of option values.
func (t FieldType) IsMulti() bool {
	return t == FieldTypeCheckboxGroup || t == FieldTypeMultiselect
}

// Spec is a validated dynamic form specification.
type Spec struct {
	FormID    string   `json:"formId,omitempty"`
	Title     string   `json:"title"`
	Version   string   `json:"version"`
	Rationale string   `json:"rationale,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	Fields    []Field  `json:"fields"`
}

type Field struct {
	ID          string       `json:"id"`
	Type        FieldType    `json:"type"`
	Label       string       `json:"label"`
	HelpText    string       `json:"helpText,omitempty"`
	Placeholder string       `json:"placeholder,omitempty"`
	Required    bool         `json:"required,omitempty"`
	Min         *float64     `json:"min,omitempty"`
	Max         *float64     `json:"max,omitempty"`
	Step        *float64     `json:"step,omitempty"`
	Currency    string       `json:"currency,omitempty"`
	MinSelected *int         `json:"minSelected,omitempty"`
	Options     []Option     `json:"options,omitempty"`
	Validations *Validations `json:"validations,omitempty"`
	ShowIf      *Predicate   `json:"showIf,omitempty"`
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Validations struct {
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
}

// Predicate is a conditional-visibility rule. Only the first present sub-condition in
// the order Equals, AnyOf, MinSelected, AnySelected is evaluated.
type Predicate struct {
	Field       string      `json:"field"`
	Equals      interface{} `json:"equals,omitempty"`
	AnyOf       []string    `json:"anyOf,omitempty"`
	MinSelected *int        `json:"minSelected,omitempty"`
	AnySelected *bool       `json:"anySelected,omitempty"`
}

// Answers maps field id to the captured value.
type Answers map[string]interface{}

// Result is the outcome of validating a candidate spec. Spec is nil when any error
// was found; Warnings carries non-fatal normalization notes.
type Result struct {
	Spec     *Spec                        `json:"spec"`
	Errors   []validation.ValidationError `json:"errors,omitempty"`
	Warnings []string                     `json:"warnings,omitempty"`
}

// OK reports whether a usable spec was produced.
func (r *Result) OK() bool {
	return r != nil && r.Spec != nil
}

// FieldByID returns the field with the given id.
func (s *Spec) FieldByID(id string) (*Field, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Fields {
		if s.Fields[i].ID == id {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// Canonical returns the canonical JSON encoding of the spec.
func (s *Spec) Canonical() ([]byte, error) {
	return json.Marshal(s)
}

// HasOption reports whether value is one of the field's option values.
func (f *Field) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}
