package formspec

import "fmt"

// Widget names the input control a field is drawn with.
type Widget string

const (
	WidgetInput         Widget = "input"
	WidgetTextarea      Widget = "textarea"
	WidgetCheckbox      Widget = "checkbox"
	WidgetSelect        Widget = "select"
	WidgetRadioGroup    Widget = "radio-group"
	WidgetCheckboxGroup Widget = "checkbox-group"
	WidgetMultiselect   Widget = "multiselect"
	WidgetPlaceholder   Widget = "placeholder"
)

// Form is the view model of a spec under a given answer state.
type Form struct {
	Title     string          `json:"title"`
	Version   string          `json:"version"`
	Rationale string          `json:"rationale,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
	Fields    []RenderedField `json:"fields"`
	Hidden    []string        `json:"hidden,omitempty"`
}

type RenderedField struct {
	ID          string           `json:"id"`
	Type        FieldType        `json:"type"`
	Widget      Widget           `json:"widget"`
	Supported   bool             `json:"supported"`
	Label       string           `json:"label"`
	HelpText    string           `json:"helpText,omitempty"`
	Placeholder string           `json:"placeholder,omitempty"`
	Required    bool             `json:"required,omitempty"`
	InputType   string           `json:"inputType,omitempty"`
	Min         *float64         `json:"min,omitempty"`
	Max         *float64         `json:"max,omitempty"`
	Step        *float64         `json:"step,omitempty"`
	Currency    string           `json:"currency,omitempty"`
	MinLength   *int             `json:"minLength,omitempty"`
	MaxLength   *int             `json:"maxLength,omitempty"`
	Pattern     string           `json:"pattern,omitempty"`
	Options     []RenderedOption `json:"options,omitempty"`
	Value       interface{}      `json:"value,omitempty"`
	Message     string           `json:"message,omitempty"`
}

type RenderedOption struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Render builds the form for the fields visible under live.
func Render(spec *Spec, live Answers) *Form {
	if spec == nil {
		return nil
	}
	visible := Visible(spec, live)

	form := &Form{
		Title:     spec.Title,
		Version:   spec.Version,
		Rationale: spec.Rationale,
		Warnings:  spec.Warnings,
		Fields:    make([]RenderedField, 0, len(spec.Fields)),
	}
	for _, f := range spec.Fields {
		if !visible[f.ID] {
			form.Hidden = append(form.Hidden, f.ID)
			continue
		}
		form.Fields = append(form.Fields, renderField(f, live[f.ID]))
	}
	return form
}

func renderField(f Field, value interface{}) RenderedField {
	rf := RenderedField{
		ID:          f.ID,
		Type:        f.Type,
		Supported:   true,
		Label:       f.Label,
		HelpText:    f.HelpText,
		Placeholder: f.Placeholder,
		Required:    f.Required,
		Value:       value,
	}
	if v := f.Validations; v != nil {
		rf.MinLength, rf.MaxLength, rf.Pattern = v.MinLength, v.MaxLength, v.Pattern
	}

	switch f.Type {
	case FieldTypeText:
		rf.Widget, rf.InputType = WidgetInput, "text"
	case FieldTypeTextarea:
		rf.Widget = WidgetTextarea
	case FieldTypeNumber:
		rf.Widget, rf.InputType = WidgetInput, "number"
		rf.Min, rf.Max, rf.Step = f.Min, f.Max, f.Step
	case FieldTypeCurrency:
		rf.Widget, rf.InputType = WidgetInput, "number"
		rf.Min, rf.Max, rf.Step = f.Min, f.Max, f.Step
		rf.Currency = f.Currency
		if rf.Currency == "" {
			rf.Currency = "USD"
		}
		if rf.Step == nil {
			cents := 0.01
			rf.Step = &cents
		}
	case FieldTypeDate:
		rf.Widget, rf.InputType = WidgetInput, "date"
	case FieldTypeBoolean:
		rf.Widget, rf.InputType = WidgetCheckbox, "checkbox"
	case FieldTypeSelect:
		rf.Widget = WidgetSelect
		rf.Options = renderOptions(f.Options, value)
	case FieldTypeRadio:
		rf.Widget, rf.InputType = WidgetRadioGroup, "radio"
		rf.Options = renderOptions(f.Options, value)
	case FieldTypeCheckboxGroup:
		rf.Widget, rf.InputType = WidgetCheckboxGroup, "checkbox"
		rf.Options = renderOptions(f.Options, value)
		rf.Value = selectedInOrder(f.Options, value)
	case FieldTypeMultiselect:
		rf.Widget = WidgetMultiselect
		rf.Options = renderOptions(f.Options, value)
		rf.Value = selectedInOrder(f.Options, value)
	default:
		rf.Widget = WidgetPlaceholder
		rf.Supported = false
		rf.Message = fmt.Sprintf("Unsupported field type %q", string(f.Type))
	}
	return rf
}

func renderOptions(options []Option, value interface{}) []RenderedOption {
	selected := make(map[string]bool)
	for _, v := range selectedValues(value) {
		selected[v] = true
	}
	out := make([]RenderedOption, len(options))
	for i, opt := range options {
		out[i] = RenderedOption{Value: opt.Value, Label: opt.Label, Selected: selected[opt.Value]}
	}
	return out
}

// selectedInOrder lists the selected option values in option order; values that are
// not options are left out.
func selectedInOrder(options []Option, value interface{}) []string {
	chosen := make(map[string]bool)
	for _, v := range selectedValues(value) {
		chosen[v] = true
	}
	out := make([]string, 0, len(chosen))
	for _, opt := range options {
		if chosen[opt.Value] {
			out = append(out, opt.Value)
		}
	}
	return out
}
