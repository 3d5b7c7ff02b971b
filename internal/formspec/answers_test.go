package formspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_CheckboxGroupFromOptionMap(t *testing.T) {
	spec := mustValidate(t, screenerSpecJSON)

	out, errs := Submit(spec, Answers{
		"eviction_status": "none",
		"priority_groups": map[string]interface{}{"dv": true, "disability": false, "veteran": true},
	})
	require.Empty(t, errs)
	assert.ElementsMatch(t, []string{"dv", "veteran"}, out["priority_groups"])
	assert.NotContains(t, out["priority_groups"], "disability")
}

func TestSubmit_MultiSelectionShapes(t *testing.T) {
	spec := mustValidate(t, `{"title":"t","fields":[
		{"id":"m","type":"multiselect","label":"M","options":["a","b","c"]}]}`)

	tests := []struct {
		name  string
		value interface{}
		want  []string
	}{
		{"list in any order", []interface{}{"c", "a"}, []string{"a", "c"}},
		{"string flags", map[string]interface{}{"a": "on", "b": "false", "c": "true"}, []string{"a", "c"}},
		{"bool map", map[string]bool{"b": true}, []string{"b"}},
		{"nothing selected", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errs := Submit(spec, Answers{"m": tt.value})
			require.Empty(t, errs)
			assert.Equal(t, tt.want, out["m"])
		})
	}
}

func TestSubmit_DropsHiddenAndUnknownAnswers(t *testing.T) {
	spec := mustValidate(t, screenerSpecJSON)

	out, errs := Submit(spec, Answers{
		"eviction_status": "notice",
		"court_date":      "2026-11-02",
		"priority_detail": "stale text",
		"not_a_field":     "x",
	})
	require.Empty(t, errs)
	assert.Equal(t, "notice", out["eviction_status"])
	assert.NotContains(t, out, "court_date")
	assert.NotContains(t, out, "priority_detail")
	assert.NotContains(t, out, "not_a_field")
}

func TestSubmit_PassesScalarsThrough(t *testing.T) {
	spec := mustValidate(t, screenerSpecJSON)

	out, errs := Submit(spec, Answers{
		"eviction_status": "court_date",
		"court_date":      "2026-11-02",
		"utility_arrears": "412.50",
	})
	require.Empty(t, errs)
	assert.Equal(t, "court_date", out["eviction_status"])
	assert.Equal(t, "2026-11-02", out["court_date"])
	assert.Equal(t, "412.50", out["utility_arrears"], "values are not coerced")
}

func TestSubmit_FieldErrors(t *testing.T) {
	spec := mustValidate(t, `{"title":"t","fields":[
		{"id":"name","type":"text","label":"Name","required":true,"validations":{"minLength":2,"maxLength":5,"pattern":"[A-Za-z]+"}},
		{"id":"count","type":"number","label":"Count","min":1,"max":3},
		{"id":"when","type":"date","label":"When"},
		{"id":"ok","type":"boolean","label":"OK"},
		{"id":"pick","type":"select","label":"Pick","options":["a","b"]},
		{"id":"many","type":"checkbox-group","label":"Many","required":true,"options":["x","y"]}
	]}`)

	tests := []struct {
		name    string
		answers Answers
		field   string
		code    string
	}{
		{"required text", Answers{"many": []interface{}{"x"}}, "name", CodeRequired},
		{"blank text is missing", Answers{"name": "   ", "many": []interface{}{"x"}}, "name", CodeRequired},
		{"too short", Answers{"name": "A", "many": []interface{}{"x"}}, "name", CodeMinLength},
		{"too long", Answers{"name": "Abcdefg", "many": []interface{}{"x"}}, "name", CodeMaxLength},
		{"pattern is whole value", Answers{"name": "ab1", "many": []interface{}{"x"}}, "name", CodePattern},
		{"text type", Answers{"name": 12.0, "many": []interface{}{"x"}}, "name", CodeInvalidType},
		{"below min", Answers{"name": "Ana", "count": 0.0, "many": []interface{}{"x"}}, "count", CodeMinimum},
		{"above max as string", Answers{"name": "Ana", "count": "4", "many": []interface{}{"x"}}, "count", CodeMaximum},
		{"not a number", Answers{"name": "Ana", "count": "lots", "many": []interface{}{"x"}}, "count", CodeInvalidType},
		{"bad date", Answers{"name": "Ana", "when": "11/02/2026", "many": []interface{}{"x"}}, "when", CodeInvalidType},
		{"boolean type", Answers{"name": "Ana", "ok": "yes", "many": []interface{}{"x"}}, "ok", CodeInvalidType},
		{"select membership", Answers{"name": "Ana", "pick": "c", "many": []interface{}{"x"}}, "pick", CodeInvalidOption},
		{"group membership", Answers{"name": "Ana", "many": []interface{}{"x", "q"}}, "many", CodeInvalidOption},
		{"group required", Answers{"name": "Ana", "many": map[string]interface{}{"x": false}}, "many", CodeRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := Submit(spec, tt.answers)
			require.NotEmpty(t, errs)
			found := false
			for _, e := range errs {
				if e.Field == tt.field && e.Code == tt.code {
					found = true
				}
			}
			assert.True(t, found, "want %s on %s, got %v", tt.code, tt.field, errs)
		})
	}

	t.Run("valid submission", func(t *testing.T) {
		out, errs := Submit(spec, Answers{
			"name": "Ana", "count": 2.0, "when": "2026-11-02", "ok": false, "pick": "b",
			"many": map[string]interface{}{"y": true},
		})
		require.Empty(t, errs)
		assert.Equal(t, []string{"y"}, out["many"])
		assert.Equal(t, false, out["ok"])
	})
}

func TestSubmit_UnsupportedFieldPassesThrough(t *testing.T) {
	spec := &Spec{Title: "t", Version: DefaultVersion, Fields: []Field{
		{ID: "upload", Type: "file", Label: "Upload", Required: true},
		{ID: "note", Type: FieldTypeText, Label: "Note"},
	}}

	out, errs := Submit(spec, Answers{"note": "hi"})
	require.Empty(t, errs, "unsupported fields never block submission")
	assert.Equal(t, Answers{"note": "hi"}, out)

	out, errs = Submit(spec, Answers{"upload": "blob"})
	require.Empty(t, errs)
	assert.Equal(t, "blob", out["upload"])
}

func TestSubmit_NilSpec(t *testing.T) {
	out, errs := Submit(nil, Answers{"a": 1})
	assert.Empty(t, out)
	assert.Empty(t, errs)
}

func TestMergeAnswers(t *testing.T) {
	base := Answers{"a": 1, "b": 2}
	merged := MergeAnswers(base, Answers{"b": 3, "c": 4})
	assert.Equal(t, Answers{"a": 1, "b": 3, "c": 4}, merged)
	assert.Equal(t, 2, base["b"], "base is not modified")
}
