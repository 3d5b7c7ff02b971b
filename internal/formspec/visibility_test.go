package formspec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func boolPtr(b bool) *bool { return &b }

func TestVisible_EqualsUsesLiveValue(t *testing.T) {
	spec := mustValidate(t, screenerSpecJSON)

	tests := []struct {
		name    string
		live    Answers
		visible bool
	}{
		{"matching value", Answers{"eviction_status": "court_date"}, true},
		{"other value", Answers{"eviction_status": "notice"}, false},
		{"unset", Answers{}, false},
		{"nil answers", nil, false},
		{"different type", Answers{"eviction_status": true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.visible, Visible(spec, tt.live)["court_date"])
			assert.True(t, Visible(spec, tt.live)["eviction_status"], "fields without a predicate are always shown")
		})
	}
}

func TestVisible_VisibleWhenMatchesShowIf(t *testing.T) {
	withShowIf := mustValidate(t, screenerSpecJSON)
	withVisibleWhen := mustValidate(t, strings.Replace(screenerSpecJSON, `"showIf"`, `"visibleWhen"`, 1))
	require.NotEqual(t, screenerSpecJSON, strings.Replace(screenerSpecJSON, `"showIf"`, `"visibleWhen"`, 1))

	states := []Answers{
		{},
		{"eviction_status": "court_date"},
		{"eviction_status": "none"},
		{"eviction_status": "court_date", "priority_groups": map[string]interface{}{"dv": true}},
		{"priority_groups": []interface{}{}},
	}
	for _, live := range states {
		assert.Equal(t, Visible(withShowIf, live), Visible(withVisibleWhen, live))
		assert.Equal(t, Render(withShowIf, live), Render(withVisibleWhen, live))
	}
}

func TestEvaluate_Precedence(t *testing.T) {
	tests := []struct {
		name  string
		pred  Predicate
		value interface{}
		want  bool
	}{
		{"equals string", Predicate{Equals: "yes"}, "yes", true},
		{"equals number across int and float", Predicate{Equals: 3.0}, 3, true},
		{"equals no string to number coercion", Predicate{Equals: 3.0}, "3", false},
		{"equals bool", Predicate{Equals: false}, false, true},
		{"equals unset", Predicate{Equals: "yes"}, nil, false},
		{"equals wins over anyOf", Predicate{Equals: "a", AnyOf: []string{"b"}}, "b", false},
		{"anyOf scalar", Predicate{AnyOf: []string{"a", "b"}}, "b", true},
		{"anyOf miss", Predicate{AnyOf: []string{"a"}}, "c", false},
		{"anyOf list element", Predicate{AnyOf: []string{"veteran"}}, []interface{}{"dv", "veteran"}, true},
		{"anyOf option map", Predicate{AnyOf: []string{"dv"}}, map[string]interface{}{"dv": "on"}, true},
		{"anyOf number is not a string", Predicate{AnyOf: []string{"1"}}, 1.0, false},
		{"anyOf wins over minSelected", Predicate{AnyOf: []string{"z"}, MinSelected: intPtr(0)}, "a", false},
		{"minSelected met", Predicate{MinSelected: intPtr(2)}, []string{"a", "b"}, true},
		{"minSelected short", Predicate{MinSelected: intPtr(2)}, map[string]bool{"a": true, "b": false}, false},
		{"minSelected zero on unset", Predicate{MinSelected: intPtr(0)}, nil, true},
		{"anySelected true", Predicate{AnySelected: boolPtr(true)}, []interface{}{"a"}, true},
		{"anySelected true on empty", Predicate{AnySelected: boolPtr(true)}, []interface{}{}, false},
		{"anySelected false on unset", Predicate{AnySelected: boolPtr(false)}, nil, true},
		{"no condition non-empty", Predicate{}, "x", true},
		{"no condition blank", Predicate{}, "  ", false},
		{"no condition zero number", Predicate{}, 0.0, true},
		{"no condition false bool", Predicate{}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.pred
			assert.Equal(t, tt.want, Evaluate(&p, tt.value))
		})
	}
}

func TestVisible_HiddenReferenceCountsAsUnset(t *testing.T) {
	spec := mustValidate(t, `{"title":"t","fields":[
		{"id":"a","type":"radio","label":"A","options":["x","y"]},
		{"id":"b","type":"text","label":"B","showIf":{"field":"a","equals":"x"}},
		{"id":"c","type":"text","label":"C","showIf":{"field":"b"}}
	]}`)

	v := Visible(spec, Answers{"a": "x", "b": "stale"})
	assert.True(t, v["b"])
	assert.True(t, v["c"])

	v = Visible(spec, Answers{"a": "y", "b": "stale"})
	assert.False(t, v["b"])
	assert.False(t, v["c"], "b is hidden so its stale value does not count")
}

func TestVisible_UnvalidatedCycleTerminates(t *testing.T) {
	spec := &Spec{Title: "t", Fields: []Field{
		{ID: "a", Type: FieldTypeText, Label: "A", ShowIf: &Predicate{Field: "b"}},
		{ID: "b", Type: FieldTypeText, Label: "B", ShowIf: &Predicate{Field: "a"}},
		{ID: "c", Type: FieldTypeText, Label: "C", ShowIf: &Predicate{Field: "missing"}},
	}}

	v := Visible(spec, Answers{"a": "1", "b": "1"})
	assert.Len(t, v, 3)
	assert.False(t, v["a"])
	assert.False(t, v["c"], "unknown reference reads as unset")
}

func TestVisible_NilSpec(t *testing.T) {
	assert.Empty(t, Visible(nil, Answers{"a": 1}))
}
