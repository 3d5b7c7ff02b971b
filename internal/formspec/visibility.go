// internal/formspec/visibility.go
package formspec

import (
	"encoding/json"
	"reflect"
	"strings"
)

type visit uint8

const (
	unvisited visit = iota
	visiting
	shown
	hidden
)

// Visible evaluates every field's predicate against the live answers. A field whose
// referenced field is itself hidden sees that field as unset. Validate rejects cycles;
// for specs that skipped it, the reference closing a cycle reads as hidden.
func Visible(spec *Spec, live Answers) map[string]bool {
	out := make(map[string]bool)
	if spec == nil {
		return out
	}
	e := &evaluator{spec: spec, live: live, state: make(map[string]visit, len(spec.Fields))}
	for _, f := range spec.Fields {
		out[f.ID] = e.visible(f.ID)
	}
	return out
}

type evaluator struct {
	spec  *Spec
	live  Answers
	state map[string]visit
}

func (e *evaluator) visible(id string) bool {
	switch e.state[id] {
	case shown:
		return true
	case hidden, visiting:
		return false
	}

	f, ok := e.spec.FieldByID(id)
	if !ok {
		return false
	}
	if f.ShowIf == nil {
		e.state[id] = shown
		return true
	}

	e.state[id] = visiting
	var value interface{}
	if e.visible(f.ShowIf.Field) {
		value = e.live[f.ShowIf.Field]
	}
	if Evaluate(f.ShowIf, value) {
		e.state[id] = shown
		return true
	}
	e.state[id] = hidden
	return false
}

// Evaluate tests a predicate against the referenced field's current value.
func Evaluate(p *Predicate, value interface{}) bool {
	if p == nil {
		return true
	}
	switch {
	case p.Equals != nil:
		return strictEqual(value, p.Equals)
	case p.AnyOf != nil:
		for _, candidate := range stringsOf(value) {
			for _, want := range p.AnyOf {
				if candidate == want {
					return true
				}
			}
		}
		return false
	case p.MinSelected != nil:
		return len(selectedValues(value)) >= *p.MinSelected
	case p.AnySelected != nil:
		return (len(selectedValues(value)) > 0) == *p.AnySelected
	default:
		return !isEmpty(value)
	}
}

// strictEqual compares without cross-type coercion; numbers compare by value.
func strictEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := asFloat(a); ok {
		y, ok := asFloat(b)
		return ok && x == y
	}
	if _, ok := asFloat(b); ok {
		return false
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// stringsOf returns the string members of a value: itself for a string, its string
// elements or selected keys for collections.
func stringsOf(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string, []interface{}, map[string]interface{}, map[string]bool:
		return selectedValues(t)
	}
	return nil
}

// selectedValues reads the selection of a multi-choice answer. Lists contribute their
// non-empty string members, per-option maps the keys set to true, "true" or "on", and a
// non-empty scalar string counts as one selection.
func selectedValues(v interface{}) []string {
	var out []string
	switch t := v.(type) {
	case string:
		if t != "" {
			out = append(out, t)
		}
	case []string:
		for _, s := range t {
			if s != "" {
				out = append(out, s)
			}
		}
	case []interface{}:
		for _, item := range t {
			if s, ok := stringify(item); ok && s != "" {
				out = append(out, s)
			}
		}
	case map[string]bool:
		for k, on := range t {
			if on {
				out = append(out, k)
			}
		}
	case map[string]interface{}:
		for k, on := range t {
			if isChecked(on) {
				out = append(out, k)
			}
		}
	}
	return out
}

func isChecked(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "on"
	}
	return false
}

func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []interface{}:
		return len(t) == 0
	case map[string]bool, map[string]interface{}:
		return len(selectedValues(t)) == 0
	}
	return false
}
