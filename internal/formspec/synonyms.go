package formspec

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var typeSynonyms = map[string]FieldType{
	"single_select": FieldTypeSelect,
	"single-select": FieldTypeSelect,
	"multi_select":  FieldTypeMultiselect,
	"multi-select":  FieldTypeMultiselect,
}

// canonicalType folds case and the known synonyms. Unknown names come back lowercased
// so the schema can reject them.
func canonicalType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	if folded, ok := typeSynonyms[t]; ok {
		return string(folded)
	}
	return t
}

// normalizeDocument rewrites a decoded spec into its canonical key vocabulary.
// Values whose shape is wrong are carried through unchanged for the schema to report.
func normalizeDocument(doc map[string]interface{}) (map[string]interface{}, []string) {
	var notes []string
	out := make(map[string]interface{}, 5)

	if title, ok := doc["title"]; ok {
		out["title"] = title
	}
	if id, ok := doc["formId"].(string); ok && id != "" {
		out["formId"] = id
	}

	switch v := doc["version"].(type) {
	case nil:
		out["version"] = DefaultVersion
	case string:
		if strings.TrimSpace(v) == "" {
			out["version"] = DefaultVersion
		} else {
			out["version"] = v
		}
	case float64:
		out["version"] = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		out["version"] = v
	}

	if r, ok := doc["rationale"]; ok && r != nil {
		if s, isString := r.(string); !isString || s != "" {
			out["rationale"] = r
		}
	}

	switch w := doc["warnings"].(type) {
	case nil:
	case string:
		if w != "" {
			out["warnings"] = []interface{}{w}
		}
	case []interface{}:
		kept := make([]interface{}, 0, len(w))
		for _, item := range w {
			if s, ok := item.(string); ok && s != "" {
				kept = append(kept, s)
			}
		}
		if len(kept) > 0 {
			out["warnings"] = kept
		}
	default:
		notes = append(notes, "warnings ignored: not a string list")
	}

	fields, ok := doc["fields"].([]interface{})
	if !ok {
		if f, present := doc["fields"]; present {
			out["fields"] = f
		}
		return out, notes
	}

	canonical := make([]interface{}, 0, len(fields))
	for i, item := range fields {
		fm, ok := item.(map[string]interface{})
		if !ok {
			canonical = append(canonical, item)
			continue
		}
		field, fieldNotes := normalizeField(i, fm)
		canonical = append(canonical, field)
		notes = append(notes, fieldNotes...)
	}
	out["fields"] = canonical
	return out, notes
}

func normalizeField(index int, in map[string]interface{}) (map[string]interface{}, []string) {
	var notes []string
	out := make(map[string]interface{})

	for _, key := range []string{"id", "label", "helpText", "placeholder", "required"} {
		if v, ok := in[key]; ok && v != nil {
			out[key] = v
		}
	}

	fieldType := ""
	if t, ok := in["type"].(string); ok {
		fieldType = canonicalType(t)
		if multiple, _ := in["multiple"].(bool); multiple && fieldType == string(FieldTypeSelect) {
			fieldType = string(FieldTypeMultiselect)
		}
		out["type"] = fieldType
	} else if t, present := in["type"]; present {
		out["type"] = t
	}

	validations, _ := in["validations"].(map[string]interface{})

	for _, key := range []string{"min", "max"} {
		if v, ok := firstPresent(in, key); ok {
			out[key] = toNumber(v)
		} else if v, ok := firstPresent(validations, key); ok {
			out[key] = toNumber(v)
		}
	}
	if v, ok := firstPresent(in, "step"); ok {
		out["step"] = toNumber(v)
	}

	if v, ok := firstPresent(in, "currency", "currencyCode"); ok {
		out["currency"] = v
	}

	if validations != nil {
		nested := make(map[string]interface{})
		for _, key := range []string{"minLength", "maxLength"} {
			if v, ok := firstPresent(validations, key); ok {
				nested[key] = toNumber(v)
			}
		}
		if v, ok := firstPresent(validations, "pattern"); ok {
			if s, isString := v.(string); !isString || s != "" {
				nested["pattern"] = v
			}
		}
		if len(nested) > 0 {
			out["validations"] = nested
		}
	} else if v, present := in["validations"]; present && v != nil {
		out["validations"] = v
	}

	if FieldType(fieldType).IsMulti() {
		if v, ok := firstPresent(in, "minSelected"); ok {
			out["minSelected"] = toNumber(v)
		}
	}

	if FieldType(fieldType).IsChoice() {
		if raw, ok := in["options"]; ok && raw != nil {
			opts, dropped := normalizeOptions(raw)
			out["options"] = opts
			for _, value := range dropped {
				notes = append(notes, fmt.Sprintf("fields[%d]: duplicate option value %q dropped", index, value))
			}
		}
	}

	if v, ok := firstPresent(in, "showIf", "visibleWhen"); ok {
		out["showIf"] = normalizePredicate(v)
	}

	return out, notes
}

// firstPresent returns the first non-null value among keys.
func firstPresent(m map[string]interface{}, keys ...string) (interface{}, bool) {
	if m == nil {
		return nil, false
	}
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// toNumber converts numeric strings; anything else is returned as is.
func toNumber(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return v
}

func stringify(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	}
	return "", false
}

// normalizeOptions accepts a list of {value,label} objects, a list of scalars, or a
// value->label object, and returns a canonical list with later duplicates removed.
func normalizeOptions(raw interface{}) (interface{}, []string) {
	var list []interface{}

	switch v := raw.(type) {
	case []interface{}:
		for _, item := range v {
			list = append(list, normalizeOption(item))
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			label, ok := stringify(v[k])
			if !ok || label == "" {
				label = k
			}
			list = append(list, map[string]interface{}{"value": k, "label": label})
		}
	default:
		return raw, nil
	}

	seen := make(map[string]bool, len(list))
	var dropped []string
	deduped := make([]interface{}, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			if value, ok := m["value"].(string); ok {
				if seen[value] {
					dropped = append(dropped, value)
					continue
				}
				seen[value] = true
			}
		}
		deduped = append(deduped, item)
	}
	return deduped, dropped
}

func normalizeOption(item interface{}) interface{} {
	if s, ok := stringify(item); ok {
		return map[string]interface{}{"value": s, "label": s}
	}
	m, ok := item.(map[string]interface{})
	if !ok {
		return item
	}

	out := make(map[string]interface{}, 2)
	value, hasValue := stringify(m["value"])
	label, hasLabel := stringify(m["label"])
	switch {
	case hasValue && hasLabel:
		out["value"], out["label"] = value, label
	case hasValue:
		out["value"], out["label"] = value, value
	case hasLabel:
		out["value"], out["label"] = label, label
	default:
		// leave it for the schema to reject
		if v, ok := m["value"]; ok {
			out["value"] = v
		}
		if l, ok := m["label"]; ok {
			out["label"] = l
		}
	}
	return out
}

func normalizePredicate(raw interface{}) interface{} {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return raw
	}

	out := make(map[string]interface{})
	if f, ok := m["field"]; ok {
		out["field"] = f
	}
	if eq, ok := m["equals"]; ok && eq != nil {
		out["equals"] = eq
	}
	switch anyOf := m["anyOf"].(type) {
	case nil:
	case []interface{}:
		values := make([]interface{}, 0, len(anyOf))
		for _, item := range anyOf {
			if s, ok := stringify(item); ok {
				values = append(values, s)
			} else {
				values = append(values, item)
			}
		}
		if len(values) > 0 {
			out["anyOf"] = values
		}
	case string:
		out["anyOf"] = []interface{}{anyOf}
	default:
		out["anyOf"] = anyOf
	}
	if v, ok := m["minSelected"]; ok && v != nil {
		out["minSelected"] = toNumber(v)
	}
	if v, ok := m["anySelected"]; ok && v != nil {
		out["anySelected"] = v
	}
	return out
}
