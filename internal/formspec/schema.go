package formspec

import "era-intake/internal/common/validation"

// specSchema is the structural contract applied after synonym folding.
var specSchema = validation.MustCompileSchema(map[string]interface{}{
	"$schema":  "http://json-schema.org/draft-07/schema#",
	"type":     "object",
	"required": []interface{}{"title", "fields"},
	"properties": map[string]interface{}{
		"formId":    map[string]interface{}{"type": "string"},
		"title":     map[string]interface{}{"type": "string", "minLength": 1},
		"version":   map[string]interface{}{"type": "string"},
		"rationale": map[string]interface{}{"type": "string"},
		"warnings": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"fields": map[string]interface{}{
			"type":  "array",
			"items": fieldSchema(),
		},
	},
})

func fieldSchema() map[string]interface{} {
	types := make([]interface{}, len(FieldTypes))
	for i, t := range FieldTypes {
		types[i] = string(t)
	}

	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"id", "type", "label"},
		"properties": map[string]interface{}{
			"id":          map[string]interface{}{"type": "string", "minLength": 1},
			"type":        map[string]interface{}{"type": "string", "enum": types},
			"label":       map[string]interface{}{"type": "string", "minLength": 1},
			"helpText":    map[string]interface{}{"type": "string"},
			"placeholder": map[string]interface{}{"type": "string"},
			"required":    map[string]interface{}{"type": "boolean"},
			"min":         map[string]interface{}{"type": "number"},
			"max":         map[string]interface{}{"type": "number"},
			"step":        map[string]interface{}{"type": "number", "exclusiveMinimum": 0},
			"currency":    map[string]interface{}{"type": "string"},
			"minSelected": map[string]interface{}{"type": "integer", "minimum": 0},
			"options": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"value", "label"},
					"properties": map[string]interface{}{
						"value": map[string]interface{}{"type": "string"},
						"label": map[string]interface{}{"type": "string"},
					},
				},
			},
			"validations": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"minLength": map[string]interface{}{"type": "integer", "minimum": 0},
					"maxLength": map[string]interface{}{"type": "integer", "minimum": 0},
					"pattern":   map[string]interface{}{"type": "string"},
				},
			},
			"showIf": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"field"},
				"properties": map[string]interface{}{
					"field": map[string]interface{}{"type": "string", "minLength": 1},
					"anyOf": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "string"},
					},
					"minSelected": map[string]interface{}{"type": "integer", "minimum": 0},
					"anySelected": map[string]interface{}{"type": "boolean"},
				},
			},
		},
	}
}
