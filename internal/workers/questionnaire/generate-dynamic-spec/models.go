// internal/workers/questionnaire/generate-dynamic-spec/models.go
package generatedynamicspec

import (
	"era-intake/internal/common/validation"
	"era-intake/internal/formspec"
	"era-intake/internal/models"
)

type Input struct {
	ApplicationID string      `json:"applicationId"`
	Core          models.Core `json:"core"`
	Prompt        string      `json:"prompt,omitempty"`
	MaxFields     int         `json:"maxFields,omitempty"`
}

type Output struct {
	DynamicSpec      *formspec.Spec               `json:"dynamicSpec"`
	SpecValid        bool                         `json:"specValid"`
	FieldCount       int                          `json:"fieldCount"`
	RemovedFields    []string                     `json:"removedFields,omitempty"`
	Warnings         []string                     `json:"warnings,omitempty"`
	ValidationErrors []validation.ValidationError `json:"validationErrors,omitempty"`
}
