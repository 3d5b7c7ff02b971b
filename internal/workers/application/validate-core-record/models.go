// internal/workers/application/validate-core-record/models.go
package validatecorerecord

import (
	"era-intake/internal/common/validation"
	"era-intake/internal/models"
)

type Input struct {
	ApplicationID string      `json:"applicationId"`
	Core          models.Core `json:"core"`
}

type Output struct {
	IsValid          bool                         `json:"isValid"`
	MissingSections  []string                     `json:"missingSections,omitempty"`
	ValidationErrors []validation.ValidationError `json:"validationErrors,omitempty"`
	HardshipAttested bool                         `json:"hardshipAttested"`
	TotalRentOwed    float64                      `json:"totalRentOwed"`
	ValidatedAt      string                       `json:"validatedAt"`
}
