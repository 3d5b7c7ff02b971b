// internal/workers/questionnaire/process-dynamic-answers/models.go
package processdynamicanswers

import (
	"era-intake/internal/formspec"
)

// Input carries the spec as the process stored it; it is validated again before use.
type Input struct {
	ApplicationID string           `json:"applicationId"`
	DynamicSpec   interface{}      `json:"dynamicSpec"`
	Answers       formspec.Answers `json:"answers"`
}

type Output struct {
	DynamicAnswers formspec.Answers  `json:"dynamicAnswers"`
	AnswersValid   bool              `json:"answersValid"`
	FieldErrors    map[string]string `json:"fieldErrors,omitempty"`
	HiddenFields   []string          `json:"hiddenFields,omitempty"`
}
