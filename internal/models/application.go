// internal/models/application.go
package models

import (
	"time"

	"era-intake/internal/formspec"
)

type ApplicationStatus string

const (
	StatusDraft     ApplicationStatus = "draft"
	StatusSubmitted ApplicationStatus = "submitted"
)

// Application is the per-session intake record.
type Application struct {
	ID             string            `json:"id" db:"id"`
	SessionID      string            `json:"sessionId" db:"session_id"`
	Status         ApplicationStatus `json:"status" db:"status"`
	Core           Core              `json:"core" db:"core"`
	Prompt         string            `json:"prompt,omitempty" db:"prompt"`
	DynamicSpec    *formspec.Spec    `json:"dynamicSpec,omitempty" db:"dynamic_spec"`
	DynamicAnswers formspec.Answers  `json:"dynamicAnswers,omitempty" db:"dynamic_answers"`
	CreatedAt      time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time         `json:"updatedAt" db:"updated_at"`
}

// NewApplication returns an empty draft for sessionID.
func NewApplication(id, sessionID string, now time.Time) *Application {
	return &Application{
		ID:        id,
		SessionID: sessionID,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (a *Application) IsSubmitted() bool {
	return a != nil && a.Status == StatusSubmitted
}

// Patch is a shallow, section-level update. Nil members leave the stored value alone.
type Patch struct {
	Applicant      *Applicant       `json:"applicant,omitempty"`
	Housing        *Housing         `json:"housing,omitempty"`
	Household      *Household       `json:"household,omitempty"`
	Eligibility    *Eligibility     `json:"eligibility,omitempty"`
	Prompt         *string          `json:"prompt,omitempty"`
	DynamicSpec    *formspec.Spec   `json:"dynamicSpec,omitempty"`
	DynamicAnswers formspec.Answers `json:"dynamicAnswers,omitempty"`

	// ResetAnswers clears saved answers, used when a new spec replaces the old one.
	ResetAnswers bool `json:"-"`
}

// Empty reports whether applying p would change nothing.
func (p Patch) Empty() bool {
	return p.Applicant == nil && p.Housing == nil && p.Household == nil && p.Eligibility == nil &&
		p.Prompt == nil && p.DynamicSpec == nil && p.DynamicAnswers == nil && !p.ResetAnswers
}

// Apply merges p into a. Each present member replaces the stored one whole.
func (a *Application) Apply(p Patch, now time.Time) {
	if p.Applicant != nil {
		a.Core.Applicant = p.Applicant
	}
	if p.Housing != nil {
		a.Core.Housing = p.Housing
	}
	if p.Household != nil {
		a.Core.Household = p.Household
	}
	if p.Eligibility != nil {
		a.Core.Eligibility = p.Eligibility
	}
	if p.Prompt != nil {
		a.Prompt = *p.Prompt
	}
	if p.DynamicSpec != nil {
		a.DynamicSpec = p.DynamicSpec
	}
	if p.ResetAnswers {
		a.DynamicAnswers = nil
	}
	if p.DynamicAnswers != nil {
		a.DynamicAnswers = p.DynamicAnswers
	}
	a.UpdatedAt = now
}

// Export is the consolidated document shown to the applicant and handed to case workers.
type Export struct {
	Core             Core             `json:"core"`
	DynamicQuestions *formspec.Spec   `json:"dynamicQuestions"`
	DynamicAnswers   formspec.Answers `json:"dynamicAnswers"`
	Metadata         ExportMetadata   `json:"metadata"`
}

type ExportMetadata struct {
	ApplicationID string            `json:"applicationId,omitempty"`
	Status        ApplicationStatus `json:"status,omitempty"`
	Prompt        string            `json:"prompt"`
	GeneratedAt   string            `json:"generatedAt"`
	TotalRentOwed float64           `json:"totalRentOwed"`
}

// Export builds the consolidated view; generatedAt is the export time.
func (a *Application) Export(now time.Time) Export {
	return Export{
		Core:             a.Core,
		DynamicQuestions: a.DynamicSpec,
		DynamicAnswers:   a.DynamicAnswers,
		Metadata: ExportMetadata{
			ApplicationID: a.ID,
			Status:        a.Status,
			Prompt:        a.Prompt,
			GeneratedAt:   now.UTC().Format(time.RFC3339),
			TotalRentOwed: a.Core.TotalRentOwed(),
		},
	}
}
