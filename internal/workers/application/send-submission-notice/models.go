// internal/workers/application/send-submission-notice/models.go
package sendsubmissionnotice

import "era-intake/internal/models"

type Input struct {
	SessionID string `json:"sessionId"`
}

type Output struct {
	ApplicationID string                `json:"applicationId"`
	Notifications []models.Notification `json:"notifications"`
	NotifiedAt    string                `json:"notifiedAt"`
	Indexed       bool                  `json:"indexed"`
}
