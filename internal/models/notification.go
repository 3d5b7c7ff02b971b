// internal/models/notification.go
package models

type Notification struct {
	ID            string                 `json:"id"`
	ApplicationID string                 `json:"applicationId"`
	Type          string                 `json:"type"`    // "application_submitted"
	Channel       string                 `json:"channel"` // "email", "sms"
	Recipient     string                 `json:"recipient"`
	Status        string                 `json:"status"` // "sent", "failed", "disabled"
	Payload       map[string]interface{} `json:"payload"`
	SentAt        string                 `json:"sentAt,omitempty"`
}

const (
	NotificationTypeSubmitted = "application_submitted"

	ChannelEmail = "email"
	ChannelSMS   = "sms"

	NotificationSent     = "sent"
	NotificationFailed   = "failed"
	NotificationDisabled = "disabled"
)
