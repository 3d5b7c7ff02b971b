// internal/notify/notifier.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	"era-intake/internal/common/logger"
	"era-intake/internal/common/validation"
	"era-intake/internal/models"
)

var ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
}

type template struct {
	subject string
	body    string
}

var templates = map[string]template{
	models.NotificationTypeSubmitted: {
		subject: "Rental assistance application received",
		body: "Hello {{firstName}}, we received your rental assistance application {{applicationId}}. " +
			"Total rent owed on file: {{totalRentOwed}}. A case worker will contact you.",
	},
}

type Notifier struct {
	config    Config
	sesClient SESService
	snsClient SNSService
	logger    logger.Logger
	now       func() time.Time
}

// NewNotifier builds a notifier. A nil client disables its channel.
func NewNotifier(cfg Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	if sesClient == nil {
		cfg.EmailEnabled = false
	}
	if snsClient == nil {
		cfg.SMSEnabled = false
	}
	return &Notifier{
		config:    cfg,
		sesClient: sesClient,
		snsClient: snsClient,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
		now:       time.Now,
	}
}

// NotifySubmitted sends the submission receipt on every enabled channel with a
// usable address. Every attempt is reported; the error aggregates failed sends.
func (n *Notifier) NotifySubmitted(ctx context.Context, app *models.Application) ([]models.Notification, error) {
	tmpl := templates[models.NotificationTypeSubmitted]
	data := map[string]interface{}{
		"applicationId": app.ID,
		"totalRentOwed": fmt.Sprintf("$%.2f", app.Core.TotalRentOwed()),
	}
	var email, phone string
	if a := app.Core.Applicant; a != nil {
		data["firstName"] = a.FirstName
		email = strings.TrimSpace(a.Email)
		phone = normalizePhone(a.Phone)
		if email != "" && !validation.ValidateEmail(email) {
			n.logger.Warn("skipping email: address is not deliverable", map[string]interface{}{
				"applicationId": app.ID,
			})
			email = ""
		}
	}

	subject := renderTemplate(tmpl.subject, data)
	body := renderTemplate(tmpl.body, data)

	var sent []models.Notification
	var failures []string

	record := func(channel, recipient string, err error) {
		nt := models.Notification{
			ID:            uuid.New().String(),
			ApplicationID: app.ID,
			Type:          models.NotificationTypeSubmitted,
			Channel:       channel,
			Recipient:     recipient,
			Status:        models.NotificationSent,
			Payload:       map[string]interface{}{"subject": subject},
			SentAt:        n.now().UTC().Format(time.RFC3339),
		}
		if err != nil {
			nt.Status = models.NotificationFailed
			nt.SentAt = ""
			failures = append(failures, fmt.Sprintf("%s: %v", channel, err))
			n.logger.Error("notification send failed", map[string]interface{}{
				"applicationId": app.ID,
				"channel":       channel,
				"error":         err,
			})
		}
		sent = append(sent, nt)
	}

	if n.config.EmailEnabled && email != "" {
		record(models.ChannelEmail, email, n.sendEmail(ctx, email, subject, body))
	}
	if n.config.SMSEnabled && phone != "" {
		record(models.ChannelSMS, phone, n.sendSMS(ctx, phone, body))
	}

	if len(sent) == 0 {
		n.logger.Debug("no notification channel enabled", map[string]interface{}{"applicationId": app.ID})
		return []models.Notification{{
			ID:            uuid.New().String(),
			ApplicationID: app.ID,
			Type:          models.NotificationTypeSubmitted,
			Status:        models.NotificationDisabled,
		}}, nil
	}

	if len(failures) > 0 {
		return sent, fmt.Errorf("%w: %s", ErrNotificationSendFailed, strings.Join(failures, "; "))
	}
	return sent, nil
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.FromEmail),
	})
	return err
}

func (n *Notifier) sendSMS(ctx context.Context, to, message string) error {
	_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

// normalizePhone returns an E.164 number, or "" when phone cannot be one.
// Ten-digit numbers are taken as North American.
func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if !validation.ValidatePhone(phone) {
		return ""
	}
	plus := strings.HasPrefix(phone, "+")

	var digits strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch {
	case plus && len(d) >= 8 && len(d) <= 15:
		return "+" + d
	case len(d) == 10:
		return "+1" + d
	case len(d) == 11 && d[0] == '1':
		return "+" + d
	}
	return ""
}

// renderTemplate replaces {{key}} placeholders; unknown placeholders render empty.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value := ""
		if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}
