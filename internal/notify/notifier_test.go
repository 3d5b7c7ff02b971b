package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"era-intake/internal/common/logger"
	"era-intake/internal/models"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	calls         []*ses.SendEmailInput
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.calls = append(m.calls, params)
	if m.SendEmailFunc == nil {
		return &ses.SendEmailOutput{}, nil
	}
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	calls       []*sns.PublishInput
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.calls = append(m.calls, params)
	if m.PublishFunc == nil {
		return &sns.PublishOutput{}, nil
	}
	return m.PublishFunc(ctx, params, optFns...)
}

// ==========================
// Test Helper Functions
// ==========================

func testApplication() *models.Application {
	return &models.Application{
		ID: "app-001",
		Core: models.Core{
			Applicant: &models.Applicant{FirstName: "Ana", Email: "ana@example.org", Phone: "(937) 555-0100"},
			Housing:   &models.Housing{MonthlyRent: models.NewNumber(900), MonthsBehind: models.NewNumber(2)},
		},
	}
}

func allChannels() Config {
	return Config{EmailEnabled: true, SMSEnabled: true, FromEmail: "noreply@era.example.org"}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestNotifier_NotifySubmitted_AllChannels(t *testing.T) {
	sesMock, snsMock := &MockSESService{}, &MockSNSService{}
	n := NewNotifier(allChannels(), sesMock, snsMock, logger.NewTestLogger(t))

	sent, err := n.NotifySubmitted(context.Background(), testApplication())
	require.NoError(t, err)
	require.Len(t, sent, 2)

	assert.Equal(t, models.ChannelEmail, sent[0].Channel)
	assert.Equal(t, models.NotificationSent, sent[0].Status)
	assert.Equal(t, models.ChannelSMS, sent[1].Channel)
	assert.Equal(t, "+19375550100", sent[1].Recipient)

	require.Len(t, sesMock.calls, 1)
	assert.Equal(t, []string{"ana@example.org"}, sesMock.calls[0].Destination.ToAddresses)
	assert.Equal(t, "noreply@era.example.org", *sesMock.calls[0].Source)
	body := *sesMock.calls[0].Message.Body.Text.Data
	assert.Contains(t, body, "Hello Ana")
	assert.Contains(t, body, "app-001")
	assert.Contains(t, body, "$1800.00")

	require.Len(t, snsMock.calls, 1)
	assert.Equal(t, "+19375550100", *snsMock.calls[0].PhoneNumber)
}

func TestNotifier_NotifySubmitted_Disabled(t *testing.T) {
	n := NewNotifier(Config{}, nil, nil, logger.NewTestLogger(t))

	sent, err := n.NotifySubmitted(context.Background(), testApplication())
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, models.NotificationDisabled, sent[0].Status)
}

func TestNotifier_NotifySubmitted_UnusablePhoneSkipsSMS(t *testing.T) {
	sesMock, snsMock := &MockSESService{}, &MockSNSService{}
	n := NewNotifier(allChannels(), sesMock, snsMock, logger.NewTestLogger(t))

	app := testApplication()
	app.Core.Applicant.Phone = "555-0100"

	sent, err := n.NotifySubmitted(context.Background(), app)
	require.NoError(t, err)
	assert.Len(t, sent, 1)
	assert.Empty(t, snsMock.calls)
}

func TestNotifier_NotifySubmitted_InvalidEmailSkipsEmail(t *testing.T) {
	sesMock, snsMock := &MockSESService{}, &MockSNSService{}
	n := NewNotifier(allChannels(), sesMock, snsMock, logger.NewTestLogger(t))

	app := testApplication()
	app.Core.Applicant.Email = "ana@"

	sent, err := n.NotifySubmitted(context.Background(), app)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, models.ChannelSMS, sent[0].Channel)
	assert.Empty(t, sesMock.calls)
}

func TestNotifier_NotifySubmitted_Failure(t *testing.T) {
	sesMock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	snsMock := &MockSNSService{}
	n := NewNotifier(allChannels(), sesMock, snsMock, logger.NewTestLogger(t))

	sent, err := n.NotifySubmitted(context.Background(), testApplication())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotificationSendFailed)
	assert.Contains(t, err.Error(), "throttled")

	require.Len(t, sent, 2)
	assert.Equal(t, models.NotificationFailed, sent[0].Status)
	assert.Empty(t, sent[0].SentAt)
	assert.Equal(t, models.NotificationSent, sent[1].Status, "sms still attempted")
}

// ==========================
// Helper Function Tests
// ==========================

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(937) 555-0100", "+19375550100"},
		{"1-937-555-0100", "+19375550100"},
		{"+44 20 7946 0958", "+442079460958"},
		{"937.555.0100", "+19375550100"},
		{"555-0100", ""},
		{"tel:9375550100", ""},
		{"937-555-0100 ext 4", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePhone(tt.in))
		})
	}
}

func TestRenderTemplate(t *testing.T) {
	got := renderTemplate("Hi {{name}}, ref {{ref}}{{missing}}.", map[string]interface{}{
		"name": "Ana",
		"ref":  42,
	})
	assert.Equal(t, "Hi Ana, ref 42.", got)
}
