// internal/workers/application/validate-core-record/handler_test.go
package validatecorerecord

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"era-intake/internal/models"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Info(msg string, fields map[string]interface{})  { l.t.Logf("INFO: %s %v", msg, fields) }
func (l *TestLogger) Error(msg string, fields map[string]interface{}) { l.t.Logf("ERROR: %s %v", msg, fields) }
func (l *TestLogger) With(fields map[string]interface{}) Logger       { return l }

// ==========================
// Test Helper Functions
// ==========================

func newTestHandler(t *testing.T) *Handler {
	h := NewHandler(&Config{Timeout: time.Second}, &TestLogger{t})
	h.now = func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) }
	return h
}

const completeCore = `{
  "applicant": {"firstName": "Ana", "lastName": "Ruiz", "dob": "1988-04-02", "phone": "555-0100", "email": "ana@example.org"},
  "housing": {"address1": "12 Elm St", "city": "Dayton", "state": "OH", "zip": "45402", "monthlyRent": "1200", "monthsBehind": 3},
  "household": {"size": 3},
  "eligibility": {"hardship": true, "typedSignature": "Ana Ruiz", "signedAtISO": "2026-10-01T12:00:00Z"}
}`

func decodeCore(t *testing.T, raw string) models.Core {
	var c models.Core
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	return c
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_CompleteRecord(t *testing.T) {
	output := newTestHandler(t).Execute(context.Background(), &Input{
		ApplicationID: "app-001",
		Core:          decodeCore(t, completeCore),
	})

	assert.True(t, output.IsValid)
	assert.Empty(t, output.MissingSections)
	assert.Empty(t, output.ValidationErrors)
	assert.True(t, output.HardshipAttested)
	assert.Equal(t, 3600.0, output.TotalRentOwed)
	assert.Equal(t, "2026-10-01T12:00:00Z", output.ValidatedAt)
}

func TestHandler_Execute_IncompleteRecord(t *testing.T) {
	tests := []struct {
		name     string
		core     string
		missing  []string
		hardship bool
	}{
		{
			name:     "empty record",
			core:     `{}`,
			missing:  models.Sections,
		},
		{
			name:     "hardship not attested",
			core:     `{"eligibility": {"hardship": false, "typedSignature": "A", "signedAtISO": "t"}}`,
			missing:  models.Sections,
		},
		{
			name:     "bad zip only",
			core:     `{"applicant": {"firstName": "A", "lastName": "R", "dob": "x", "phone": "5550100", "email": "a@b.co"}, "housing": {"address1": "a", "city": "c", "state": "OH", "zip": "1", "monthlyRent": 900, "monthsBehind": 1}, "household": {"size": 1}, "eligibility": {"hardship": true, "typedSignature": "A", "signedAtISO": "t"}}`,
			missing:  []string{models.SectionHousing},
			hardship: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := newTestHandler(t).Execute(context.Background(), &Input{Core: decodeCore(t, tt.core)})
			assert.False(t, output.IsValid)
			assert.Equal(t, tt.missing, output.MissingSections)
			assert.NotEmpty(t, output.ValidationErrors)
			assert.Equal(t, tt.hardship, output.HardshipAttested)
		})
	}
}
