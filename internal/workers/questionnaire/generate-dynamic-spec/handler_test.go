// internal/workers/questionnaire/generate-dynamic-spec/handler_test.go
package generatedynamicspec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"era-intake/internal/common/validation"
	"era-intake/internal/formspec"
	"era-intake/internal/generation"
	"era-intake/internal/models"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Info(msg string, fields map[string]interface{})  { l.t.Logf("INFO: %s %v", msg, fields) }
func (l *TestLogger) Warn(msg string, fields map[string]interface{})  { l.t.Logf("WARN: %s %v", msg, fields) }
func (l *TestLogger) Error(msg string, fields map[string]interface{}) { l.t.Logf("ERROR: %s %v", msg, fields) }
func (l *TestLogger) With(fields map[string]interface{}) Logger       { return l }

// ==========================
// Test Helper Functions
// ==========================

type fakeGenerator struct {
	result    *generation.Result
	maxFields int
	wait      bool
}

func (f *fakeGenerator) Generate(ctx context.Context, core interface{}, prompt string, maxFields int) *generation.Result {
	f.maxFields = maxFields
	if f.wait {
		<-ctx.Done()
	}
	return f.result
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, MaxFields: 6}
}

func createTestInput() *Input {
	return &Input{
		ApplicationID: "app-001",
		Core: models.Core{
			Household: &models.Household{Size: 4},
		},
	}
}

func testSpec() *formspec.Spec {
	return &formspec.Spec{
		Title:   "Follow-up",
		Version: "1.0",
		Fields: []formspec.Field{
			{ID: "utility_shutoff", Type: formspec.FieldTypeBoolean, Label: "Utility shutoff notice?"},
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	gen := &fakeGenerator{result: &generation.Result{
		Spec:     testSpec(),
		Removed:  []string{"ssn"},
		Warnings: []string{"fields[0]: duplicate option value \"a\" dropped"},
	}}
	h := NewHandler(createTestConfig(), gen, &TestLogger{t})

	output, err := h.Execute(context.Background(), createTestInput())
	require.NoError(t, err)
	assert.True(t, output.SpecValid)
	assert.Equal(t, 1, output.FieldCount)
	assert.Equal(t, []string{"ssn"}, output.RemovedFields)
	assert.Equal(t, 6, gen.maxFields, "config default applies")
}

func TestHandler_Execute_InputMaxFields(t *testing.T) {
	gen := &fakeGenerator{result: &generation.Result{Spec: testSpec()}}
	h := NewHandler(createTestConfig(), gen, &TestLogger{t})

	input := createTestInput()
	input.MaxFields = 3
	_, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 3, gen.maxFields)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		result  *generation.Result
		wantErr error
	}{
		{
			name: "service failure",
			result: &generation.Result{
				ServiceError: &generation.ServiceError{Message: "Rate limit reached", Status: 429},
			},
			wantErr: ErrGenerationFailed,
		},
		{
			name: "invalid spec",
			result: &generation.Result{
				Raw:    map[string]interface{}{},
				Errors: []validation.ValidationError{{Field: "title", Message: "title is required"}},
			},
			wantErr: ErrSpecInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(), &fakeGenerator{result: tt.result}, &TestLogger{t})
			output, err := h.Execute(context.Background(), createTestInput())
			assert.Nil(t, output)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHandler_Execute_Timeout(t *testing.T) {
	gen := &fakeGenerator{
		wait:   true,
		result: &generation.Result{ServiceError: &generation.ServiceError{Message: "context deadline exceeded"}},
	}
	h := NewHandler(createTestConfig(), gen, &TestLogger{t})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.Execute(ctx, createTestInput())
	assert.ErrorIs(t, err, ErrGenerationTimeout)
}
