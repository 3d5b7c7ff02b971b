// Package errors provides the standardized error shape shared by the HTTP API and the
// Zeebe workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Dynamic questionnaire
	ErrCodeSpecValidationFailed ErrorCode = "SPEC_VALIDATION_FAILED"
	ErrCodeGenerationFailed     ErrorCode = "GENERATION_FAILED"
	ErrCodeGenerationTimeout    ErrorCode = "GENERATION_TIMEOUT"
	ErrCodeSpecMissing          ErrorCode = "SPEC_MISSING"
	ErrCodeAnswersInvalid       ErrorCode = "ANSWERS_INVALID"

	// Core record
	ErrCodeSectionInvalid ErrorCode = "SECTION_INVALID"
	ErrCodeCoreIncomplete ErrorCode = "CORE_INCOMPLETE"
	ErrCodeInvalidInput   ErrorCode = "INVALID_INPUT"

	// Application lifecycle
	ErrCodeApplicationNotFound  ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeApplicationSubmitted ErrorCode = "APPLICATION_SUBMITTED"

	// Persistence
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseReadFailed       ErrorCode = "DATABASE_READ_FAILED"
	ErrCodeDatabaseWriteFailed      ErrorCode = "DATABASE_WRITE_FAILED"

	// Side effects
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeSearchIndexFailed      ErrorCode = "SEARCH_INDEX_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error's metadata and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewSpecValidationFailedError reports a generated or uploaded questionnaire that did not validate.
func NewSpecValidationFailedError(details string) *StandardError {
	return newError(ErrCodeSpecValidationFailed, "Dynamic form spec failed validation", details, false)
}

// NewGenerationFailedError creates a retryable model service error.
func NewGenerationFailedError(err error) *StandardError {
	return newError(ErrCodeGenerationFailed, "Questionnaire generation failed", err.Error(), true)
}

func NewGenerationTimeoutError() *StandardError {
	return newError(ErrCodeGenerationTimeout, "Questionnaire generation timeout", "model call exceeded its deadline", true)
}

func NewSpecMissingError(sessionID string) *StandardError {
	return newError(ErrCodeSpecMissing, "No dynamic questionnaire has been generated", fmt.Sprintf("sessionId: %s", sessionID), false)
}

// NewAnswersInvalidError carries per-field messages in Metadata["fieldErrors"].
func NewAnswersInvalidError(fieldErrors map[string]string) *StandardError {
	e := newError(ErrCodeAnswersInvalid, "Dynamic answers failed validation", fmt.Sprintf("%d field(s) invalid", len(fieldErrors)), false)
	return e.WithMetadata("fieldErrors", fieldErrors)
}

func NewSectionInvalidError(section, details string) *StandardError {
	e := newError(ErrCodeSectionInvalid, fmt.Sprintf("Section '%s' failed validation", section), details, false)
	return e.WithMetadata("section", section)
}

// NewCoreIncompleteError lists the sections that are missing or invalid.
func NewCoreIncompleteError(missing []string) *StandardError {
	e := newError(ErrCodeCoreIncomplete, "Core application is incomplete", strings.Join(missing, ", "), false)
	return e.WithMetadata("missingSections", missing)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid request input", details, false)
}

func NewApplicationNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeApplicationNotFound, "Application not found", fmt.Sprintf("sessionId: %s", sessionID), false)
}

func NewApplicationSubmittedError(sessionID string) *StandardError {
	return newError(ErrCodeApplicationSubmitted, "Application has already been submitted", fmt.Sprintf("sessionId: %s", sessionID), false)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

func NewDatabaseReadFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseReadFailed, "Database read failed", err.Error(), true)
}

func NewDatabaseWriteFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseWriteFailed, "Database write failed", err.Error(), true)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed", fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

func NewSearchIndexFailedError(err error) *StandardError {
	return newError(ErrCodeSearchIndexFailed, "Search indexing failed", err.Error(), true)
}

// ==========================
// 4. Error Conversion
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseReadFailed,
		ErrCodeDatabaseWriteFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeSearchIndexFailed,
		ErrCodeGenerationFailed:
		return 3

	case ErrCodeGenerationTimeout:
		return 1

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// HTTPStatus maps an error code to the status the API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeSpecValidationFailed, ErrCodeAnswersInvalid, ErrCodeSectionInvalid,
		ErrCodeCoreIncomplete:
		return http.StatusUnprocessableEntity
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeApplicationNotFound, ErrCodeSpecMissing:
		return http.StatusNotFound
	case ErrCodeApplicationSubmitted:
		return http.StatusConflict
	case ErrCodeGenerationFailed:
		return http.StatusBadGateway
	case ErrCodeGenerationTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeDatabaseConnectionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError unwraps err to a *StandardError, or wraps it as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SPEC") || strings.Contains(codeStr, "GENERATION") || strings.Contains(codeStr, "ANSWERS"):
		return "QUESTIONNAIRE"
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "APPLICATION"):
		return "APPLICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "INCOMPLETE"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
