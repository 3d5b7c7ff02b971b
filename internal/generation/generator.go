// internal/generation/generator.go
package generation

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrGenerationFailed  = errors.New("GENERATION_FAILED")
	ErrGenerationTimeout = errors.New("GENERATION_TIMEOUT")
)

// Request is what the orchestrator hands to a text-generation service.
type Request struct {
	System  string `json:"system"`
	User    string `json:"user"`
	Context string `json:"context"`
}

// UserContent joins the user instruction and the applicant context into one message.
func (r Request) UserContent() string {
	return fmt.Sprintf("%s\n\nAPPLICANT_CONTEXT:\n%s", r.User, r.Context)
}

// Response carries the generated text plus provider metadata for the debug payload.
type Response struct {
	Text string
	// Payload is the provider-specific request body actually sent.
	Payload interface{}
	Meta    map[string]interface{}
}

// Generator is a text-generation service returning JSON text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
}

// ServiceError is a failure reported by the generation service itself.
type ServiceError struct {
	Message string      `json:"message"`
	Code    interface{} `json:"code"`
	Param   interface{} `json:"param"`
	Status  int         `json:"-"`
	// Payload is the request body that was rejected, when one was built.
	Payload interface{} `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("generation service error (status %d): %s", e.Status, e.Message)
	}
	return "generation service error: " + e.Message
}

func (e *ServiceError) Unwrap() error { return ErrGenerationFailed }
