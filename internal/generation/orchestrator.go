// internal/generation/orchestrator.go
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"era-intake/internal/common/logger"
	"era-intake/internal/common/metrics"
	"era-intake/internal/common/validation"
	"era-intake/internal/formspec"
)

// Result is everything a caller needs to show a generated form or explain why there is none.
// Spec is nil whenever generation, parsing or validation failed.
type Result struct {
	Raw      interface{}                  `json:"raw"`
	Spec     *formspec.Spec               `json:"spec"`
	Errors   []validation.ValidationError `json:"errors,omitempty"`
	Warnings []string                     `json:"warnings,omitempty"`
	Removed  []string                     `json:"removed,omitempty"`
	Debug    Debug                        `json:"debug"`

	// ServiceError is set when the generation service itself failed.
	ServiceError *ServiceError `json:"-"`
}

type Debug struct {
	Provider string      `json:"provider,omitempty"`
	Request  interface{} `json:"request"`
	Response interface{} `json:"response"`
	Content  string      `json:"content"`
}

// Failed reports whether the service call failed, as opposed to producing an unusable spec.
func (r *Result) Failed() bool {
	return r.ServiceError != nil
}

type Orchestrator struct {
	generator Generator
	maxFields int
	logger    logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewOrchestrator(generator Generator, maxFields int, log logger.Logger) *Orchestrator {
	if maxFields <= 0 {
		maxFields = DefaultMaxFields
	}
	return &Orchestrator{
		generator: generator,
		maxFields: maxFields,
		logger: log.With(map[string]interface{}{
			"component": "generation",
			"provider":  generator.Name(),
		}),
		tracer: otel.Tracer("era-intake/generation"),
		now:    time.Now,
	}
}

// Generate asks the generator for follow-up questions about core and returns the
// validated, PII-filtered spec. It never returns an error: every failure is data in
// the result. maxFields <= 0 uses the orchestrator default; an empty prompt uses
// DefaultPrompt.
func (o *Orchestrator) Generate(ctx context.Context, core interface{}, prompt string, maxFields int) *Result {
	if maxFields <= 0 {
		maxFields = o.maxFields
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt(maxFields)
	}

	ctx, span := o.tracer.Start(ctx, "generation.generate", trace.WithAttributes(
		attribute.String("provider", o.generator.Name()),
		attribute.Int("max_fields", maxFields),
	))
	defer span.End()

	req := Request{
		System:  SystemInstruction(maxFields),
		User:    prompt,
		Context: applicantContext(core),
	}

	o.logger.Info("generation request", map[string]interface{}{
		"systemPreview":  preview(req.System, 160),
		"userPreview":    preview(req.User, 160),
		"contextPreview": preview(req.Context, 200),
	})

	start := o.now()
	resp, err := o.generator.Generate(ctx, req)
	metrics.GenerationDuration.WithLabelValues(o.generator.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		svcErr := asServiceError(err)
		o.logger.Error("generation failed", map[string]interface{}{
			"error":  svcErr.Message,
			"code":   svcErr.Code,
			"status": svcErr.Status,
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, svcErr.Message)
		metrics.GenerationRequests.WithLabelValues(o.generator.Name(), "service_error").Inc()

		request := svcErr.Payload
		if request == nil {
			request = req
		}
		return &Result{
			Raw:  map[string]interface{}{},
			Spec: nil,
			Debug: Debug{
				Provider: o.generator.Name(),
				Request:  request,
				Response: map[string]interface{}{
					"error": map[string]interface{}{
						"message": svcErr.Message,
						"code":    svcErr.Code,
						"param":   svcErr.Param,
					},
				},
			},
			ServiceError: svcErr,
		}
	}

	o.logger.Info("generation response", map[string]interface{}{
		"contentLength":  len(resp.Text),
		"contentPreview": preview(resp.Text, 200),
	})

	raw, err := parseJSON(resp.Text)
	if err != nil {
		o.logger.Warn("generation response is not valid JSON", map[string]interface{}{
			"error":          err,
			"contentPreview": preview(resp.Text, 200),
		})
	}
	result := &Result{
		Raw: raw,
		Debug: Debug{
			Provider: o.generator.Name(),
			Request:  resp.Payload,
			Response: resp.Meta,
			Content:  resp.Text,
		},
	}
	if result.Debug.Request == nil {
		result.Debug.Request = req
	}

	validated := formspec.Validate(raw)
	result.Errors = validated.Errors
	result.Warnings = validated.Warnings
	if validated.Spec == nil {
		o.logger.Warn("generated spec rejected", map[string]interface{}{
			"errorCount": len(validated.Errors),
		})
		span.SetAttributes(attribute.Int("validation_errors", len(validated.Errors)))
		metrics.GenerationRequests.WithLabelValues(o.generator.Name(), "invalid_spec").Inc()
		return result
	}

	filtered, removed := formspec.FilterPII(*validated.Spec)
	result.Spec = &filtered
	result.Removed = removed
	if len(removed) > 0 {
		metrics.SpecFieldsRemoved.Add(float64(len(removed)))
		o.logger.Warn("PII fields removed from generated spec", map[string]interface{}{
			"removed": removed,
		})
	}

	span.SetAttributes(attribute.Int("fields", len(filtered.Fields)))
	metrics.GenerationRequests.WithLabelValues(o.generator.Name(), "ok").Inc()
	return result
}

// parseJSON decodes text strictly. Empty or invalid text yields an empty object;
// only invalid text reports an error.
func parseJSON(text string) (interface{}, error) {
	if strings.TrimSpace(text) == "" {
		return map[string]interface{}{}, nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return map[string]interface{}{}, err
	}
	return v, nil
}

func applicantContext(core interface{}) string {
	data, err := json.Marshal(map[string]interface{}{"core": core})
	if err != nil {
		return `{"core":null}`
	}
	return string(data)
}

func asServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrGenerationTimeout) {
		return &ServiceError{Message: err.Error(), Code: "timeout"}
	}
	return &ServiceError{Message: err.Error()}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
