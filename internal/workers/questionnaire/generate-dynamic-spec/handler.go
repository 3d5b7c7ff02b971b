// internal/workers/questionnaire/generate-dynamic-spec/handler.go
package generatedynamicspec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"era-intake/internal/common/metrics"
	"era-intake/internal/generation"
)

const (
	TaskType = "generate-dynamic-spec"
)

var (
	ErrGenerationFailed  = errors.New("GENERATION_FAILED")
	ErrGenerationTimeout = errors.New("GENERATION_TIMEOUT")
	ErrSpecInvalid       = errors.New("SPEC_VALIDATION_FAILED")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Generator is satisfied by *generation.Orchestrator.
type Generator interface {
	Generate(ctx context.Context, core interface{}, prompt string, maxFields int) *generation.Result
}

type Handler struct {
	config    *Config
	generator Generator
	logger    Logger
}

func NewHandler(config *Config, generator Generator, log Logger) *Handler {
	return &Handler{
		config:    config,
		generator: generator,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.throwError(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	switch {
	case err == nil:
		h.completeJob(client, job, output)
	case errors.Is(err, ErrSpecInvalid):
		// the process decides whether to regenerate or continue without questions
		h.throwError(client, job, "SPEC_VALIDATION_FAILED", err.Error())
	default:
		retries := int32(0)
		if job.Retries > 1 {
			retries = job.Retries - 1
		}
		h.failJob(client, job, err, retries)
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	maxFields := input.MaxFields
	if maxFields <= 0 {
		maxFields = h.config.MaxFields
	}

	result := h.generator.Generate(ctx, input.Core, input.Prompt, maxFields)

	if result.Failed() {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrGenerationTimeout
		}
		return nil, fmt.Errorf("%w: %s", ErrGenerationFailed, result.ServiceError.Message)
	}

	if result.Spec == nil {
		h.logger.Warn("generated spec rejected", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"errorCount":    len(result.Errors),
		})
		return nil, fmt.Errorf("%w: %d validation errors", ErrSpecInvalid, len(result.Errors))
	}

	h.logger.Info("dynamic spec generated", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"fields":        len(result.Spec.Fields),
		"removed":       len(result.Removed),
	})

	return &Output{
		DynamicSpec:   result.Spec,
		SpecValid:     true,
		FieldCount:    len(result.Spec.Fields),
		RemovedFields: result.Removed,
		Warnings:      result.Warnings,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error, retries int32) {
	errorCode := "GENERATION_FAILED"
	if errors.Is(err, ErrGenerationTimeout) {
		errorCode = "GENERATION_TIMEOUT"
	}

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":    job.Key,
		"error":     err.Error(),
		"errorCode": errorCode,
		"retries":   retries,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(err.Error()).
		Send(context.Background())
}

func (h *Handler) throwError(client worker.JobClient, job entities.Job, errorCode, message string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": message,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	_, _ = client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(message).
		Send(context.Background())
}

// Execute runs the generation without a job, for tests and direct callers.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
