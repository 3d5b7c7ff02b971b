// internal/workers/questionnaire/process-dynamic-answers/handler.go
package processdynamicanswers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"era-intake/internal/common/metrics"
	"era-intake/internal/formspec"
)

const (
	TaskType = "process-dynamic-answers"
)

var (
	ErrInvalidInput = errors.New("INVALID_INPUT")
	ErrSpecInvalid  = errors.New("SPEC_VALIDATION_FAILED")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	logger Logger
}

func NewHandler(config *Config, log Logger) *Handler {
	return &Handler{
		config: config,
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
	if err != nil {
		code := "SPEC_VALIDATION_FAILED"
		if errors.Is(err, ErrInvalidInput) {
			code = "INVALID_INPUT"
		}
		h.throwError(client, job, code, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

// execute never fails on bad answers: they come back as field errors so the process
// can route the applicant back to the form.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.DynamicSpec == nil {
		return nil, fmt.Errorf("%w: dynamicSpec is required", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	validated := formspec.Validate(input.DynamicSpec)
	if !validated.OK() {
		return nil, fmt.Errorf("%w: %d validation errors", ErrSpecInvalid, len(validated.Errors))
	}
	spec := validated.Spec

	answers, errs := formspec.Submit(spec, input.Answers)

	visible := formspec.Visible(spec, input.Answers)
	var hidden []string
	for _, f := range spec.Fields {
		if !visible[f.ID] {
			hidden = append(hidden, f.ID)
		}
	}

	output := &Output{
		DynamicAnswers: answers,
		AnswersValid:   len(errs) == 0,
		HiddenFields:   hidden,
	}
	if len(errs) > 0 {
		output.FieldErrors = make(map[string]string, len(errs))
		for _, e := range errs {
			if _, seen := output.FieldErrors[e.Field]; !seen {
				output.FieldErrors[e.Field] = e.Message
			}
		}
	}

	h.logger.Info("dynamic answers processed", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"valid":         output.AnswersValid,
		"answers":       len(answers),
		"hidden":        len(hidden),
	})

	return output, nil
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
