// internal/workers/application/validate-core-record/handler.go
package validatecorerecord

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"era-intake/internal/common/metrics"
)

const (
	TaskType = "validate-core-record"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	logger Logger
	now    func() time.Time
}

func NewHandler(config *Config, log Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
		now: time.Now,
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

	output := h.execute(ctx, &input)
	h.completeJob(client, job, output)
}

// execute reports an incomplete record as data; the process gateway routes on isValid.
func (h *Handler) execute(_ context.Context, input *Input) *Output {
	result := input.Core.Validate()

	output := &Output{
		IsValid:          result.Valid,
		MissingSections:  input.Core.IncompleteSections(),
		ValidationErrors: result.Errors,
		HardshipAttested: input.Core.Eligibility != nil && !result.HasErrors("eligibility.hardship"),
		TotalRentOwed:    input.Core.TotalRentOwed(),
		ValidatedAt:      h.now().UTC().Format(time.RFC3339),
	}

	h.logger.Info("core record validated", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"isValid":       output.IsValid,
		"missing":       output.MissingSections,
		"errorCount":    len(output.ValidationErrors),
	})
	return output
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

func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	return h.execute(ctx, input)
}
