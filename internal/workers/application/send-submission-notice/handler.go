// internal/workers/application/send-submission-notice/handler.go
package sendsubmissionnotice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "era-intake/internal/common/errors"
	"era-intake/internal/common/metrics"
	"era-intake/internal/models"
	"era-intake/internal/store"
)

const (
	TaskType = "send-submission-notice"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Reader interface {
	Get(ctx context.Context, sessionID string) (*models.Application, error)
}

type Notifier interface {
	NotifySubmitted(ctx context.Context, app *models.Application) ([]models.Notification, error)
}

type Indexer interface {
	IndexApplication(ctx context.Context, app *models.Application) error
}

type Handler struct {
	config       *Config
	store        Reader
	notifier     Notifier
	indexer      Indexer
	logger       Logger
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

// NewHandler builds the handler; indexer may be nil when search is disabled.
func NewHandler(config *Config, st Reader, notifier Notifier, indexer Indexer, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:       config,
		store:        st,
		notifier:     notifier,
		indexer:      indexer,
		logger:       l,
		errorHandler: apperrors.NewErrorHandler(l),
		now:          time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidInputError(err.Error()))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		var stdErr *apperrors.StandardError
		code := "UNKNOWN"
		if errors.As(err, &stdErr) {
			code = string(stdErr.Code)
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.SessionID == "" {
		return nil, apperrors.NewInvalidInputError("sessionId is required")
	}

	app, err := h.store.Get(ctx, input.SessionID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperrors.NewApplicationNotFoundError(input.SessionID)
	case err != nil:
		return nil, apperrors.NewDatabaseReadFailedError(err)
	}
	if !app.IsSubmitted() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("application %s is not submitted", app.ID))
	}

	notifications, err := h.notifier.NotifySubmitted(ctx, app)
	if err != nil {
		// a partial send still leaves the sent notifications on record
		sent := 0
		for _, n := range notifications {
			if n.Status == models.NotificationSent {
				sent++
			}
		}
		if sent == 0 {
			return nil, apperrors.NewNotificationSendFailedError("all", err)
		}
		h.logger.Warn("some notifications failed", map[string]interface{}{
			"applicationId": app.ID,
			"sent":          sent,
			"error":         err.Error(),
		})
	}

	output := &Output{
		ApplicationID: app.ID,
		Notifications: notifications,
		NotifiedAt:    h.now().UTC().Format(time.RFC3339),
	}

	if h.indexer != nil {
		if err := h.indexer.IndexApplication(ctx, app); err != nil {
			h.logger.Warn("search indexing failed", map[string]interface{}{
				"applicationId": app.ID,
				"error":         err.Error(),
			})
		} else {
			output.Indexed = true
		}
	}

	h.logger.Info("submission notice sent", map[string]interface{}{
		"applicationId": app.ID,
		"notifications": len(notifications),
		"indexed":       output.Indexed,
	})
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
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

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
