// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"era-intake/internal/common/logger"
	"era-intake/internal/common/metrics"
)

// JobHandler is implemented by every worker package's Handler.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Recorder receives per-job timings, typically the OpenTelemetry meter.
type Recorder interface {
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
}

type Worker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker for taskType. The handler completes or fails jobs itself.
func NewWorker(client zbc.Client, taskType string, opts WorkerOptions, handler JobHandler, recorder Recorder, log logger.Logger) *Worker {
	if opts.MaxJobsActive <= 0 {
		opts.MaxJobsActive = 5
	}

	step := client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, handler, recorder)).
		MaxJobsActive(opts.MaxJobsActive)
	if opts.Timeout > 0 {
		step = step.Timeout(opts.Timeout)
	}

	w := &Worker{
		worker:   step.Open(),
		logger:   log.WithFields(map[string]interface{}{"taskType": taskType}),
		taskType: taskType,
	}
	w.logger.Info("worker started", nil)
	return w
}

// Instrument wraps a handler with duration metrics.
func Instrument(taskType string, handler JobHandler, recorder Recorder) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		handler.Handle(client, job)
		elapsed := time.Since(start)

		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
		if recorder != nil {
			recorder.RecordJobDuration(context.Background(), taskType, elapsed, "handled")
		}
	}
}

// Stop closes the job worker and waits for in-flight jobs. The shared client stays open.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
