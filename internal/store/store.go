// internal/store/store.go
package store

import (
	"context"
	"errors"

	"era-intake/internal/common/metrics"
	"era-intake/internal/models"
)

var (
	ErrNotFound     = errors.New("APPLICATION_NOT_FOUND")
	ErrSubmitted    = errors.New("APPLICATION_SUBMITTED")
	ErrReadFailed   = errors.New("STORE_READ_FAILED")
	ErrWriteFailed  = errors.New("STORE_WRITE_FAILED")
	ErrCorruptState = errors.New("STORE_CORRUPT_RECORD")
)

// Store keeps one application record per session. Writes are last-write-wins.
type Store interface {
	// Get returns ErrNotFound when the session has no record.
	Get(ctx context.Context, sessionID string) (*models.Application, error)
	// Merge applies a shallow section-level patch, creating the draft on first contact.
	// Submitted records are frozen and return ErrSubmitted.
	Merge(ctx context.Context, sessionID string, patch models.Patch) (*models.Application, error)
	// Submit moves the draft to submitted.
	Submit(ctx context.Context, sessionID string) (*models.Application, error)
	// Clear removes the session's draft. Submitted records are kept.
	Clear(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}

func observe(backend, op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrSubmitted):
		outcome = "frozen"
	default:
		outcome = "error"
	}
	metrics.StoreOperations.WithLabelValues(backend, op, outcome).Inc()
}
