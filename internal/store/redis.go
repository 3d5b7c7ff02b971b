// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"era-intake/internal/common/logger"
	"era-intake/internal/models"
)

const (
	backendRedis = "redis"
	keyPrefix    = "era-application:"
)

// RedisStore keeps each session's record as one JSON document, like the browser-storage
// revision of the wizard did. A positive TTL expires abandoned drafts; submitted
// records never expire.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration, log logger.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{
			"component": "store",
			"backend":   backendRedis,
		}),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (app *models.Application, err error) {
	defer func() { observe(backendRedis, "get", err) }()
	return s.load(ctx, sessionID)
}

func (s *RedisStore) Merge(ctx context.Context, sessionID string, patch models.Patch) (app *models.Application, err error) {
	defer func() { observe(backendRedis, "merge", err) }()

	app, err = s.load(ctx, sessionID)
	switch {
	case errors.Is(err, ErrNotFound):
		app = models.NewApplication(s.newID(), sessionID, s.now())
		s.logger.Info("application created", map[string]interface{}{
			"applicationId": app.ID,
		})
	case err != nil:
		return nil, err
	case app.IsSubmitted():
		return nil, ErrSubmitted
	}

	app.Apply(patch, s.now())
	if err = s.save(ctx, app, s.ttl); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *RedisStore) Submit(ctx context.Context, sessionID string) (app *models.Application, err error) {
	defer func() { observe(backendRedis, "submit", err) }()

	app, err = s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if app.IsSubmitted() {
		return nil, ErrSubmitted
	}

	app.Status = models.StatusSubmitted
	app.UpdatedAt = s.now()
	if err = s.save(ctx, app, 0); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) (err error) {
	defer func() { observe(backendRedis, "clear", err) }()

	app, err := s.load(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if app.IsSubmitted() {
		return nil
	}
	if err := s.client.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, sessionID string) (*models.Application, error) {
	data, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}

	var app models.Application
	if err := json.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return &app, nil
}

func (s *RedisStore) save(ctx context.Context, app *models.Application, ttl time.Duration) error {
	data, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrWriteFailed, err)
	}
	if err := s.client.Set(ctx, key(app.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}
