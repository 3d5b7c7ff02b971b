// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"era-intake/internal/common/database"
	"era-intake/internal/common/logger"
	"era-intake/internal/formspec"
	"era-intake/internal/models"
)

const backendPostgres = "postgres"

// Schema creates the applications table. session_id is unique so writes can upsert on it.
const Schema = `CREATE TABLE IF NOT EXISTS applications (
	id              uuid PRIMARY KEY,
	session_id      text NOT NULL UNIQUE,
	status          text NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'submitted')),
	core            jsonb NOT NULL DEFAULT '{}'::jsonb,
	prompt          text,
	dynamic_spec    jsonb,
	dynamic_answers jsonb,
	created_at      timestamptz NOT NULL DEFAULT now(),
	updated_at      timestamptz NOT NULL DEFAULT now()
)`

const (
	selectColumns = `SELECT id, session_id, status, core, prompt, dynamic_spec, dynamic_answers, created_at, updated_at FROM applications`

	queryBySession = selectColumns + ` WHERE session_id = $1`

	queryBySessionForUpdate = queryBySession + ` FOR UPDATE`

	upsertApplication = `INSERT INTO applications (id, session_id, status, core, prompt, dynamic_spec, dynamic_answers, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (session_id) DO UPDATE SET
	status = EXCLUDED.status,
	core = EXCLUDED.core,
	prompt = EXCLUDED.prompt,
	dynamic_spec = EXCLUDED.dynamic_spec,
	dynamic_answers = EXCLUDED.dynamic_answers,
	updated_at = EXCLUDED.updated_at`

	markSubmitted = `UPDATE applications SET status = $2, updated_at = $3 WHERE id = $1`

	deleteDraft = `DELETE FROM applications WHERE session_id = $1 AND status = 'draft'`
)

type PostgresStore struct {
	db     *database.PostgresClient
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

func NewPostgresStore(db *database.PostgresClient, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db: db,
		logger: log.With(map[string]interface{}{
			"component": "store",
			"backend":   backendPostgres,
		}),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// EnsureSchema creates the applications table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("%w: create schema: %v", ErrWriteFailed, err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (app *models.Application, err error) {
	defer func() { observe(backendPostgres, "get", err) }()

	app, err = scanApplication(s.db.QueryRow(ctx, queryBySession, sessionID))
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (s *PostgresStore) Merge(ctx context.Context, sessionID string, patch models.Patch) (app *models.Application, err error) {
	defer func() { observe(backendPostgres, "merge", err) }()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanApplication(tx.QueryRowContext(ctx, queryBySessionForUpdate, sessionID))
		switch {
		case errors.Is(err, ErrNotFound):
			current = models.NewApplication(s.newID(), sessionID, s.now())
			s.logger.Info("application created", map[string]interface{}{
				"applicationId": current.ID,
			})
		case err != nil:
			return err
		case current.IsSubmitted():
			return ErrSubmitted
		}

		current.Apply(patch, s.now())
		if err := upsert(ctx, tx, current); err != nil {
			return err
		}
		app = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (s *PostgresStore) Submit(ctx context.Context, sessionID string) (app *models.Application, err error) {
	defer func() { observe(backendPostgres, "submit", err) }()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanApplication(tx.QueryRowContext(ctx, queryBySessionForUpdate, sessionID))
		if err != nil {
			return err
		}
		if current.IsSubmitted() {
			return ErrSubmitted
		}

		current.Status = models.StatusSubmitted
		current.UpdatedAt = s.now()
		if _, err := tx.ExecContext(ctx, markSubmitted, current.ID, string(current.Status), current.UpdatedAt); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
		app = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (s *PostgresStore) Clear(ctx context.Context, sessionID string) (err error) {
	defer func() { observe(backendPostgres, "clear", err) }()

	if _, err = s.db.Exec(ctx, deleteDraft, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrWriteFailed, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrWriteFailed, err)
	}
	return nil
}

func upsert(ctx context.Context, tx *sql.Tx, app *models.Application) error {
	core, err := json.Marshal(app.Core)
	if err != nil {
		return fmt.Errorf("%w: encode core: %v", ErrWriteFailed, err)
	}
	spec, err := jsonArg(app.DynamicSpec, app.DynamicSpec == nil)
	if err != nil {
		return err
	}
	answers, err := jsonArg(app.DynamicAnswers, app.DynamicAnswers == nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, upsertApplication,
		app.ID,
		app.SessionID,
		string(app.Status),
		string(core),
		sql.NullString{String: app.Prompt, Valid: app.Prompt != ""},
		spec,
		answers,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// jsonArg encodes v as a jsonb argument. lib/pq sends []byte as bytea, so text is used.
func jsonArg(v interface{}, isNil bool) (interface{}, error) {
	if isNil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrWriteFailed, err)
	}
	return string(data), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app     models.Application
		status  string
		core    []byte
		prompt  sql.NullString
		spec    []byte
		answers []byte
	)
	err := row.Scan(&app.ID, &app.SessionID, &status, &core, &prompt, &spec, &answers, &app.CreatedAt, &app.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}

	app.Status = models.ApplicationStatus(status)
	app.Prompt = prompt.String

	if len(core) > 0 {
		if err := json.Unmarshal(core, &app.Core); err != nil {
			return nil, fmt.Errorf("%w: core: %v", ErrCorruptState, err)
		}
	}
	if len(spec) > 0 && string(spec) != "null" {
		var s formspec.Spec
		if err := json.Unmarshal(spec, &s); err != nil {
			return nil, fmt.Errorf("%w: dynamic_spec: %v", ErrCorruptState, err)
		}
		app.DynamicSpec = &s
	}
	if len(answers) > 0 && string(answers) != "null" {
		if err := json.Unmarshal(answers, &app.DynamicAnswers); err != nil {
			return nil, fmt.Errorf("%w: dynamic_answers: %v", ErrCorruptState, err)
		}
	}
	return &app, nil
}
