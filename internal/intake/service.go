// internal/intake/service.go
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "era-intake/internal/common/errors"
	"era-intake/internal/common/logger"
	"era-intake/internal/common/metrics"
	"era-intake/internal/common/validation"
	"era-intake/internal/formspec"
	"era-intake/internal/generation"
	"era-intake/internal/models"
	"era-intake/internal/store"
)

// Generator produces a validated follow-up questionnaire for a core record.
type Generator interface {
	Generate(ctx context.Context, core interface{}, prompt string, maxFields int) *generation.Result
}

type Notifier interface {
	NotifySubmitted(ctx context.Context, app *models.Application) ([]models.Notification, error)
}

type Indexer interface {
	IndexApplication(ctx context.Context, app *models.Application) error
}

const defaultSideEffectTimeout = 15 * time.Second

// Service drives the intake wizard for one session at a time.
type Service struct {
	store     store.Store
	generator Generator
	notifier  Notifier
	indexer   Indexer
	logger    logger.Logger
	maxFields int

	sideEffectTimeout time.Duration
	now               func() time.Time
}

type Option func(*Service)

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithIndexer(i Indexer) Option { return func(s *Service) { s.indexer = i } }

func WithMaxFields(n int) Option { return func(s *Service) { s.maxFields = n } }

func WithSideEffectTimeout(d time.Duration) Option {
	return func(s *Service) { s.sideEffectTimeout = d }
}

func NewService(st store.Store, gen Generator, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:             st,
		generator:         gen,
		logger:            log.WithFields(map[string]interface{}{"component": "intake"}),
		maxFields:         generation.DefaultMaxFields,
		sideEffectTimeout: defaultSideEffectTimeout,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Application returns the session's record, or an unsaved empty draft on first contact.
func (s *Service) Application(ctx context.Context, sessionID string) (*models.Application, error) {
	app, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return models.NewApplication("", sessionID, s.now().UTC()), nil
	}
	if err != nil {
		return nil, storeError(err, sessionID)
	}
	return app, nil
}

// SaveSection validates one core section on its own and stores it, replacing the
// previous value of that section.
func (s *Service) SaveSection(ctx context.Context, sessionID, section string, data []byte) (*models.Application, error) {
	value, ok := models.NewSection(section)
	if !ok {
		return nil, apperrors.NewInvalidInputError("unknown section: " + section)
	}
	if err := json.Unmarshal(data, value); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	if res := models.ValidateSection(value); !res.Valid {
		return nil, apperrors.NewSectionInvalidError(section, joinErrors(res)).
			WithMetadata("fieldErrors", fieldErrors(res.Errors))
	}

	var patch models.Patch
	switch v := value.(type) {
	case *models.Applicant:
		patch.Applicant = v
	case *models.Housing:
		patch.Housing = v
	case *models.Household:
		patch.Household = v
	case *models.Eligibility:
		patch.Eligibility = v
	}

	app, err := s.store.Merge(ctx, sessionID, patch)
	if err != nil {
		return nil, storeError(err, sessionID)
	}
	s.logger.Debug("section saved", map[string]interface{}{
		"applicationId": app.ID,
		"section":       section,
	})
	return app, nil
}

func (s *Service) SavePrompt(ctx context.Context, sessionID, prompt string) (*models.Application, error) {
	app, err := s.store.Merge(ctx, sessionID, models.Patch{Prompt: &prompt})
	if err != nil {
		return nil, storeError(err, sessionID)
	}
	return app, nil
}

// Generate asks for a follow-up questionnaire. An empty prompt falls back to the saved
// one and then to the default screener prompt. A usable spec replaces the stored spec
// and clears its answers; an unusable one leaves the record untouched. Generation
// failures are reported in the result, not as an error.
func (s *Service) Generate(ctx context.Context, sessionID, prompt string, maxFields int) (*generation.Result, error) {
	app, err := s.Application(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if app.IsSubmitted() {
		return nil, apperrors.NewApplicationSubmittedError(sessionID)
	}
	if maxFields <= 0 {
		maxFields = s.maxFields
	}

	explicit := strings.TrimSpace(prompt) != ""
	if !explicit {
		prompt = app.Prompt
	}

	// an abandoned request still finishes and stores its result
	ctx = context.WithoutCancel(ctx)
	result := s.generator.Generate(ctx, app.Core, prompt, maxFields)
	if result.Spec == nil {
		s.logger.Warn("no usable questionnaire generated", map[string]interface{}{
			"sessionId":     sessionID,
			"serviceFailed": result.Failed(),
			"errorCount":    len(result.Errors),
		})
		return result, nil
	}

	patch := models.Patch{DynamicSpec: result.Spec, ResetAnswers: true}
	if explicit {
		patch.Prompt = &prompt
	}
	if _, err := s.store.Merge(ctx, sessionID, patch); err != nil {
		return nil, storeError(err, sessionID)
	}

	s.logger.Info("questionnaire generated", map[string]interface{}{
		"sessionId": sessionID,
		"fields":    len(result.Spec.Fields),
		"removed":   len(result.Removed),
	})
	return result, nil
}

// Form renders the stored questionnaire with the saved answers.
func (s *Service) Form(ctx context.Context, sessionID string) (*formspec.Form, error) {
	app, err := s.withSpec(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return formspec.Render(app.DynamicSpec, app.DynamicAnswers), nil
}

// Preview renders the stored questionnaire under unsaved answers, so visibility can
// follow the applicant's input before anything is persisted.
func (s *Service) Preview(ctx context.Context, sessionID string, live formspec.Answers) (*formspec.Form, error) {
	app, err := s.withSpec(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return formspec.Render(app.DynamicSpec, formspec.MergeAnswers(app.DynamicAnswers, live)), nil
}

// SaveAnswers checks raw against the stored questionnaire and replaces the saved
// answers with the normalized result. Answers to hidden fields are dropped.
func (s *Service) SaveAnswers(ctx context.Context, sessionID string, raw formspec.Answers) (*models.Application, error) {
	app, err := s.withSpec(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	answers, errs := formspec.Submit(app.DynamicSpec, raw)
	if len(errs) > 0 {
		return nil, apperrors.NewAnswersInvalidError(fieldErrors(errs))
	}

	app, err = s.store.Merge(ctx, sessionID, models.Patch{DynamicAnswers: answers, ResetAnswers: true})
	if err != nil {
		return nil, storeError(err, sessionID)
	}
	return app, nil
}

func (s *Service) Export(ctx context.Context, sessionID string) (*models.Export, error) {
	app, err := s.Application(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	export := app.Export(s.now())
	return &export, nil
}

// SubmitResult is the submitted record and the receipts that went out for it.
type SubmitResult struct {
	Application   *models.Application   `json:"application"`
	Notifications []models.Notification `json:"notifications,omitempty"`
}

// Submit freezes the record once every core section is valid and any stored
// questionnaire is satisfied. Notification and indexing run afterwards; their
// failures are logged and never undo the submission.
func (s *Service) Submit(ctx context.Context, sessionID string) (*SubmitResult, error) {
	app, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewCoreIncompleteError(models.Sections)
	}
	if err != nil {
		return nil, storeError(err, sessionID)
	}
	if app.IsSubmitted() {
		return nil, apperrors.NewApplicationSubmittedError(sessionID)
	}
	if missing := app.Core.IncompleteSections(); len(missing) > 0 {
		return nil, apperrors.NewCoreIncompleteError(missing)
	}
	if app.DynamicSpec != nil {
		if _, errs := formspec.Submit(app.DynamicSpec, app.DynamicAnswers); len(errs) > 0 {
			return nil, apperrors.NewAnswersInvalidError(fieldErrors(errs))
		}
	}

	app, err = s.store.Submit(ctx, sessionID)
	if err != nil {
		return nil, storeError(err, sessionID)
	}
	metrics.ApplicationsSubmitted.Inc()
	s.logger.Info("application submitted", map[string]interface{}{
		"applicationId": app.ID,
		"totalRentOwed": app.Core.TotalRentOwed(),
	})

	return &SubmitResult{
		Application:   app,
		Notifications: s.afterSubmit(ctx, app),
	}, nil
}

// afterSubmit runs notification and indexing concurrently, detached from the
// request's cancellation.
func (s *Service) afterSubmit(ctx context.Context, app *models.Application) []models.Notification {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sideEffectTimeout)
	defer cancel()

	var notifications []models.Notification
	var g errgroup.Group

	if s.notifier != nil {
		g.Go(func() error {
			sent, err := s.notifier.NotifySubmitted(ctx, app)
			notifications = sent
			if err != nil {
				s.logger.Error("submission notice failed", map[string]interface{}{
					"applicationId": app.ID,
					"error":         err,
				})
			}
			return nil
		})
	}
	if s.indexer != nil {
		g.Go(func() error {
			if err := s.indexer.IndexApplication(ctx, app); err != nil {
				s.logger.Error("search indexing failed", map[string]interface{}{
					"applicationId": app.ID,
					"error":         err,
				})
			}
			return nil
		})
	}
	_ = g.Wait()
	return notifications
}

// Clear discards the session's draft.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.Clear(ctx, sessionID); err != nil {
		return storeError(err, sessionID)
	}
	s.logger.Info("draft cleared", map[string]interface{}{"sessionId": sessionID})
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) withSpec(ctx context.Context, sessionID string) (*models.Application, error) {
	app, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewSpecMissingError(sessionID)
	}
	if err != nil {
		return nil, storeError(err, sessionID)
	}
	if app.DynamicSpec == nil {
		return nil, apperrors.NewSpecMissingError(sessionID)
	}
	return app, nil
}

func storeError(err error, sessionID string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NewApplicationNotFoundError(sessionID)
	case errors.Is(err, store.ErrSubmitted):
		return apperrors.NewApplicationSubmittedError(sessionID)
	case errors.Is(err, store.ErrReadFailed), errors.Is(err, store.ErrCorruptState):
		return apperrors.NewDatabaseReadFailedError(err)
	case errors.Is(err, store.ErrWriteFailed):
		return apperrors.NewDatabaseWriteFailedError(err)
	}
	return apperrors.AsStandardError(err)
}

func fieldErrors(errs []validation.ValidationError) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		// first message per field
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Message
		}
	}
	return out
}

func joinErrors(res *validation.ValidationResult) string {
	parts := res.GetErrorMessages()
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
