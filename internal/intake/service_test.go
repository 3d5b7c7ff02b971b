package intake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "era-intake/internal/common/errors"
	"era-intake/internal/common/logger"
	"era-intake/internal/formspec"
	"era-intake/internal/generation"
	"era-intake/internal/models"
	"era-intake/internal/store"
)

// ==========================
// Fakes
// ==========================

type fakeGenerator struct {
	result  *generation.Result
	prompts []string
	cores   []interface{}
	ctxErrs []error
	// during runs inside Generate before the result is returned
	during func()
}

func (f *fakeGenerator) Generate(ctx context.Context, core interface{}, prompt string, maxFields int) *generation.Result {
	f.prompts = append(f.prompts, prompt)
	f.cores = append(f.cores, core)
	if f.during != nil {
		f.during()
	}
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.result
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeNotifier) NotifySubmitted(ctx context.Context, app *models.Application) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return []models.Notification{{ApplicationID: app.ID, Channel: models.ChannelEmail, Status: models.NotificationSent}}, f.err
}

type fakeIndexer struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (f *fakeIndexer) IndexApplication(ctx context.Context, app *models.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, app.ID)
	return f.err
}

// ==========================
// Helpers
// ==========================

const sid = "session-1"

func followUpSpec() *formspec.Spec {
	return &formspec.Spec{
		Title:   "Follow-up",
		Version: "1.0",
		Fields: []formspec.Field{
			{ID: "has_lease", Type: formspec.FieldTypeBoolean, Label: "Do you have a written lease?"},
			{
				ID: "lease_months", Type: formspec.FieldTypeNumber, Label: "Months left on lease", Required: true,
				ShowIf: &formspec.Predicate{Field: "has_lease", Equals: true},
			},
			{
				ID: "priority", Type: formspec.FieldTypeCheckboxGroup, Label: "Which apply?",
				Options: []formspec.Option{{Value: "dv", Label: "Fleeing violence"}, {Value: "eviction", Label: "Eviction notice"}},
			},
		},
	}
}

func newTestService(t *testing.T, gen *fakeGenerator, opts ...Option) (*Service, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	if gen == nil {
		gen = &fakeGenerator{result: &generation.Result{Spec: followUpSpec()}}
	}
	st := store.NewRedisStore(client, time.Hour, logger.NewTestLogger(t))
	return NewService(st, gen, logger.NewTestLogger(t), opts...), mr
}

func fillCore(t *testing.T, s *Service) {
	ctx := context.Background()
	sections := map[string]string{
		models.SectionApplicant:   `{"firstName":"Ana","lastName":"Ruiz","dob":"1988-04-02","phone":"937-555-0100","email":"ana@example.org"}`,
		models.SectionHousing:     `{"address1":"12 Elm St","city":"Dayton","state":"OH","zip":"45402","monthlyRent":"1200","monthsBehind":3}`,
		models.SectionHousehold:   `{"size":3}`,
		models.SectionEligibility: `{"hardship":true,"typedSignature":"Ana Ruiz","signedAtISO":"2026-10-01T12:00:00Z"}`,
	}
	for _, name := range models.Sections {
		_, err := s.SaveSection(ctx, sid, name, []byte(sections[name]))
		require.NoError(t, err, name)
	}
}

func requireCode(t *testing.T, err error, code apperrors.ErrorCode) *apperrors.StandardError {
	t.Helper()
	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr), "not a StandardError: %v", err)
	assert.Equal(t, code, stdErr.Code)
	return stdErr
}

// ==========================
// Core Sections
// ==========================

func TestService_Application_FirstContact(t *testing.T) {
	s, _ := newTestService(t, nil)

	app, err := s.Application(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, app.Status)
	assert.Empty(t, app.ID)
}

func TestService_SaveSection(t *testing.T) {
	s, _ := newTestService(t, nil)
	ctx := context.Background()

	t.Run("valid section is stored", func(t *testing.T) {
		app, err := s.SaveSection(ctx, sid, models.SectionHousehold, []byte(`{"size":"2"}`))
		require.NoError(t, err)
		require.NotNil(t, app.Core.Household)
		assert.Equal(t, models.Number(2), app.Core.Household.Size)
		assert.NotEmpty(t, app.ID)
	})

	t.Run("invalid section is rejected", func(t *testing.T) {
		_, err := s.SaveSection(ctx, sid, models.SectionApplicant, []byte(`{"firstName":"Ana","email":"nope"}`))
		stdErr := requireCode(t, err, apperrors.ErrCodeSectionInvalid)
		fields := stdErr.Metadata["fieldErrors"].(map[string]string)
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "lastName")
		assert.Contains(t, stdErr.Details, "email: must be a valid email")
		assert.Contains(t, stdErr.Details, "lastName: is required")
		assert.Less(t, strings.Index(stdErr.Details, "email:"), strings.Index(stdErr.Details, "lastName:"), "details are sorted")
	})

	t.Run("unknown section", func(t *testing.T) {
		_, err := s.SaveSection(ctx, sid, "income", []byte(`{}`))
		requireCode(t, err, apperrors.ErrCodeInvalidInput)
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := s.SaveSection(ctx, sid, models.SectionHousing, []byte(`{`))
		requireCode(t, err, apperrors.ErrCodeInvalidInput)
	})
}

// ==========================
// Dynamic Questionnaire
// ==========================

func TestService_Generate(t *testing.T) {
	gen := &fakeGenerator{result: &generation.Result{Spec: followUpSpec()}}
	s, _ := newTestService(t, gen)
	ctx := context.Background()

	_, err := s.SavePrompt(ctx, sid, "Ask about the lease")
	require.NoError(t, err)

	t.Run("saved prompt is used when none is given", func(t *testing.T) {
		res, err := s.Generate(ctx, sid, "", 0)
		require.NoError(t, err)
		require.NotNil(t, res.Spec)
		assert.Equal(t, "Ask about the lease", gen.prompts[len(gen.prompts)-1])
	})

	t.Run("new spec clears old answers", func(t *testing.T) {
		_, err := s.SaveAnswers(ctx, sid, formspec.Answers{"has_lease": false})
		require.NoError(t, err)

		_, err = s.Generate(ctx, sid, "Ask about utilities", 4)
		require.NoError(t, err)

		app, err := s.Application(ctx, sid)
		require.NoError(t, err)
		assert.Nil(t, app.DynamicAnswers)
		assert.Equal(t, "Ask about utilities", app.Prompt)
	})
}

func TestService_Generate_OutlivesCancelledRequest(t *testing.T) {
	gen := &fakeGenerator{result: &generation.Result{Spec: followUpSpec()}}
	s, _ := newTestService(t, gen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// the client goes away while the provider call is in flight
	gen.during = cancel

	res, err := s.Generate(ctx, sid, "Ask about the lease", 0)
	require.NoError(t, err)
	require.NotNil(t, res.Spec)
	require.Len(t, gen.ctxErrs, 1)
	assert.NoError(t, gen.ctxErrs[0], "generation must not see the request cancellation")

	app, err := s.Application(context.Background(), sid)
	require.NoError(t, err)
	require.NotNil(t, app.DynamicSpec)
	assert.Equal(t, "Follow-up", app.DynamicSpec.Title)
}

func TestService_Generate_UnusableSpecKeepsRecord(t *testing.T) {
	gen := &fakeGenerator{result: &generation.Result{Spec: followUpSpec()}}
	s, _ := newTestService(t, gen)
	ctx := context.Background()

	_, err := s.Generate(ctx, sid, "first", 0)
	require.NoError(t, err)

	gen.result = &generation.Result{
		Raw:          map[string]interface{}{},
		ServiceError: &generation.ServiceError{Message: "rate limited", Status: 429},
	}
	res, err := s.Generate(ctx, sid, "second", 0)
	require.NoError(t, err)
	assert.True(t, res.Failed())

	app, err := s.Application(ctx, sid)
	require.NoError(t, err)
	require.NotNil(t, app.DynamicSpec)
	assert.Equal(t, "Follow-up", app.DynamicSpec.Title)
	assert.Equal(t, "first", app.Prompt)
}

func TestService_FormAndAnswers(t *testing.T) {
	s, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := s.Form(ctx, sid)
	requireCode(t, err, apperrors.ErrCodeSpecMissing)

	_, err = s.Generate(ctx, sid, "", 0)
	require.NoError(t, err)

	form, err := s.Form(ctx, sid)
	require.NoError(t, err)
	assert.Len(t, form.Fields, 2)
	assert.Equal(t, []string{"lease_months"}, form.Hidden)

	t.Run("preview follows unsaved input", func(t *testing.T) {
		form, err := s.Preview(ctx, sid, formspec.Answers{"has_lease": true})
		require.NoError(t, err)
		assert.Len(t, form.Fields, 3)
		assert.Empty(t, form.Hidden)
	})

	t.Run("visible required field is enforced", func(t *testing.T) {
		_, err := s.SaveAnswers(ctx, sid, formspec.Answers{"has_lease": true})
		stdErr := requireCode(t, err, apperrors.ErrCodeAnswersInvalid)
		assert.Contains(t, stdErr.Metadata["fieldErrors"], "lease_months")
	})

	t.Run("hidden answers are dropped", func(t *testing.T) {
		app, err := s.SaveAnswers(ctx, sid, formspec.Answers{
			"has_lease":    false,
			"lease_months": 6,
			"priority":     []interface{}{"eviction", "dv"},
		})
		require.NoError(t, err)
		assert.NotContains(t, app.DynamicAnswers, "lease_months")
		assert.Equal(t, []string{"dv", "eviction"}, app.DynamicAnswers["priority"])
	})
}

// ==========================
// Export and Submit
// ==========================

func TestService_Export(t *testing.T) {
	s, _ := newTestService(t, nil)
	fillCore(t, s)
	s.now = func() time.Time { return time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC) }

	export, err := s.Export(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-02T08:00:00Z", export.Metadata.GeneratedAt)
	assert.Equal(t, 3600.0, export.Metadata.TotalRentOwed)
	assert.Nil(t, export.DynamicQuestions)
}

func TestService_Submit(t *testing.T) {
	notifier := &fakeNotifier{}
	indexer := &fakeIndexer{}
	s, _ := newTestService(t, nil, WithNotifier(notifier), WithIndexer(indexer))
	ctx := context.Background()

	_, err := s.Submit(ctx, sid)
	stdErr := requireCode(t, err, apperrors.ErrCodeCoreIncomplete)
	assert.Equal(t, models.Sections, stdErr.Metadata["missingSections"])

	_, err = s.SaveSection(ctx, sid, models.SectionHousehold, []byte(`{"size":1}`))
	require.NoError(t, err)
	_, err = s.Submit(ctx, sid)
	stdErr = requireCode(t, err, apperrors.ErrCodeCoreIncomplete)
	assert.Equal(t, []string{"applicant", "housing", "eligibility"}, stdErr.Metadata["missingSections"])

	fillCore(t, s)
	res, err := s.Submit(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, res.Application.Status)
	assert.Len(t, res.Notifications, 1)
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, []string{res.Application.ID}, indexer.ids)

	t.Run("submitted record is frozen", func(t *testing.T) {
		_, err := s.SaveSection(ctx, sid, models.SectionHousehold, []byte(`{"size":4}`))
		requireCode(t, err, apperrors.ErrCodeApplicationSubmitted)

		_, err = s.Submit(ctx, sid)
		requireCode(t, err, apperrors.ErrCodeApplicationSubmitted)

		_, err = s.Generate(ctx, sid, "", 0)
		requireCode(t, err, apperrors.ErrCodeApplicationSubmitted)
	})
}

func TestService_Submit_RequiresAnswers(t *testing.T) {
	s, _ := newTestService(t, nil)
	ctx := context.Background()
	fillCore(t, s)

	_, err := s.Generate(ctx, sid, "", 0)
	require.NoError(t, err)
	_, err = s.SaveAnswers(ctx, sid, formspec.Answers{"has_lease": false})
	require.NoError(t, err)

	res, err := s.Submit(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, false, res.Application.DynamicAnswers["has_lease"])
}

func TestService_Submit_SideEffectFailuresAreLogged(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("NOTIFICATION_SEND_FAILED: email: throttled")}
	indexer := &fakeIndexer{err: errors.New("SEARCH_INDEX_FAILED")}
	s, _ := newTestService(t, nil, WithNotifier(notifier), WithIndexer(indexer))
	fillCore(t, s)

	res, err := s.Submit(context.Background(), sid)
	require.NoError(t, err)
	assert.True(t, res.Application.IsSubmitted())
	assert.Len(t, indexer.ids, 1)
}

func TestService_Clear(t *testing.T) {
	s, mr := newTestService(t, nil)
	ctx := context.Background()
	fillCore(t, s)

	require.NoError(t, s.Clear(ctx, sid))
	assert.False(t, mr.Exists("era-application:"+sid))

	app, err := s.Application(ctx, sid)
	require.NoError(t, err)
	assert.Nil(t, app.Core.Applicant)

	// clearing an unknown session is not an error
	require.NoError(t, s.Clear(ctx, "other"))
}

func TestStoreError(t *testing.T) {
	tests := []struct {
		err  error
		code apperrors.ErrorCode
	}{
		{store.ErrNotFound, apperrors.ErrCodeApplicationNotFound},
		{store.ErrSubmitted, apperrors.ErrCodeApplicationSubmitted},
		{store.ErrReadFailed, apperrors.ErrCodeDatabaseReadFailed},
		{store.ErrCorruptState, apperrors.ErrCodeDatabaseReadFailed},
		{store.ErrWriteFailed, apperrors.ErrCodeDatabaseWriteFailed},
		{errors.New("boom"), apperrors.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			requireCode(t, storeError(tt.err, sid), tt.code)
		})
	}
}
