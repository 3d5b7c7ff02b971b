// internal/api/router.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"era-intake/internal/common/logger"
	"era-intake/internal/formspec"
	"era-intake/internal/generation"
	"era-intake/internal/intake"
	"era-intake/internal/models"
)

// Service is the wizard surface the handlers delegate to.
type Service interface {
	Application(ctx context.Context, sessionID string) (*models.Application, error)
	SaveSection(ctx context.Context, sessionID, section string, data []byte) (*models.Application, error)
	SavePrompt(ctx context.Context, sessionID, prompt string) (*models.Application, error)
	Generate(ctx context.Context, sessionID, prompt string, maxFields int) (*generation.Result, error)
	Form(ctx context.Context, sessionID string) (*formspec.Form, error)
	Preview(ctx context.Context, sessionID string, live formspec.Answers) (*formspec.Form, error)
	SaveAnswers(ctx context.Context, sessionID string, raw formspec.Answers) (*models.Application, error)
	Export(ctx context.Context, sessionID string) (*models.Export, error)
	Submit(ctx context.Context, sessionID string) (*intake.SubmitResult, error)
	Clear(ctx context.Context, sessionID string) error
}

type Config struct {
	CookieSecure bool
	// ExposeDebug includes the raw model output and call metadata in generate responses.
	ExposeDebug    bool
	RequestTimeout time.Duration
}

type Handler struct {
	service Service
	config  Config
	logger  logger.Logger
}

func NewHandler(service Service, cfg Config, log logger.Logger) *Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	return &Handler{
		service: service,
		config:  cfg,
		logger:  log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// NewRouter mounts the wizard API.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(Instrument(h.logger))

	r.Route("/api/application", func(r chi.Router) {
		r.Use(h.Session)

		// generation is bounded by the provider timeout only
		r.Post("/dynamic/generate", h.handleGenerate)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(h.config.RequestTimeout))

			r.Get("/", h.handleGetApplication)
			r.Delete("/", h.handleClear)
			r.Put("/prompt", h.handleSavePrompt)
			r.Put("/{section}", h.handleSaveSection)

			r.Get("/dynamic/form", h.handleForm)
			r.Post("/dynamic/preview", h.handlePreview)
			r.Post("/dynamic/answers", h.handleSaveAnswers)

			r.Get("/export", h.handleExport)
			r.Post("/submit", h.handleSubmit)
		})
	})

	return r
}
