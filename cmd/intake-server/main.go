// cmd/intake-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"era-intake/internal/api"
	"era-intake/internal/common/aws"
	"era-intake/internal/common/camunda"
	"era-intake/internal/common/config"
	"era-intake/internal/common/database"
	"era-intake/internal/common/logger"
	"era-intake/internal/common/observability"
	"era-intake/internal/generation"
	"era-intake/internal/intake"
	"era-intake/internal/notify"
	"era-intake/internal/search"
	"era-intake/internal/store"

	ssn "era-intake/internal/workers/application/send-submission-notice"
	vcr "era-intake/internal/workers/application/validate-core-record"
	gds "era-intake/internal/workers/questionnaire/generate-dynamic-spec"
	pda "era-intake/internal/workers/questionnaire/process-dynamic-answers"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting intake server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("store", cfg.Store.Backend),
		zap.String("provider", cfg.GenAI.Provider),
	)

	obs, err := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]api.Check{}

	// --- Application store ---
	var st store.Store
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		pgStore := store.NewPostgresStore(pg, log)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("postgres schema setup failed", zap.Error(err))
		}
		st = pgStore
		zapLog.Info("PostgreSQL store ready")

	default:
		redis := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()

		ttl := time.Duration(cfg.Store.DraftTTLHr) * time.Hour
		st = store.NewRedisStore(redis.Client, ttl, log)
		zapLog.Info("Redis store ready", zap.Duration("draftTTL", ttl))
	}
	checks["store"] = st.Ping

	// --- Questionnaire generator ---
	var gen generation.Generator
	switch cfg.GenAI.Provider {
	case config.ProviderGemini:
		gen, err = generation.NewGeminiGenerator(ctx, cfg.GenAI.APIKey, cfg.GenAI.Model)
		if err != nil {
			zapLog.Fatal("gemini generator setup failed", zap.Error(err))
		}
	default:
		gen = generation.NewOpenAIGenerator(&generation.OpenAIConfig{
			BaseURL:    cfg.GenAI.BaseURL,
			APIKey:     cfg.GenAI.APIKey,
			Model:      cfg.GenAI.Model,
			MaxRetries: cfg.GenAI.MaxRetries,
			Timeout:    time.Duration(cfg.GenAI.Timeout) * time.Millisecond,
		})
	}
	orchestrator := generation.NewOrchestrator(gen, cfg.GenAI.MaxFields, log)

	opts := []intake.Option{intake.WithMaxFields(cfg.GenAI.MaxFields)}

	// --- Submission side effects ---
	var notifier *notify.Notifier
	awsCfg := cfg.Integrations.AWS
	if awsCfg.SES.Enabled || awsCfg.SNS.Enabled {
		sdkCfg, err := aws.LoadConfig(ctx, awsCfg.Region)
		if err != nil {
			zapLog.Fatal("aws config load failed", zap.Error(err))
		}
		var sesClient notify.SESService
		var snsClient notify.SNSService
		if awsCfg.SES.Enabled {
			sesClient = aws.NewSESClient(sdkCfg)
		}
		if awsCfg.SNS.Enabled {
			snsClient = aws.NewSNSClient(sdkCfg)
		}
		notifier = notify.NewNotifier(notify.Config{
			EmailEnabled: awsCfg.SES.Enabled,
			SMSEnabled:   awsCfg.SNS.Enabled,
			FromEmail:    awsCfg.SES.FromEmail,
		}, sesClient, snsClient, log)
		opts = append(opts, intake.WithNotifier(notifier))
		zapLog.Info("notifications enabled",
			zap.Bool("email", awsCfg.SES.Enabled),
			zap.Bool("sms", awsCfg.SNS.Enabled),
		)
	}

	var indexer *search.Indexer
	if esCfg := cfg.Database.Elasticsearch; esCfg.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(esCfg)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}

		indexer = search.NewIndexer(es.Client, esCfg.Index, log)
		if err := indexer.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("search index setup failed", zap.Error(err))
		}
		opts = append(opts, intake.WithIndexer(indexer))
		checks["elasticsearch"] = es.Ping
		zapLog.Info("Elasticsearch indexing enabled", zap.String("index", esCfg.Index))
	}

	service := intake.NewService(st, orchestrator, log, opts...)

	// --- Optional workflow workers ---
	var workers []*camunda.Worker
	if cfg.Camunda.Enabled {
		var zeebe *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()

		handlers := map[string]camunda.JobHandler{
			gds.TaskType: gds.NewHandler(&gds.Config{
				Timeout:   workerTimeout(cfg, gds.TaskType, gds.LoadConfig().Timeout),
				MaxFields: cfg.GenAI.MaxFields,
			}, orchestrator, &generateSpecLoggerAdapter{log}),
			pda.TaskType: pda.NewHandler(&pda.Config{
				Timeout: workerTimeout(cfg, pda.TaskType, pda.LoadConfig().Timeout),
			}, &processAnswersLoggerAdapter{log}),
			vcr.TaskType: vcr.NewHandler(&vcr.Config{
				Timeout: workerTimeout(cfg, vcr.TaskType, vcr.LoadConfig().Timeout),
			}, &validateCoreLoggerAdapter{log}),
		}
		if notifier != nil {
			var idx ssn.Indexer
			if indexer != nil {
				idx = indexer
			}
			handlers[ssn.TaskType] = ssn.NewHandler(&ssn.Config{
				Timeout: workerTimeout(cfg, ssn.TaskType, ssn.LoadConfig().Timeout),
			}, st, notifier, idx, &submissionNoticeLoggerAdapter{log})
		}

		for taskType, handler := range handlers {
			wcfg, ok := cfg.Workers[taskType]
			if ok && !wcfg.Enabled {
				zapLog.Info("worker disabled", zap.String("taskType", taskType))
				continue
			}
			maxJobs := cfg.Camunda.MaxJobsActive
			if wcfg.MaxJobsActive > 0 {
				maxJobs = wcfg.MaxJobsActive
			}
			workers = append(workers, camunda.NewWorker(zeebe.GetClient(), taskType, camunda.WorkerOptions{
				MaxJobsActive: maxJobs,
				Timeout:       time.Duration(cfg.Camunda.Timeout) * time.Millisecond,
			}, handler, obs, log))
		}
		checks["zeebe"] = zeebe.HealthCheck
		zapLog.Info("workflow workers registered", zap.Int("count", len(workers)))
	}

	// --- HTTP servers ---
	handler := api.NewHandler(service, api.Config{
		CookieSecure: cfg.Server.CookieSecure,
		ExposeDebug:  cfg.App.Environment == "development",
	}, log)

	servers := []*http.Server{
		{Addr: cfg.Server.Address, Handler: api.NewRouter(handler), ReadHeaderTimeout: 10 * time.Second},
		{Addr: cfg.Server.AdminAddress, Handler: api.NewAdminRouter(checks), ReadHeaderTimeout: 10 * time.Second},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			zapLog.Info("HTTP server listening", zap.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	// --- Graceful Shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutdown signal received, stopping servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		for _, w := range workers {
			w.Stop()
		}
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zapLog.Error("Error shutting down server", zap.String("address", srv.Addr), zap.Error(err))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("intake server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	zapLog.Info("Intake server stopped gracefully")
}

func workerTimeout(cfg *config.Config, taskType string, fallback time.Duration) time.Duration {
	if wcfg, ok := cfg.Workers[taskType]; ok && wcfg.Timeout > 0 {
		return time.Duration(wcfg.Timeout) * time.Millisecond
	}
	return fallback
}

// Logger adapters for workers that have their own Logger interfaces
type generateSpecLoggerAdapter struct {
	logger.Logger
}

func (a *generateSpecLoggerAdapter) With(fields map[string]interface{}) gds.Logger {
	return &generateSpecLoggerAdapter{a.Logger.With(fields)}
}

type processAnswersLoggerAdapter struct {
	logger.Logger
}

func (a *processAnswersLoggerAdapter) With(fields map[string]interface{}) pda.Logger {
	return &processAnswersLoggerAdapter{a.Logger.With(fields)}
}

type validateCoreLoggerAdapter struct {
	logger.Logger
}

func (a *validateCoreLoggerAdapter) With(fields map[string]interface{}) vcr.Logger {
	return &validateCoreLoggerAdapter{a.Logger.With(fields)}
}

type submissionNoticeLoggerAdapter struct {
	logger.Logger
}

func (a *submissionNoticeLoggerAdapter) With(fields map[string]interface{}) ssn.Logger {
	return &submissionNoticeLoggerAdapter{a.Logger.With(fields)}
}
