package app

import (
	"context"
	"fmt"
	"log/slog"

	"newsreel/internal/config"
	"newsreel/internal/domain"
	"newsreel/internal/infrastructure/renderer"
	"newsreel/internal/infrastructure/scheduler"
	"newsreel/internal/infrastructure/source"
	"newsreel/internal/infrastructure/storage"
	"newsreel/internal/infrastructure/telegram"
	"newsreel/internal/logging"
	"newsreel/internal/metrics"
	"newsreel/internal/ports"
	"newsreel/internal/retry"
	"newsreel/internal/scoring"
	"newsreel/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.FileStore
	pipeline *usecase.Pipeline
	metrics  *metrics.Metrics
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	sources, err := source.DefaultRegistry().Build(cfg.Sources, baseLogger.With("component", "source"))
	if err != nil {
		return nil, fmt.Errorf("build sources: %w", err)
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	m := metrics.New()
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sources:     sources,
		Renderer:    renderer.NewClient(cfg.Renderer),
		Store:       store,
		Notifier:    notifier,
		Engine:      scoring.NewEngine(cfg.Scoring),
		Metrics:     m,
		Logger:      baseLogger.With("component", "pipeline"),
		Priority:    cfg.SourcePriority(),
		MaxItems:    cfg.Pipeline.MaxItems,
		FetchLimit:  cfg.Pipeline.FetchLimit,
		Concurrency: cfg.Pipeline.Concurrency,
		StageRetry: retry.Policy{
			Attempts: cfg.Pipeline.StageAttempts,
			Delay:    cfg.Pipeline.StageDelay(),
			Backoff:  true,
		},
		RenderRetry: retry.Policy{
			Attempts: cfg.Pipeline.RenderAttempts,
			Delay:    cfg.Pipeline.RenderDelay(),
		},
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		pipeline: pipeline,
		metrics:  m,
	}, nil
}

// RunOnce executes a single pipeline run.
func (a *Application) RunOnce(ctx context.Context, opts usecase.RunOptions) (domain.RunRecord, error) {
	return a.pipeline.Run(ctx, opts)
}

// RunScheduled blocks, firing one run per day at the configured time until
// the context is cancelled.
func (a *Application) RunScheduled(ctx context.Context) error {
	driver := scheduler.NewDailyScheduler(a.cfg.Scheduler.DailyTime, a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "daily_time", a.cfg.Scheduler.DailyTime, "timezone", a.cfg.Scheduler.Timezone)

	<-ctx.Done()
	a.logger.Info("scheduler shutting down", "counters", a.metrics.Snapshot())
	return sched.Stop(context.Background())
}

// Totals reads cumulative counters from the run log without mutating state.
func (a *Application) Totals(ctx context.Context) (domain.Totals, error) {
	return a.store.Totals(ctx)
}
