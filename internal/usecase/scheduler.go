package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"newsreel/internal/domain"
	"newsreel/internal/ports"
)

// Scheduler wires the daily driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler driver.
// An overlapping trigger is skipped, not queued.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		rec, err := s.pipeline.Run(ctx, RunOptions{})
		switch {
		case errors.Is(err, domain.ErrRunInProgress):
			s.logger.Warn("previous run still open, skipping trigger", "trigger", trigger)
		case err != nil:
			s.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
		default:
			s.logger.Info("scheduled run finished",
				"trigger", trigger,
				"run_id", rec.RunID,
				"rendered", rec.ItemsRendered)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
