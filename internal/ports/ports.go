package ports

import (
	"context"
	"time"

	"newsreel/internal/domain"
)

// Source pulls raw story candidates from one upstream site or feed.
// A failing source must surface domain.SourceUnavailableError instead of
// crashing; the orchestrator isolates it from the other sources.
type Source interface {
	ID() string
	Fetch(ctx context.Context, limit int) ([]domain.Candidate, error)
}

// Renderer submits one selected story to the external video service and
// returns an artifact reference, or a domain.RenderError on failure.
type Renderer interface {
	Render(ctx context.Context, item domain.Selected) (string, error)
}

// StateStore persists everything that must survive between runs: the seen
// fingerprint set, the open-run marker, and the append-only run log.
type StateStore interface {
	LoadFingerprints(ctx context.Context) (map[string]struct{}, error)
	AddFingerprints(ctx context.Context, prints []string) error

	// BeginRun records rec as the run in progress. It fails with
	// domain.ErrRunInProgress when an earlier run was never finalized.
	BeginRun(ctx context.Context, rec domain.RunRecord) error
	// FinishRun appends the finalized record and clears the open-run marker.
	FinishRun(ctx context.Context, rec domain.RunRecord) error

	// Totals folds the run log into cumulative counters without mutating state.
	Totals(ctx context.Context) (domain.Totals, error)
}

// Notifier publishes a human-readable run summary to an outbound channel.
type Notifier interface {
	PublishSummary(ctx context.Context, summary string) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
