package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"newsreel/internal/dedupe"
	"newsreel/internal/domain"
	"newsreel/internal/metrics"
	"newsreel/internal/ports"
	"newsreel/internal/retry"
	"newsreel/internal/scoring"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Sources     []ports.Source
	Renderer    ports.Renderer
	Store       ports.StateStore
	Notifier    ports.Notifier
	Engine      *scoring.Engine
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Priority    []string
	MaxItems    int
	FetchLimit  int
	Concurrency int
	StageRetry  retry.Policy
	RenderRetry retry.Policy
}

// Pipeline drives one full run: fetch, dedupe, score, select, dispatch,
// finalize. Adapter and item failures are absorbed into the RunRecord;
// only an unwritable state store surfaces to the caller.
type Pipeline struct {
	sources    []ports.Source
	store      ports.StateStore
	notifier   ports.Notifier
	engine     *scoring.Engine
	metrics    *metrics.Metrics
	logger     *slog.Logger
	dispatcher *Dispatcher
	priority   []string
	maxItems   int
	fetchLimit int
	concurrent int
	stageRetry retry.Policy
}

// RunOptions carries per-invocation overrides from the trigger surface.
type RunOptions struct {
	DryRun   bool
	MaxItems int // 0 = configured default
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		sources:    deps.Sources,
		store:      deps.Store,
		notifier:   deps.Notifier,
		engine:     deps.Engine,
		metrics:    deps.Metrics,
		logger:     logger,
		dispatcher: NewDispatcher(deps.Renderer, deps.RenderRetry, deps.Concurrency, logger.With("component", "dispatcher")),
		priority:   deps.Priority,
		maxItems:   deps.MaxItems,
		fetchLimit: deps.FetchLimit,
		concurrent: deps.Concurrency,
		stageRetry: deps.StageRetry,
	}
}

// Run executes one pipeline invocation and always finalizes a RunRecord,
// even under total source failure or mid-run cancellation.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (domain.RunRecord, error) {
	rec := domain.RunRecord{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		DryRun:    opts.DryRun,
	}

	maxItems := p.maxItems
	if opts.MaxItems > 0 {
		maxItems = opts.MaxItems
	}

	if p.store != nil {
		if err := p.store.BeginRun(ctx, rec); err != nil {
			return rec, fmt.Errorf("begin run: %w", err)
		}
	}

	p.metrics.RunStarted()
	p.logger.Info("run started", "run_id", rec.RunID, "dry_run", opts.DryRun, "max_items", maxItems)

	var (
		scraped  []domain.Candidate
		fresh    []domain.Candidate
		scored   []domain.Scored
		selected []domain.Selected
		fatalErr error
	)

	if !p.aborted(ctx, &rec, domain.StageFetch) {
		scraped = p.fetchAll(ctx, &rec)
		rec.ItemsScraped = len(scraped)
		rec.StagesCompleted = append(rec.StagesCompleted, domain.StageFetch)
		p.metrics.AddScraped(len(scraped))
		p.logger.Info("fetch stage done", "run_id", rec.RunID, "scraped", len(scraped))
	}

	if len(scraped) > 0 && !p.aborted(ctx, &rec, domain.StageDedupe) {
		seen := p.loadFingerprints(ctx, &rec)
		fresh, _ = dedupe.FilterNew(scraped, seen, p.priority)
		duplicates := len(scraped) - len(fresh)
		rec.StagesCompleted = append(rec.StagesCompleted, domain.StageDedupe)
		p.metrics.AddDuplicates(duplicates)
		p.logger.Info("dedupe stage done", "run_id", rec.RunID, "fresh", len(fresh), "duplicates", duplicates)
	}

	if len(fresh) > 0 && !p.aborted(ctx, &rec, domain.StageScore) {
		scored = p.engine.ScoreAll(fresh)

		var acceptedPrints []string
		for _, s := range scored {
			if s.Accepted {
				acceptedPrints = append(acceptedPrints, dedupe.Fingerprint(s.Candidate))
			}
		}
		rec.ItemsAccepted = len(acceptedPrints)
		p.metrics.AddAccepted(len(acceptedPrints))

		// Accepted fingerprints are persisted immediately: losing them would
		// break idempotence of the next scheduled run, so a write failure
		// here is the one condition that surfaces to the invoker.
		if p.store != nil && len(acceptedPrints) > 0 {
			err := retry.Do(ctx, p.stageRetry, func() error {
				return p.store.AddFingerprints(ctx, acceptedPrints)
			})
			if err != nil {
				p.recordFailure(&rec, domain.StageScore, fmt.Errorf("persist fingerprints: %w", err))
				fatalErr = fmt.Errorf("persist fingerprints: %w", err)
			}
		}

		rec.StagesCompleted = append(rec.StagesCompleted, domain.StageScore)
		p.logger.Info("score stage done", "run_id", rec.RunID, "scored", len(scored), "accepted", rec.ItemsAccepted)
	}

	if len(scored) > 0 && !p.aborted(ctx, &rec, domain.StageSelect) {
		selected = scoring.Select(scored, maxItems, p.priority)
		rec.Underfilled = len(selected) < maxItems
		rec.StagesCompleted = append(rec.StagesCompleted, domain.StageSelect)
		p.logger.Info("select stage done", "run_id", rec.RunID, "selected", len(selected), "underfilled", rec.Underfilled)
	}

	if len(selected) > 0 && !p.aborted(ctx, &rec, domain.StageDispatch) {
		if opts.DryRun {
			p.logger.Info("dry-run: renderer dispatch withheld", "run_id", rec.RunID, "selected", len(selected))
		} else {
			results := p.dispatcher.Dispatch(ctx, selected)
			rendered, failed := 0, 0
			for _, item := range results {
				switch item.Status {
				case domain.RenderSucceeded:
					rendered++
				case domain.RenderFailed:
					failed++
					p.recordFailure(&rec, domain.StageDispatch,
						fmt.Errorf("item %q: %s", item.Headline, item.LastError))
				}
			}
			rec.ItemsRendered = rendered
			rec.StagesCompleted = append(rec.StagesCompleted, domain.StageDispatch)
			p.metrics.AddRendered(rendered)
			p.metrics.AddRenderFailures(failed)
			p.logger.Info("dispatch stage done", "run_id", rec.RunID, "rendered", rendered, "failed", failed)
		}
	}

	rec.FinishedAt = time.Now()
	p.metrics.RunCompleted(rec.StartedAt)

	// Finalization must survive cancellation so the record is never left open.
	if p.store != nil {
		if err := p.store.FinishRun(context.WithoutCancel(ctx), rec); err != nil {
			return rec, fmt.Errorf("finalize run: %w", err)
		}
	}

	if p.notifier != nil {
		if err := p.notifier.PublishSummary(context.WithoutCancel(ctx), summarizeRun(rec)); err != nil {
			p.logger.Warn("publish run summary", "run_id", rec.RunID, "error", err)
		}
	}

	p.logger.Info("run finished",
		"run_id", rec.RunID,
		"scraped", rec.ItemsScraped,
		"accepted", rec.ItemsAccepted,
		"rendered", rec.ItemsRendered,
		"cancelled", rec.Cancelled,
		"failures", len(rec.Failures))

	return rec, fatalErr
}

type fetchResult struct {
	sourceID string
	items    []domain.Candidate
	err      error
}

// fetchAll calls every source concurrently, bounded by the configured limit,
// and joins all of them before folding results in source order. One source's
// failure never aborts the others.
func (p *Pipeline) fetchAll(ctx context.Context, rec *domain.RunRecord) []domain.Candidate {
	if len(p.sources) == 0 {
		return nil
	}

	limit := p.concurrent
	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	results := make([]fetchResult, len(p.sources))

	var wg sync.WaitGroup
	for i, src := range p.sources {
		wg.Add(1)
		go func(i int, src ports.Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			var items []domain.Candidate
			err := retry.Do(ctx, p.stageRetry, func() error {
				var ferr error
				items, ferr = src.Fetch(ctx, p.fetchLimit)
				return ferr
			})
			results[i] = fetchResult{sourceID: src.ID(), items: items, err: err}
		}(i, src)
	}
	wg.Wait()

	// Fold sequentially from the orchestrating goroutine; workers never touch
	// the run record or any other shared state.
	var merged []domain.Candidate
	for _, res := range results {
		if res.err != nil {
			p.metrics.AddSourceFailures(1)
			p.recordFailure(rec, domain.StageFetch, fmt.Errorf("source %s: %w", res.sourceID, res.err))
			p.logger.Warn("source unavailable", "source", res.sourceID, "error", res.err)
			continue
		}
		for _, item := range res.items {
			if item.SourceID == "" {
				item.SourceID = res.sourceID
			}
			merged = append(merged, item)
		}
	}

	return merged
}

func (p *Pipeline) loadFingerprints(ctx context.Context, rec *domain.RunRecord) map[string]struct{} {
	if p.store == nil {
		return map[string]struct{}{}
	}

	var seen map[string]struct{}
	err := retry.Do(ctx, p.stageRetry, func() error {
		var lerr error
		seen, lerr = p.store.LoadFingerprints(ctx)
		return lerr
	})
	if err != nil {
		// Proceed with an empty set: a degraded dedupe pass may re-score old
		// stories but never loses new ones.
		p.recordFailure(rec, domain.StageDedupe, fmt.Errorf("load fingerprints: %w", err))
		return map[string]struct{}{}
	}
	return seen
}

// aborted checks for cancellation at a stage boundary and marks the record
// so it is finalized with an explicit cancellation entry.
func (p *Pipeline) aborted(ctx context.Context, rec *domain.RunRecord, stage domain.Stage) bool {
	if ctx.Err() == nil {
		return false
	}
	if !rec.Cancelled {
		rec.Cancelled = true
		p.recordFailure(rec, stage, fmt.Errorf("run cancelled: %w", ctx.Err()))
		p.logger.Warn("run cancelled", "run_id", rec.RunID, "stage", string(stage))
	}
	return true
}

func (p *Pipeline) recordFailure(rec *domain.RunRecord, stage domain.Stage, err error) {
	rec.Failures = append(rec.Failures, domain.StageFailure{
		Stage: stage,
		Error: err.Error(),
		At:    time.Now(),
	})
}

func summarizeRun(rec domain.RunRecord) string {
	status := "completed"
	if rec.Cancelled {
		status = "cancelled"
	}
	mode := ""
	if rec.DryRun {
		mode = " (dry-run)"
	}
	return fmt.Sprintf("Run %s %s%s: scraped %d, accepted %d, rendered %d, failures %d",
		rec.RunID, status, mode, rec.ItemsScraped, rec.ItemsAccepted, rec.ItemsRendered, len(rec.Failures))
}
