package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"newsreel/internal/domain"
	"newsreel/internal/ports"
	"newsreel/internal/retry"
)

// Dispatcher submits selected items to the renderer, tracking each item
// through Pending -> Submitted -> {Succeeded, Failed}. Items are processed
// independently: one item's terminal failure never blocks the others, and
// the dispatcher never raises past its own boundary.
type Dispatcher struct {
	renderer ports.Renderer
	policy   retry.Policy
	limit    int
	logger   *slog.Logger
}

// NewDispatcher bounds concurrent submissions by limit and retries transient
// failures per policy.
func NewDispatcher(renderer ports.Renderer, policy retry.Policy, limit int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if limit < 1 {
		limit = 1
	}
	return &Dispatcher{renderer: renderer, policy: policy, limit: limit, logger: logger}
}

// Dispatch drives the state machine for every item and returns each of them
// with a terminal status and its attempt count populated.
func (d *Dispatcher) Dispatch(ctx context.Context, items []domain.Selected) []domain.Selected {
	out := make([]domain.Selected, len(items))
	copy(out, items)

	if d.renderer == nil {
		for i := range out {
			out[i].Status = domain.RenderFailed
			out[i].LastError = "renderer not configured"
		}
		return out
	}

	sem := make(chan struct{}, d.limit)
	var wg sync.WaitGroup
	for i := range out {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			out[i] = d.dispatchOne(ctx, out[i])
		}(i)
	}
	wg.Wait()

	return out
}

func (d *Dispatcher) dispatchOne(ctx context.Context, item domain.Selected) domain.Selected {
	attempts := d.policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		item.Status = domain.RenderSubmitted
		item.Attempts = attempt

		ref, err := d.renderer.Render(ctx, item)
		if err == nil {
			item.Status = domain.RenderSucceeded
			item.ArtifactRef = ref
			item.LastError = ""
			d.logger.Info("render succeeded", "headline", item.Headline, "attempts", attempt, "artifact", ref)
			return item
		}

		item.LastError = err.Error()

		if domain.IsPermanent(err) {
			item.Status = domain.RenderFailed
			d.logger.Warn("render rejected permanently", "headline", item.Headline, "error", err)
			return item
		}
		if attempt == attempts {
			item.Status = domain.RenderFailed
			d.logger.Warn("render attempts exhausted", "headline", item.Headline, "attempts", attempt, "error", err)
			return item
		}

		// Transient failure: the item re-enters the queue at Pending and
		// waits out the configured delay before the next attempt.
		item.Status = domain.RenderPending
		d.logger.Debug("render retry scheduled", "headline", item.Headline, "attempt", attempt, "error", err)

		delay := d.policy.Delay
		if d.policy.Backoff {
			delay = time.Duration(attempt) * d.policy.Delay
		}
		select {
		case <-ctx.Done():
			item.Status = domain.RenderFailed
			item.LastError = "run cancelled: " + ctx.Err().Error()
			return item
		case <-time.After(delay):
		}
	}

	return item
}
