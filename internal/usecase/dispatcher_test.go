package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"newsreel/internal/domain"
	"newsreel/internal/retry"
)

type scriptedRenderer struct {
	mu    sync.Mutex
	calls map[string]int
	fails map[string][]error // errors consumed before the call succeeds
}

func newScriptedRenderer() *scriptedRenderer {
	return &scriptedRenderer{calls: map[string]int{}, fails: map[string][]error{}}
}

func (r *scriptedRenderer) Render(ctx context.Context, item domain.Selected) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[item.Headline]++
	if queue := r.fails[item.Headline]; len(queue) > 0 {
		err := queue[0]
		r.fails[item.Headline] = queue[1:]
		return "", err
	}
	return "video:" + item.Headline, nil
}

func (r *scriptedRenderer) callCount(headline string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[headline]
}

func selectedItem(headline string) domain.Selected {
	return domain.Selected{
		Scored: domain.Scored{
			Candidate: domain.Candidate{Headline: headline, SourceID: "alpha"},
			Accepted:  true,
		},
		Status: domain.RenderPending,
	}
}

func TestDispatchTransientFailuresThenSuccess(t *testing.T) {
	t.Parallel()

	renderer := newScriptedRenderer()
	renderer.fails["Armored truck heist foiled downtown"] = []error{
		&domain.RenderError{Reason: "service error 503"},
		&domain.RenderError{Reason: "service error 503"},
	}

	d := NewDispatcher(renderer, retry.Policy{Attempts: 3, Delay: time.Millisecond}, 1, discardLogger())
	out := d.Dispatch(context.Background(), []domain.Selected{selectedItem("Armored truck heist foiled downtown")})

	got := out[0]
	if got.Status != domain.RenderSucceeded {
		t.Fatalf("status = %s, want succeeded", got.Status)
	}
	if got.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", got.Attempts)
	}
	if got.ArtifactRef == "" || got.LastError != "" {
		t.Errorf("artifact = %q, lastError = %q", got.ArtifactRef, got.LastError)
	}
}

func TestDispatchPermanentFailureSkipsRetry(t *testing.T) {
	t.Parallel()

	renderer := newScriptedRenderer()
	renderer.fails["Jewel thief caught after rooftop chase"] = []error{
		&domain.RenderError{Reason: "rejected 422", Permanent: true},
	}

	d := NewDispatcher(renderer, retry.Policy{Attempts: 3, Delay: time.Millisecond}, 1, discardLogger())
	out := d.Dispatch(context.Background(), []domain.Selected{selectedItem("Jewel thief caught after rooftop chase")})

	got := out[0]
	if got.Status != domain.RenderFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on permanent failure)", got.Attempts)
	}
	if n := renderer.callCount("Jewel thief caught after rooftop chase"); n != 1 {
		t.Errorf("renderer calls = %d, want 1", n)
	}
}

func TestDispatchExhaustsAttemptBudget(t *testing.T) {
	t.Parallel()

	renderer := newScriptedRenderer()
	renderer.fails["Armored truck heist foiled downtown"] = []error{
		&domain.RenderError{Reason: "service error 503"},
		&domain.RenderError{Reason: "service error 503"},
		&domain.RenderError{Reason: "service error 503"},
	}

	d := NewDispatcher(renderer, retry.Policy{Attempts: 2, Delay: time.Millisecond}, 1, discardLogger())
	out := d.Dispatch(context.Background(), []domain.Selected{selectedItem("Armored truck heist foiled downtown")})

	got := out[0]
	if got.Status != domain.RenderFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", got.Attempts)
	}
	if got.LastError == "" {
		t.Error("terminal failure must preserve the last error")
	}
}

func TestDispatchItemFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	renderer := newScriptedRenderer()
	renderer.fails["Jewel thief caught after rooftop chase"] = []error{
		&domain.RenderError{Reason: "rejected 422", Permanent: true},
	}

	d := NewDispatcher(renderer, retry.Policy{Attempts: 2, Delay: time.Millisecond}, 2, discardLogger())
	out := d.Dispatch(context.Background(), []domain.Selected{
		selectedItem("Armored truck heist foiled downtown"),
		selectedItem("Jewel thief caught after rooftop chase"),
	})

	if out[0].Status != domain.RenderSucceeded {
		t.Errorf("first item status = %s, want succeeded", out[0].Status)
	}
	if out[1].Status != domain.RenderFailed {
		t.Errorf("second item status = %s, want failed", out[1].Status)
	}
}

func TestDispatchWithoutRenderer(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil, retry.Policy{Attempts: 2}, 1, discardLogger())
	out := d.Dispatch(context.Background(), []domain.Selected{selectedItem("Armored truck heist foiled downtown")})

	if out[0].Status != domain.RenderFailed || out[0].LastError == "" {
		t.Fatalf("status = %s, lastError = %q", out[0].Status, out[0].LastError)
	}
}

func TestDispatchCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	renderer := newScriptedRenderer()
	renderer.fails["Armored truck heist foiled downtown"] = []error{
		&domain.RenderError{Reason: "service error 503"},
	}

	d := NewDispatcher(renderer, retry.Policy{Attempts: 3, Delay: time.Hour}, 1, discardLogger())
	out := d.Dispatch(ctx, []domain.Selected{selectedItem("Armored truck heist foiled downtown")})

	got := out[0]
	if got.Status != domain.RenderFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if n := renderer.callCount("Armored truck heist foiled downtown"); n != 1 {
		t.Errorf("renderer calls = %d, want 1 (no retry after cancellation)", n)
	}
}
