package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"newsreel/internal/domain"
)

func TestFingerprintsRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	seen, err := store.LoadFingerprints(ctx)
	if err != nil {
		t.Fatalf("LoadFingerprints on empty dir: %v", err)
	}
	if len(seen) != 0 {
		t.Fatalf("empty dir yielded %d fingerprints", len(seen))
	}

	if err := store.AddFingerprints(ctx, []string{"aaaa1111", "bbbb2222"}); err != nil {
		t.Fatalf("AddFingerprints: %v", err)
	}
	if err := store.AddFingerprints(ctx, []string{"bbbb2222", "cccc3333"}); err != nil {
		t.Fatalf("AddFingerprints union: %v", err)
	}

	seen, err = store.LoadFingerprints(ctx)
	if err != nil {
		t.Fatalf("LoadFingerprints: %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("fingerprints = %d, want 3 (union, no duplicates)", len(seen))
	}
	for _, fp := range []string{"aaaa1111", "bbbb2222", "cccc3333"} {
		if _, ok := seen[fp]; !ok {
			t.Errorf("fingerprint %s missing", fp)
		}
	}
}

func TestBeginRunRefusesOverlap(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	rec := domain.RunRecord{RunID: "run-1", StartedAt: time.Now()}

	if err := store.BeginRun(ctx, rec); err != nil {
		t.Fatalf("first BeginRun: %v", err)
	}
	if err := store.BeginRun(ctx, domain.RunRecord{RunID: "run-2"}); !errors.Is(err, domain.ErrRunInProgress) {
		t.Fatalf("second BeginRun = %v, want ErrRunInProgress", err)
	}

	rec.FinishedAt = time.Now()
	if err := store.FinishRun(ctx, rec); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	if err := store.BeginRun(ctx, domain.RunRecord{RunID: "run-2"}); err != nil {
		t.Fatalf("BeginRun after finish: %v", err)
	}
}

func TestFinishRunClearsMarkerAndAppends(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	rec := domain.RunRecord{RunID: "run-1", StartedAt: time.Now()}
	if err := store.BeginRun(ctx, rec); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	rec.FinishedAt = time.Now()
	rec.ItemsScraped = 5
	if err := store.FinishRun(ctx, rec); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, openRunFile)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("open-run marker still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, runLogFile)); err != nil {
		t.Errorf("run log missing: %v", err)
	}
}

func TestTotalsFoldsRunLog(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	records := []domain.RunRecord{
		{RunID: "run-1", ItemsScraped: 10, ItemsAccepted: 4, ItemsRendered: 4},
		{RunID: "run-2", ItemsScraped: 6, ItemsAccepted: 2, ItemsRendered: 1,
			Failures: []domain.StageFailure{{Stage: domain.StageDispatch, Error: "boom", At: time.Now()}}},
	}
	for _, rec := range records {
		rec.StartedAt = time.Now()
		rec.FinishedAt = time.Now()
		if err := store.FinishRun(ctx, rec); err != nil {
			t.Fatalf("FinishRun %s: %v", rec.RunID, err)
		}
	}

	totals, err := store.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	want := domain.Totals{Runs: 2, ItemsScraped: 16, ItemsAccepted: 6, ItemsRendered: 5, ItemsFailed: 1}
	if totals != want {
		t.Fatalf("totals = %+v, want %+v", totals, want)
	}
}

func TestTotalsWithoutRunLog(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	totals, err := store.Totals(context.Background())
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals != (domain.Totals{}) {
		t.Fatalf("totals = %+v, want zero values", totals)
	}
}
