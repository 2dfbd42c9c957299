package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCountersAccumulate(t *testing.T) {
	t.Parallel()

	m := New()
	started := time.Now().Add(-time.Second)
	m.RunStarted()
	m.AddScraped(10)
	m.AddAccepted(4)
	m.AddRendered(3)
	m.AddRenderFailures(1)
	m.AddDuplicates(2)
	m.AddSourceFailures(1)
	m.RunCompleted(started)

	snap := m.Snapshot()
	if snap["runs_started"] != int64(1) || snap["runs_completed"] != int64(1) {
		t.Errorf("run counters = %v / %v", snap["runs_started"], snap["runs_completed"])
	}
	if snap["items_scraped"] != int64(10) || snap["items_rendered"] != int64(3) {
		t.Errorf("item counters = %v / %v", snap["items_scraped"], snap["items_rendered"])
	}
	if snap["last_run_duration_ms"].(int64) < 1000 {
		t.Errorf("duration = %v, want >= 1s", snap["last_run_duration_ms"])
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.RunStarted()
	m.AddScraped(1)
	m.RunCompleted(time.Now())
	if snap := m.Snapshot(); len(snap) != 0 {
		t.Errorf("nil snapshot = %v, want empty", snap)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	t.Parallel()

	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AddScraped(1)
			m.AddDuplicates(1)
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap["items_scraped"] != int64(50) || snap["duplicates_filtered"] != int64(50) {
		t.Fatalf("counters = %v / %v, want 50 / 50", snap["items_scraped"], snap["duplicates_filtered"])
	}
}
