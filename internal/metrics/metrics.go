// Package metrics keeps in-process cumulative counters for the pipeline.
// Counters are read on demand without mutating state.
package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	RunsStarted        int64
	RunsCompleted      int64
	ItemsScraped       int64
	ItemsAccepted      int64
	ItemsRendered      int64
	RenderFailures     int64
	DuplicatesFiltered int64
	SourceFailures     int64

	LastRunTime     time.Time
	LastRunDuration time.Duration
}

func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunsStarted++
}

func (m *Metrics) RunCompleted(started time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunsCompleted++
	m.LastRunTime = started
	m.LastRunDuration = time.Since(started)
}

func (m *Metrics) AddScraped(n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsScraped += int64(n)
}

func (m *Metrics) AddAccepted(n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsAccepted += int64(n)
}

func (m *Metrics) AddRendered(n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsRendered += int64(n)
}

func (m *Metrics) AddRenderFailures(n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RenderFailures += int64(n)
}

func (m *Metrics) AddDuplicates(n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered += int64(n)
}

func (m *Metrics) AddSourceFailures(n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourceFailures += int64(n)
}

// Snapshot returns a point-in-time view of every counter.
func (m *Metrics) Snapshot() map[string]any {
	if m == nil {
		return map[string]any{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]any{
		"runs_started":         m.RunsStarted,
		"runs_completed":       m.RunsCompleted,
		"items_scraped":        m.ItemsScraped,
		"items_accepted":       m.ItemsAccepted,
		"items_rendered":       m.ItemsRendered,
		"render_failures":      m.RenderFailures,
		"duplicates_filtered":  m.DuplicatesFiltered,
		"source_failures":      m.SourceFailures,
		"last_run_time":        m.LastRunTime.Format(time.RFC3339),
		"last_run_duration_ms": m.LastRunDuration.Milliseconds(),
	}
}
