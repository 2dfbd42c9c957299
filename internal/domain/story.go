package domain

import "time"

// Candidate is a raw story unit produced by a source adapter.
// It is never modified after the adapter hands it over.
type Candidate struct {
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary"`
	ImageURL    string    `json:"image_url,omitempty"`
	SourceID    string    `json:"source_id"`
	Category    string    `json:"category,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"` // zero when the source exposes no date
}

// Scored is a Candidate after rule evaluation. Rejections holds the tags of
// every rule the item failed; an accepted item has Accepted set and may still
// carry soft-rule tags when it cleared the threshold despite them.
type Scored struct {
	Candidate
	QualityScore float64  `json:"quality_score"`
	Rejections   []string `json:"rejections,omitempty"`
	Accepted     bool     `json:"accepted"`
}

// RenderStatus tracks a selected item through the dispatch state machine.
type RenderStatus string

const (
	RenderPending   RenderStatus = "pending"
	RenderSubmitted RenderStatus = "submitted"
	RenderSucceeded RenderStatus = "succeeded"
	RenderFailed    RenderStatus = "failed"
)

// Selected is a Scored item chosen for rendering. Only the dispatcher moves
// Status, and only along Pending -> Submitted -> {Succeeded, Failed}.
type Selected struct {
	Scored
	Status      RenderStatus `json:"render_status"`
	ArtifactRef string       `json:"artifact_ref,omitempty"`
	Attempts    int          `json:"attempts"`
	LastError   string       `json:"last_error,omitempty"`
}

// Stage names one phase of the pipeline for RunRecord bookkeeping.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageDedupe   Stage = "dedupe"
	StageScore    Stage = "score"
	StageSelect   Stage = "select"
	StageDispatch Stage = "dispatch"
)

// StageFailure records one absorbed failure with the stage it happened in.
type StageFailure struct {
	Stage Stage     `json:"stage"`
	Error string    `json:"error"`
	At    time.Time `json:"at"`
}

// RunRecord is the durable audit entry for one pipeline invocation.
// It is append-only once finalized; the orchestrator is its sole owner.
type RunRecord struct {
	RunID           string         `json:"run_id"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at,omitempty"`
	StagesCompleted []Stage        `json:"stages_completed,omitempty"`
	ItemsScraped    int            `json:"items_scraped"`
	ItemsAccepted   int            `json:"items_accepted"`
	ItemsRendered   int            `json:"items_rendered"`
	Underfilled     bool           `json:"underfilled,omitempty"`
	DryRun          bool           `json:"dry_run,omitempty"`
	Cancelled       bool           `json:"cancelled,omitempty"`
	Failures        []StageFailure `json:"failures,omitempty"`
}

// Open reports whether the run has not been finalized yet.
func (r RunRecord) Open() bool {
	return r.FinishedAt.IsZero()
}

// Completed reports whether the given stage ran to its join point.
func (r RunRecord) Completed(stage Stage) bool {
	for _, s := range r.StagesCompleted {
		if s == stage {
			return true
		}
	}
	return false
}

// Totals aggregates counters across all finalized runs.
type Totals struct {
	Runs          int `json:"runs"`
	ItemsScraped  int `json:"items_scraped"`
	ItemsAccepted int `json:"items_accepted"`
	ItemsRendered int `json:"items_rendered"`
	ItemsFailed   int `json:"items_failed"`
}
