package domain

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when a new run is requested while a previous
// RunRecord is still open. Overlapping runs are refused, never queued silently.
var ErrRunInProgress = errors.New("previous run is still open")

// SourceUnavailableError marks one adapter as unreachable. It is absorbed at
// the fetch stage boundary and never aborts the other adapters.
type SourceUnavailableError struct {
	SourceID string
	Cause    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.SourceID, e.Cause)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Cause
}

// RenderError reports a failed render submission. Permanent failures
// (the service rejected the content) are terminal; everything else is
// treated as transient and eligible for retry.
type RenderError struct {
	Reason    string
	Permanent bool
	Cause     error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render failed: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("render failed: %s", e.Reason)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// IsPermanent reports whether err carries a non-retryable render failure.
func IsPermanent(err error) bool {
	var rerr *RenderError
	return errors.As(err, &rerr) && rerr.Permanent
}
