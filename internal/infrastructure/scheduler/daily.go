// Package scheduler triggers one pipeline run per day at a fixed local time.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"newsreel/internal/ports"
)

// DailyScheduler fires the job once per day at "HH:MM" in the given location.
type DailyScheduler struct {
	at   string
	loc  *time.Location
	stop chan struct{}
}

var _ ports.Scheduler = (*DailyScheduler)(nil)

// NewDailyScheduler builds a scheduler from the configured daily time.
func NewDailyScheduler(at string, loc *time.Location) *DailyScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyScheduler{at: at, loc: loc}
}

// Start launches the trigger loop. The first firing is the next occurrence
// of the configured time; triggers never overlap because the loop waits for
// the job to return before arming the next timer.
func (d *DailyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if d.stop != nil {
		return nil
	}

	hour, minute, err := parseDailyTime(d.at)
	if err != nil {
		return err
	}

	d.stop = make(chan struct{})
	go func() {
		for {
			next := nextRun(time.Now().In(d.loc), hour, minute)
			timer := time.NewTimer(time.Until(next))
			select {
			case t := <-timer.C:
				job(t)
			case <-ctx.Done():
				timer.Stop()
				return
			case <-d.stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the trigger loop.
func (d *DailyScheduler) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	close(d.stop)
	d.stop = nil
	return nil
}

func parseDailyTime(value string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid daily time %q: %w", value, err)
	}
	return t.Hour(), t.Minute(), nil
}

// nextRun returns the next occurrence of hour:minute strictly after now.
func nextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
