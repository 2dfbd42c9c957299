package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestParseDailyTime(t *testing.T) {
	t.Parallel()

	hour, minute, err := parseDailyTime("06:30")
	if err != nil {
		t.Fatalf("parseDailyTime: %v", err)
	}
	if hour != 6 || minute != 30 {
		t.Fatalf("got %02d:%02d, want 06:30", hour, minute)
	}

	for _, bad := range []string{"", "6am", "25:00", "06:61"} {
		if _, _, err := parseDailyTime(bad); err == nil {
			t.Errorf("parseDailyTime(%q) accepted invalid input", bad)
		}
	}
}

func TestNextRun(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before todays firing",
			now:  time.Date(2026, 8, 24, 5, 0, 0, 0, loc),
			want: time.Date(2026, 8, 24, 6, 0, 0, 0, loc),
		},
		{
			name: "after todays firing",
			now:  time.Date(2026, 8, 24, 7, 0, 0, 0, loc),
			want: time.Date(2026, 8, 25, 6, 0, 0, 0, loc),
		},
		{
			name: "exactly at firing time rolls to tomorrow",
			now:  time.Date(2026, 8, 24, 6, 0, 0, 0, loc),
			want: time.Date(2026, 8, 25, 6, 0, 0, 0, loc),
		},
		{
			name: "month boundary",
			now:  time.Date(2026, 8, 31, 23, 0, 0, 0, loc),
			want: time.Date(2026, 9, 1, 6, 0, 0, 0, loc),
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := nextRun(tc.now, 6, 0)
			if !got.Equal(tc.want) {
				t.Fatalf("nextRun = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestStartRejectsInvalidTime(t *testing.T) {
	t.Parallel()

	d := NewDailyScheduler("not-a-time", time.UTC)
	if err := d.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatal("expected error for invalid daily time")
	}
}
