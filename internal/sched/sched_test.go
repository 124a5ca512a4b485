package sched

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestNextMidnight(t *testing.T) {
	loc := time.FixedZone("TST", 3*3600)

	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{
			name: "midday",
			at:   time.Date(2026, 8, 31, 13, 45, 0, 0, loc),
			want: time.Date(2026, 9, 1, 0, 0, 0, 0, loc),
		},
		{
			name: "just before midnight",
			at:   time.Date(2026, 8, 31, 23, 59, 59, 0, loc),
			want: time.Date(2026, 9, 1, 0, 0, 0, 0, loc),
		},
		{
			name: "exactly midnight rolls to the next day",
			at:   time.Date(2026, 9, 1, 0, 0, 0, 0, loc),
			want: time.Date(2026, 9, 2, 0, 0, 0, 0, loc),
		},
		{
			name: "month boundary",
			at:   time.Date(2026, 12, 31, 6, 0, 0, 0, loc),
			want: time.Date(2027, 1, 1, 0, 0, 0, 0, loc),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextMidnight(tc.at); !got.Equal(tc.want) {
				t.Errorf("NextMidnight(%v) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestDailyFiresAtMidnight(t *testing.T) {
	var fired atomic.Int32
	d := NewDaily(Job{Name: "test", Run: func() { fired.Add(1) }})

	// Pin the clock just before midnight so the wait is tiny.
	base := time.Now()
	d.now = func() time.Time {
		return NextMidnight(base).Add(-10 * time.Millisecond)
	}

	d.Start()
	defer d.Stop()

	deadline := time.After(2 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("job never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestDailyStopIdempotent(t *testing.T) {
	d := NewDaily(Job{Name: "noop", Run: func() {}})
	d.Start()
	d.Stop()
	d.Stop()
}

func TestDailyStopWithoutStart(t *testing.T) {
	d := NewDaily(Job{Name: "noop", Run: func() {}})

	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without a running loop")
	}
}
