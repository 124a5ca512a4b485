// Package stats tracks the daily scan counters shown in the popup.
// Counters reset at local midnight and are persisted after every update so
// they survive restarts of the background context.
package stats

import (
	"log/slog"
	"sync"
	"time"

	"linkguard/internal/core"
	"linkguard/internal/storage"
)

// Snapshot is the externally visible counter state.
// Invariant: Total == Safe + Threats after every update.
type Snapshot struct {
	Total   int `json:"total"`
	Safe    int `json:"safe"`
	Threats int `json:"threats"`
}

// persisted is the on-disk shape, carrying the day the counters belong to
// so a restart after midnight starts from zero.
type persisted struct {
	Snapshot
	Day string `json:"day"` // local date in 2006-01-02 form
}

// Tracker owns the daily counters. Safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	snap Snapshot
	day  string
	file *storage.JSONFile
	now  func() time.Time
}

// Options configures a Tracker.
type Options struct {
	File *storage.JSONFile // optional; nil disables persistence
	Now  func() time.Time  // optional clock override for tests
}

// New creates a Tracker, restoring persisted counters when they belong to
// the current local day.
func New(opts Options) *Tracker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	t := &Tracker{
		file: opts.File,
		now:  opts.Now,
		day:  dayOf(opts.Now()),
	}
	t.restore()
	return t
}

// Record counts one completed scan (cached or fresh) against today's
// counters. Anything that is not a safe verdict lands in the threats bucket.
func (t *Tracker) Record(status core.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollLocked()
	t.snap.Total++
	if core.IsThreat(status) {
		t.snap.Threats++
	} else {
		t.snap.Safe++
	}
	t.persistLocked()
}

// Snapshot returns the current counters, rolling over first if the local
// day changed since the last update.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollLocked()
	return t.snap
}

// Reset zeroes the counters. Invoked by the midnight scheduler.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap = Snapshot{}
	t.day = dayOf(t.now())
	t.persistLocked()
}

// rollLocked zeroes the counters when the local day has changed.
// Caller must hold t.mu.
func (t *Tracker) rollLocked() {
	today := dayOf(t.now())
	if today != t.day {
		t.snap = Snapshot{}
		t.day = today
	}
}

func (t *Tracker) restore() {
	if t.file == nil {
		return
	}
	var state persisted
	ok, err := t.file.Load(&state)
	if err != nil {
		slog.Warn("failed to restore daily stats, starting at zero", "error", err)
		return
	}
	if !ok || state.Day != t.day {
		return
	}
	t.snap = state.Snapshot
}

// persistLocked writes the counters to disk. Running under t.mu keeps saves
// in update order, so the persisted state is always the newest one.
// Caller must hold t.mu.
func (t *Tracker) persistLocked() {
	if t.file == nil {
		return
	}
	if err := t.file.Save(persisted{Snapshot: t.snap, Day: t.day}); err != nil {
		slog.Warn("failed to persist daily stats", "error", err)
	}
}

func dayOf(ts time.Time) string {
	return ts.Local().Format("2006-01-02")
}
