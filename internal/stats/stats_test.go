package stats

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"linkguard/internal/core"
	"linkguard/internal/storage"
)

func TestTrackerInvariant(t *testing.T) {
	tr := New(Options{})

	statuses := []core.Status{
		core.StatusSafe,
		core.StatusMalicious,
		core.StatusSuspicious,
		core.StatusSafe,
		core.StatusUnknown,
	}
	for _, s := range statuses {
		tr.Record(s)
	}

	snap := tr.Snapshot()
	if snap.Total != len(statuses) {
		t.Errorf("total = %d, want %d", snap.Total, len(statuses))
	}
	if snap.Safe+snap.Threats != snap.Total {
		t.Errorf("safe(%d) + threats(%d) != total(%d)", snap.Safe, snap.Threats, snap.Total)
	}
	if snap.Safe != 2 {
		t.Errorf("safe = %d, want 2", snap.Safe)
	}
	if snap.Threats != 3 {
		t.Errorf("threats = %d, want 3 (suspicious and unknown count as threats)", snap.Threats)
	}
}

func TestTrackerMidnightRollover(t *testing.T) {
	current := time.Date(2025, 6, 1, 23, 59, 0, 0, time.Local)
	tr := New(Options{Now: func() time.Time { return current }})

	tr.Record(core.StatusSafe)
	tr.Record(core.StatusMalicious)
	if snap := tr.Snapshot(); snap.Total != 2 {
		t.Fatalf("total = %d, want 2", snap.Total)
	}

	// Cross local midnight: counters roll to zero lazily.
	current = current.Add(2 * time.Minute)
	if snap := tr.Snapshot(); snap.Total != 0 {
		t.Errorf("total = %d, want 0 after rollover", snap.Total)
	}

	tr.Record(core.StatusSafe)
	snap := tr.Snapshot()
	if snap.Total != 1 || snap.Safe != 1 {
		t.Errorf("got %+v, want one safe scan on the new day", snap)
	}
}

func TestTrackerReset(t *testing.T) {
	tr := New(Options{})
	tr.Record(core.StatusSafe)
	tr.Reset()

	if snap := tr.Snapshot(); snap != (Snapshot{}) {
		t.Errorf("got %+v, want zeroes after reset", snap)
	}
}

func TestTrackerPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	now := func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local) }

	first := New(Options{File: storage.NewJSONFile(path), Now: now})
	first.Record(core.StatusSafe)
	first.Record(core.StatusMalicious)

	// Same day: counters survive a restart.
	second := New(Options{File: storage.NewJSONFile(path), Now: now})
	snap := second.Snapshot()
	if snap.Total != 2 || snap.Safe != 1 || snap.Threats != 1 {
		t.Errorf("got %+v, want restored counters", snap)
	}

	// Next day: persisted counters belong to yesterday and are dropped.
	nextDay := func() time.Time { return time.Date(2025, 6, 2, 10, 0, 0, 0, time.Local) }
	third := New(Options{File: storage.NewJSONFile(path), Now: nextDay})
	if snap := third.Snapshot(); snap.Total != 0 {
		t.Errorf("total = %d, want 0 on a new day", snap.Total)
	}
}

func TestTrackerConcurrentRecordsPersistNewestCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	now := func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local) }
	tr := New(Options{File: storage.NewJSONFile(path), Now: now})

	const scans = 25
	var wg sync.WaitGroup
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record(core.StatusSafe)
		}()
	}
	wg.Wait()

	// The last save must carry the full count; an older snapshot winning the
	// race would lose scans across a restart.
	restored := New(Options{File: storage.NewJSONFile(path), Now: now})
	if snap := restored.Snapshot(); snap.Total != scans {
		t.Errorf("restored total = %d, want %d", snap.Total, scans)
	}
}
