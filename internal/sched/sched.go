// Package sched runs jobs once per day at local midnight.
package sched

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Job is a named unit of daily maintenance.
type Job struct {
	Name string
	Run  func()
}

// Daily fires its jobs at every local midnight. The first firing is aligned
// to the next midnight, not a fixed interval, so drift never accumulates.
type Daily struct {
	jobs []Job
	now  func() time.Time

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewDaily creates a scheduler for the given jobs. Call Start to begin.
func NewDaily(jobs ...Job) *Daily {
	return &Daily{
		jobs: jobs,
		now:  time.Now,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start launches the scheduler loop in a goroutine. Subsequent calls are
// no-ops.
func (d *Daily) Start() {
	if d.started.CompareAndSwap(false, true) {
		go d.loop()
	}
}

// Stop terminates the loop and waits for it to exit. Safe to call multiple
// times, and before Start.
func (d *Daily) Stop() {
	d.stopOnce.Do(func() {
		close(d.stop)
	})
	if d.started.Load() {
		<-d.done
	}
}

func (d *Daily) loop() {
	defer close(d.done)
	for {
		// Both the target and the wait are measured on d.now so an
		// injected clock moves them together.
		now := d.now()
		timer := time.NewTimer(NextMidnight(now).Sub(now))
		select {
		case <-d.stop:
			timer.Stop()
			return
		case <-timer.C:
			d.runJobs()
		}
	}
}

func (d *Daily) runJobs() {
	for _, job := range d.jobs {
		start := time.Now()
		job.Run()
		slog.Info("daily job completed", "job", job.Name, "duration", time.Since(start))
	}
}

// NextMidnight returns the first local midnight strictly after t.
func NextMidnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, t.Location())
}
