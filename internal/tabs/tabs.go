// Package tabs tracks the per-tab scan lifecycle and drives the page-facing
// commands (indicator, warning, block redirect) that follow a navigation.
package tabs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"linkguard/internal/core"
	"linkguard/internal/notify"
	"linkguard/internal/settings"
)

// DefaultSafeDismiss is how long the safe indicator stays up before it is
// dismissed automatically.
const DefaultSafeDismiss = 5 * time.Second

// State is a tab's position in the scan lifecycle.
type State string

const (
	StateIdle     State = "idle"
	StateEligible State = "eligible"
	StateScanning State = "scanning"
	StateSafe     State = "safe"
	StateWarned   State = "warned"
	StateBlocked  State = "blocked"
)

// Scanner produces a verdict for a URL.
type Scanner interface {
	Scan(ctx context.Context, rawURL string) (core.Result, error)
}

// SettingsSource supplies the current user settings.
type SettingsSource interface {
	Get() settings.Settings
}

// Commander executes page-facing commands for a tab. Implementations must
// not block; delivery is best-effort.
type Commander interface {
	ShowIndicator(ctx context.Context, tabID int, res core.Result)
	DismissIndicator(ctx context.Context, tabID int)
	NavigateToBlocked(ctx context.Context, tabID int, rawURL string)
}

// tabState is the tracked lifecycle of one tab. The epoch increments on
// every navigation so verdicts for an abandoned navigation are discarded.
type tabState struct {
	state State
	url   string
	epoch uint64
}

// Coordinator owns per-tab scan state. Safe for concurrent use.
type Coordinator struct {
	scanner   Scanner
	commander Commander
	settings  SettingsSource

	dismissAfter time.Duration

	mu     sync.Mutex
	tabs   map[int]*tabState
	timers map[int]*time.Timer
	closed bool
}

// Options configures a Coordinator. Scanner and Commander are required.
type Options struct {
	Scanner   Scanner
	Commander Commander
	Settings  SettingsSource

	// SafeDismiss overrides the safe indicator auto-dismiss delay.
	SafeDismiss time.Duration
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	if opts.SafeDismiss <= 0 {
		opts.SafeDismiss = DefaultSafeDismiss
	}
	return &Coordinator{
		scanner:      opts.Scanner,
		commander:    opts.Commander,
		settings:     opts.Settings,
		dismissAfter: opts.SafeDismiss,
		tabs:         make(map[int]*tabState),
		timers:       make(map[int]*time.Timer),
	}
}

// NavigationCompleted handles a finished navigation in a tab: it scans the
// new URL and applies the verdict, unless the page is ineligible or a newer
// navigation supersedes it first.
func (c *Coordinator) NavigationCompleted(ctx context.Context, tabID int, rawURL string) {
	if core.IsInternalURL(rawURL) || !c.autoScanEnabled() {
		c.setIdle(ctx, tabID, rawURL)
		return
	}

	epoch := c.beginNavigation(tabID, rawURL)

	c.finish(tabID, epoch, StateScanning)
	res, err := c.scanner.Scan(ctx, rawURL)
	if err != nil {
		slog.Warn("navigation scan failed", "tab", tabID, "url", rawURL, "error", err)
		c.finish(tabID, epoch, StateIdle)
		return
	}

	c.apply(ctx, tabID, epoch, res)
}

// TabClosed drops all state for a tab.
func (c *Coordinator) TabClosed(tabID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tabs, tabID)
	c.stopTimerLocked(tabID)
}

// State reports a tab's lifecycle state. Unknown tabs are idle.
func (c *Coordinator) State(tabID int) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts, ok := c.tabs[tabID]; ok {
		return ts.state
	}
	return StateIdle
}

// Close stops all pending dismiss timers.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id := range c.timers {
		c.stopTimerLocked(id)
	}
}

func (c *Coordinator) autoScanEnabled() bool {
	if c.settings == nil {
		return true
	}
	return c.settings.Get().AutoScan
}

// setIdle clears any indicator left over from the previous page.
func (c *Coordinator) setIdle(ctx context.Context, tabID int, rawURL string) {
	c.mu.Lock()
	ts := c.tabState(tabID)
	ts.epoch++
	ts.state = StateIdle
	ts.url = rawURL
	c.stopTimerLocked(tabID)
	c.mu.Unlock()

	c.commander.DismissIndicator(ctx, tabID)
}

// beginNavigation marks the tab eligible for scanning and returns the
// navigation epoch the eventual verdict must match.
func (c *Coordinator) beginNavigation(tabID int, rawURL string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.tabState(tabID)
	ts.epoch++
	ts.state = StateEligible
	ts.url = rawURL
	c.stopTimerLocked(tabID)
	return ts.epoch
}

// apply transitions the tab per the verdict and issues the page command.
func (c *Coordinator) apply(ctx context.Context, tabID int, epoch uint64, res core.Result) {
	blockMalicious, showWarnings := true, true
	if c.settings != nil {
		s := c.settings.Get()
		blockMalicious = s.BlockMalicious
		showWarnings = s.ShowWarnings
	}

	switch {
	case res.Status == core.StatusMalicious && blockMalicious:
		if c.finish(tabID, epoch, StateBlocked) {
			c.commander.NavigateToBlocked(ctx, tabID, res.URL)
		}
	case core.IsThreat(res.Status):
		if !showWarnings {
			c.finish(tabID, epoch, StateIdle)
			return
		}
		if c.finish(tabID, epoch, StateWarned) {
			c.commander.ShowIndicator(ctx, tabID, res)
		}
	default:
		if c.finish(tabID, epoch, StateSafe) {
			c.commander.ShowIndicator(ctx, tabID, res)
			c.scheduleDismiss(tabID, epoch)
		}
	}
}

// finish commits a state transition if the tab is still on the same
// navigation. A stale epoch means the transition belongs to an abandoned
// page and is dropped.
func (c *Coordinator) finish(tabID int, epoch uint64, state State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.tabs[tabID]
	if !ok || ts.epoch != epoch {
		return false
	}
	ts.state = state
	return true
}

// scheduleDismiss arms the safe indicator auto-dismiss timer.
func (c *Coordinator) scheduleDismiss(tabID int, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stopTimerLocked(tabID)
	c.timers[tabID] = time.AfterFunc(c.dismissAfter, func() {
		if c.finish(tabID, epoch, StateIdle) {
			c.commander.DismissIndicator(context.Background(), tabID)
		}
		c.mu.Lock()
		delete(c.timers, tabID)
		c.mu.Unlock()
	})
}

func (c *Coordinator) tabState(tabID int) *tabState {
	ts, ok := c.tabs[tabID]
	if !ok {
		ts = &tabState{state: StateIdle}
		c.tabs[tabID] = ts
	}
	return ts
}

func (c *Coordinator) stopTimerLocked(tabID int) {
	if timer, ok := c.timers[tabID]; ok {
		timer.Stop()
		delete(c.timers, tabID)
	}
}

// BroadcastCommander publishes page commands as events for connected UI
// surfaces.
type BroadcastCommander struct {
	broadcaster *notify.Broadcaster
}

// NewBroadcastCommander creates a BroadcastCommander.
func NewBroadcastCommander(b *notify.Broadcaster) *BroadcastCommander {
	return &BroadcastCommander{broadcaster: b}
}

func (b *BroadcastCommander) ShowIndicator(_ context.Context, tabID int, res core.Result) {
	b.broadcaster.Publish(notify.Event{
		Action: "showIndicator",
		Payload: map[string]any{
			"tabId":  tabID,
			"result": res,
		},
	})
}

func (b *BroadcastCommander) DismissIndicator(_ context.Context, tabID int) {
	b.broadcaster.Publish(notify.Event{
		Action:  "dismissIndicator",
		Payload: map[string]any{"tabId": tabID},
	})
}

func (b *BroadcastCommander) NavigateToBlocked(_ context.Context, tabID int, rawURL string) {
	b.broadcaster.Publish(notify.Event{
		Action: "navigateToBlocked",
		Payload: map[string]any{
			"tabId": tabID,
			"url":   rawURL,
		},
	})
}
