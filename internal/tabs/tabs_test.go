package tabs

import (
	"context"
	"sync"
	"testing"
	"time"

	"linkguard/internal/core"
	"linkguard/internal/settings"
)

type stubScanner struct {
	mu      sync.Mutex
	results map[string]core.Result
	err     error
	block   chan struct{}
	calls   int
}

func (s *stubScanner) Scan(_ context.Context, rawURL string) (core.Result, error) {
	s.mu.Lock()
	s.calls++
	block := s.block
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	if s.err != nil {
		return core.Result{}, s.err
	}
	res, ok := s.results[rawURL]
	if !ok {
		res = core.Result{Status: core.StatusSafe, Confidence: 95}
	}
	res.URL = rawURL
	return res, nil
}

type command struct {
	name  string
	tabID int
	url   string
}

type recordingCommander struct {
	mu       sync.Mutex
	commands []command
}

func (r *recordingCommander) record(c command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, c)
}

func (r *recordingCommander) ShowIndicator(_ context.Context, tabID int, res core.Result) {
	r.record(command{name: "show", tabID: tabID, url: res.URL})
}

func (r *recordingCommander) DismissIndicator(_ context.Context, tabID int) {
	r.record(command{name: "dismiss", tabID: tabID})
}

func (r *recordingCommander) NavigateToBlocked(_ context.Context, tabID int, rawURL string) {
	r.record(command{name: "block", tabID: tabID, url: rawURL})
}

func (r *recordingCommander) last() (command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.commands) == 0 {
		return command{}, false
	}
	return r.commands[len(r.commands)-1], true
}

type staticSettings struct {
	s settings.Settings
}

func (ss staticSettings) Get() settings.Settings { return ss.s }

func TestSafePageShowsThenAutoDismisses(t *testing.T) {
	cmd := &recordingCommander{}
	c := New(Options{
		Scanner:     &stubScanner{},
		Commander:   cmd,
		SafeDismiss: 20 * time.Millisecond,
	})
	defer c.Close()

	c.NavigationCompleted(context.Background(), 1, "http://example.com")
	if got := c.State(1); got != StateSafe {
		t.Fatalf("state = %s, want safe", got)
	}
	if last, ok := cmd.last(); !ok || last.name != "show" {
		t.Fatalf("last command = %+v, want show", last)
	}

	deadline := time.After(time.Second)
	for c.State(1) != StateIdle {
		select {
		case <-deadline:
			t.Fatal("safe indicator never auto-dismissed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if last, _ := cmd.last(); last.name != "dismiss" {
		t.Errorf("last command = %+v, want dismiss", last)
	}
}

func TestMaliciousPageBlocked(t *testing.T) {
	sc := &stubScanner{results: map[string]core.Result{
		"http://evil.example.com": {Status: core.StatusMalicious, Confidence: 91},
	}}
	cmd := &recordingCommander{}
	c := New(Options{Scanner: sc, Commander: cmd})
	defer c.Close()

	c.NavigationCompleted(context.Background(), 7, "http://evil.example.com")
	if got := c.State(7); got != StateBlocked {
		t.Fatalf("state = %s, want blocked", got)
	}
	last, _ := cmd.last()
	if last.name != "block" || last.url != "http://evil.example.com" {
		t.Errorf("last command = %+v, want block redirect", last)
	}
}

func TestMaliciousPageWarnedWhenBlockingDisabled(t *testing.T) {
	sc := &stubScanner{results: map[string]core.Result{
		"http://evil.example.com": {Status: core.StatusMalicious, Confidence: 91},
	}}
	cmd := &recordingCommander{}
	s := settings.Defaults()
	s.BlockMalicious = false
	c := New(Options{Scanner: sc, Commander: cmd, Settings: staticSettings{s: s}})
	defer c.Close()

	c.NavigationCompleted(context.Background(), 7, "http://evil.example.com")
	if got := c.State(7); got != StateWarned {
		t.Fatalf("state = %s, want warned", got)
	}
	if last, _ := cmd.last(); last.name != "show" {
		t.Errorf("last command = %+v, want indicator", last)
	}
}

func TestSuspiciousPageWarned(t *testing.T) {
	sc := &stubScanner{results: map[string]core.Result{
		"http://shady.example.com": {Status: core.StatusSuspicious, Confidence: 60},
	}}
	cmd := &recordingCommander{}
	c := New(Options{Scanner: sc, Commander: cmd})
	defer c.Close()

	c.NavigationCompleted(context.Background(), 2, "http://shady.example.com")
	if got := c.State(2); got != StateWarned {
		t.Fatalf("state = %s, want warned", got)
	}
}

func TestInternalPagesSkipped(t *testing.T) {
	sc := &stubScanner{}
	cmd := &recordingCommander{}
	c := New(Options{Scanner: sc, Commander: cmd})
	defer c.Close()

	c.NavigationCompleted(context.Background(), 3, "chrome://settings")
	if got := c.State(3); got != StateIdle {
		t.Fatalf("state = %s, want idle", got)
	}
	if sc.calls != 0 {
		t.Errorf("scanner calls = %d, want 0 for internal pages", sc.calls)
	}
	// Leftover indicators from the previous page are cleared.
	if last, ok := cmd.last(); !ok || last.name != "dismiss" {
		t.Errorf("last command = %+v, want dismiss", last)
	}
}

func TestAutoScanDisabledSkipsScan(t *testing.T) {
	sc := &stubScanner{}
	s := settings.Defaults()
	s.AutoScan = false
	c := New(Options{Scanner: sc, Commander: &recordingCommander{}, Settings: staticSettings{s: s}})
	defer c.Close()

	c.NavigationCompleted(context.Background(), 4, "http://example.com")
	if sc.calls != 0 {
		t.Errorf("scanner calls = %d, want 0 with auto-scan off", sc.calls)
	}
}

func TestStaleVerdictDiscarded(t *testing.T) {
	block := make(chan struct{})
	sc := &stubScanner{
		results: map[string]core.Result{
			"http://slow.example.com": {Status: core.StatusMalicious, Confidence: 91},
		},
		block: block,
	}
	cmd := &recordingCommander{}
	c := New(Options{Scanner: sc, Commander: cmd})
	defer c.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.NavigationCompleted(context.Background(), 5, "http://slow.example.com")
	}()

	// Wait for the first navigation to reach the scanner, then supersede it.
	for {
		sc.mu.Lock()
		n := sc.calls
		sc.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	sc.mu.Lock()
	sc.block = nil
	sc.mu.Unlock()
	c.NavigationCompleted(context.Background(), 5, "http://example.com")
	if got := c.State(5); got != StateSafe {
		t.Fatalf("state = %s, want safe from the newer navigation", got)
	}

	close(block)
	<-done

	// The malicious verdict for the abandoned navigation must not win.
	if got := c.State(5); got != StateSafe {
		t.Errorf("state = %s, stale verdict overrode the current page", got)
	}
	cmd.mu.Lock()
	defer cmd.mu.Unlock()
	for _, issued := range cmd.commands {
		if issued.name == "block" {
			t.Error("stale navigation issued a block redirect")
		}
	}
}

func TestTabClosedDropsState(t *testing.T) {
	c := New(Options{Scanner: &stubScanner{}, Commander: &recordingCommander{}})
	defer c.Close()

	c.NavigationCompleted(context.Background(), 6, "http://example.com")
	c.TabClosed(6)
	if got := c.State(6); got != StateIdle {
		t.Errorf("state = %s, want idle after close", got)
	}
}
