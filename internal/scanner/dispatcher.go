package scanner

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"linkguard/internal/cache"
	"linkguard/internal/core"
	"linkguard/internal/notify"
	"linkguard/internal/settings"
	"linkguard/internal/stats"
)

// TokenSource supplies the current bearer token, or "" when signed out.
type TokenSource interface {
	Token() string
}

// SettingsSource supplies the current user settings.
type SettingsSource interface {
	Get() settings.Settings
}

// HistoryRecorder records completed scans. Implementations must not fail the
// scan flow; errors are handled internally.
type HistoryRecorder interface {
	Record(ctx context.Context, result core.Result)
}

// Dispatcher performs scans: cache first, then the backend, with the local
// classifier as the degraded-mode fallback. Concurrent scans of the same
// normalized URL are coalesced onto a single backend call.
type Dispatcher struct {
	client   APIClient
	cache    *cache.Cache
	stats    *stats.Tracker
	tokens   TokenSource
	fallback *Fallback
	history  HistoryRecorder
	notifier notify.Notifier
	settings SettingsSource
	group    singleflight.Group
	now      func() time.Time
}

// DispatcherOptions configures a Dispatcher. Client, Cache, and Stats are
// required; the rest are optional.
type DispatcherOptions struct {
	Client   APIClient
	Cache    *cache.Cache
	Stats    *stats.Tracker
	Tokens   TokenSource
	Fallback *Fallback
	History  HistoryRecorder
	Notifier notify.Notifier
	Settings SettingsSource
	Now      func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	if opts.Fallback == nil {
		opts.Fallback = NewFallback()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		client:   opts.Client,
		cache:    opts.Cache,
		stats:    opts.Stats,
		tokens:   opts.Tokens,
		fallback: opts.Fallback,
		history:  opts.History,
		notifier: opts.Notifier,
		settings: opts.Settings,
		now:      opts.Now,
	}
}

// Scan produces a verdict for a URL. Apart from malformed input, every call
// resolves to some verdict: cached, fresh from the backend, or from the
// local fallback classifier.
func (d *Dispatcher) Scan(ctx context.Context, rawURL string) (core.Result, error) {
	if err := core.ValidateURL(rawURL); err != nil {
		invalidURLTotal.Inc()
		return core.Result{}, err
	}

	if res, ok := d.cache.Get(rawURL); ok {
		res.Cached = true
		d.complete(ctx, res)
		return res, nil
	}

	key := core.NormalizeURL(rawURL)
	// The flight outlives the first caller: waiters coalesced onto it must
	// still get a result if that caller goes away.
	flightCtx := context.WithoutCancel(ctx)
	v, _, _ := d.group.Do(key, func() (interface{}, error) {
		return d.fetch(flightCtx, rawURL), nil
	})
	res := v.(core.Result)

	d.complete(ctx, res)
	return res, nil
}

// fetch performs the backend call and caches the outcome. Never fails: a
// backend error degrades to the fallback classifier.
func (d *Dispatcher) fetch(ctx context.Context, rawURL string) core.Result {
	var token string
	if d.tokens != nil {
		token = d.tokens.Token()
	}

	res, err := d.client.Scan(ctx, rawURL, token)
	degraded := err != nil
	if degraded {
		slog.Warn("scan backend unavailable, using fallback classifier",
			"url", rawURL,
			"error", err,
		)
		fallbackTotal.Inc()
		res = d.fallback.Classify(rawURL)
	}

	if res.URL == "" {
		res.URL = rawURL
	}
	if res.ScanDate.IsZero() {
		res.ScanDate = d.now()
	}
	res.Cached = false

	// Fallback verdicts are never cached, so the backend is consulted again
	// for the same URL as soon as it recovers.
	if !degraded {
		d.cache.Put(ctx, rawURL, res)
	}
	return res
}

// complete applies the per-scan side effects: stats, history, metrics, and
// the threat notification.
func (d *Dispatcher) complete(ctx context.Context, res core.Result) {
	d.stats.Record(res.Status)
	if d.history != nil {
		d.history.Record(ctx, res)
	}
	scansTotal.WithLabelValues(string(res.Status), strconv.FormatBool(res.Cached)).Inc()
	d.maybeNotify(ctx, res)
}

// maybeNotify raises a threat notification when the user has warnings and
// notifications enabled. Best-effort by contract.
func (d *Dispatcher) maybeNotify(ctx context.Context, res core.Result) {
	if d.notifier == nil || !core.IsThreat(res.Status) {
		return
	}
	if d.settings != nil {
		s := d.settings.Get()
		if !s.ShowWarnings || !s.Notifications {
			return
		}
	}

	n := notify.Notification{
		Message: res.URL,
		Actions: []notify.Action{notify.ActionViewDetails, notify.ActionContinue},
	}
	if res.Status == core.StatusMalicious {
		n.Title = "Malicious Site Detected"
		n.Actions = []notify.Action{notify.ActionBlockPage, notify.ActionViewDetails}
	} else {
		n.Title = "Suspicious Site Detected"
	}
	d.notifier.Notify(ctx, n)
}
