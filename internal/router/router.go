// Package router dispatches action-tagged messages from UI surfaces to the
// owning subsystem. Every message is a JSON object with an "action" field;
// the remaining fields are the action's payload.
package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"linkguard/internal/auth"
	"linkguard/internal/cache"
	"linkguard/internal/core"
	"linkguard/internal/history"
	"linkguard/internal/settings"
	"linkguard/internal/stats"
	"linkguard/internal/tabs"
)

// Message actions understood by the router.
const (
	ActionScanURL             = "scanUrl"
	ActionGetStats            = "getStats"
	ActionUpdateUser          = "updateUser"
	ActionAuthSync            = "authSync"
	ActionGetSettings         = "getSettings"
	ActionUpdateSettings      = "updateSettings"
	ActionGetAuthState        = "getAuthState"
	ActionSignOut             = "signOut"
	ActionNavigationCompleted = "navigationCompleted"
	ActionGetHistory          = "getHistory"
	ActionClearCache          = "clearCache"
	ActionOpenDashboard       = "openDashboard"
)

// defaultHistoryLimit bounds getHistory when the caller doesn't say.
const defaultHistoryLimit = 50

// ScanService produces a verdict for a URL.
type ScanService interface {
	Scan(ctx context.Context, rawURL string) (core.Result, error)
}

// HistoryReader answers recent-scan queries. Optional.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Record, error)
}

// Router routes messages to subsystems. Safe for concurrent use.
type Router struct {
	scans        ScanService
	stats        *stats.Tracker
	auth         *auth.Reconciler
	settings     *settings.Manager
	cache        *cache.Cache
	history      HistoryReader
	tabs         *tabs.Coordinator
	dashboardURL string
}

// Options wires a Router. Scans, Stats, Auth, Settings, and Cache are
// required; History and Tabs are optional.
type Options struct {
	Scans    ScanService
	Stats    *stats.Tracker
	Auth     *auth.Reconciler
	Settings *settings.Manager
	Cache    *cache.Cache
	History  HistoryReader
	Tabs     *tabs.Coordinator

	// DashboardURL is the companion website returned by openDashboard.
	DashboardURL string
}

// New creates a Router.
func New(opts Options) *Router {
	return &Router{
		scans:        opts.Scans,
		stats:        opts.Stats,
		auth:         opts.Auth,
		settings:     opts.Settings,
		cache:        opts.Cache,
		history:      opts.History,
		tabs:         opts.Tabs,
		dashboardURL: opts.DashboardURL,
	}
}

// Dispatch handles one message and returns the response payload. A nil
// payload with a nil error means the action has no response body. Unknown
// actions are ignored so older surfaces can send newer messages harmlessly.
func (r *Router) Dispatch(ctx context.Context, raw []byte) (any, error) {
	action := gjson.GetBytes(raw, "action").String()

	switch action {
	case ActionScanURL:
		return r.scanURL(ctx, raw)
	case ActionGetStats:
		return r.stats.Snapshot(), nil
	case ActionUpdateUser:
		return r.updateUser(raw)
	case ActionAuthSync:
		return r.authSync(raw)
	case ActionGetSettings:
		return r.settings.Get(), nil
	case ActionUpdateSettings:
		return r.updateSettings(raw)
	case ActionGetAuthState:
		return r.auth.State(), nil
	case ActionSignOut:
		return r.auth.SignOut(), nil
	case ActionNavigationCompleted:
		return nil, r.navigationCompleted(raw)
	case ActionGetHistory:
		return r.getHistory(ctx, raw)
	case ActionClearCache:
		r.cache.Clear(ctx)
		return nil, nil
	case ActionOpenDashboard:
		return map[string]string{"url": r.dashboardURL}, nil
	default:
		return nil, nil
	}
}

func (r *Router) scanURL(ctx context.Context, raw []byte) (any, error) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, core.NewMessagingError("malformed scanUrl message", err)
	}
	return r.scans.Scan(ctx, req.URL)
}

func (r *Router) updateUser(raw []byte) (any, error) {
	var req struct {
		User  *core.User `json:"user"`
		Token string     `json:"token"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, core.NewMessagingError("malformed updateUser message", err)
	}
	return r.auth.SetUser(req.User, req.Token), nil
}

func (r *Router) authSync(raw []byte) (any, error) {
	var payload auth.SyncPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, core.NewMessagingError("malformed authSync message", err)
	}
	return r.auth.Reconcile(payload), nil
}

func (r *Router) updateSettings(raw []byte) (any, error) {
	var req struct {
		Settings settings.Patch `json:"settings"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, core.NewMessagingError("malformed updateSettings message", err)
	}
	return r.settings.Apply(req.Settings), nil
}

// navigationCompleted runs the tab transition asynchronously: the sender only
// reports the event and never waits on the scan it triggers.
func (r *Router) navigationCompleted(raw []byte) error {
	if r.tabs == nil {
		return nil
	}
	var req struct {
		TabID int    `json:"tabId"`
		URL   string `json:"url"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return core.NewMessagingError("malformed navigationCompleted message", err)
	}
	go r.tabs.NavigationCompleted(context.Background(), req.TabID, req.URL)
	return nil
}

func (r *Router) getHistory(ctx context.Context, raw []byte) (any, error) {
	if r.history == nil {
		return []history.Record{}, nil
	}
	var req struct {
		Limit int `json:"limit"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, core.NewMessagingError("malformed getHistory message", err)
	}
	if req.Limit <= 0 {
		req.Limit = defaultHistoryLimit
	}
	records, err := r.history.Recent(ctx, req.Limit)
	if err != nil {
		return nil, core.NewStorageError(fmt.Sprintf("failed to load scan history: %v", err), err)
	}
	if records == nil {
		records = []history.Record{}
	}
	return records, nil
}
