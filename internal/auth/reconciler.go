// Package auth reconciles login state pushed from the companion website into
// the service's durable auth state, and notifies open UI surfaces of changes.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"linkguard/internal/core"
	"linkguard/internal/notify"
	"linkguard/internal/storage"
)

// welcomeDebounce suppresses repeated "welcome back" notifications from the
// relay script, which re-sends the sync payload on every storage mutation
// and on a 30-second timer.
const welcomeDebounce = 30 * time.Second

// State is the persisted auth state.
// Invariant: User and AuthToken are both present or both absent.
type State struct {
	User         *core.User `json:"user"`
	AuthToken    string     `json:"authToken"`
	LastAuthSync time.Time  `json:"lastAuthSync"`
}

// SyncPayload is the cross-context sync message sent by the website relay.
type SyncPayload struct {
	IsAuthenticated bool       `json:"isAuthenticated"`
	User            *core.User `json:"user,omitempty"`
	Token           string     `json:"token,omitempty"`
}

// Reconciler owns the auth state. Safe for concurrent use.
type Reconciler struct {
	mu       sync.Mutex
	state    State
	file     *storage.JSONFile
	events   *notify.Broadcaster
	notifier notify.Notifier
	now      func() time.Time
}

// Options configures a Reconciler.
type Options struct {
	File     *storage.JSONFile   // optional; nil disables persistence
	Events   *notify.Broadcaster // optional; nil disables broadcasts
	Notifier notify.Notifier     // optional; nil disables notifications
	Now      func() time.Time    // optional clock override for tests
}

// New creates a Reconciler, restoring any persisted auth state.
func New(opts Options) *Reconciler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	r := &Reconciler{
		file:     opts.File,
		events:   opts.Events,
		notifier: opts.Notifier,
		now:      opts.Now,
	}
	r.restore()
	return r
}

// Reconcile merges a sync payload from the website into local state.
// Login requires both a user and a token so no partial auth state persists;
// a payload claiming authentication without both is ignored.
func (r *Reconciler) Reconcile(p SyncPayload) State {
	if !p.IsAuthenticated {
		return r.clear("userLoggedOut")
	}
	if p.User == nil || p.Token == "" {
		slog.Warn("ignoring incomplete auth sync payload",
			"has_user", p.User != nil,
			"has_token", p.Token != "",
		)
		return r.State()
	}
	return r.setUser(p.User, p.Token, true)
}

// SetUser writes auth state directly. Trusted path used by the popup after
// an interactive login.
func (r *Reconciler) SetUser(user *core.User, token string) State {
	if user == nil || token == "" {
		slog.Warn("rejecting partial auth update",
			"has_user", user != nil,
			"has_token", token != "",
		)
		return r.State()
	}
	return r.setUser(user, token, false)
}

// SignOut clears the auth state on explicit user action.
func (r *Reconciler) SignOut() State {
	return r.clear("userLoggedOut")
}

// State returns the current auth state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Token returns the current bearer token, or "" when signed out.
// Implements the dispatcher's token source.
func (r *Reconciler) Token() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.AuthToken
}

func (r *Reconciler) setUser(user *core.User, token string, welcome bool) State {
	now := r.now()

	r.mu.Lock()
	previousSync := r.state.LastAuthSync
	userCopy := *user
	r.state = State{
		User:         &userCopy,
		AuthToken:    token,
		LastAuthSync: now,
	}
	state := r.state
	r.mu.Unlock()

	r.persist(state)
	r.broadcast(notify.Event{Action: "updateUser", Payload: state.User})

	if welcome && r.notifier != nil && now.Sub(previousSync) > welcomeDebounce {
		name := user.DisplayName
		if name == "" {
			name = user.Email
		}
		r.notifier.Notify(context.Background(), notify.Notification{
			Title:   "Welcome back",
			Message: fmt.Sprintf("Signed in as %s", name),
		})
	}
	return state
}

func (r *Reconciler) clear(event string) State {
	r.mu.Lock()
	// LastAuthSync keeps advancing on logout so a login right after does not
	// re-trigger the welcome notification.
	r.state = State{LastAuthSync: r.now()}
	state := r.state
	r.mu.Unlock()

	r.persist(state)
	r.broadcast(notify.Event{Action: event})
	return state
}

func (r *Reconciler) restore() {
	if r.file == nil {
		return
	}
	var state State
	ok, err := r.file.Load(&state)
	if err != nil {
		slog.Warn("failed to restore auth state, starting signed out", "error", err)
		return
	}
	if !ok {
		return
	}
	// Drop partial state left by an older version rather than carry it.
	if state.User == nil || state.AuthToken == "" {
		state.User = nil
		state.AuthToken = ""
	}
	r.state = state
}

func (r *Reconciler) persist(state State) {
	if r.file == nil {
		return
	}
	if err := r.file.Save(state); err != nil {
		slog.Warn("failed to persist auth state", "error", err)
	}
}

// broadcast delivers a state-change event to open surfaces, best-effort.
func (r *Reconciler) broadcast(ev notify.Event) {
	if r.events == nil {
		return
	}
	r.events.Publish(ev)
}
