// Package notify carries events from the background context to UI surfaces.
//
// Delivery is best-effort by contract: publishing never blocks and never
// returns an error. A surface that is gone or slow simply misses the event,
// matching how the extension relays results to tabs that may have navigated
// away.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Action names a button on a user-facing notification. Named actions replace
// positional button indices so handlers never depend on button order.
type Action string

const (
	ActionViewDetails Action = "view_details"
	ActionContinue    Action = "continue"
	ActionBlockPage   Action = "block_page"
)

// Notification is a user-facing alert with optional named actions.
type Notification struct {
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Actions []Action `json:"actions,omitempty"`
}

// Notifier raises user-facing notifications. Implementations must not block
// and must not fail: notification delivery is always best-effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Event is an action-tagged message pushed to subscribed surfaces
// (popup, options page, content scripts).
type Event struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload,omitempty"`
}

// Broadcaster fans events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber with the given buffer size.
// The returned cancel func removes the subscription and closes the channel.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber that has buffer room.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber is not keeping up; drop the event for it.
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// BroadcastNotifier raises notifications by publishing them as events on a
// Broadcaster, where connected surfaces render them.
type BroadcastNotifier struct {
	broadcaster *Broadcaster
}

// NewBroadcastNotifier creates a Notifier backed by the given Broadcaster.
func NewBroadcastNotifier(b *Broadcaster) *BroadcastNotifier {
	return &BroadcastNotifier{broadcaster: b}
}

// Notify publishes the notification as a "notification" event.
func (n *BroadcastNotifier) Notify(_ context.Context, notification Notification) {
	n.broadcaster.Publish(Event{Action: "notification", Payload: notification})
}

// LogNotifier writes notifications to the structured log. Used when no UI
// surface is attached.
type LogNotifier struct{}

// Notify logs the notification.
func (LogNotifier) Notify(_ context.Context, n Notification) {
	slog.Info("notification", "title", n.Title, "message", n.Message, "actions", n.Actions)
}
