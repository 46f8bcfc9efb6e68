// Package hooks dispatches domain and lifecycle events to registered handlers.
package hooks

import (
	"context"
	"sync"

	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/logging"
)

// Event names for the hook system.
const (
	EventUserSignedUp        = "user.signed_up"
	EventAgentCreated        = "agent.created"
	EventAgentUpdated        = "agent.updated"
	EventMeetingCreated      = "meeting.created"
	EventMeetingUpdated      = "meeting.updated"
	EventSubscriptionChanged = "subscription.changed"
	EventServerStart         = "server.start"
	EventServerStop          = "server.stop"
)

// AllEvents lists all known hook event names.
var AllEvents = []string{
	EventUserSignedUp,
	EventAgentCreated,
	EventAgentUpdated,
	EventMeetingCreated,
	EventMeetingUpdated,
	EventSubscriptionChanged,
	EventServerStart,
	EventServerStop,
}

// changes maps entity mutation events to the cache scope they affect.
var changes = map[string]struct {
	entity domain.EntityKind
	op     domain.ChangeOp
}{
	EventAgentCreated:        {domain.EntityAgents, domain.OpCreated},
	EventAgentUpdated:        {domain.EntityAgents, domain.OpUpdated},
	EventMeetingCreated:      {domain.EntityMeetings, domain.OpCreated},
	EventMeetingUpdated:      {domain.EntityMeetings, domain.OpUpdated},
	EventSubscriptionChanged: {domain.EntityPremium, domain.OpUpdated},
}

// ChangeEvents lists the events that describe a change to a user's data.
var ChangeEvents = []string{
	EventAgentCreated,
	EventAgentUpdated,
	EventMeetingCreated,
	EventMeetingUpdated,
	EventSubscriptionChanged,
}

// Payload carries event data to hook handlers.
type Payload struct {
	Event  string         `json:"event"`
	UserID string         `json:"userId,omitempty"`
	ID     string         `json:"id,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Change converts a mutation payload into the event pushed to clients.
func (p Payload) Change() (domain.ChangeEvent, bool) {
	c, ok := changes[p.Event]
	if !ok {
		return domain.ChangeEvent{}, false
	}
	return domain.ChangeEvent{Entity: c.entity, Op: c.op, ID: p.ID, UserID: p.UserID}, true
}

// Handler is a function that handles a hook event.
// Returning an error logs the failure but does not stop processing.
type Handler func(ctx context.Context, p Payload) error

// Manager manages hook registrations and dispatches events.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]namedHandler),
		log:      log.Sub("hooks"),
	}
}

// On registers a handler for the given event.
// The name identifies the handler for logging and Off.
func (m *Manager) On(event, name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], namedHandler{name: name, handler: handler})
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

// OnChange registers handler for every change event.
func (m *Manager) OnChange(name string, handler Handler) {
	for _, ev := range ChangeEvents {
		m.On(ev, name, handler)
	}
}

// Off removes all handlers with the given name from the event.
func (m *Manager) Off(event, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	handlers := m.handlers[event]
	filtered := make([]namedHandler, 0, len(handlers))
	for _, h := range handlers {
		if h.name != name {
			filtered = append(filtered, h)
		}
	}
	m.handlers[event] = filtered
}

func (m *Manager) snapshot(event string) []namedHandler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	handlers := make([]namedHandler, len(m.handlers[event]))
	copy(handlers, m.handlers[event])
	return handlers
}

// Emit dispatches p to all handlers of p.Event synchronously, in
// registration order. Errors are logged and do not stop later handlers.
func (m *Manager) Emit(ctx context.Context, p Payload) {
	for _, h := range m.snapshot(p.Event) {
		if err := h.handler(ctx, p); err != nil {
			m.log.Warn().
				Err(err).
				Str("event", p.Event).
				Str("handler", h.name).
				Msg("hook handler error")
		}
	}
}

// EmitAsync dispatches p to all handlers concurrently and returns
// immediately. The handlers get a context that is not canceled with ctx.
func (m *Manager) EmitAsync(ctx context.Context, p Payload) {
	ctx = context.WithoutCancel(ctx)
	for _, h := range m.snapshot(p.Event) {
		go func(h namedHandler) {
			if err := h.handler(ctx, p); err != nil {
				m.log.Warn().
					Err(err).
					Str("event", p.Event).
					Str("handler", h.name).
					Msg("async hook handler error")
			}
		}(h)
	}
}

// Count returns the number of handlers registered for an event.
func (m *Manager) Count(event string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[event])
}

// Events returns the list of events that have at least one handler registered.
func (m *Manager) Events() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]string, 0, len(m.handlers))
	for event, handlers := range m.handlers {
		if len(handlers) > 0 {
			events = append(events, event)
		}
	}
	return events
}
