package listview

import (
	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/logging"
	"github.com/meetai/meetai/internal/query"
)

// Invalidate drops every cache entry made stale by ev and returns the keys
// it removed.
//
// A mutation always stales the list of its own kind and, for updates, the
// entity itself. Creating either kind changes free usage. Agent rows show a
// meeting count and meeting rows show the agent name, so each kind's
// mutations also stale the other kind's views. A subscription change stales
// the usage and subscription views.
func Invalidate(cache *query.Client, ev domain.ChangeEvent) []query.Key {
	var dropped []query.Key
	scope := func(kind domain.EntityKind, s query.Scope) {
		dropped = append(dropped, cache.InvalidateScope(kind, s)...)
	}

	if ev.Entity == domain.EntityPremium {
		scope(domain.EntityPremium, query.ScopeUsage)
		scope(domain.EntityPremium, query.ScopeSubscription)
		return dropped
	}

	scope(ev.Entity, query.ScopeList)
	if ev.Op == domain.OpUpdated && ev.ID != "" {
		key := query.OneKey(ev.Entity, ev.ID)
		if _, ok := cache.Store().Get(key); ok {
			dropped = append(dropped, key)
		}
		cache.Invalidate(key)
	}
	if ev.Op == domain.OpCreated {
		scope(domain.EntityPremium, query.ScopeUsage)
	}

	switch ev.Entity {
	case domain.EntityAgents:
		if ev.Op == domain.OpUpdated {
			scope(domain.EntityMeetings, query.ScopeList)
			scope(domain.EntityMeetings, query.ScopeOne)
		}
	case domain.EntityMeetings:
		scope(domain.EntityAgents, query.ScopeList)
		scope(domain.EntityAgents, query.ScopeOne)
	}
	return dropped
}

// LiveInvalidator applies change events pushed by the server to the cache,
// so mutations made by other sessions of the same user reach open views.
type LiveInvalidator struct {
	cache *query.Client
	log   *logging.Logger
}

// NewLiveInvalidator creates an invalidator for cache.
func NewLiveInvalidator(cache *query.Client, log *logging.Logger) *LiveInvalidator {
	return &LiveInvalidator{cache: cache, log: log.Sub("live")}
}

// Apply invalidates the entries stale after ev.
func (l *LiveInvalidator) Apply(ev domain.ChangeEvent) {
	keys := Invalidate(l.cache, ev)
	l.log.Debug().
		Str("entity", string(ev.Entity)).
		Str("op", string(ev.Op)).
		Str("id", ev.ID).
		Int("dropped", len(keys)).
		Msg("change event applied")
}
