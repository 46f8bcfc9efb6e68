package query

import (
	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/filter"
)

// Scope groups the cache entries of one entity kind that are invalidated
// together.
type Scope string

const (
	ScopeList         Scope = "list"
	ScopeOne          Scope = "one"
	ScopeUsage        Scope = "usage"
	ScopeProducts     Scope = "products"
	ScopeSubscription Scope = "subscription"
)

var procedures = map[Scope]string{
	ScopeList:         "getMany",
	ScopeOne:          "getOne",
	ScopeUsage:        "getFreeUsage",
	ScopeProducts:     "getProducts",
	ScopeSubscription: "getCurrentSubscription",
}

// Key identifies a cache entry: the procedure that produced it and its
// serialized parameters.
type Key struct {
	Entity domain.EntityKind
	Scope  Scope
	Params string
}

// ListKey is the key of one page of a list. Fields the entity does not
// filter on are dropped so equivalent filters share an entry.
func ListKey(kind domain.EntityKind, f filter.Filter) Key {
	return Key{Entity: kind, Scope: ScopeList, Params: filter.Encode(f.Scoped(kind))}
}

// OneKey is the key of a single entity.
func OneKey(kind domain.EntityKind, id string) Key {
	return Key{Entity: kind, Scope: ScopeOne, Params: "id=" + id}
}

// PremiumKey is the key of a parameterless premium procedure.
func PremiumKey(scope Scope) Key {
	return Key{Entity: domain.EntityPremium, Scope: scope}
}

// Procedure is the name of the procedure the entry caches.
func (k Key) Procedure() string {
	name, ok := procedures[k.Scope]
	if !ok {
		name = string(k.Scope)
	}
	return string(k.Entity) + "." + name
}

// String renders the key as procedure?params.
func (k Key) String() string {
	if k.Params == "" {
		return k.Procedure()
	}
	return k.Procedure() + "?" + k.Params
}

// In reports whether k belongs to entity and scope. An empty scope matches
// every scope of the entity.
func (k Key) In(entity domain.EntityKind, scope Scope) bool {
	return k.Entity == entity && (scope == "" || k.Scope == scope)
}
