// Package query is the client-side cache of procedure results.
//
// Entries hold the last successful result for a Key. Concurrent fetches of
// the same key share one request. Invalidation removes entries and makes any
// request already in flight for them unable to repopulate the cache, so a
// read that follows an invalidation always reaches the server. Listeners
// hear about every key a caller is waiting on or has been denied, not only
// the keys currently cached.
package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/logging"
	"golang.org/x/sync/singleflight"
)

type scopeID struct {
	entity domain.EntityKind
	scope  Scope
}

// flight is one shared request. Its context is cancelled once every caller
// waiting on it has given up.
type flight struct {
	id      uint64
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Client fetches through a Store.
type Client struct {
	store Store
	log   *logging.Logger
	now   func() time.Time
	group singleflight.Group

	mu         sync.Mutex
	keyEpoch   map[Key]uint64
	scopeEpoch map[scopeID]uint64
	flights    map[Key]*flight
	nextFlight uint64
	// stale holds keys whose last result was discarded by an invalidation
	// and that have not been cached since.
	stale      map[Key]struct{}
	listeners  map[int]func(Key)
	nextListen int
}

// New creates a client over store.
func New(store Store, log *logging.Logger) *Client {
	return &Client{
		store:      store,
		log:        log.Sub("query"),
		now:        time.Now,
		keyEpoch:   make(map[Key]uint64),
		scopeEpoch: make(map[scopeID]uint64),
		flights:    make(map[Key]*flight),
		stale:      make(map[Key]struct{}),
		listeners:  make(map[int]func(Key)),
	}
}

// Store returns the underlying store.
func (c *Client) Store() Store { return c.store }

// Fetch returns the cached value for key, or calls fn and caches its result.
// Callers fetching the same key concurrently share one call of fn. fn runs
// with a context that is cancelled only when every waiting caller's ctx is
// done. Errors are never cached.
func (c *Client) Fetch(ctx context.Context, key Key, fn func(context.Context) (any, error)) (any, error) {
	if e, ok := c.store.Get(key); ok {
		return e.Value, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	epoch := c.epochLocked(key)
	fl, ok := c.flights[key]
	if !ok {
		c.nextFlight++
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		fl = &flight{id: c.nextFlight, ctx: fctx, cancel: cancel}
		c.flights[key] = fl
	}
	fl.waiters++
	c.mu.Unlock()

	flightKey := fmt.Sprintf("%s#%d#%d", key, epoch, fl.id)
	ch := c.group.DoChan(flightKey, func() (any, error) {
		v, err := fn(fl.ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		fresh := c.epochLocked(key) == epoch
		if fresh {
			c.store.Set(key, Entry{Value: v, FetchedAt: c.now()})
			delete(c.stale, key)
		} else {
			c.stale[key] = struct{}{}
		}
		c.mu.Unlock()
		if !fresh {
			c.log.Debug().Str("key", key.String()).Msg("discarding result invalidated in flight")
		}
		return v, nil
	})

	select {
	case res := <-ch:
		c.leave(key, fl)
		return res.Val, res.Err
	case <-ctx.Done():
		c.leave(key, fl)
		return nil, ctx.Err()
	}
}

// Fetch is the typed form of Client.Fetch.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache entry %s holds %T", key, v)
	}
	return t, nil
}

func (c *Client) leave(key Key, fl *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fl.waiters--
	if fl.waiters > 0 {
		return
	}
	fl.cancel()
	if c.flights[key] == fl {
		delete(c.flights, key)
	}
}

func (c *Client) epochLocked(key Key) uint64 {
	return c.keyEpoch[key] + c.scopeEpoch[scopeID{key.Entity, key.Scope}] + c.scopeEpoch[scopeID{key.Entity, ""}]
}

// Set stores a value directly, as after a mutation that returns fresh data.
func (c *Client) Set(key Key, v any) {
	c.mu.Lock()
	delete(c.stale, key)
	c.mu.Unlock()
	c.store.Set(key, Entry{Value: v, FetchedAt: c.now()})
}

// Invalidate drops one entry.
func (c *Client) Invalidate(key Key) {
	c.mu.Lock()
	c.keyEpoch[key]++
	delete(c.flights, key)
	c.mu.Unlock()
	c.store.Invalidate(key)
	c.notify([]Key{key})
}

// InvalidateScope drops every entry of entity in scope and returns the
// affected keys: cached entries, requests in flight, and keys whose last
// result was discarded. An empty scope drops all of the entity's entries.
func (c *Client) InvalidateScope(entity domain.EntityKind, scope Scope) []Key {
	var dropped []Key
	seen := make(map[Key]struct{})
	add := func(k Key) {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			dropped = append(dropped, k)
		}
	}

	c.mu.Lock()
	c.scopeEpoch[scopeID{entity, scope}]++
	for k := range c.flights {
		if k.In(entity, scope) {
			delete(c.flights, k)
			add(k)
		}
	}
	for k := range c.stale {
		if k.In(entity, scope) {
			add(k)
		}
	}
	c.mu.Unlock()

	for _, k := range c.store.Keys() {
		if k.In(entity, scope) {
			c.store.Invalidate(k)
			add(k)
		}
	}
	c.log.Debug().
		Str("entity", string(entity)).
		Str("scope", string(scope)).
		Int("entries", len(dropped)).
		Msg("invalidated")
	c.notify(dropped)
	return dropped
}

// OnInvalidate registers fn to be called with every dropped key. The
// returned function removes it.
func (c *Client) OnInvalidate(fn func(Key)) (remove func()) {
	c.mu.Lock()
	id := c.nextListen
	c.nextListen++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) notify(keys []Key) {
	if len(keys) == 0 {
		return
	}
	c.mu.Lock()
	fns := make([]func(Key), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		for _, k := range keys {
			fn(k)
		}
	}
}
