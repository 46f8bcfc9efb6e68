package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/filter"
	"github.com/meetai/meetai/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient() *Client {
	return New(NewMemoryStore(), logging.New(nil, "silent"))
}

func constant(v any, calls *atomic.Int32) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return v, nil
	}
}

func TestKeys(t *testing.T) {
	f := filter.Default().WithSearch("math").WithStatus(domain.MeetingActive)

	assert.Equal(t, "meetings.getMany?search=math&status=active", ListKey(domain.EntityMeetings, f).String())
	assert.Equal(t, "agents.getMany?search=math", ListKey(domain.EntityAgents, f).String(),
		"agents ignore meeting-only fields")
	assert.Equal(t, "agents.getMany", ListKey(domain.EntityAgents, filter.Default()).String())
	assert.Equal(t, "agents.getOne?id=a1", OneKey(domain.EntityAgents, "a1").String())
	assert.Equal(t, "premium.getFreeUsage", PremiumKey(ScopeUsage).String())

	assert.Equal(t, ListKey(domain.EntityAgents, f), ListKey(domain.EntityAgents, filter.Filter{Search: "math"}))
}

func TestKey_In(t *testing.T) {
	k := ListKey(domain.EntityAgents, filter.Default())
	assert.True(t, k.In(domain.EntityAgents, ScopeList))
	assert.True(t, k.In(domain.EntityAgents, ""))
	assert.False(t, k.In(domain.EntityAgents, ScopeOne))
	assert.False(t, k.In(domain.EntityMeetings, ScopeList))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	k := OneKey(domain.EntityAgents, "a1")

	_, ok := s.Get(k)
	assert.False(t, ok)

	s.Set(k, Entry{Value: "v"})
	e, ok := s.Get(k)
	require.True(t, ok)
	assert.Equal(t, "v", e.Value)
	assert.Equal(t, []Key{k}, s.Keys())
	assert.Equal(t, 1, s.Len())

	s.Invalidate(k)
	assert.Equal(t, 0, s.Len())
}

func TestFetch_CachesSuccess(t *testing.T) {
	c := newClient()
	k := OneKey(domain.EntityAgents, "a1")
	var calls atomic.Int32

	for range 3 {
		v, err := c.Fetch(context.Background(), k, constant("agent", &calls))
		require.NoError(t, err)
		assert.Equal(t, "agent", v)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_DoesNotCacheErrors(t *testing.T) {
	c := newClient()
	k := OneKey(domain.EntityAgents, "a1")
	var calls atomic.Int32
	boom := domain.Unauthorized("Authentication required")

	fail := func(context.Context) (any, error) {
		calls.Add(1)
		return nil, boom
	}
	_, err := c.Fetch(context.Background(), k, fail)
	assert.ErrorIs(t, err, boom)
	_, err = c.Fetch(context.Background(), k, fail)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), calls.Load())

	_, ok := c.Store().Get(k)
	assert.False(t, ok)
}

func TestFetch_SharesInFlightRequests(t *testing.T) {
	c := newClient()
	k := ListKey(domain.EntityAgents, filter.Default())
	var calls atomic.Int32
	release := make(chan struct{})

	slow := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "page", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Fetch(context.Background(), k, slow)
			assert.NoError(t, err)
			results[i] = v
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "page", v)
	}
}

func TestFetch_InvalidationDuringFlightIsNotCached(t *testing.T) {
	c := newClient()
	k := ListKey(domain.EntityAgents, filter.Default())
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan any)
	go func() {
		v, _ := c.Fetch(context.Background(), k, func(context.Context) (any, error) {
			close(started)
			<-release
			return "stale", nil
		})
		done <- v
	}()

	<-started
	c.InvalidateScope(domain.EntityAgents, ScopeList)
	close(release)
	assert.Equal(t, "stale", <-done, "the caller still gets its answer")

	_, ok := c.Store().Get(k)
	assert.False(t, ok, "but the cache must not keep it")

	var calls atomic.Int32
	v, err := c.Fetch(context.Background(), k, constant("fresh", &calls))
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_FetchAfterInvalidationDoesNotJoinOldFlight(t *testing.T) {
	c := newClient()
	k := OneKey(domain.EntityMeetings, "m1")
	started := make(chan struct{})
	release := make(chan struct{})

	go c.Fetch(context.Background(), k, func(context.Context) (any, error) {
		close(started)
		<-release
		return "old", nil
	})
	<-started
	c.Invalidate(k)

	var calls atomic.Int32
	v, err := c.Fetch(context.Background(), k, constant("new", &calls))
	require.NoError(t, err)
	assert.Equal(t, "new", v)
	assert.Equal(t, int32(1), calls.Load())
	close(release)
}

func TestFetch_CallerCancellation(t *testing.T) {
	c := newClient()
	k := OneKey(domain.EntityAgents, "a1")
	aborted := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error)
	go func() {
		_, err := c.Fetch(ctx, k, func(fctx context.Context) (any, error) {
			<-fctx.Done()
			close(aborted)
			return nil, fctx.Err()
		})
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	select {
	case <-aborted:
	case <-time.After(time.Second):
		t.Fatal("request was not cancelled after its only caller left")
	}
}

func TestFetch_SharedRequestSurvivesOneCallerLeaving(t *testing.T) {
	c := newClient()
	k := OneKey(domain.EntityAgents, "a1")
	release := make(chan struct{})
	var calls atomic.Int32

	fn := func(fctx context.Context) (any, error) {
		calls.Add(1)
		select {
		case <-release:
			return "ok", nil
		case <-fctx.Done():
			return nil, fctx.Err()
		}
	}

	ctx1, cancel1 := context.WithCancel(context.Background())
	err1 := make(chan error)
	go func() {
		_, err := c.Fetch(ctx1, k, fn)
		err1 <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	res2 := make(chan any)
	go func() {
		v, err := c.Fetch(context.Background(), k, fn)
		assert.NoError(t, err)
		res2 <- v
	}()
	time.Sleep(20 * time.Millisecond)

	cancel1()
	assert.ErrorIs(t, <-err1, context.Canceled)

	close(release)
	assert.Equal(t, "ok", <-res2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_AlreadyCancelled(t *testing.T) {
	c := newClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	_, err := c.Fetch(ctx, OneKey(domain.EntityAgents, "a1"), constant("x", &calls))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), calls.Load())
}

func TestTypedFetch(t *testing.T) {
	c := newClient()
	k := ListKey(domain.EntityAgents, filter.Default())

	res, err := Fetch(context.Background(), c, k, func(context.Context) (domain.ListResult[domain.AgentListItem], error) {
		return domain.NewListResult([]domain.AgentListItem{{Agent: domain.Agent{ID: "a1"}}}, 1, 10), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalPages)

	_, err = Fetch(context.Background(), c, k, func(context.Context) (string, error) {
		return "", errors.New("unreachable")
	})
	assert.ErrorContains(t, err, "holds")
}

func TestInvalidateScope(t *testing.T) {
	c := newClient()
	page1 := ListKey(domain.EntityAgents, filter.Default())
	page2 := ListKey(domain.EntityAgents, filter.Default().WithPage(2))
	one := OneKey(domain.EntityAgents, "a1")
	meetings := ListKey(domain.EntityMeetings, filter.Default())
	for _, k := range []Key{page1, page2, one, meetings} {
		c.Set(k, "v")
	}

	var seen []Key
	remove := c.OnInvalidate(func(k Key) { seen = append(seen, k) })

	dropped := c.InvalidateScope(domain.EntityAgents, ScopeList)
	assert.ElementsMatch(t, []Key{page1, page2}, dropped)
	assert.ElementsMatch(t, dropped, seen)

	_, ok := c.Store().Get(one)
	assert.True(t, ok, "single-entity entries survive a list invalidation")
	_, ok = c.Store().Get(meetings)
	assert.True(t, ok, "other entities are untouched")

	remove()
	c.InvalidateScope(domain.EntityAgents, "")
	assert.Len(t, seen, 2, "removed listeners are not called")
	_, ok = c.Store().Get(one)
	assert.False(t, ok)
}

func TestInvalidateScope_NotifiesInFlightAndDiscardedKeys(t *testing.T) {
	c := newClient()
	k := ListKey(domain.EntityAgents, filter.Default())
	var notified []Key
	defer c.OnInvalidate(func(k Key) { notified = append(notified, k) })()

	var calls atomic.Int32
	_, err := c.Fetch(context.Background(), k, constant("v1", &calls))
	require.NoError(t, err)
	assert.Equal(t, []Key{k}, c.InvalidateScope(domain.EntityAgents, ScopeList))

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan any)
	go func() {
		v, err := c.Fetch(context.Background(), k, func(context.Context) (any, error) {
			close(started)
			<-release
			return "v2", nil
		})
		assert.NoError(t, err)
		done <- v
	}()
	<-started

	assert.Equal(t, []Key{k}, c.InvalidateScope(domain.EntityAgents, ScopeList),
		"a request in flight is reported")
	close(release)
	assert.Equal(t, "v2", <-done)
	_, ok := c.Store().Get(k)
	require.False(t, ok)

	assert.Equal(t, []Key{k}, c.InvalidateScope(domain.EntityAgents, ScopeList),
		"a key whose result was discarded is still reported")
	assert.Len(t, notified, 3)

	_, err = c.Fetch(context.Background(), k, constant("v3", &calls))
	require.NoError(t, err)
	c.InvalidateScope(domain.EntityAgents, ScopeList)
	assert.Empty(t, c.InvalidateScope(domain.EntityAgents, ScopeList),
		"nothing is reported once the key was cached and dropped")
	assert.Len(t, notified, 4)
}
