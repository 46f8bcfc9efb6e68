package meetings

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/meetai/meetai/internal/config"
	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/filter"
	"github.com/meetai/meetai/internal/hooks"
	"github.com/meetai/meetai/internal/logging"
	"github.com/meetai/meetai/internal/premium"
	"github.com/meetai/meetai/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc     *Service
	hooks   *hooks.Manager
	agents  *store.AgentStore
	userID  string
	other   string
	agentID string
}

func newFixture(t *testing.T, maxMeetings int) *fixture {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	users := store.NewUserStore(db)
	u, err := users.Create(ctx, "Owner", "owner@example.com", "h")
	require.NoError(t, err)
	o, err := users.Create(ctx, "Other", "other@example.com", "h")
	require.NoError(t, err)

	agents := store.NewAgentStore(db)
	a, err := agents.Create(ctx, u.ID, domain.AgentInput{Name: "Coach", Instructions: "Coach"})
	require.NoError(t, err)

	meetings := store.NewMeetingStore(db)
	cfg := config.Defaults()
	cfg.Plans.MaxFreeMeetings = maxMeetings
	prem := premium.NewService(agents, meetings, store.NewSubscriptionStore(db), cfg, log)

	h := hooks.NewManager(log)
	return &fixture{
		svc:     NewService(meetings, agents, prem, h, log),
		hooks:   h,
		agents:  agents,
		userID:  u.ID,
		other:   o.ID,
		agentID: a.ID,
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, 5)

	_, err := f.svc.Create(context.Background(), f.userID, domain.MeetingInput{})
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindValidation, de.Kind)
	assert.Contains(t, de.Fields, "name")
	assert.Contains(t, de.Fields, "agentId")
}

func TestCreate_RejectsForeignAgent(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	theirs, err := f.agents.Create(ctx, f.other, domain.AgentInput{Name: "Theirs", Instructions: "x"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.userID, domain.MeetingInput{Name: "Sneaky", AgentID: theirs.ID})
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "Agent not found", de.Fields["agentId"])
}

func TestCreate_AtFreeLimit(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	var created int
	f.hooks.On(hooks.EventMeetingCreated, "count", func(context.Context, hooks.Payload) error {
		created++
		return nil
	})

	m, err := f.svc.Create(ctx, f.userID, domain.MeetingInput{Name: "First", AgentID: f.agentID, Status: domain.MeetingCompleted})
	require.NoError(t, err)
	assert.Equal(t, domain.MeetingUpcoming, m.Status)

	_, err = f.svc.Create(ctx, f.userID, domain.MeetingInput{Name: "Second", AgentID: f.agentID})
	assert.True(t, domain.IsKind(err, domain.KindPlanLimit))
	assert.Equal(t, 1, created)

	res, err := f.svc.GetMany(ctx, f.userID, filter.Default())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func TestGetMany_Filters(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	for _, name := range []string{"Math review", "History", "Math exam"} {
		_, err := f.svc.Create(ctx, f.userID, domain.MeetingInput{Name: name, AgentID: f.agentID})
		require.NoError(t, err)
	}

	res, err := f.svc.GetMany(ctx, f.userID, filter.Filter{Search: "math", Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.TotalPages)
	require.Len(t, res.Items, 1)
	assert.Contains(t, res.Items[0].Name, "Math")
	assert.Equal(t, "Coach", res.Items[0].AgentName)

	res, err = f.svc.GetMany(ctx, f.userID, filter.Filter{Status: domain.MeetingActive})
	require.NoError(t, err)
	assert.Zero(t, res.Total)

	res, err = f.svc.GetMany(ctx, f.other, filter.Default())
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	var got hooks.Payload
	f.hooks.On(hooks.EventMeetingUpdated, "capture", func(_ context.Context, p hooks.Payload) error {
		got = p
		return nil
	})

	m, err := f.svc.Create(ctx, f.userID, domain.MeetingInput{Name: "Standup", AgentID: f.agentID})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, f.userID, m.ID, domain.MeetingInput{Name: "Standup", AgentID: f.agentID, Status: domain.MeetingActive})
	require.NoError(t, err)
	assert.Equal(t, domain.MeetingActive, updated.Status)
	assert.Equal(t, m.ID, got.ID)

	_, err = f.svc.Update(ctx, f.userID, m.ID, domain.MeetingInput{Name: "Standup", AgentID: f.agentID, Status: "paused"})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = f.svc.Update(ctx, f.other, m.ID, domain.MeetingInput{Name: "x", AgentID: f.agentID})
	assert.Error(t, err)

	_, err = f.svc.GetOne(ctx, f.other, m.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestCreate_ConcurrentCreatesStopAtLimit(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Create(ctx, f.userID, domain.MeetingInput{Name: fmt.Sprintf("Meeting %d", i), AgentID: f.agentID})
			if err != nil {
				assert.EqualError(t, err, domain.FreeMeetingsUsedUp)
				return
			}
			mu.Lock()
			created++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, created)
	res, err := f.svc.GetMany(ctx, f.userID, filter.Default())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}
