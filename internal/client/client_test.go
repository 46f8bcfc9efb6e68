package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meetai/meetai/internal/agents"
	"github.com/meetai/meetai/internal/auth"
	"github.com/meetai/meetai/internal/config"
	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/filter"
	"github.com/meetai/meetai/internal/hooks"
	"github.com/meetai/meetai/internal/logging"
	"github.com/meetai/meetai/internal/meetings"
	"github.com/meetai/meetai/internal/premium"
	"github.com/meetai/meetai/internal/server"
	"github.com/meetai/meetai/internal/store"
	"github.com/meetai/meetai/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := testLog()
	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Defaults()
	agentStore := store.NewAgentStore(db)
	meetingStore := store.NewMeetingStore(db)
	h := hooks.NewManager(log)
	prem := premium.NewService(agentStore, meetingStore, store.NewSubscriptionStore(db), cfg, log)
	srv := server.New(cfg, server.Services{
		Auth:     auth.NewService(store.NewUserStore(db), store.NewSessionStore(db), cfg.Auth, log),
		Agents:   agents.NewService(agentStore, prem, h, log),
		Meetings: meetings.NewService(meetingStore, agentStore, prem, h, log),
		Premium:  prem,
	}, log, server.WithHooks(h))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func signedIn(t *testing.T, ts *httptest.Server, email string) *Client {
	t.Helper()
	c := New(ts.URL, testLog())
	_, err := c.SignUp(context.Background(), auth.SignUpInput{
		Name: "Tester", Email: email, Password: "Passw0rd!", ConfirmPassword: "Passw0rd!",
	})
	require.NoError(t, err)
	require.NotEmpty(t, c.Token())
	return c
}

func TestClient_AgentProcedures(t *testing.T) {
	ts := newServer(t)
	c := signedIn(t, ts, "agents@example.com")
	ctx := context.Background()

	a, err := c.CreateAgent(ctx, domain.AgentInput{Name: "Math Tutor", Instructions: "Teach algebra"})
	require.NoError(t, err)

	list, err := c.ListAgents(ctx, filter.Default().WithSearch("math"))
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, a.ID, list.Items[0].ID)
	assert.Equal(t, 1, list.TotalPages)

	_, err = c.UpdateAgent(ctx, a.ID, domain.AgentInput{Name: "Algebra Tutor", Instructions: "Teach algebra"})
	require.NoError(t, err)

	one, err := c.GetAgent(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Algebra Tutor", one.Name)
}

func TestClient_MeetingProcedures(t *testing.T) {
	ts := newServer(t)
	c := signedIn(t, ts, "meetings@example.com")
	ctx := context.Background()

	a, err := c.CreateAgent(ctx, domain.AgentInput{Name: "Coach", Instructions: "Coach"})
	require.NoError(t, err)
	m, err := c.CreateMeeting(ctx, domain.MeetingInput{Name: "Kickoff", AgentID: a.ID})
	require.NoError(t, err)

	_, err = c.UpdateMeeting(ctx, m.ID, domain.MeetingInput{Name: "Kickoff", AgentID: a.ID, Status: domain.MeetingCompleted})
	require.NoError(t, err)

	list, err := c.ListMeetings(ctx, filter.Default().WithStatus(domain.MeetingCompleted))
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Coach", list.Items[0].AgentName)

	got, err := c.GetMeeting(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MeetingCompleted, got.Status)
}

func TestClient_DecodesTaggedErrors(t *testing.T) {
	ts := newServer(t)
	c := signedIn(t, ts, "errors@example.com")
	ctx := context.Background()

	_, err := c.CreateAgent(ctx, domain.AgentInput{})
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindValidation, de.Kind)
	assert.Equal(t, "Name is required", de.Fields["name"])

	_, err = c.CreateAgent(ctx, domain.AgentInput{Name: "One", Instructions: "x"})
	require.NoError(t, err)
	_, err = c.CreateAgent(ctx, domain.AgentInput{Name: "Two", Instructions: "x"})
	assert.True(t, domain.IsKind(err, domain.KindPlanLimit))
	assert.Equal(t, "You have reached the maximum number of free agents", err.Error())

	_, err = c.GetAgent(ctx, "missing")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	c.SetToken("")
	_, err = c.Session(ctx)
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))
}

func TestClient_SignInAndOut(t *testing.T) {
	ts := newServer(t)
	signedIn(t, ts, "inout@example.com")
	ctx := context.Background()

	c := New(ts.URL+"/", testLog())
	assert.Equal(t, ts.URL, c.BaseURL())

	_, err := c.SignIn(ctx, "inout@example.com", "wrong")
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))

	res, err := c.SignIn(ctx, "inout@example.com", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, res.Token, c.Token())

	user, err := c.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "inout@example.com", user.Email)

	require.NoError(t, c.SignOut(ctx))
	assert.Empty(t, c.Token())
}

func TestClient_PremiumProcedures(t *testing.T) {
	ts := newServer(t)
	c := signedIn(t, ts, "premium@example.com")
	ctx := context.Background()

	usage, err := c.FreeUsage(ctx)
	require.NoError(t, err)
	require.NotNil(t, usage)
	assert.Equal(t, 1, usage.MaxAgents)

	products, err := c.Products(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, products)

	current, err := c.CurrentSubscription(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = c.CheckoutURL(ctx, products[0].ID)
	assert.True(t, domain.IsKind(err, domain.KindValidation), "billing is not configured by default")
}

func TestClient_NonEnvelopeErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := New(ts.URL, testLog()).Products(context.Background())
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindServer, de.Kind)
	assert.Equal(t, "bad gateway", de.Message)
}

func TestClient_StatusFallbackKinds(t *testing.T) {
	tests := []struct {
		status int
		want   domain.ErrorKind
	}{
		{http.StatusBadRequest, domain.KindValidation},
		{http.StatusUnauthorized, domain.KindUnauthorized},
		{http.StatusForbidden, domain.KindPlanLimit},
		{http.StatusNotFound, domain.KindNotFound},
		{http.StatusInternalServerError, domain.KindServer},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domain.KindOf(decodeError(tt.status, nil)), tt.status)
	}
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	err := New(url, testLog()).Health(context.Background())
	assert.True(t, domain.IsKind(err, domain.KindServer))
	assert.Equal(t, "Could not reach the server", err.Error())
}

func TestClient_CancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(ts.URL, testLog()).Products(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Headers(t *testing.T) {
	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	_, err := New(ts.URL, testLog(), WithToken("tok")).Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, version.UserAgent(), got.Get("User-Agent"))
	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
}

func TestClient_Health(t *testing.T) {
	ts := newServer(t)
	assert.NoError(t, New(ts.URL, testLog()).Health(context.Background()))
}
