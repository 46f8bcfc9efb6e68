package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/meetai/meetai/internal/agents"
	"github.com/meetai/meetai/internal/auth"
	"github.com/meetai/meetai/internal/config"
	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/hooks"
	"github.com/meetai/meetai/internal/logging"
	"github.com/meetai/meetai/internal/meetings"
	"github.com/meetai/meetai/internal/premium"
	"github.com/meetai/meetai/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv   *Server
	ts    *httptest.Server
	hooks *hooks.Manager
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Defaults()
	cfg.Server.AppURL = "https://app.meet.ai"
	cfg.Billing.CheckoutURL = "https://pay.example.com/checkout?product={productId}&customer={userId}"
	cfg.Billing.PortalURL = "https://pay.example.com/portal/{userId}"
	cfg.Billing.WebhookSecret = "whsec_test"
	cfg.Auth.MinPasswordLength = 8
	if mutate != nil {
		mutate(&cfg)
	}

	agentStore := store.NewAgentStore(db)
	meetingStore := store.NewMeetingStore(db)
	h := hooks.NewManager(log)
	prem := premium.NewService(agentStore, meetingStore, store.NewSubscriptionStore(db), cfg, log)

	srv := New(cfg, Services{
		Auth:     auth.NewService(store.NewUserStore(db), store.NewSessionStore(db), cfg.Auth, log),
		Agents:   agents.NewService(agentStore, prem, h, log),
		Meetings: meetings.NewService(meetingStore, agentStore, prem, h, log),
		Premium:  prem,
	}, log, WithHooks(h))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{srv: srv, ts: ts, hooks: h}
}

// call performs a procedure request and returns the status and raw body.
func (e *testEnv) call(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, r)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (e *testEnv) signUp(t *testing.T, email string) auth.Result {
	t.Helper()
	status, body := e.call(t, http.MethodPost, "/api/auth.signUp", "", auth.SignUpInput{
		Name:            "Test User",
		Email:           email,
		Password:        "Passw0rd!",
		ConfirmPassword: "Passw0rd!",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var res auth.Result
	require.NoError(t, json.Unmarshal(body, &res))
	return res
}

func decodeError(t *testing.T, body []byte) ErrorShape {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env.Error
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var challenge Frame
	require.NoError(t, conn.ReadJSON(&challenge))
	assert.Equal(t, FrameTypeEvent, challenge.Type)
	assert.Equal(t, EventConnectChallenge, challenge.Event)
	return conn
}

func sendConnect(t *testing.T, conn *websocket.Conn, token string) Frame {
	t.Helper()
	req, err := NewRequest("req-1", MethodConnect, ConnectParams{
		MinProtocol: 1,
		MaxProtocol: 1,
		Client:      ClientInfo{ID: "test-client", Version: "1.0.0", Platform: "linux"},
		Auth:        &ConnectAuth{Token: token},
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(req))

	var resp Frame
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func (e *testEnv) stream(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	conn := e.dial(t)
	resp := sendConnect(t, conn, token)
	require.NotNil(t, resp.OK)
	require.True(t, *resp.OK)
	return conn
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "ok", health.Status)
}

func TestNotFoundEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.call(t, http.MethodGet, "/api/agents.delete", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, domain.CodeNotFound, decodeError(t, body).Code)
}

func TestResolveBindAddr(t *testing.T) {
	tests := []struct {
		name string
		bind string
		port int
		host string
		want string
	}{
		{"loopback", "loopback", 3000, "", "127.0.0.1:3000"},
		{"lan", "lan", 9999, "", "0.0.0.0:9999"},
		{"auto", "auto", 8080, "", "0.0.0.0:8080"},
		{"custom_default", "custom", 3000, "", "0.0.0.0:3000"},
		{"custom_host", "custom", 3000, "10.0.0.1", "10.0.0.1:3000"},
		{"custom_ipv6", "custom", 3000, "::1", "[::1]:3000"},
		{"unknown_fallback", "whatever", 5000, "", "127.0.0.1:5000"},
		{"empty_fallback", "", 5000, "", "127.0.0.1:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.ServerConfig{Bind: tt.bind, Port: tt.port, CustomBindHost: tt.host}
			assert.Equal(t, tt.want, resolveBindAddr(cfg))
		})
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	check := checkWebSocketOrigin([]string{"https://app.meet.ai"})

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(r), "non-browser clients send no origin")

	r.Header.Set("Origin", "https://app.meet.ai")
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(r))
}

func TestWebSocketHandshakeSuccess(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.signUp(t, "ws@example.com")

	conn := env.dial(t)
	resp := sendConnect(t, conn, user.Token)
	assert.Equal(t, FrameTypeResponse, resp.Type)
	assert.Equal(t, "req-1", resp.ID)
	require.NotNil(t, resp.OK)
	assert.True(t, *resp.OK)

	var hello HelloOK
	require.NoError(t, json.Unmarshal(resp.Payload, &hello))
	assert.Equal(t, ProtocolVersion, hello.Protocol)
	assert.Equal(t, user.User.ID, hello.UserID)
	assert.NotEmpty(t, hello.Server.ConnID)
	assert.Equal(t, []string{MethodPing, MethodSession}, hello.Features.Methods)
	assert.Contains(t, hello.Features.Events, EventEntityChanged)
	assert.Equal(t, 1, env.srv.Clients().Count())
}

func TestWebSocketHandshakeWrongToken(t *testing.T) {
	env := newTestEnv(t, nil)

	conn := env.dial(t)
	resp := sendConnect(t, conn, "wrong-token")
	assert.Equal(t, FrameTypeResponse, resp.Type)
	require.NotNil(t, resp.OK)
	assert.False(t, *resp.OK)
	require.NotNil(t, resp.Error)
	assert.Equal(t, domain.CodeUnauthorized, resp.Error.Code)
}

func TestWebSocketHandshakeExpectsConnect(t *testing.T) {
	env := newTestEnv(t, nil)

	conn := env.dial(t)
	req, _ := NewRequest("req-1", MethodPing, nil)
	require.NoError(t, conn.WriteJSON(req))

	var resp Frame
	require.NoError(t, conn.ReadJSON(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, domain.CodeBadRequest, resp.Error.Code)
	assert.Equal(t, "expected connect request", resp.Error.Message)
}

func TestWebSocketFailedHandshakesAreRateLimited(t *testing.T) {
	env := newTestEnv(t, nil)

	for range 10 {
		conn := env.dial(t)
		sendConnect(t, conn, "wrong-token")
		conn.Close()
	}

	// The last failure is recorded after the error frame is written.
	require.Eventually(t, func() bool {
		return !env.srv.auth.Limiter().Allow("127.0.0.1:1")
	}, 2*time.Second, 10*time.Millisecond)

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestWebSocketPing(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.signUp(t, "ping@example.com")
	conn := env.stream(t, user.Token)

	req, _ := NewRequest("req-2", MethodPing, nil)
	require.NoError(t, conn.WriteJSON(req))

	var resp Frame
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "req-2", resp.ID)
	require.NotNil(t, resp.OK)
	assert.True(t, *resp.OK)

	req, _ = NewRequest("req-3", "agents.delete", nil)
	require.NoError(t, conn.WriteJSON(req))
	require.NoError(t, conn.ReadJSON(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, domain.CodeNotFound, resp.Error.Code)
}

func TestWebSocketSession(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.signUp(t, "sess@example.com")
	conn := env.stream(t, user.Token)

	req, _ := NewRequest("req-2", MethodSession, nil)
	require.NoError(t, conn.WriteJSON(req))

	var resp Frame
	require.NoError(t, conn.ReadJSON(&resp))
	var payload struct {
		UserID  string `json:"userId"`
		Premium bool   `json:"premium"`
	}
	require.NoError(t, json.Unmarshal(resp.Payload, &payload))
	assert.Equal(t, user.User.ID, payload.UserID)
	assert.False(t, payload.Premium)
}

func TestWebSocketPushesChangesToOwner(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.signUp(t, "owner@example.com")
	conn := env.stream(t, user.Token)

	status, body := env.call(t, http.MethodPost, "/api/agents.create", user.Token,
		domain.AgentInput{Name: "Tutor", Instructions: "Teach maths"})
	require.Equal(t, http.StatusOK, status, string(body))
	var a domain.Agent
	require.NoError(t, json.Unmarshal(body, &a))

	var ev Frame
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, FrameTypeEvent, ev.Type)
	assert.Equal(t, EventEntityChanged, ev.Event)
	assert.Positive(t, ev.Seq)

	var change domain.ChangeEvent
	require.NoError(t, json.Unmarshal(ev.Payload, &change))
	assert.Equal(t, domain.ChangeEvent{Entity: domain.EntityAgents, Op: domain.OpCreated, ID: a.ID}, change)
}

func TestWebSocketChangesScopedToUser(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.signUp(t, "alice@example.com")
	bob := env.signUp(t, "bob@example.com")
	bobConn := env.stream(t, bob.Token)

	status, _ := env.call(t, http.MethodPost, "/api/agents.create", alice.Token,
		domain.AgentInput{Name: "Alice's", Instructions: "x"})
	require.Equal(t, http.StatusOK, status)

	status, body := env.call(t, http.MethodPost, "/api/agents.create", bob.Token,
		domain.AgentInput{Name: "Bob's", Instructions: "y"})
	require.Equal(t, http.StatusOK, status)
	var bobAgent domain.Agent
	require.NoError(t, json.Unmarshal(body, &bobAgent))

	// Bob's first event is his own agent, not Alice's.
	var ev Frame
	require.NoError(t, bobConn.ReadJSON(&ev))
	var change domain.ChangeEvent
	require.NoError(t, json.Unmarshal(ev.Payload, &change))
	assert.Equal(t, bobAgent.ID, change.ID)
}

func TestServer_EmitsLifecycleHooks(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Server.Bind = "loopback"
		c.Server.Port = 0
	})

	started := make(chan string, 1)
	stopped := make(chan struct{}, 1)
	env.hooks.On(hooks.EventServerStart, "test", func(_ context.Context, p hooks.Payload) error {
		started <- p.Data["addr"].(string)
		return nil
	})
	env.hooks.On(hooks.EventServerStop, "test", func(_ context.Context, _ hooks.Payload) error {
		stopped <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- env.srv.Start(ctx) }()

	select {
	case addr := <-started:
		assert.True(t, strings.HasPrefix(addr, "127.0.0.1:"))
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.NoError(t, <-errc)
}
