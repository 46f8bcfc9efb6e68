package mcp

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meetai/meetai/internal/agents"
	"github.com/meetai/meetai/internal/auth"
	"github.com/meetai/meetai/internal/client"
	"github.com/meetai/meetai/internal/config"
	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/hooks"
	"github.com/meetai/meetai/internal/listview"
	"github.com/meetai/meetai/internal/logging"
	"github.com/meetai/meetai/internal/meetings"
	"github.com/meetai/meetai/internal/premium"
	"github.com/meetai/meetai/internal/query"
	apiserver "github.com/meetai/meetai/internal/server"
	"github.com/meetai/meetai/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Defaults()
	agentStore := store.NewAgentStore(db)
	meetingStore := store.NewMeetingStore(db)
	h := hooks.NewManager(log)
	prem := premium.NewService(agentStore, meetingStore, store.NewSubscriptionStore(db), cfg, log)
	api := apiserver.New(cfg, apiserver.Services{
		Auth:     auth.NewService(store.NewUserStore(db), store.NewSessionStore(db), cfg.Auth, log),
		Agents:   agents.NewService(agentStore, prem, h, log),
		Meetings: meetings.NewService(meetingStore, agentStore, prem, h, log),
		Premium:  prem,
	}, log, apiserver.WithHooks(h))
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)

	c := client.New(ts.URL, log)
	_, err = c.SignUp(context.Background(), auth.SignUpInput{
		Name: "Tool User", Email: "tools@example.com", Password: "Passw0rd!", ConfirmPassword: "Passw0rd!",
	})
	require.NoError(t, err)

	cache := query.New(query.NewMemoryStore(), log)
	return New(listview.NewFetcher(c, cache), listview.NewDispatcher(c, cache, nil, nil, log), log)
}

func call(t *testing.T, s *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	for _, tool := range s.tools() {
		if tool.Tool.Name == name {
			req := mcp.CallToolRequest{}
			req.Params.Name = name
			req.Params.Arguments = args
			res, err := tool.Handler(context.Background(), req)
			require.NoError(t, err)
			return res
		}
	}
	t.Fatalf("no tool %s", name)
	return nil
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, res.IsError, text(t, res))
	var v T
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &v))
	return v
}

func toolError(t *testing.T, res *mcp.CallToolResult) ToolError {
	t.Helper()
	require.True(t, res.IsError)
	var te ToolError
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &te))
	return te
}

func TestTools_Registered(t *testing.T) {
	s := newTestServer(t)
	var names []string
	for _, tool := range s.tools() {
		names = append(names, tool.Tool.Name)
	}
	assert.Equal(t, []string{"agents_list", "agents_create", "meetings_list", "meetings_create", "usage_get"}, names)
}

func TestTools_AgentsAndMeetings(t *testing.T) {
	s := newTestServer(t)

	a := decode[domain.Agent](t, call(t, s, "agents_create", map[string]any{"name": "Tutor", "instructions": "Teach"}))
	assert.NotEmpty(t, a.ID)

	agentsPage := decode[domain.ListResult[domain.AgentListItem]](t, call(t, s, "agents_list", map[string]any{"search": "tut"}))
	require.Len(t, agentsPage.Items, 1)
	assert.Equal(t, 1, agentsPage.TotalPages)

	m := decode[domain.Meeting](t, call(t, s, "meetings_create", map[string]any{"name": "Lesson", "agent_id": a.ID}))
	assert.Equal(t, domain.MeetingUpcoming, m.Status)

	meetingsPage := decode[domain.ListResult[domain.MeetingListItem]](t, call(t, s, "meetings_list", map[string]any{"status": "upcoming", "agent_id": a.ID}))
	require.Len(t, meetingsPage.Items, 1)
	assert.Equal(t, "Tutor", meetingsPage.Items[0].AgentName)
}

func TestTools_ListSeesCreateThroughCache(t *testing.T) {
	s := newTestServer(t)

	empty := decode[domain.ListResult[domain.AgentListItem]](t, call(t, s, "agents_list", nil))
	assert.Empty(t, empty.Items)

	decode[domain.Agent](t, call(t, s, "agents_create", map[string]any{"name": "Fresh", "instructions": "x"}))

	page := decode[domain.ListResult[domain.AgentListItem]](t, call(t, s, "agents_list", nil))
	assert.Len(t, page.Items, 1)
}

func TestTools_PlanLimit(t *testing.T) {
	s := newTestServer(t)
	decode[domain.Agent](t, call(t, s, "agents_create", map[string]any{"name": "One", "instructions": "x"}))

	te := toolError(t, call(t, s, "agents_create", map[string]any{"name": "Two", "instructions": "x"}))
	assert.Equal(t, domain.CodeForbidden, te.Code)
	assert.Equal(t, "You have reached the maximum number of free agents", te.Message)
	assert.Equal(t, listview.UpgradePath, te.Details["upgrade"])
}

func TestTools_Validation(t *testing.T) {
	s := newTestServer(t)

	te := toolError(t, call(t, s, "agents_create", map[string]any{"name": "Only name"}))
	assert.Equal(t, domain.CodeBadRequest, te.Code)
	assert.Equal(t, "Instructions are required", te.Details["instructions"])

	te = toolError(t, call(t, s, "meetings_list", map[string]any{"status": "archived"}))
	assert.Equal(t, "Invalid status", te.Details["status"])

	te = toolError(t, call(t, s, "meetings_create", map[string]any{"name": "x", "agent_id": "missing"}))
	assert.Equal(t, "Agent not found", te.Details["agentId"])
}

func TestTools_Usage(t *testing.T) {
	s := newTestServer(t)
	u := decode[*domain.FreeUsage](t, call(t, s, "usage_get", nil))
	require.NotNil(t, u)
	assert.Equal(t, 0, u.AgentCount)
	assert.Equal(t, 1, u.MaxAgents)
}

func TestListFilter_Defaults(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"page": float64(-3), "search": "  math "}
	f := listFilter(req)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 10, f.PageSize)
	assert.Equal(t, "math", f.Search)
}
