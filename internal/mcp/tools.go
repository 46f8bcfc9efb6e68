package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/filter"
)

func statusNames() []string {
	names := make([]string, len(domain.MeetingStatuses))
	for i, st := range domain.MeetingStatuses {
		names[i] = string(st)
	}
	return names
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("agents_list",
				mcp.WithDescription("List your agents, newest first. Returns one page with the total page count."),
				mcp.WithString("search", mcp.Description("Only agents whose name contains this text")),
				mcp.WithNumber("page", mcp.Description("Page number, starting at 1")),
				mcp.WithNumber("page_size", mcp.Description("Rows per page")),
			),
			Handler: s.handleAgentsList,
		},
		{
			Tool: mcp.NewTool("agents_create",
				mcp.WithDescription("Create an agent. Free plans are limited in how many agents they may own."),
				mcp.WithString("name", mcp.Required(), mcp.Description("Agent name")),
				mcp.WithString("instructions", mcp.Required(), mcp.Description("How the agent should behave in meetings")),
			),
			Handler: s.handleAgentsCreate,
		},
		{
			Tool: mcp.NewTool("meetings_list",
				mcp.WithDescription("List your meetings, newest first. Returns one page with the total page count."),
				mcp.WithString("search", mcp.Description("Only meetings whose name contains this text")),
				mcp.WithNumber("page", mcp.Description("Page number, starting at 1")),
				mcp.WithNumber("page_size", mcp.Description("Rows per page")),
				mcp.WithString("status", mcp.Description("Only meetings in this status"), mcp.Enum(statusNames()...)),
				mcp.WithString("agent_id", mcp.Description("Only meetings with this agent")),
			),
			Handler: s.handleMeetingsList,
		},
		{
			Tool: mcp.NewTool("meetings_create",
				mcp.WithDescription("Create a meeting with one of your agents. Free plans are limited in how many meetings they may own."),
				mcp.WithString("name", mcp.Required(), mcp.Description("Meeting name")),
				mcp.WithString("agent_id", mcp.Required(), mcp.Description("ID of the agent that joins the meeting")),
			),
			Handler: s.handleMeetingsCreate,
		},
		{
			Tool: mcp.NewTool("usage_get",
				mcp.WithDescription("Show free plan usage. Returns null on a premium plan."),
			),
			Handler: s.handleUsageGet,
		},
	}
}

// listFilter reads the paging and search arguments shared by list tools.
// Out-of-range values fall back to their defaults.
func listFilter(req mcp.CallToolRequest) filter.Filter {
	f := filter.Default()
	f.Search = strings.TrimSpace(req.GetString("search", ""))
	f.Page = req.GetInt("page", filter.DefaultPage)
	f.PageSize = req.GetInt("page_size", filter.DefaultPageSize)
	return f.Normalize()
}

func (s *Server) handleAgentsList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.fetch.Agents(ctx, listFilter(req))
	if err != nil {
		return ErrorResult(err), nil
	}
	return jsonResult(res)
}

func (s *Server) handleAgentsCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := domain.AgentInput{
		Name:         req.GetString("name", ""),
		Instructions: req.GetString("instructions", ""),
	}
	if err := in.Validate(); err != nil {
		return ErrorResult(err), nil
	}
	a, err := s.disp.CreateAgent(ctx, in)
	if err != nil {
		return ErrorResult(err), nil
	}
	return jsonResult(a)
}

func (s *Server) handleMeetingsList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := listFilter(req)
	if v := req.GetString("status", ""); v != "" {
		st, ok := domain.ParseMeetingStatus(v)
		if !ok {
			return ValidationError("status", "Invalid status"), nil
		}
		f.Status = st
	}
	f.AgentID = req.GetString("agent_id", "")

	res, err := s.fetch.Meetings(ctx, f)
	if err != nil {
		return ErrorResult(err), nil
	}
	return jsonResult(res)
}

func (s *Server) handleMeetingsCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := domain.MeetingInput{
		Name:    req.GetString("name", ""),
		AgentID: req.GetString("agent_id", ""),
	}
	if err := in.Validate(); err != nil {
		return ErrorResult(err), nil
	}
	m, err := s.disp.CreateMeeting(ctx, in)
	if err != nil {
		return ErrorResult(err), nil
	}
	return jsonResult(m)
}

func (s *Server) handleUsageGet(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, err := s.fetch.Usage(ctx)
	if err != nil {
		return ErrorResult(err), nil
	}
	return jsonResult(u)
}
