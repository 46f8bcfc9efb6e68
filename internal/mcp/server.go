// Package mcp exposes agents, meetings and usage as MCP tools over stdio.
// Tools read through the same query cache and mutate through the same
// dispatcher as the terminal views.
package mcp

import (
	"context"
	"encoding/json"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/meetai/meetai/internal/listview"
	"github.com/meetai/meetai/internal/logging"
	"github.com/meetai/meetai/internal/version"
)

// Server is the MCP tool server.
type Server struct {
	fetch *listview.Fetcher
	disp  *listview.Dispatcher
	log   *logging.Logger
	mcp   *server.MCPServer
}

// New creates a server with every tool registered.
func New(fetch *listview.Fetcher, disp *listview.Dispatcher, log *logging.Logger) *Server {
	s := &Server{fetch: fetch, disp: disp, log: log.Sub("mcp")}
	s.mcp = server.NewMCPServer("meetai", version.Short(), server.WithToolCapabilities(false))
	s.mcp.AddTools(s.tools()...)
	return s
}

// Serve runs the stdio JSON-RPC loop until ctx is done or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.log.Info().Int("tools", len(s.tools())).Msg("mcp server listening on stdio")
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return InternalError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
