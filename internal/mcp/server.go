package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/prstats/internal/models"
	"github.com/joescharf/prstats/internal/stats"
	"github.com/joescharf/prstats/internal/store"
)

// StatsRunner runs one stats pipeline invocation.
type StatsRunner interface {
	GetStats(ctx context.Context, from, to string) (*stats.Result, error)
}

// Server exposes the stats pipeline and the cache as MCP tools.
type Server struct {
	stats   StatsRunner
	store   store.Store
	version string

	// mu serializes stats runs.
	mu sync.Mutex
}

// NewServer creates the MCP server wrapper.
func NewServer(runner StatsRunner, s store.Store, version string) *Server {
	return &Server{stats: runner, store: s, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("prstats", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.getStatsTool())
	srv.AddTool(s.cachedPRTool())
	srv.AddTool(s.invalidateReviewsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// prstats_get_stats
func (s *Server) getStatsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("prstats_get_stats",
		mcp.WithDescription("Compute review latency for the configured repository. Returns per-PR time to first review (hours) and per-reviewer average/fastest/slowest latency as JSON."),
		mcp.WithString("from", mcp.Description("Inclusive lower bound on PR creation, ISO-8601 date or datetime. Upper bound defaults to now.")),
		mcp.WithString("to", mcp.Description("Inclusive upper bound on PR creation, ISO-8601 date or datetime")),
	)
	return tool, s.handleGetStats
}

func (s *Server) handleGetStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from := request.GetString("from", "")
	to := request.GetString("to", "")

	s.mu.Lock()
	res, err := s.stats.GetStats(ctx, from, to)
	s.mu.Unlock()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get stats failed: %v", err)), nil
	}
	return jsonResult(res)
}

// prstats_cached_pr
func (s *Server) cachedPRTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("prstats_cached_pr",
		mcp.WithDescription("Show a pull request and its reviews as currently held in the local cache, without contacting GitHub."),
		mcp.WithNumber("number", mcp.Required(), mcp.Description("Pull request number")),
	)
	return tool, s.handleCachedPR
}

func (s *Server) handleCachedPR(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number, err := request.RequireInt("number")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: number"), nil
	}

	rec, err := s.store.GetPR(ctx, number)
	if errors.Is(err, models.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("pull request #%d is not cached", number)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read cache: %v", err)), nil
	}
	reviews, err := s.store.GetReviews(ctx, number)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read cache: %v", err)), nil
	}

	if reviews == nil {
		reviews = []*models.Review{}
	}
	return jsonResult(models.CachedPR{CacheRecord: rec, Reviews: reviews})
}

// prstats_invalidate_reviews
func (s *Server) invalidateReviewsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("prstats_invalidate_reviews",
		mcp.WithDescription("Drop the cached reviews of one pull request so the next stats run refetches them. Use when a closed PR was reopened and reviewed again."),
		mcp.WithNumber("number", mcp.Required(), mcp.Description("Pull request number")),
	)
	return tool, s.handleInvalidateReviews
}

func (s *Server) handleInvalidateReviews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number, err := request.RequireInt("number")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: number"), nil
	}

	n, err := s.store.InvalidateReviews(ctx, number)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to invalidate reviews: %v", err)), nil
	}
	return jsonResult(map[string]any{"number": number, "removed": n})
}
