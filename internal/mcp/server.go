// Package mcp implements the Model Context Protocol server for tarix,
// exposing tariff retrieval as tools for AI agents.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/tarix-ai/tarix/internal/answer"
	"github.com/tarix-ai/tarix/internal/retriever"
	"github.com/tarix-ai/tarix/internal/store"
)

// defaultSearchLimit is the default number of results for search_tariff.
const defaultSearchLimit = 10

// Server wraps an MCPServer with tarix dependencies.
type Server struct {
	mcp       *mcpserver.MCPServer
	retriever *retriever.Retriever
	answerer  *answer.Answerer
	store     store.Store
	logger    *slog.Logger
}

// NewServer creates a new MCP server over the given retrieval pipeline.
func NewServer(ret *retriever.Retriever, ans *answer.Answerer, st store.Store, logger *slog.Logger) *Server {
	s := &Server{
		retriever: ret,
		answerer:  ans,
		store:     st,
		logger:    logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"tarix",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildSearchTool(), s.handleSearch)
	mcpSrv.AddTool(buildLookupTool(), s.handleLookup)
	mcpSrv.AddTool(buildAskTool(), s.handleAsk)
	mcpSrv.AddTool(buildStatsTool(), s.handleStats)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleSearch is the exported handler for the "search_tariff" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleSearch(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleSearch(ctx, req)
}

// HandleLookup is the exported handler for the "lookup_hts" tool.
func (s *Server) HandleLookup(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleLookup(ctx, req)
}

// HandleAsk is the exported handler for the "ask_tariff" tool.
func (s *Server) HandleAsk(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAsk(ctx, req)
}

// HandleStats is the exported handler for the "tariff_stats" tool.
func (s *Server) HandleStats(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleStats(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// --- tool definitions ---

func buildSearchTool() mcpgo.Tool {
	return mcpgo.NewTool("search_tariff",
		mcpgo.WithDescription("Semantic search over the Harmonized Tariff Schedule. Returns the tariff records most relevant to a free-text product description, nearest first."),
		mcpgo.WithString("query",
			mcpgo.Required(),
			mcpgo.Description("Free-text description of the product or tariff topic"),
		),
		mcpgo.WithNumber("limit",
			mcpgo.Description("Maximum number of records (default: 10)"),
		),
	)
}

func buildLookupTool() mcpgo.Tool {
	return mcpgo.NewTool("lookup_hts",
		mcpgo.WithDescription("Look up tariff records by HTS number substring. Not semantic; matches the number text directly."),
		mcpgo.WithString("number",
			mcpgo.Required(),
			mcpgo.Description("Full or partial HTS number, e.g. 0101.21"),
		),
	)
}

func buildAskTool() mcpgo.Tool {
	return mcpgo.NewTool("ask_tariff",
		mcpgo.WithDescription("Ask a natural-language question about tariffs. Retrieves the most relevant schedule rows and synthesizes an answer grounded in them, with reference URLs."),
		mcpgo.WithString("question",
			mcpgo.Required(),
			mcpgo.Description("The question to answer"),
		),
	)
}

func buildStatsTool() mcpgo.Tool {
	return mcpgo.NewTool("tariff_stats",
		mcpgo.WithDescription("Get tariff table statistics: total rows, embedded rows, embedding model version."),
	)
}

// --- tool handlers ---

func (s *Server) handleSearch(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.retriever == nil {
		return mcpgo.NewToolResultError("retriever is unavailable"), nil
	}

	query := req.GetString("query", "")
	limit := req.GetInt("limit", defaultSearchLimit)
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	results, err := s.retriever.Search(ctx, query, limit)
	if err != nil {
		if errors.Is(err, retriever.ErrEmptyQuery) {
			return mcpgo.NewToolResultError("query is required and must not be empty"), nil
		}
		return mcpgo.NewToolResultErrorf("search failed: %s", err.Error()), nil
	}

	s.logger.Debug("mcp: search_tariff", "results", len(results))
	return toolResultJSON(map[string]any{"results": results})
}

func (s *Server) handleLookup(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.retriever == nil {
		return mcpgo.NewToolResultError("retriever is unavailable"), nil
	}

	number := req.GetString("number", "")
	if strings.TrimSpace(number) == "" {
		return mcpgo.NewToolResultError("number is required and must not be empty"), nil
	}

	matches, err := s.retriever.Lookup(ctx, number)
	if err != nil {
		return mcpgo.NewToolResultErrorf("lookup failed: %s", err.Error()), nil
	}
	return toolResultJSON(map[string]any{"results": matches})
}

func (s *Server) handleAsk(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.answerer == nil {
		return mcpgo.NewToolResultError("answerer is unavailable"), nil
	}

	question := req.GetString("question", "")
	result, err := s.answerer.Answer(ctx, question)
	if err != nil {
		if errors.Is(err, retriever.ErrEmptyQuery) {
			return mcpgo.NewToolResultError("question is required and must not be empty"), nil
		}
		return mcpgo.NewToolResultErrorf("answer failed: %s", err.Error()), nil
	}
	return toolResultJSON(result)
}

func (s *Server) handleStats(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.store == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return mcpgo.NewToolResultErrorf("stats failed: %s", err.Error()), nil
	}
	return toolResultJSON(stats)
}
