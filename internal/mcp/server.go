package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docsage/docsage/internal/answer"
	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/docindex"
	"github.com/docsage/docsage/internal/telemetry"
	"github.com/docsage/docsage/pkg/version"
)

// Server is the MCP server for DocSage.
// It bridges AI clients with the documentation answering pipeline.
type Server struct {
	mcp *mcp.Server

	// asker runs the full pipeline; searcher is a synthesis-free twin
	// so search calls never spend a backend round trip.
	asker    *answer.Orchestrator
	searcher *answer.Orchestrator

	client docindex.SearchClient
	index  string
	config *config.Config
	logger *slog.Logger

	// Run telemetry (optional, set via SetMetrics)
	metrics *telemetry.RunMetrics

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server's logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP server around the two orchestrators. The
// searcher must be built without synthesis; it backs the search tool.
func NewServer(asker, searcher *answer.Orchestrator, client docindex.SearchClient, index string, cfg *config.Config, opts ...ServerOption) (*Server, error) {
	if asker == nil {
		return nil, errors.New("ask orchestrator is required")
	}
	if searcher == nil {
		return nil, errors.New("search orchestrator is required")
	}
	if client == nil {
		return nil, errors.New("search client is required")
	}
	if strings.TrimSpace(index) == "" {
		return nil, errors.New("index name is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		asker:    asker,
		searcher: searcher,
		client:   client,
		index:    index,
		config:   cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Create MCP server with implementation info
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "DocSage",
			Version: version.Version,
		},
		nil, // ServerOptions - capabilities are inferred from registered tools/resources
	)

	s.registerTools()
	s.registerConfigResource()

	return s, nil
}

// SetMetrics sets the run metrics collector for telemetry.
// When set, a stats resource is registered.
func (s *Server) SetMetrics(m *telemetry.RunMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m

	if m != nil {
		s.registerStatsResource()
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "DocSage", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        "ask",
			Description: askToolDescription,
		},
		{
			Name:        "search",
			Description: searchToolDescription,
		},
		{
			Name:        "cancel",
			Description: cancelToolDescription,
		},
	}
}

const (
	askToolDescription = "Answer a documentation question end to end: the query is analyzed, " +
		"matching documentation is searched and ranked, and a synthesized answer is returned " +
		"with its source documents. Use this when you need an answer, not raw search hits."

	searchToolDescription = "Search the documentation index and return ranked documents without " +
		"generating an answer. Faster than ask; use it when you want to read the sources yourself."

	cancelToolDescription = "Cancel the in-flight ask for a session. A new ask in the same " +
		"session supersedes the previous one automatically; use this only to abandon a run outright."
)

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ask",
		Description: askToolDescription,
	}, s.mcpAskHandler)
	s.logger.Debug("Registered tool", slog.String("name", "ask"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: searchToolDescription,
	}, s.mcpSearchHandler)
	s.logger.Debug("Registered tool", slog.String("name", "search"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "cancel",
		Description: cancelToolDescription,
	}, s.mcpCancelHandler)
	s.logger.Debug("Registered tool", slog.String("name", "cancel"))

	s.logger.Info("MCP tools registered", slog.Int("count", 3))
}

// mcpAskHandler is the MCP SDK handler for the ask tool.
func (s *Server) mcpAskHandler(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (
	*mcp.CallToolResult,
	AskOutput,
	error,
) {
	start := time.Now()
	requestID := generateRequestID()

	if strings.TrimSpace(input.Query) == "" {
		return nil, AskOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	limit := clampLimit(input.Limit, 10, 1, 25)

	s.logger.Info("ask started",
		slog.String("request_id", requestID),
		slog.String("query", input.Query),
		slog.Int("limit", limit))

	result, err := s.asker.PerformSearch(ctx, answer.Request{
		Query:   input.Query,
		Client:  s.client,
		Index:   s.index,
		Session: input.Session,
	})
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("ask failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, AskOutput{}, MapError(err)
	}

	s.logger.Info("ask completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("document_count", len(result.Documents)),
		slog.Bool("from_cache", result.FromCache))

	output := AskOutput{
		Answer:    result.Answer,
		QueryType: string(result.Intent.QueryType),
		FromCache: result.FromCache,
		Sources:   make([]DocumentOutput, 0, limit),
	}
	if result.Validation != nil {
		output.Confidence = result.Validation.Confidence
	}
	for i, doc := range result.Documents {
		if i >= limit {
			break
		}
		output.Sources = append(output.Sources, ToDocumentOutput(doc))
	}

	return nil, output, nil
}

// mcpSearchHandler is the MCP SDK handler for the search tool.
func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	start := time.Now()
	requestID := generateRequestID()

	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	limit := clampLimit(input.Limit, 10, 1, 25)

	s.logger.Info("search started",
		slog.String("request_id", requestID),
		slog.String("query", input.Query),
		slog.Int("limit", limit))

	result, err := s.searcher.PerformSearch(ctx, answer.Request{
		Query:  input.Query,
		Client: s.client,
		Index:  s.index,
	})
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("search failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err)
	}

	s.logger.Info("search completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(result.Documents)))

	output := SearchOutput{
		Results: make([]DocumentOutput, 0, limit),
	}
	for i, doc := range result.Documents {
		if i >= limit {
			break
		}
		output.Results = append(output.Results, ToDocumentOutput(doc))
	}

	return nil, output, nil
}

// mcpCancelHandler is the MCP SDK handler for the cancel tool.
func (s *Server) mcpCancelHandler(_ context.Context, _ *mcp.CallToolRequest, input CancelInput) (
	*mcp.CallToolResult,
	CancelOutput,
	error,
) {
	session := input.Session
	if session == "" {
		session = answer.DefaultSession
	}

	cancelled := s.asker.Cancel(session)
	s.logger.Info("cancel requested",
		slog.String("session", session),
		slog.Bool("cancelled", cancelled))

	return nil, CancelOutput{Cancelled: cancelled}, nil
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server",
		slog.String("transport", transport),
		slog.String("index", s.index))

	switch transport {
	case "stdio":
		s.logger.Debug("Using stdio transport for JSON-RPC")
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	// The MCP server doesn't have a Close method - it stops when context is canceled
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
