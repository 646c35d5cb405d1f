package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/MycelicMemory/mycelicmemory/internal/logging"
	"github.com/MycelicMemory/mycelicmemory/internal/memorycore"
	"github.com/MycelicMemory/mycelicmemory/internal/memoryerr"
	"github.com/MycelicMemory/mycelicmemory/internal/ratelimit"
	"github.com/MycelicMemory/mycelicmemory/internal/usecase"
	"github.com/MycelicMemory/mycelicmemory/pkg/config"
)

const (
	ProtocolVersion = "2024-11-05"
	ServerName      = "mycelicmemory"
	ServerVersion   = "0.1.0"
)

// Server implements the MCP server: a newline-delimited JSON-RPC loop on
// stdio exposing the remember and recall tools.
type Server struct {
	svc         *usecase.Service
	project     *memorycore.ProjectConfig
	rateLimiter *ratelimit.Limiter
	log         *logging.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	mu          sync.Mutex
	initialized bool
}

// NewServer creates a new MCP server instance
func NewServer(svc *usecase.Service, cfg *config.Config) *Server {
	log := logging.GetLogger("mcp")
	log.Info("initializing MCP server", "version", ServerVersion, "protocol", ProtocolVersion)

	var rateLimiterInstance *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		rateLimiterInstance = ratelimit.NewLimiter(&ratelimit.Config{
			Enabled: cfg.RateLimit.Enabled,
			Global: ratelimit.LimitConfig{
				RequestsPerSecond: cfg.RateLimit.Global.RequestsPerSecond,
				BurstSize:         cfg.RateLimit.Global.BurstSize,
			},
			Tools: convertToolLimits(cfg.RateLimit.Tools),
		})
		log.Info("rate limiting enabled", "global_rps", cfg.RateLimit.Global.RequestsPerSecond)
	}

	return &Server{
		svc:         svc,
		project:     cfg.ProjectConfig(),
		rateLimiter: rateLimiterInstance,
		log:         log,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}
}

// convertToolLimits converts config tool limits to ratelimit package format
func convertToolLimits(tools []config.ToolLimitConfig) []ratelimit.ToolLimit {
	result := make([]ratelimit.ToolLimit, len(tools))
	for i, t := range tools {
		result[i] = ratelimit.ToolLimit{
			Name:              t.Name,
			RequestsPerSecond: t.RequestsPerSecond,
			BurstSize:         t.BurstSize,
		}
	}
	return result
}

// Banner is the startup banner: the server version plus the operator
// instructions from the project configuration. The same text is returned
// to MCP clients as the initialize result's instructions field.
func (s *Server) Banner() string {
	return fmt.Sprintf("Memory MCP Server v%s\n\n%s", ServerVersion, s.project.Instructions)
}

// Run starts the MCP server main loop, serving until stdin closes or ctx
// is cancelled. ctx is checked after each line is read, so a cancellation
// while Run is blocked waiting for input takes effect only when the next
// line arrives or stdin closes. In-flight reference-count updates are
// drained before Run returns.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("starting MCP server main loop")
	defer s.svc.Wait()

	scanner := bufio.NewScanner(s.stdin)
	// Increase buffer size for large requests
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			s.log.Info("context cancelled, shutting down")
			return ctx.Err()
		default:
		}

		line := scanner.Text()
		if line == "" {
			continue
		}

		response := s.handleRequest(ctx, line)
		if response != nil {
			s.sendResponse(response)
		}
	}

	if err := scanner.Err(); err != nil {
		s.log.Error("scanner error", "error", err)
		return fmt.Errorf("scanner error: %w", err)
	}

	s.log.Info("MCP server shutdown complete")
	return nil
}

// handleRequest processes a single JSON-RPC request
func (s *Server) handleRequest(ctx context.Context, line string) *Response {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.log.Error("failed to parse request", "error", err)
		return &Response{
			JSONRPC: "2.0",
			Error: &RPCError{
				Code:    ParseError,
				Message: "Parse error",
				Data:    err.Error(),
			},
		}
	}

	s.log.Debug("received request", "method", req.Method, "id", req.ID)

	if req.JSONRPC != "2.0" {
		s.log.Warn("invalid jsonrpc version", "version", req.JSONRPC)
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &RPCError{
				Code:    InvalidRequest,
				Message: "Invalid Request",
				Data:    "jsonrpc must be '2.0'",
			},
		}
	}

	switch req.Method {
	case "initialize":
		s.log.Info("handling initialize request")
		return s.handleInitialize(req)
	case "initialized", "notifications/initialized":
		s.log.Debug("received initialized notification")
		// Notification, no response needed
		return nil
	case "tools/list":
		s.log.Debug("handling tools/list request")
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		s.log.Debug("handling ping request")
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		s.log.Warn("method not found", "method", req.Method)
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &RPCError{
				Code:    MethodNotFound,
				Message: "Method not found",
				Data:    req.Method,
			},
		}
	}
}

// handleInitialize handles the initialize request
func (s *Server) handleInitialize(req Request) *Response {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities: ServerCapabilities{
				Tools: &ToolsCapability{
					ListChanged: false,
				},
			},
			ServerInfo: ServerInfo{
				Name:    ServerName,
				Version: ServerVersion,
			},
			Instructions: s.Banner(),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: ToolsListResult{
			Tools: s.getToolDefinitions(),
		},
	}
}

// handleToolsCall handles tool invocation
func (s *Server) handleToolsCall(ctx context.Context, req Request) *Response {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.log.Error("failed to parse tool params", "error", err)
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &RPCError{
				Code:    InvalidParams,
				Message: "Invalid params",
				Data:    err.Error(),
			},
		}
	}

	s.log.ToolCall(params.Name)

	// Rate limit check
	if s.rateLimiter != nil {
		result := s.rateLimiter.Allow(params.Name)
		if !result.Allowed {
			s.log.Warn("rate limit exceeded", "tool", params.Name, "limit_type", result.LimitType, "retry_after_ms", result.RetryAfter.Milliseconds())
			return &Response{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error: &RPCError{
					Code:    InternalError,
					Message: "Rate limit exceeded",
					Data: RateLimitErrorData{
						RetryAfterMs: result.RetryAfter.Milliseconds(),
						LimitType:    result.LimitType,
						Message:      fmt.Sprintf("Rate limit exceeded for %s. Retry after %v.", result.LimitType, result.RetryAfter),
					},
				},
			}
		}
	}

	startTime := time.Now()

	result, err := s.callTool(params.Name, params.Arguments)
	if err != nil {
		duration := time.Since(startTime).Seconds() * 1000
		s.log.ToolFailed(params.Name, err, "duration_ms", duration)
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   mapError(err),
		}
	}

	durationMs := time.Since(startTime).Seconds() * 1000
	s.log.ToolDone(params.Name, durationMs)

	payload, err := json.Marshal(result)
	if err != nil {
		serr := memoryerr.SerializationError("encode tool result", err)
		s.log.ToolFailed(params.Name, serr)
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   mapError(serr),
		}
	}

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: CallToolResult{
			Content: []ContentBlock{
				{Type: "text", Text: string(payload)},
			},
		},
	}
}

// callTool dispatches to the appropriate tool handler
func (s *Server) callTool(name string, args map[string]interface{}) (interface{}, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, memoryerr.SerializationError("marshal tool arguments", err)
	}

	switch name {
	case "remember":
		return s.handleRemember(argsJSON)
	case "recall":
		return s.handleRecall(argsJSON)
	default:
		return nil, memoryerr.InvalidInput("name", fmt.Sprintf("unknown tool %q", name))
	}
}

// handleRemember stores a batch of memories.
func (s *Server) handleRemember(argsJSON []byte) (*RememberResponse, error) {
	var params RememberParams
	if err := json.Unmarshal(argsJSON, &params); err != nil {
		return nil, memoryerr.SerializationError("decode remember params", err)
	}

	inputs := make([]memorycore.Input, len(params.Memories))
	for i, m := range params.Memories {
		inputs[i] = memorycore.Input{
			Type:       m.Type,
			Title:      m.Title,
			Content:    m.Content,
			Tags:       m.Tags,
			Confidence: m.Confidence,
		}
	}

	created, err := s.svc.RememberBatch(inputs)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(created))
	for i, m := range created {
		ids[i] = m.ID
	}

	return &RememberResponse{
		MemoryIDs:    ids,
		CreatedCount: len(ids),
	}, nil
}

// handleRecall retrieves ranked memories as markdown.
func (s *Server) handleRecall(argsJSON []byte) (*RecallResponse, error) {
	var params RecallParams
	if err := json.Unmarshal(argsJSON, &params); err != nil {
		return nil, memoryerr.SerializationError("decode recall params", err)
	}

	// Clamp to non-negative; the use case applies the default of 10.
	if params.Limit < 0 {
		params.Limit = 0
	}

	result, err := s.svc.Recall(params.Query, params.Limit, params.Type, params.Tags)
	if err != nil {
		return nil, err
	}

	return &RecallResponse{
		Content:    result.Markdown,
		TotalCount: result.TotalCount,
	}, nil
}

// mapError maps the domain error taxonomy onto wire error codes:
// validation failures become InvalidParams, everything else becomes
// InternalError with the underlying message kept for diagnosis.
func mapError(err error) *RPCError {
	if e, ok := memoryerr.As(err); ok {
		switch e.Kind {
		case memoryerr.KindInvalidMemoryType, memoryerr.KindInvalidInput, memoryerr.KindInvalidConfidence:
			return &RPCError{
				Code:    InvalidParams,
				Message: "Invalid params",
				Data:    e.Error(),
			}
		}
	}
	return &RPCError{
		Code:    InternalError,
		Message: "Internal error",
		Data:    err.Error(),
	}
}

// sendResponse sends a JSON-RPC response to stdout
func (s *Server) sendResponse(resp *Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("failed to marshal response", "error", err)
		return
	}

	fmt.Fprintln(s.stdout, string(data))
}

// getToolDefinitions returns all tool definitions
func (s *Server) getToolDefinitions() []Tool {
	min0 := float64(0)
	max1 := float64(1)

	return []Tool{
		{
			Name:        "remember",
			Description: "Store memories for future recall",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"memories": {
						Type:        "array",
						Description: "Array of memories to store",
						Items: &Property{
							Type: "object",
							Properties: map[string]Property{
								"type": {
									Type:        "string",
									Description: "Memory type",
									Enum:        s.project.Types,
								},
								"title": {
									Type:        "string",
									Description: "Short display heading",
								},
								"content": {
									Type:        "string",
									Description: "The knowledge to store",
								},
								"tags": {
									Type:        "array",
									Description: "Tags for categorization",
									Items:       &Property{Type: "string"},
								},
								"confidence": {
									Type:        "number",
									Description: "Curator confidence (0-1)",
									Default:     1.0,
									Minimum:     &min0,
									Maximum:     &max1,
								},
							},
							Required: []string{"type", "title", "content"},
						},
					},
				},
				Required: []string{"memories"},
			},
		},
		{
			Name:        "recall",
			Description: "Search and retrieve stored memories",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"query": {
						Type:        "string",
						Description: "Search query for memories",
					},
					"type": {
						Type:        "string",
						Description: "Filter by memory type (optional)",
						Enum:        s.project.Types,
					},
					"tags": {
						Type:        "array",
						Description: "Filter by tags (optional, all must match)",
						Items:       &Property{Type: "string"},
					},
					"limit": {
						Type:        "integer",
						Description: "Maximum number of results",
						Default:     usecase.DefaultRecallLimit,
					},
				},
				Required: []string{"query"},
			},
		},
	}
}
