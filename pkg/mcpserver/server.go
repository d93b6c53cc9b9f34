// Package mcpserver exposes the advisor as an MCP tool so MCP hosts can ask
// it questions over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/finassist/finassist/pkg/advisor"
	"github.com/finassist/finassist/pkg/llm"
)

// ToolName is the name of the advisor tool.
const ToolName = "ask_financial_advisor"

type askInput struct {
	Message string        `json:"message" jsonschema:"The user's financial question"`
	History []llm.Message `json:"history,omitempty" jsonschema:"Prior user and assistant turns, oldest first"`
}

// Server is an MCP server with the advisor tool registered.
type Server struct {
	advisor *advisor.Advisor
	server  *sdkmcp.Server
	logger  *zap.Logger
}

// New creates the MCP server.
func New(a *advisor.Advisor, version string, logger *zap.Logger) *Server {
	s := &Server{
		advisor: a,
		logger:  logger,
		server: sdkmcp.NewServer(
			&sdkmcp.Implementation{
				Name:    "finassist",
				Version: version,
			},
			nil,
		),
	}

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        ToolName,
		Description: "Ask the financial advisor a question about budgeting, investing, retirement or other money matters. Pass the earlier turns as history to continue a conversation; the reply includes the updated history.",
	}, s.handleAsk)

	return s
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *sdkmcp.Server {
	return s.server
}

// Run serves MCP over stdin/stdout until ctx is done or the host disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &sdkmcp.StdioTransport{})
}

// Serve serves MCP over t until ctx is done or the peer disconnects.
func (s *Server) Serve(ctx context.Context, t sdkmcp.Transport) error {
	return s.server.Run(ctx, t)
}

func (s *Server) handleAsk(ctx context.Context, _ *sdkmcp.CallToolRequest, input askInput) (*sdkmcp.CallToolResult, any, error) {
	s.logger.Debug("tool call",
		zap.String("tool", ToolName),
		zap.Int("history_turns", len(input.History)),
	)

	resp, err := s.advisor.Ask(ctx, input.Message, input.History)
	if err != nil {
		var advErr *advisor.Error
		if errors.As(err, &advErr) {
			s.logger.Warn("tool call failed",
				zap.String("kind", advErr.Kind.String()),
				zap.Error(err),
			)
			return errorResult(advErr.Message), nil, nil
		}
		return errorResult(err.Error()), nil, nil
	}

	return textResult(toolJSON(resp)), nil, nil
}

func textResult(text string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{
			&sdkmcp.TextContent{Text: text},
		},
	}
}

func errorResult(msg string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{
			&sdkmcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

func toolJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error":"failed to marshal response"}`
	}
	return string(data)
}
