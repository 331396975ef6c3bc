package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/diogo/grok-ask/internal/ui"
	"github.com/diogo/grok-ask/pkg/client"
	"github.com/diogo/grok-ask/pkg/models"
)

// ServerName is reported to MCP clients.
const ServerName = "grok-ask"

// Executor runs a grounded query. *client.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error)
}

// toolArgs are the arguments accepted by every tool. Fields a mode does not
// advertise are ignored by the request builder.
type toolArgs struct {
	Query           string   `json:"query"`
	ResponseID      string   `json:"response_id,omitempty"`
	MaxTokens       *int     `json:"max_tokens,omitempty"`
	MaxResults      *int     `json:"max_results,omitempty"`
	AllowedHandles  []string `json:"allowed_handles,omitempty"`
	ExcludedHandles []string `json:"excluded_handles,omitempty"`
	FromDate        string   `json:"from_date,omitempty"`
	ToDate          string   `json:"to_date,omitempty"`
	EnableImages    bool     `json:"enable_images,omitempty"`
	EnableVideo     bool     `json:"enable_video,omitempty"`
}

// NewServer creates an MCP server exposing one tool per query mode.
func NewServer(exec Executor, logger *zap.Logger, version string) *mcpsdk.Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    ServerName,
		Version: version,
	}, nil)

	for _, mode := range models.AvailableModes {
		tool := toolForMode(mode)

		server.AddTool(tool, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			text, isError := handleCall(ctx, exec, logger, mode, req.Params.Arguments)
			return &mcpsdk.CallToolResult{
				IsError: isError,
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
			}, nil
		})

		logger.Debug("mcp tool registered", zap.String("tool", tool.Name))
	}

	return server
}

// handleCall decodes the arguments, runs the query and formats the outcome.
// Failures are reported as tool errors prefixed with their kind.
func handleCall(ctx context.Context, exec Executor, logger *zap.Logger, mode models.QueryMode, raw json.RawMessage) (string, bool) {
	log := logger.With(zap.String("tool", ToolName(mode)))

	req, err := decodeArgs(mode, raw)
	if err != nil {
		log.Debug("mcp tool arguments rejected", zap.Error(err))
		return formatError(err), true
	}

	start := time.Now()
	result, err := exec.Execute(ctx, req)
	if err != nil {
		log.Warn("mcp tool failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return formatError(err), true
	}

	log.Debug("mcp tool completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("citations", len(result.Citations)),
		zap.String("status", string(result.Status)))

	return ui.FormatResult(result), false
}

// decodeArgs maps tool arguments onto a QueryRequest.
func decodeArgs(mode models.QueryMode, raw json.RawMessage) (models.QueryRequest, error) {
	var args toolArgs
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &args); err != nil {
			return models.QueryRequest{}, &client.ClientError{
				Kind:   client.KindInvalidRequest,
				Detail: fmt.Sprintf("invalid arguments: %v", err),
				Err:    err,
			}
		}
	}

	req := models.NewQueryRequest(mode, args.Query)
	req.ContinuationID = strings.TrimSpace(args.ResponseID)
	req.MaxTokens = args.MaxTokens
	req.ResultCount = args.MaxResults

	if len(args.AllowedHandles) > 0 || len(args.ExcludedHandles) > 0 ||
		args.FromDate != "" || args.ToDate != "" || args.EnableImages || args.EnableVideo {
		req.XFilter = &models.XSearchFilter{
			AllowedHandles:  args.AllowedHandles,
			ExcludedHandles: args.ExcludedHandles,
			FromDate:        args.FromDate,
			ToDate:          args.ToDate,
			EnableImages:    args.EnableImages,
			EnableVideo:     args.EnableVideo,
		}
	}

	return req, nil
}

// formatError renders err as "[kind] message".
func formatError(err error) string {
	var ce *client.ClientError
	if !errors.As(err, &ce) {
		return "[error] " + err.Error()
	}

	msg := ce.Detail
	if msg == "" && ce.Err != nil {
		msg = ce.Err.Error()
	}
	if msg == "" {
		msg = "request failed"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", ce.Kind, msg)
	if ce.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", ce.StatusCode)
	}
	switch ce.Kind {
	case client.KindRateLimited:
		if ce.RetryAfter != nil {
			fmt.Fprintf(&b, ". Retry after %s.", *ce.RetryAfter)
		} else {
			b.WriteString(". Wait before retrying.")
		}
	case client.KindAuth:
		b.WriteString(". Check XAI_API_KEY.")
	}
	return b.String()
}
