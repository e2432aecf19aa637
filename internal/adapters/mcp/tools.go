package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/strataworks/geoassist/internal/core/domain"
	"github.com/strataworks/geoassist/internal/core/geotech"
)

// JSON-RPC error codes surfaced to MCP clients.
const (
	ErrorCodeInvalidParams    = -32602
	ErrorCodeInternalError    = -32603
	ErrorCodeStoreUnavailable = -32001
)

// MCPError carries a protocol error code with structured detail; the
// framework encodes it on the wire.
type MCPError struct {
	Code    int
	Message string
	Data    any
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func newMCPError(code int, message string, data any) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

func (s *Server) handleSearchKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]any{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", 0)
	if topK < 0 || topK > 50 {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 50", map[string]any{
			"param": "top_k",
			"value": topK,
		})
	}

	scoreThreshold := getFloatDefault(args, "score_threshold", 0)
	if scoreThreshold < 0 || scoreThreshold > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "score_threshold must be between 0 and 1", map[string]any{
			"param": "score_threshold",
			"value": scoreThreshold,
		})
	}

	outcome, err := s.retrieval.Search(ctx, domain.SearchQuery{
		RawText:        query,
		TopK:           topK,
		ScoreThreshold: scoreThreshold,
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrStoreUnavailable) {
			return nil, newMCPError(ErrorCodeStoreUnavailable, "knowledge base is unavailable", map[string]any{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]any{
			"error": err.Error(),
		})
	}

	response := map[string]any{
		"citations": outcome.Citations,
		"mode":      string(outcome.Mode),
		"count":     len(outcome.Citations),
	}
	if len(outcome.Notes) > 0 {
		response["notes"] = outcome.Notes
	}
	return toolResultJSON(response)
}

func (s *Server) handleCalculateSettlement(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return callCalculator(geotech.ToolSettlement, request)
}

func (s *Server) handleCalculateBearingCapacity(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return callCalculator(geotech.ToolBearingCapacity, request)
}

// callCalculator runs one of the pure calculators against the raw
// argument map. The calculators own parameter validation, so invalid
// input errors map straight to protocol invalid-params errors.
func callCalculator(tool string, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	result, err := geotech.CallTool(tool, args)
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid calculation parameters", map[string]any{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "calculation failed", map[string]any{
			"error": err.Error(),
		})
	}
	return toolResultJSON(result)
}

func toolResultJSON(payload any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "encode result", map[string]any{"error": err.Error()})
	}
	return mcp.NewToolResultText(string(data)), nil
}

func getIntDefault(args map[string]any, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

func getFloatDefault(args map[string]any, key string, defaultValue float64) float64 {
	switch val := args[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	default:
		return defaultValue
	}
}
