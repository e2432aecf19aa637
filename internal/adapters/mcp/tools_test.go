package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/strataworks/geoassist/internal/core/domain"
)

type fakeRetrieval struct {
	outcome domain.RetrievalOutcome
	err     error
	queries []domain.SearchQuery
}

func (f *fakeRetrieval) Search(_ context.Context, query domain.SearchQuery) (domain.RetrievalOutcome, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return domain.RetrievalOutcome{}, f.err
	}
	return f.outcome, nil
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatalf("expected tool result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func mcpErrorCode(t *testing.T, err error) int {
	t.Helper()
	var protoErr *MCPError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected MCP error, got %v", err)
	}
	return protoErr.Code
}

func TestSearchKnowledgeReturnsCitationsJSON(t *testing.T) {
	page := 14
	retrieval := &fakeRetrieval{
		outcome: domain.RetrievalOutcome{
			Citations: []domain.Citation{
				{SourceName: "sp_22_13330.pdf", Content: "Несущая способность основания", ConfidenceScore: 0.92, PageIndex: &page},
				{SourceName: "settle3_theory.pdf", Content: "Теория консолидации", ConfidenceScore: 0.81},
			},
			Mode: domain.ModeHybrid,
		},
	}
	server := NewServer(retrieval)

	result, err := server.handleSearchKnowledge(context.Background(), callRequest("search_knowledge", map[string]any{
		"query":           "несущая способность",
		"top_k":           float64(5),
		"score_threshold": 0.2,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload struct {
		Citations []domain.Citation `json:"citations"`
		Mode      string            `json:"mode"`
		Count     int               `json:"count"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if payload.Count != 2 || payload.Mode != "hybrid" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Citations[0].SourceName != "sp_22_13330.pdf" {
		t.Fatalf("unexpected first citation: %+v", payload.Citations[0])
	}

	if len(retrieval.queries) != 1 {
		t.Fatalf("expected one search call, got %d", len(retrieval.queries))
	}
	query := retrieval.queries[0]
	if query.TopK != 5 || query.ScoreThreshold != 0.2 {
		t.Fatalf("tool arguments not forwarded: %+v", query)
	}
}

func TestSearchKnowledgeRequiresQuery(t *testing.T) {
	server := NewServer(&fakeRetrieval{})

	_, err := server.handleSearchKnowledge(context.Background(), callRequest("search_knowledge", map[string]any{
		"top_k": float64(3),
	}))
	if code := mcpErrorCode(t, err); code != ErrorCodeInvalidParams {
		t.Fatalf("expected invalid params code, got %d", code)
	}
}

func TestSearchKnowledgeRejectsOutOfRangeTopK(t *testing.T) {
	retrieval := &fakeRetrieval{}
	server := NewServer(retrieval)

	_, err := server.handleSearchKnowledge(context.Background(), callRequest("search_knowledge", map[string]any{
		"query": "осадка",
		"top_k": float64(500),
	}))
	if code := mcpErrorCode(t, err); code != ErrorCodeInvalidParams {
		t.Fatalf("expected invalid params code, got %d", code)
	}
	if len(retrieval.queries) != 0 {
		t.Fatalf("invalid request must not reach the engine")
	}
}

func TestSearchKnowledgeMapsStoreUnavailable(t *testing.T) {
	retrieval := &fakeRetrieval{
		err: domain.NewStoreError(domain.StoreVector, "search", errors.New("connection refused")),
	}
	server := NewServer(retrieval)

	_, err := server.handleSearchKnowledge(context.Background(), callRequest("search_knowledge", map[string]any{
		"query": "осадка фундамента",
	}))
	if code := mcpErrorCode(t, err); code != ErrorCodeStoreUnavailable {
		t.Fatalf("expected store unavailable code, got %d", code)
	}
}

func TestCalculateSettlementReturnsResult(t *testing.T) {
	server := NewServer(&fakeRetrieval{})

	result, err := server.handleCalculateSettlement(context.Background(), callRequest("calculate_settlement", map[string]any{
		"load":          float64(100),
		"young_modulus": float64(20000),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload struct {
		Settlement float64 `json:"settlement"`
		Formula    string  `json:"formula"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if payload.Settlement != 0.005 {
		t.Fatalf("expected settlement 0.005, got %v", payload.Settlement)
	}
	if payload.Formula == "" {
		t.Fatalf("expected formula in result")
	}
}

func TestCalculateSettlementRejectsNonPositiveLoad(t *testing.T) {
	server := NewServer(&fakeRetrieval{})

	_, err := server.handleCalculateSettlement(context.Background(), callRequest("calculate_settlement", map[string]any{
		"load":          float64(-5),
		"young_modulus": float64(20000),
	}))
	if code := mcpErrorCode(t, err); code != ErrorCodeInvalidParams {
		t.Fatalf("expected invalid params code, got %d", code)
	}
}

func TestCalculateBearingCapacityInterpolatesFactors(t *testing.T) {
	server := NewServer(&fakeRetrieval{})

	result, err := server.handleCalculateBearingCapacity(context.Background(), callRequest("calculate_bearing_capacity", map[string]any{
		"B":     float64(2),
		"gamma": float64(18),
		"Df":    float64(1.5),
		"phi":   float64(32),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload struct {
		QUltimate float64 `json:"q_ultimate"`
		Factors   struct {
			Nq float64 `json:"nq"`
		} `json:"factors"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if payload.Factors.Nq != 30.06 {
		t.Fatalf("expected interpolated Nq 30.06, got %v", payload.Factors.Nq)
	}
	if payload.QUltimate != 1329.66 {
		t.Fatalf("expected q_ultimate 1329.66, got %v", payload.QUltimate)
	}
}

func TestCalculateBearingCapacityRejectsPhiOutOfRange(t *testing.T) {
	server := NewServer(&fakeRetrieval{})

	_, err := server.handleCalculateBearingCapacity(context.Background(), callRequest("calculate_bearing_capacity", map[string]any{
		"B":     float64(2),
		"gamma": float64(18),
		"Df":    float64(1.5),
		"phi":   float64(45),
	}))
	if code := mcpErrorCode(t, err); code != ErrorCodeInvalidParams {
		t.Fatalf("expected invalid params code, got %d", code)
	}
}

func TestToolDefinitionsDeclareRequiredParameters(t *testing.T) {
	cases := []struct {
		tool     mcp.Tool
		required []string
	}{
		{searchKnowledgeTool(), []string{"query"}},
		{settlementTool(), []string{"load", "young_modulus"}},
		{bearingCapacityTool(), []string{"B", "gamma", "Df", "phi"}},
	}
	for _, tc := range cases {
		if tc.tool.Name == "" {
			t.Fatalf("tool missing name")
		}
		if len(tc.tool.InputSchema.Required) != len(tc.required) {
			t.Fatalf("%s: expected required %v, got %v", tc.tool.Name, tc.required, tc.tool.InputSchema.Required)
		}
		for i, param := range tc.required {
			if tc.tool.InputSchema.Required[i] != param {
				t.Fatalf("%s: expected required %v, got %v", tc.tool.Name, tc.required, tc.tool.InputSchema.Required)
			}
			if _, ok := tc.tool.InputSchema.Properties[param]; !ok {
				t.Fatalf("%s: required parameter %q not described", tc.tool.Name, param)
			}
		}
	}
}
