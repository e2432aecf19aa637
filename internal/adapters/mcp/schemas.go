package mcpadapter

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func searchKnowledgeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search the geotechnical knowledge base (Settle3, CPT, liquefaction, consolidation) and return ranked citations",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Question or phrase to search for",
				},
				"top_k": map[string]any{
					"type":        "integer",
					"description": "Maximum number of passages to return (1-50, engine default when omitted)",
					"minimum":     1,
					"maximum":     50,
				},
				"score_threshold": map[string]any{
					"type":        "number",
					"description": "Minimum similarity score for vector matches (0-1, engine default when omitted)",
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

func settlementTool() mcp.Tool {
	return mcp.Tool{
		Name:        "calculate_settlement",
		Description: "Compute immediate elastic settlement from applied load and Young's modulus",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"load": map[string]any{
					"type":             "number",
					"description":      "Applied load in kPa",
					"exclusiveMinimum": 0,
				},
				"young_modulus": map[string]any{
					"type":             "number",
					"description":      "Young's modulus of the soil in kPa",
					"exclusiveMinimum": 0,
				},
			},
			Required: []string{"load", "young_modulus"},
		},
	}
}

func bearingCapacityTool() mcp.Tool {
	return mcp.Tool{
		Name:        "calculate_bearing_capacity",
		Description: "Compute Terzaghi ultimate bearing capacity for cohesionless soil",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"B": map[string]any{
					"type":             "number",
					"description":      "Footing width in meters",
					"exclusiveMinimum": 0,
				},
				"gamma": map[string]any{
					"type":             "number",
					"description":      "Soil unit weight in kN/m3",
					"exclusiveMinimum": 0,
				},
				"Df": map[string]any{
					"type":        "number",
					"description": "Footing depth in meters",
					"minimum":     0,
				},
				"phi": map[string]any{
					"type":        "integer",
					"description": "Internal friction angle in degrees",
					"minimum":     0,
					"maximum":     40,
				},
			},
			Required: []string{"B", "gamma", "Df", "phi"},
		},
	}
}
