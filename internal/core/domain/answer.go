package domain

import "time"

type PlanAction string

const (
	ActionRetrieve            PlanAction = "retrieve"
	ActionCalculateSettlement PlanAction = "calculate_settlement"
	ActionCalculateBearing    PlanAction = "calculate_bearing_capacity"
	ActionBoth                PlanAction = "both"
	ActionOutOfScope          PlanAction = "out_of_scope"
)

func (a PlanAction) Known() bool {
	switch a {
	case ActionRetrieve, ActionCalculateSettlement, ActionCalculateBearing, ActionBoth, ActionOutOfScope:
		return true
	default:
		return false
	}
}

func (a PlanAction) NeedsRetrieval() bool {
	return a == ActionRetrieve || a == ActionBoth
}

func (a PlanAction) NeedsCalculation() bool {
	switch a {
	case ActionCalculateSettlement, ActionCalculateBearing, ActionBoth:
		return true
	default:
		return false
	}
}

// Plan is one planner decision for a question.
type Plan struct {
	Action         PlanAction     `json:"action"`
	Reasoning      string         `json:"reasoning,omitempty"`
	SearchQuery    string         `json:"search_query,omitempty"`
	ToolParameters map[string]any `json:"tool_parameters,omitempty"`
}

type AgentAnswer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Action    PlanAction `json:"action"`
	TraceID   string     `json:"trace_id"`
}

// AnswerRecord is the audit-trail event emitted after every answered
// question and persisted by the worker.
type AnswerRecord struct {
	TraceID       string    `json:"trace_id"`
	Question      string    `json:"question"`
	Answer        string    `json:"answer"`
	Action        string    `json:"action"`
	Mode          string    `json:"mode,omitempty"`
	CitationCount int       `json:"citation_count"`
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}
