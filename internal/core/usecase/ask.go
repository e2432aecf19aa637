package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strataworks/geoassist/internal/core/domain"
	"github.com/strataworks/geoassist/internal/core/geotech"
	"github.com/strataworks/geoassist/internal/core/ports"
)

const (
	noRetrievedInfo = "No relevant information found."
	noInfoAtAll     = "No information retrieved."
	noCalculations  = "No calculations performed."
)

const defaultOutOfScopeAnswer = `I apologize, but this question is outside my knowledge base scope. I can only assist with the following geotechnical engineering topics:

- **Settle3 software**: theory manuals, modeling guides, FAQs and troubleshooting
- **CPT analysis**: Cone Penetration Test data interpretation and correlations
- **Liquefaction analysis**: assessment methods, safety factors and correlations
- **Consolidation theory**: primary and secondary consolidation concepts
- **Settlement calculations**: basic elastic settlement formulas
- **Bearing capacity**: Terzaghi bearing capacity analysis for cohesionless soils

Please ask questions related to these specific geotechnical topics.`

const defaultPlannerPrompt = `You are the planning component of a geotechnical engineering assistant.
Analyze the question and return ONLY a valid JSON object describing one action.
Schema:
{"action":"retrieve","reasoning":"...","search_query":"..."}
or
{"action":"calculate_settlement","reasoning":"...","tool_parameters":{"load":<kPa>,"young_modulus":<kPa>}}
or
{"action":"calculate_bearing_capacity","reasoning":"...","tool_parameters":{"B":<m>,"gamma":<kN/m3>,"Df":<m>,"phi":<degrees>}}
or
{"action":"both","reasoning":"...","search_query":"...","tool_parameters":{...}}
or
{"action":"out_of_scope","reasoning":"..."}

Use "retrieve" for questions answerable from the Settle3, CPT and liquefaction knowledge base.
Use a calculation action when the question supplies numeric inputs for elastic settlement or Terzaghi bearing capacity.
Use "both" when the question needs supporting theory and a calculation.
Use "out_of_scope" for anything else.

Question:
{{question}}`

const defaultSynthesisPrompt = `You are a geotechnical engineering assistant. Answer the question using only the material below.
Cite source names when you rely on retrieved passages. Present calculation results with their formula and inputs.
If the material does not cover the question, say so plainly.

Question:
{{question}}

Retrieved information:
{{retrieved_info}}

Calculation results:
{{calculation_results}}`

// PromptSet carries the operator-tunable prompt templates for the agent
// loop. Planner and synthesis templates use {{question}},
// {{retrieved_info}} and {{calculation_results}} placeholders.
type PromptSet struct {
	Planner    string
	Synthesis  string
	OutOfScope string
}

func (p PromptSet) normalize() PromptSet {
	if strings.TrimSpace(p.Planner) == "" {
		p.Planner = defaultPlannerPrompt
	}
	if strings.TrimSpace(p.Synthesis) == "" {
		p.Synthesis = defaultSynthesisPrompt
	}
	if strings.TrimSpace(p.OutOfScope) == "" {
		p.OutOfScope = defaultOutOfScopeAnswer
	}
	return p
}

// AskLimits bounds each phase of the agent loop.
type AskLimits struct {
	PlannerTimeout   time.Duration
	ToolTimeout      time.Duration
	SynthesisTimeout time.Duration
}

func (l AskLimits) normalize() AskLimits {
	if l.PlannerTimeout <= 0 {
		l.PlannerTimeout = 20 * time.Second
	}
	if l.ToolTimeout <= 0 {
		l.ToolTimeout = 30 * time.Second
	}
	if l.SynthesisTimeout <= 0 {
		l.SynthesisTimeout = 60 * time.Second
	}
	return l
}

// AskUseCase answers one question with a plan, execute, synthesize pass.
// It always produces an answer: planner, retrieval and calculator failures
// degrade the content instead of failing the request.
type AskUseCase struct {
	generator ports.AnswerGenerator
	retrieval ports.RetrievalService
	trail     ports.AnswerTrail
	prompts   PromptSet
	limits    AskLimits
}

func NewAskUseCase(
	generator ports.AnswerGenerator,
	retrieval ports.RetrievalService,
	trail ports.AnswerTrail,
	prompts PromptSet,
	limits AskLimits,
) *AskUseCase {
	return &AskUseCase{
		generator: generator,
		retrieval: retrieval,
		trail:     trail,
		prompts:   prompts.normalize(),
		limits:    limits.normalize(),
	}
}

func (uc *AskUseCase) Ask(ctx context.Context, question string) (*domain.AgentAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is required"))
	}

	traceID := uuid.NewString()
	started := time.Now()
	log := slog.With("trace_id", traceID)
	log.Info("agent run started", "question_chars", len(question))

	plan, err := uc.plan(ctx, question, log)
	if err != nil {
		log.Error("agent planning failed", "error", err)
		answer := &domain.AgentAnswer{
			Answer:    "I apologize, but I encountered an error while processing your question. Please try rephrasing it. Error: " + err.Error(),
			Citations: []domain.Citation{},
			Action:    domain.ActionOutOfScope,
			TraceID:   traceID,
		}
		uc.publishRecord(ctx, question, answer, executionResult{}, time.Since(started))
		return answer, nil
	}

	execution := uc.execute(ctx, plan, question, log)
	text := uc.synthesize(ctx, question, execution, log)

	citations := execution.citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	answer := &domain.AgentAnswer{
		Answer:    text,
		Citations: citations,
		Action:    plan.Action,
		TraceID:   traceID,
	}

	uc.publishRecord(ctx, question, answer, execution, time.Since(started))
	log.Info("agent run finished",
		"action", string(plan.Action),
		"citations", len(citations),
		"duration_ms", time.Since(started).Milliseconds())
	return answer, nil
}

// plan asks the model for a structured next action. Unparseable planner
// output degrades to out_of_scope; a failed model call is a hard error the
// caller turns into an apology.
func (uc *AskUseCase) plan(ctx context.Context, question string, log *slog.Logger) (domain.Plan, error) {
	plannerCtx, cancel := context.WithTimeout(ctx, uc.limits.PlannerTimeout)
	defer cancel()

	prompt := renderTemplate(uc.prompts.Planner, map[string]string{"question": question})
	raw, err := uc.generator.GenerateJSONFromPrompt(plannerCtx, prompt)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("planner call: %w", err)
	}

	plan, err := parsePlan(raw)
	if err != nil {
		log.Warn("planner output unparseable, treating question as out of scope", "error", err)
		return domain.Plan{
			Action:    domain.ActionOutOfScope,
			Reasoning: "failed to parse structured planner response",
		}, nil
	}

	log.Info("agent plan created", "action", string(plan.Action))
	return plan, nil
}

type executionResult struct {
	retrievedInfo  string
	calculations   string
	citations      []domain.Citation
	mode           domain.RetrievalMode
	outOfScope     bool
	executionError string
}

func (uc *AskUseCase) execute(ctx context.Context, plan domain.Plan, question string, log *slog.Logger) executionResult {
	var result executionResult

	if plan.Action == domain.ActionOutOfScope {
		result.outOfScope = true
		return result
	}

	toolCtx, cancel := context.WithTimeout(ctx, uc.limits.ToolTimeout)
	defer cancel()

	if plan.Action.NeedsRetrieval() {
		uc.executeRetrieval(toolCtx, plan, question, &result, log)
	}
	if plan.Action.NeedsCalculation() {
		uc.executeCalculation(plan, &result, log)
	}
	return result
}

func (uc *AskUseCase) executeRetrieval(ctx context.Context, plan domain.Plan, question string, result *executionResult, log *slog.Logger) {
	searchText := strings.TrimSpace(plan.SearchQuery)
	if searchText == "" {
		searchText = question
	}

	outcome, err := uc.retrieval.Search(ctx, domain.SearchQuery{RawText: searchText})
	if err != nil {
		if domain.IsKind(err, domain.ErrStoreUnavailable) {
			log.Warn("knowledge base unavailable during retrieval", "error", err)
			result.executionError = appendExecutionError(result.executionError, "knowledge base is temporarily unavailable")
			return
		}
		log.Error("retrieval failed", "error", err)
		result.executionError = appendExecutionError(result.executionError, err.Error())
		return
	}

	result.citations = outcome.Citations
	result.mode = outcome.Mode

	sections := make([]string, 0, len(outcome.Citations))
	for _, citation := range outcome.Citations {
		sections = append(sections, fmt.Sprintf("Source: %s\n%s", citation.SourceName, citation.Content))
	}
	if len(sections) == 0 {
		result.retrievedInfo = noRetrievedInfo
		return
	}
	result.retrievedInfo = strings.Join(sections, "\n\n---\n\n")
}

func (uc *AskUseCase) executeCalculation(plan domain.Plan, result *executionResult, log *slog.Logger) {
	tool, err := toolForPlan(plan)
	if err != nil {
		log.Warn("cannot resolve calculation tool", "action", string(plan.Action), "error", err)
		result.executionError = appendExecutionError(result.executionError, err.Error())
		return
	}

	calc, err := geotech.CallTool(tool, plan.ToolParameters)
	if err != nil {
		log.Warn("calculation failed", "tool", tool, "error", err)
		result.executionError = appendExecutionError(result.executionError, err.Error())
		return
	}

	payload, err := json.Marshal(calc)
	if err != nil {
		result.executionError = appendExecutionError(result.executionError, err.Error())
		return
	}
	result.calculations = string(payload)
}

// toolForPlan resolves which calculator a plan needs. The combined action
// carries no explicit tool name, so the parameter shape decides.
func toolForPlan(plan domain.Plan) (string, error) {
	switch plan.Action {
	case domain.ActionCalculateSettlement:
		return geotech.ToolSettlement, nil
	case domain.ActionCalculateBearing:
		return geotech.ToolBearingCapacity, nil
	case domain.ActionBoth:
		if hasParams(plan.ToolParameters, "load", "young_modulus") {
			return geotech.ToolSettlement, nil
		}
		if hasParams(plan.ToolParameters, "B", "gamma") {
			return geotech.ToolBearingCapacity, nil
		}
		return "", fmt.Errorf("cannot determine calculation type from tool_parameters")
	default:
		return "", fmt.Errorf("action %s does not calculate", plan.Action)
	}
}

func hasParams(params map[string]any, keys ...string) bool {
	for _, key := range keys {
		if _, ok := params[key]; !ok {
			return false
		}
	}
	return true
}

func (uc *AskUseCase) synthesize(ctx context.Context, question string, execution executionResult, log *slog.Logger) string {
	if execution.outOfScope {
		return uc.prompts.OutOfScope
	}

	retrievedInfo := execution.retrievedInfo
	if retrievedInfo == "" {
		retrievedInfo = noInfoAtAll
	}
	calculations := execution.calculations
	if calculations == "" {
		calculations = noCalculations
	}
	if execution.executionError != "" {
		retrievedInfo += "\n\nExecution error: " + execution.executionError
	}

	prompt := renderTemplate(uc.prompts.Synthesis, map[string]string{
		"question":            question,
		"retrieved_info":      retrievedInfo,
		"calculation_results": calculations,
	})

	synthCtx, cancel := context.WithTimeout(ctx, uc.limits.SynthesisTimeout)
	defer cancel()

	answer, err := uc.generator.GenerateFromPrompt(synthCtx, prompt)
	if err != nil {
		log.Error("answer synthesis failed", "error", err)
		return "I apologize, but I encountered an error while processing your question about geotechnical engineering. Error: " + err.Error()
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		log.Error("answer synthesis returned empty content")
		return "I apologize, but I could not produce an answer for this question. Please try rephrasing it."
	}
	return answer
}

func (uc *AskUseCase) publishRecord(ctx context.Context, question string, answer *domain.AgentAnswer, execution executionResult, elapsed time.Duration) {
	if uc.trail == nil {
		return
	}
	record := domain.AnswerRecord{
		TraceID:       answer.TraceID,
		Question:      question,
		Answer:        answer.Answer,
		Action:        string(answer.Action),
		Mode:          string(execution.mode),
		CitationCount: len(answer.Citations),
		DurationMS:    elapsed.Milliseconds(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := uc.trail.PublishAnswerRecorded(ctx, record); err != nil {
		slog.Warn("answer record publish failed", "trace_id", answer.TraceID, "error", err)
	}
}

func parsePlan(raw string) (domain.Plan, error) {
	cleaned := stripCodeFences(raw)
	if cleaned == "" {
		return domain.Plan{}, fmt.Errorf("empty planner response")
	}

	var plan domain.Plan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return domain.Plan{}, fmt.Errorf("unmarshal plan: %w", err)
	}

	plan.Action = domain.PlanAction(strings.ToLower(strings.TrimSpace(string(plan.Action))))
	if !plan.Action.Known() {
		return domain.Plan{}, fmt.Errorf("unknown plan action %q", plan.Action)
	}
	if strings.TrimSpace(plan.Reasoning) == "" {
		return domain.Plan{}, fmt.Errorf("plan missing reasoning")
	}
	return plan, nil
}

func stripCodeFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func renderTemplate(template string, values map[string]string) string {
	rendered := template
	for key, value := range values {
		rendered = strings.ReplaceAll(rendered, "{{"+key+"}}", value)
	}
	return rendered
}

func appendExecutionError(existing, next string) string {
	if existing == "" {
		return next
	}
	return existing + "; " + next
}
