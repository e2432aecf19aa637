package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/strataworks/geoassist/internal/config"
	"github.com/strataworks/geoassist/internal/core/domain"
	"github.com/strataworks/geoassist/internal/core/ports"
	"github.com/strataworks/geoassist/internal/observability/metrics"
)

const (
	apiServiceName          = "api"
	defaultQuestionMaxChars = 1000
)

// HealthReporter exposes the last observed retrieval store states.
type HealthReporter interface {
	HealthStates() []domain.HealthStatus
}

type Router struct {
	questions ports.QuestionService
	retrieval ports.RetrievalService
	health    HealthReporter
	metrics   *metrics.HTTPServerMetrics

	questionMaxChars int
	limiter          *rate.Limiter
	maxInFlight      int
	queueTimeout     time.Duration
}

func NewRouter(
	cfg config.Config,
	questions ports.QuestionService,
	retrieval ports.RetrievalService,
	health HealthReporter,
	m *metrics.HTTPServerMetrics,
) *Router {
	questionMaxChars := cfg.QuestionMaxChars
	if questionMaxChars <= 0 {
		questionMaxChars = defaultQuestionMaxChars
	}

	var limiter *rate.Limiter
	if cfg.APIRateLimitRPS > 0 {
		burst := cfg.APIRateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.APIRateLimitRPS), burst)
	}

	return &Router{
		questions:        questions,
		retrieval:        retrieval,
		health:           health,
		metrics:          m,
		questionMaxChars: questionMaxChars,
		limiter:          limiter,
		maxInFlight:      cfg.APIMaxInFlight,
		queueTimeout:     time.Duration(cfg.APIQueueTimeoutMS) * time.Millisecond,
	}
}

// Handler assembles the route table and the middleware chain. Order, from
// the outside in: request id, access log, http metrics, rate limit,
// backpressure, request validation, mux.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ask", rt.askQuestion)
	mux.HandleFunc("/v1/search", rt.searchKnowledge)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = validationMiddleware(mux)
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.queueTimeout)
	handler = rateLimitMiddleware(handler, rt.limiter)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(apiServiceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

type healthResponse struct {
	Status string                `json:"status"`
	Stores []domain.HealthStatus `json:"stores,omitempty"`
}

// healthz always answers 200: the process being up is the liveness signal.
// A store that lost its connection shows up as status "degraded" until the
// next search restores it.
func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	if rt.health == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}

	states := rt.health.HealthStates()
	status := "ok"
	for _, state := range states {
		if !state.Healthy {
			status = "degraded"
			break
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: status, Stores: states})
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}
	if utf8.RuneCountInString(question) > rt.questionMaxChars {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("question exceeds %d characters", rt.questionMaxChars),
		})
		return
	}

	answer, err := rt.questions.Ask(r.Context(), question)
	if err != nil {
		rt.recordAgentRun("unknown", "error")
		rt.recordStoreFailure("ask", err)
		writeError(w, err)
		return
	}

	rt.recordAgentRun(string(answer.Action), "ok")
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) searchKnowledge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query          string  `json:"query"`
		TopK           int     `json:"top_k"`
		ScoreThreshold float64 `json:"score_threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}
	if utf8.RuneCountInString(query) > rt.questionMaxChars {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("query exceeds %d characters", rt.questionMaxChars),
		})
		return
	}

	started := time.Now()
	outcome, err := rt.retrieval.Search(r.Context(), domain.SearchQuery{
		RawText:        query,
		TopK:           req.TopK,
		ScoreThreshold: req.ScoreThreshold,
	})
	if err != nil {
		rt.recordStoreFailure("search", err)
		writeError(w, err)
		return
	}

	rt.recordSearch(outcome, time.Since(started))
	writeJSON(w, http.StatusOK, outcome)
}

func (rt *Router) recordSearch(outcome domain.RetrievalOutcome, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordSearch(apiServiceName, "search", string(outcome.Mode), len(outcome.Citations), len(outcome.Notes) > 0, duration)
}

func (rt *Router) recordAgentRun(action, status string) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordAgentRun(apiServiceName, action, status)
}

func (rt *Router) recordStoreFailure(endpoint string, err error) {
	if rt.metrics == nil {
		return
	}
	var storeErr *domain.StoreError
	if errors.As(err, &storeErr) {
		rt.metrics.RecordStoreUnavailable(apiServiceName, endpoint, string(storeErr.Store))
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
