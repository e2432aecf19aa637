package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/strataworks/geoassist/internal/core/domain"
	"github.com/strataworks/geoassist/internal/core/ports"
)

const (
	defaultTopK           = 5
	defaultScoreThreshold = 0.2
	previewRuneLimit      = 200
)

// Params control how every question in the dataset is retrieved.
type Params struct {
	TopK           int     `json:"top_k"`
	ScoreThreshold float64 `json:"score_threshold"`
}

func (p Params) withDefaults() Params {
	if p.TopK <= 0 {
		p.TopK = defaultTopK
	}
	if p.ScoreThreshold <= 0 {
		p.ScoreThreshold = defaultScoreThreshold
	}
	return p
}

// ChunkDetail describes one retrieved chunk in the per-question report.
type ChunkDetail struct {
	Rank           int     `json:"rank"`
	Source         string  `json:"source"`
	Score          float64 `json:"score"`
	ContentPreview string  `json:"content_preview"`
	PageIndex      *int    `json:"page_index,omitempty"`
	ContentLength  int     `json:"content_length"`
}

// QuestionResult is one evaluated dataset entry. Failed questions keep
// their row with zeroed metrics and the error text in GeneratedAnswer.
type QuestionResult struct {
	QuestionID      int
	Question        string
	ExpectedAnswer  string
	GeneratedAnswer string
	ChunksRetrieved int
	TopChunkScore   float64
	TopChunkSource  string
	CitationsUsed   int
	TraceID         string
	Similarity      Similarity
	Chunks          []ChunkDetail
	Failed          bool
}

// Summary aggregates a run. Averages cover only questions that
// retrieved at least one chunk.
type Summary struct {
	TotalQuestions int     `json:"total_questions"`
	Successful     int     `json:"successful"`
	SuccessRate    float64 `json:"success_rate"`
	AvgChunks      float64 `json:"avg_chunks"`
	AvgJaccard     float64 `json:"avg_jaccard"`
	AvgWordOverlap float64 `json:"avg_word_overlap"`
	AvgTechnical   float64 `json:"avg_technical"`
	OverallScore   float64 `json:"overall_score"`
	Rating         string  `json:"rating"`
}

// Report is the full outcome of one evaluation run.
type Report struct {
	StartedAt time.Time
	Params    Params
	Results   []QuestionResult
	Summary   Summary
}

// Runner replays a QA dataset against the retrieval engine and,
// when an asker is wired, the full agent loop.
type Runner struct {
	retrieval ports.RetrievalService
	questions ports.QuestionService
	params    Params
}

// NewRunner builds a Runner. questions may be nil for retrieval-only
// runs; answer metrics then stay at zero.
func NewRunner(retrieval ports.RetrievalService, questions ports.QuestionService, params Params) *Runner {
	return &Runner{
		retrieval: retrieval,
		questions: questions,
		params:    params.withDefaults(),
	}
}

// Run evaluates every pair in the dataset. A failed question produces
// an error row rather than aborting the run; only context cancellation
// stops it early.
func (r *Runner) Run(ctx context.Context, dataset Dataset) (Report, error) {
	report := Report{
		StartedAt: time.Now(),
		Params:    r.params,
		Results:   make([]QuestionResult, 0, len(dataset.QAPairs)),
	}

	for i, pair := range dataset.QAPairs {
		if err := ctx.Err(); err != nil {
			report.Summary = summarize(report.Results)
			return report, fmt.Errorf("evaluation interrupted after %d of %d questions: %w",
				len(report.Results), len(dataset.QAPairs), err)
		}

		result := r.evaluate(ctx, i+1, pair)
		report.Results = append(report.Results, result)

		slog.Info("question evaluated",
			"question_id", result.QuestionID,
			"chunks", result.ChunksRetrieved,
			"jaccard", result.Similarity.Jaccard,
			"technical", result.Similarity.TechnicalTerms,
			"failed", result.Failed)
	}

	report.Summary = summarize(report.Results)
	return report, nil
}

func (r *Runner) evaluate(ctx context.Context, id int, pair QAPair) QuestionResult {
	result := QuestionResult{
		QuestionID:     id,
		Question:       pair.Question,
		ExpectedAnswer: pair.Expected(),
		TopChunkSource: "None",
	}

	outcome, err := r.retrieval.Search(ctx, domain.SearchQuery{
		RawText:        pair.Question,
		TopK:           r.params.TopK,
		ScoreThreshold: r.params.ScoreThreshold,
	})
	if err != nil {
		return failedResult(result, fmt.Errorf("search: %w", err))
	}

	result.ChunksRetrieved = len(outcome.Citations)
	result.Chunks = chunkDetails(outcome.Citations)
	if len(outcome.Citations) > 0 {
		result.TopChunkScore = outcome.Citations[0].ConfidenceScore
		result.TopChunkSource = outcome.Citations[0].SourceName
	}

	if r.questions != nil {
		answer, err := r.questions.Ask(ctx, pair.Question)
		if err != nil {
			return failedResult(result, fmt.Errorf("ask: %w", err))
		}
		result.GeneratedAnswer = answer.Answer
		result.CitationsUsed = len(answer.Citations)
		result.TraceID = answer.TraceID
	}

	result.Similarity = AnswerSimilarity(result.GeneratedAnswer, result.ExpectedAnswer)
	return result
}

func failedResult(result QuestionResult, err error) QuestionResult {
	result.Failed = true
	result.GeneratedAnswer = "ERROR: " + err.Error()
	result.ChunksRetrieved = 0
	result.TopChunkScore = 0
	result.TopChunkSource = "ERROR"
	result.CitationsUsed = 0
	result.TraceID = "ERROR"
	result.Similarity = Similarity{}
	result.Chunks = nil

	slog.Error("question evaluation failed", "question_id", result.QuestionID, "error", err)
	return result
}

func chunkDetails(citations []domain.Citation) []ChunkDetail {
	if len(citations) == 0 {
		return nil
	}
	details := make([]ChunkDetail, 0, len(citations))
	for i, citation := range citations {
		details = append(details, ChunkDetail{
			Rank:           i + 1,
			Source:         citation.SourceName,
			Score:          citation.ConfidenceScore,
			ContentPreview: contentPreview(citation.Content),
			PageIndex:      citation.PageIndex,
			ContentLength:  len([]rune(citation.Content)),
		})
	}
	return details
}

func contentPreview(content string) string {
	flat := strings.ReplaceAll(content, "\n", " ")
	runes := []rune(flat)
	if len(runes) <= previewRuneLimit {
		return flat
	}
	return string(runes[:previewRuneLimit])
}

func summarize(results []QuestionResult) Summary {
	summary := Summary{TotalQuestions: len(results)}
	if len(results) == 0 {
		summary.Rating = rating(0)
		return summary
	}

	var chunks, jaccard, overlap, technical float64
	for _, result := range results {
		if result.ChunksRetrieved == 0 {
			continue
		}
		summary.Successful++
		chunks += float64(result.ChunksRetrieved)
		jaccard += result.Similarity.Jaccard
		overlap += result.Similarity.WordOverlap
		technical += result.Similarity.TechnicalTerms
	}

	summary.SuccessRate = round3(float64(summary.Successful) / float64(len(results)))
	if summary.Successful > 0 {
		n := float64(summary.Successful)
		summary.AvgChunks = round3(chunks / n)
		summary.AvgJaccard = round3(jaccard / n)
		summary.AvgWordOverlap = round3(overlap / n)
		summary.AvgTechnical = round3(technical / n)
		summary.OverallScore = round3((summary.AvgJaccard + summary.AvgWordOverlap + summary.AvgTechnical) / 3)
	}
	summary.Rating = rating(summary.OverallScore)
	return summary
}

func rating(overall float64) string {
	switch {
	case overall >= 0.7:
		return "excellent"
	case overall >= 0.5:
		return "good"
	case overall >= 0.3:
		return "fair"
	default:
		return "needs improvement"
	}
}
