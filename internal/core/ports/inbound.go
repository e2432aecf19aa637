package ports

import (
	"context"

	"github.com/strataworks/geoassist/internal/core/domain"
)

// QuestionService answers engineering questions through the full
// plan-execute-synthesize loop.
type QuestionService interface {
	Ask(ctx context.Context, question string) (*domain.AgentAnswer, error)
}

// RetrievalService exposes knowledge-base search without the agent loop.
type RetrievalService interface {
	Search(ctx context.Context, query domain.SearchQuery) (domain.RetrievalOutcome, error)
}

// TrailRecorder persists answer audit events consumed from the queue.
type TrailRecorder interface {
	Record(ctx context.Context, record domain.AnswerRecord) error
}
