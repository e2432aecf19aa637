package ports

import (
	"context"

	"github.com/strataworks/geoassist/internal/core/domain"
)

// Embedder builds the query vector for semantic search.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// StoreLifecycle is the connectivity contract shared by both retrieval
// stores. HealthCheck probes the live connection on every call; Reconnect
// replaces the underlying handle and must be safe to call concurrently.
type StoreLifecycle interface {
	HealthCheck(ctx context.Context) domain.HealthStatus
	Reconnect(ctx context.Context) error
}

// VectorStore performs semantic search over the passage collection.
type VectorStore interface {
	StoreLifecycle
	Search(ctx context.Context, queryVector []float32, limit int, scoreThreshold float64) ([]domain.SearchResult, error)
}

// DocumentStore performs lexical full-text search over the same corpus.
type DocumentStore interface {
	StoreLifecycle
	SearchText(ctx context.Context, phrase string, limit int) ([]domain.SearchResult, error)
}

// KeywordExtractor distills a question into lexical search terms. It never
// fails: an empty set simply forces vector-only retrieval.
type KeywordExtractor interface {
	Extract(ctx context.Context, text string) domain.KeywordSet
}

// AnswerGenerator drives planning and synthesis prompts.
type AnswerGenerator interface {
	GenerateFromPrompt(ctx context.Context, prompt string) (string, error)
	GenerateJSONFromPrompt(ctx context.Context, prompt string) (string, error)
}

// AnswerTrail publishes and consumes answer audit events.
type AnswerTrail interface {
	PublishAnswerRecorded(ctx context.Context, record domain.AnswerRecord) error
	SubscribeAnswerRecorded(ctx context.Context, handler func(context.Context, domain.AnswerRecord) error) error
}

// QueryLogStore persists the answer audit trail.
type QueryLogStore interface {
	InsertAnswerRecord(ctx context.Context, record domain.AnswerRecord) error
}
