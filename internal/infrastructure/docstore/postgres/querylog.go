package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/strataworks/geoassist/internal/core/domain"
)

type QueryLogRepository struct {
	db *sql.DB
}

func NewQueryLogRepository(db *sql.DB) *QueryLogRepository {
	return &QueryLogRepository{db: db}
}

const queryLogSchemaLock int64 = 2026082202

const queryLogDDL = `
CREATE TABLE IF NOT EXISTS query_log (
	trace_id TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	action TEXT NOT NULL,
	mode TEXT,
	citation_count INTEGER NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_query_log_created_at ON query_log(created_at DESC);
`

func (r *QueryLogRepository) EnsureSchema(ctx context.Context) error {
	return runSchemaTx(ctx, r.db, queryLogSchemaLock, queryLogDDL)
}

// InsertAnswerRecord is idempotent on trace_id; bus redelivery must not
// produce duplicate rows.
func (r *QueryLogRepository) InsertAnswerRecord(ctx context.Context, record domain.AnswerRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO query_log (
	trace_id, question, answer, action, mode, citation_count, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (trace_id) DO NOTHING
`,
		record.TraceID, record.Question, record.Answer, record.Action, record.Mode,
		record.CitationCount, record.DurationMS, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert answer record: %w", err)
	}
	return nil
}
