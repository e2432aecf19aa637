package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/strataworks/geoassist/internal/core/domain"
)

// PassageStore serves full-text search over the passages table. Reconnect
// opens a fresh pool, validates it, then swaps it in; the old pool is closed
// only after the swap.
type PassageStore struct {
	dsn  string
	open func(dsn string) (*sql.DB, error)

	mu sync.RWMutex
	db *sql.DB
}

func NewPassageStore(db *sql.DB, dsn string) *PassageStore {
	return &PassageStore{
		dsn:  dsn,
		open: OpenDB,
		db:   db,
	}
}

const passagesSchemaLock int64 = 2026082201

const passagesDDL = `
CREATE TABLE IF NOT EXISTS passages (
	id BIGSERIAL PRIMARY KEY,
	doc_id TEXT NOT NULL,
	source TEXT NOT NULL,
	page_index INTEGER,
	content TEXT NOT NULL,
	tsv TSVECTOR GENERATED ALWAYS AS (to_tsvector('russian', content)) STORED
);

CREATE INDEX IF NOT EXISTS idx_passages_tsv ON passages USING GIN(tsv);
CREATE INDEX IF NOT EXISTS idx_passages_source ON passages(source);
`

func (s *PassageStore) EnsureSchema(ctx context.Context) error {
	return runSchemaTx(ctx, s.handle(), passagesSchemaLock, passagesDDL)
}

// SearchText ranks passages against the phrase with ts_rank. Scores keep
// their native text-relevance scale; no floor is applied.
func (s *PassageStore) SearchText(ctx context.Context, phrase string, limit int) ([]domain.SearchResult, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil, nil
	}

	rows, err := s.handle().QueryContext(ctx, `
SELECT content, source, page_index, ts_rank(tsv, query)::float8 AS rank
FROM passages, websearch_to_tsquery('russian', $1) query
WHERE tsv @@ query
ORDER BY rank DESC
LIMIT $2
`, phrase, limit)
	if err != nil {
		return nil, s.storeErr("text search", err)
	}
	defer rows.Close()

	var out []domain.SearchResult
	for rows.Next() {
		var (
			content string
			source  string
			page    sql.NullInt64
			rank    float64
		)
		if err := rows.Scan(&content, &source, &page, &rank); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}

		meta := map[string]any{"source": source}
		if page.Valid {
			meta["page_index"] = int(page.Int64)
		}
		result := domain.SearchResult{
			Text:     content,
			Score:    rank,
			Metadata: meta,
			Origin:   domain.OriginLexical,
		}
		if !result.Valid() {
			continue
		}
		out = append(out, result)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storeErr("text search", err)
	}
	return out, nil
}

// HealthCheck probes the live pool on every call; no state is cached.
func (s *PassageStore) HealthCheck(ctx context.Context) domain.HealthStatus {
	db := s.handle()
	if err := db.PingContext(ctx); err != nil {
		return domain.HealthStatus{Store: domain.StoreLexical, Healthy: false, Detail: err.Error()}
	}
	var one int
	if err := db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return domain.HealthStatus{Store: domain.StoreLexical, Healthy: false, Detail: err.Error()}
	}
	return domain.HealthStatus{Store: domain.StoreLexical, Healthy: true}
}

func (s *PassageStore) Reconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	replacement, err := s.open(s.dsn)
	if err != nil {
		return domain.NewStoreError(domain.StoreLexical, "reconnect", err)
	}
	if err := replacement.PingContext(ctx); err != nil {
		_ = replacement.Close()
		return domain.NewStoreError(domain.StoreLexical, "reconnect", err)
	}

	s.mu.Lock()
	old := s.db
	s.db = replacement
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

func (s *PassageStore) handle() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// storeErr wraps query failures as store errors so the caller's recovery
// path can classify them. Context cancellation passes through untouched.
func (s *PassageStore) storeErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.NewStoreError(domain.StoreLexical, op, err)
}
