package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/strataworks/geoassist/internal/core/domain"
	"github.com/strataworks/geoassist/internal/core/ports"
)

const (
	DefaultTopK               = 3
	DefaultScoreThreshold     = 0.1
	DefaultMinKeywords        = 3
	DefaultHybridVectorChunks = 4
	DefaultKeywordChunks      = 3
)

// SearchConfig carries the retrieval tuning knobs. Zero values fall back to
// the production defaults above.
type SearchConfig struct {
	TopK               int
	ScoreThreshold     float64
	MinKeywords        int
	HybridVectorChunks int
	KeywordChunks      int
}

func (c SearchConfig) normalize() SearchConfig {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = DefaultScoreThreshold
	}
	if c.MinKeywords <= 0 {
		c.MinKeywords = DefaultMinKeywords
	}
	if c.HybridVectorChunks <= 0 {
		c.HybridVectorChunks = DefaultHybridVectorChunks
	}
	if c.KeywordChunks <= 0 {
		c.KeywordChunks = DefaultKeywordChunks
	}
	return c
}

// SearchUseCase implements adaptive hybrid retrieval over one vector store
// and one lexical document store. Mode selection, fusion and the
// reconnect-once resilience policy all live here; adapters stay dumb.
type SearchUseCase struct {
	embedder  ports.Embedder
	vectors   ports.VectorStore
	documents ports.DocumentStore
	keywords  ports.KeywordExtractor
	guard     *storeGuard
	cfg       SearchConfig
}

func NewSearchUseCase(
	embedder ports.Embedder,
	vectors ports.VectorStore,
	documents ports.DocumentStore,
	keywords ports.KeywordExtractor,
	cfg SearchConfig,
) *SearchUseCase {
	return &SearchUseCase{
		embedder:  embedder,
		vectors:   vectors,
		documents: documents,
		keywords:  keywords,
		guard:     newStoreGuard(),
		cfg:       cfg.normalize(),
	}
}

// Search runs the full retrieval flow for one query. Connectivity failures
// that survive one reconnect and one retry come back as ErrStoreUnavailable;
// every other failure degrades to an empty outcome so callers can keep
// answering.
func (uc *SearchUseCase) Search(ctx context.Context, query domain.SearchQuery) (domain.RetrievalOutcome, error) {
	query = uc.normalizeQuery(query)
	if query.RawText == "" {
		return domain.RetrievalOutcome{}, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("empty query"))
	}

	if err := uc.ensureHealthy(ctx); err != nil {
		return domain.RetrievalOutcome{}, err
	}

	outcome, err := uc.runSearch(ctx, query)
	if err != nil {
		var storeErr *domain.StoreError
		if errors.As(err, &storeErr) {
			if rerr := uc.restoreFromError(ctx, storeErr); rerr != nil {
				return domain.RetrievalOutcome{}, rerr
			}
			outcome, err = uc.runSearch(ctx, query)
		}
	}
	if err != nil {
		if domain.IsKind(err, domain.ErrStoreUnavailable) {
			return domain.RetrievalOutcome{}, err
		}
		slog.Error("retrieval failed, returning empty citation set", "error", err)
		return domain.RetrievalOutcome{
			Mode:  domain.ModeVectorOnly,
			Notes: []string{"retrieval failed: " + err.Error()},
		}, nil
	}
	return outcome, nil
}

// HealthStates reports the last observed connection state per store.
func (uc *SearchUseCase) HealthStates() []domain.HealthStatus {
	kinds := []domain.StoreKind{domain.StoreVector, domain.StoreLexical}
	states := make([]domain.HealthStatus, 0, len(kinds))
	for _, kind := range kinds {
		states = append(states, domain.HealthStatus{Store: kind, Healthy: uc.guard.isHealthy(kind)})
	}
	return states
}

func (uc *SearchUseCase) normalizeQuery(query domain.SearchQuery) domain.SearchQuery {
	query.RawText = strings.TrimSpace(query.RawText)
	if query.TopK <= 0 {
		query.TopK = uc.cfg.TopK
	}
	if query.ScoreThreshold <= 0 {
		query.ScoreThreshold = uc.cfg.ScoreThreshold
	}
	return query
}

// ensureHealthy probes both stores before any retrieval work. A failing
// probe triggers the single-reconnect recovery sequence immediately; a
// store that stays down fails the whole search.
func (uc *SearchUseCase) ensureHealthy(ctx context.Context) error {
	stores := []struct {
		kind  domain.StoreKind
		store ports.StoreLifecycle
	}{
		{domain.StoreVector, uc.vectors},
		{domain.StoreLexical, uc.documents},
	}
	for _, entry := range stores {
		status := entry.store.HealthCheck(ctx)
		if status.Healthy {
			uc.guard.set(entry.kind, true)
			continue
		}
		slog.Warn("store health check failed", "store", string(entry.kind), "detail", status.Detail)
		if err := uc.guard.restore(ctx, entry.kind, entry.store); err != nil {
			return err
		}
	}
	return nil
}

func (uc *SearchUseCase) restoreFromError(ctx context.Context, storeErr *domain.StoreError) error {
	store := uc.lifecycleFor(storeErr.Store)
	if store == nil {
		return storeErr
	}
	slog.Warn("store failed mid-search", "store", string(storeErr.Store), "error", storeErr.Err)
	return uc.guard.restore(ctx, storeErr.Store, store)
}

func (uc *SearchUseCase) lifecycleFor(kind domain.StoreKind) ports.StoreLifecycle {
	switch kind {
	case domain.StoreVector:
		return uc.vectors
	case domain.StoreLexical:
		return uc.documents
	default:
		return nil
	}
}

// runSearch executes one retrieval attempt: embedding plus vector search in
// one goroutine, keyword extraction in another, then mode selection and
// fusion. Lexical search waits for the keyword set, so it runs after the
// fan-in.
func (uc *SearchUseCase) runSearch(ctx context.Context, query domain.SearchQuery) (domain.RetrievalOutcome, error) {
	var (
		vectorResults []domain.SearchResult
		keywords      domain.KeywordSet
		embedFailed   bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vector, err := uc.embedder.EmbedQuery(gctx, query.RawText)
		if err != nil {
			slog.Warn("query embedding failed, skipping vector search", "error", err)
			embedFailed = true
			return nil
		}
		results, err := uc.vectors.Search(gctx, vector, query.TopK, query.ScoreThreshold)
		if err != nil {
			return err
		}
		vectorResults = results
		return nil
	})
	g.Go(func() error {
		keywords = uc.keywords.Extract(gctx, query.RawText)
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.RetrievalOutcome{}, err
	}

	var notes []string
	if embedFailed {
		notes = append(notes, "vector search skipped: embedding unavailable")
	}

	mode := selectMode(keywords, uc.cfg.MinKeywords)
	results := vectorResults
	if mode == domain.ModeHybrid {
		lexical, err := uc.documents.SearchText(ctx, keywords.Phrase(), uc.cfg.KeywordChunks)
		switch {
		case err == nil:
			results = fuseResults(vectorResults, lexical, uc.cfg.HybridVectorChunks)
		case isStoreError(err):
			return domain.RetrievalOutcome{}, err
		default:
			slog.Warn("lexical search failed, degrading to vector results", "error", err)
			notes = append(notes, "lexical search unavailable, vector results only")
		}
	}

	return domain.RetrievalOutcome{
		Citations: assembleCitations(results),
		Mode:      mode,
		Notes:     notes,
	}, nil
}

func isStoreError(err error) bool {
	var storeErr *domain.StoreError
	return errors.As(err, &storeErr)
}

// assembleCitations projects ranked results into the citation shape exposed
// to the orchestrator and the API.
func assembleCitations(results []domain.SearchResult) []domain.Citation {
	citations := make([]domain.Citation, 0, len(results))
	for _, result := range results {
		citation := domain.Citation{
			SourceName:      result.Source(),
			Content:         result.Text,
			ConfidenceScore: result.Score,
		}
		if citation.SourceName == "" {
			citation.SourceName = "unknown"
		}
		if page, ok := result.PageIndex(); ok {
			citation.PageIndex = &page
		}
		citations = append(citations, citation)
	}
	return citations
}
