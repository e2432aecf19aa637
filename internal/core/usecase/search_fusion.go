package usecase

import (
	"sort"

	"github.com/strataworks/geoassist/internal/core/domain"
)

// selectMode picks the retrieval strategy for one query. Short keyword sets
// signal a conceptual question where lexical matching adds more noise than
// signal.
func selectMode(keywords domain.KeywordSet, minKeywords int) domain.RetrievalMode {
	if len(keywords) < minKeywords {
		return domain.ModeVectorOnly
	}
	return domain.ModeHybrid
}

// trimResults keeps the strongest prefix of an already ranked result list.
func trimResults(results []domain.SearchResult, limit int) []domain.SearchResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}

// fuseResults merges vector and lexical hits into one ranked list. Vector
// results enter first so they win fingerprint collisions, then the union is
// re-sorted by raw score. Scores keep their native store scales; no
// cross-store normalization is applied, and ties keep insertion order.
func fuseResults(vector, lexical []domain.SearchResult, vectorLimit int) []domain.SearchResult {
	vector = trimResults(vector, vectorLimit)

	seen := make(map[string]struct{}, len(vector)+len(lexical))
	fused := make([]domain.SearchResult, 0, len(vector)+len(lexical))
	appendUnique := func(results []domain.SearchResult) {
		for _, result := range results {
			key := result.Fingerprint()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			fused = append(fused, result)
		}
	}
	appendUnique(vector)
	appendUnique(lexical)

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})
	return fused
}
