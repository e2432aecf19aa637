package usecase

import (
	"reflect"
	"strings"
	"testing"

	"github.com/strataworks/geoassist/internal/core/domain"
)

func vectorResult(text string, score float64) domain.SearchResult {
	return domain.SearchResult{
		Text:     text,
		Score:    score,
		Origin:   domain.OriginVector,
		Metadata: map[string]any{"source": "sp22.pdf"},
	}
}

func lexicalResult(text string, score float64) domain.SearchResult {
	return domain.SearchResult{
		Text:     text,
		Score:    score,
		Origin:   domain.OriginLexical,
		Metadata: map[string]any{"source": "sp22.pdf"},
	}
}

func TestSelectModeKeywordThreshold(t *testing.T) {
	tests := []struct {
		name     string
		keywords domain.KeywordSet
		want     domain.RetrievalMode
	}{
		{"no keywords", nil, domain.ModeVectorOnly},
		{"single keyword", domain.KeywordSet{"bearing"}, domain.ModeVectorOnly},
		{"below threshold", domain.KeywordSet{"bearing", "capacity"}, domain.ModeVectorOnly},
		{"at threshold", domain.KeywordSet{"bearing", "capacity", "terzaghi"}, domain.ModeHybrid},
		{"above threshold", domain.KeywordSet{"bearing", "capacity", "terzaghi", "footing"}, domain.ModeHybrid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := selectMode(tc.keywords, DefaultMinKeywords); got != tc.want {
				t.Fatalf("selectMode(%d keywords) = %q, want %q", len(tc.keywords), got, tc.want)
			}
		})
	}
}

func TestFuseResultsOrderingAndTies(t *testing.T) {
	vector := []domain.SearchResult{
		vectorResult("vec-a", 0.9),
		vectorResult("vec-b", 0.5),
	}
	lexical := []domain.SearchResult{
		lexicalResult("lex-c", 0.7),
		lexicalResult("lex-d", 0.5),
	}

	fused := fuseResults(vector, lexical, DefaultHybridVectorChunks)

	wantTexts := []string{"vec-a", "lex-c", "vec-b", "lex-d"}
	if len(fused) != len(wantTexts) {
		t.Fatalf("fused %d results, want %d", len(fused), len(wantTexts))
	}
	for i, want := range wantTexts {
		if fused[i].Text != want {
			t.Fatalf("position %d = %q, want %q", i, fused[i].Text, want)
		}
	}
	for i := 1; i < len(fused); i++ {
		if fused[i].Score > fused[i-1].Score {
			t.Fatalf("scores not descending at %d: %v after %v", i, fused[i].Score, fused[i-1].Score)
		}
	}
}

func TestFuseResultsTrimsVectorBranch(t *testing.T) {
	vector := []domain.SearchResult{
		vectorResult("v1", 0.9),
		vectorResult("v2", 0.8),
		vectorResult("v3", 0.7),
		vectorResult("v4", 0.6),
		vectorResult("v5", 0.55),
	}
	lexical := []domain.SearchResult{lexicalResult("l1", 0.3)}

	fused := fuseResults(vector, lexical, 4)

	if len(fused) != 5 {
		t.Fatalf("fused %d results, want 5", len(fused))
	}
	for _, result := range fused {
		if result.Text == "v5" {
			t.Fatalf("v5 should have been trimmed before fusion")
		}
	}
}

func TestFuseResultsDedupPrefersVector(t *testing.T) {
	shared := strings.Repeat("п", domain.FingerprintChars)
	vector := []domain.SearchResult{vectorResult(shared+" vector tail", 0.4)}
	lexical := []domain.SearchResult{lexicalResult(shared+" lexical tail", 0.9)}

	fused := fuseResults(vector, lexical, DefaultHybridVectorChunks)

	if len(fused) != 1 {
		t.Fatalf("fused %d results, want 1 after dedup", len(fused))
	}
	if fused[0].Origin != domain.OriginVector {
		t.Fatalf("surviving result origin = %q, want %q", fused[0].Origin, domain.OriginVector)
	}
}

func TestFuseResultsDistinctInsideFingerprintWindow(t *testing.T) {
	prefix := strings.Repeat("a", domain.FingerprintChars-1)
	vector := []domain.SearchResult{vectorResult(prefix+"b with a long tail", 0.5)}
	lexical := []domain.SearchResult{lexicalResult(prefix+"c with a long tail", 0.5)}

	fused := fuseResults(vector, lexical, DefaultHybridVectorChunks)

	if len(fused) != 2 {
		t.Fatalf("fused %d results, want 2 for texts diverging inside the prefix window", len(fused))
	}
}

func TestFuseResultsIdempotent(t *testing.T) {
	vector := []domain.SearchResult{
		vectorResult("alpha", 0.8),
		vectorResult("alpha", 0.7),
		vectorResult("beta", 0.6),
	}
	lexical := []domain.SearchResult{
		lexicalResult("beta", 0.9),
		lexicalResult("gamma", 0.2),
	}

	once := fuseResults(vector, lexical, DefaultHybridVectorChunks)
	if len(once) != 3 {
		t.Fatalf("first fusion produced %d results, want 3", len(once))
	}

	twice := fuseResults(once, nil, 0)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("re-fusing an already fused list changed it:\n got %+v\nwant %+v", twice, once)
	}
}

func TestTrimResults(t *testing.T) {
	results := []domain.SearchResult{
		vectorResult("one", 0.9),
		vectorResult("two", 0.8),
	}

	if got := trimResults(results, 0); len(got) != 2 {
		t.Fatalf("limit 0 should keep all results, got %d", len(got))
	}
	if got := trimResults(results, 5); len(got) != 2 {
		t.Fatalf("limit above length should keep all results, got %d", len(got))
	}
	if got := trimResults(results, 1); len(got) != 1 || got[0].Text != "one" {
		t.Fatalf("limit 1 should keep the strongest prefix, got %+v", got)
	}
}
