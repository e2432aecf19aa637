package domain

import (
	"strings"
	"unicode/utf8"
)

type SearchOrigin string

const (
	OriginVector  SearchOrigin = "vector"
	OriginLexical SearchOrigin = "lexical"
)

type RetrievalMode string

const (
	ModeVectorOnly RetrievalMode = "vector_only"
	ModeHybrid     RetrievalMode = "hybrid"
)

type StoreKind string

const (
	StoreVector  StoreKind = "vector"
	StoreLexical StoreKind = "lexical"
)

// SearchResult is one retrieved passage. Adapters validate results at the
// boundary: entries failing Valid() never reach fusion.
type SearchResult struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Origin   SearchOrigin   `json:"origin"`
}

func (r SearchResult) Source() string {
	if r.Metadata == nil {
		return ""
	}
	source, _ := r.Metadata["source"].(string)
	return strings.TrimSpace(source)
}

func (r SearchResult) PageIndex() (int, bool) {
	if r.Metadata == nil {
		return 0, false
	}
	switch v := r.Metadata["page_index"].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func (r SearchResult) Valid() bool {
	return strings.TrimSpace(r.Text) != "" && r.Source() != ""
}

// FingerprintChars is the prefix length used to detect near-identical
// passages coming back from both stores.
const FingerprintChars = 100

func (r SearchResult) Fingerprint() string {
	if utf8.RuneCountInString(r.Text) <= FingerprintChars {
		return r.Text
	}
	return string([]rune(r.Text)[:FingerprintChars])
}

type Citation struct {
	SourceName      string  `json:"source_name"`
	Content         string  `json:"content"`
	ConfidenceScore float64 `json:"confidence_score"`
	PageIndex       *int    `json:"page_index,omitempty"`
}

type SearchQuery struct {
	RawText        string
	TopK           int
	ScoreThreshold float64
}

// KeywordSet is the ordered lexical search vocabulary for one query,
// lowercase, at most MaxKeywords entries.
type KeywordSet []string

const MaxKeywords = 8

func (k KeywordSet) Phrase() string {
	return strings.Join(k, " ")
}

type HealthStatus struct {
	Store   StoreKind `json:"store"`
	Healthy bool      `json:"healthy"`
	Detail  string    `json:"detail,omitempty"`
}

// RetrievalOutcome is the typed result of one retrieval run. Notes carry
// degradation reasons (hybrid fell back, embedding failed); an empty Notes
// slice means the requested mode ran clean.
type RetrievalOutcome struct {
	Citations []Citation    `json:"citations"`
	Mode      RetrievalMode `json:"mode"`
	Notes     []string      `json:"notes,omitempty"`
}
