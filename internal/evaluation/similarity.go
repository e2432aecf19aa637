package evaluation

import (
	"math"
	"strings"
)

// technicalTerms are the geotechnical markers an answer is expected to
// carry over from the reference text. Matching is case-insensitive and
// substring-based so inflected forms still count.
var technicalTerms = []string{
	"CPT",
	"liquefaction",
	"bearing capacity",
	"settlement",
	"shear strength",
	"friction angle",
	"consolidation",
	"Terzaghi",
	"formula",
	"equation",
}

// Similarity holds the lexical scores of a generated answer against the
// reference answer. All scores live in [0, 1] rounded to three decimals.
type Similarity struct {
	Jaccard            float64 `json:"jaccard_similarity"`
	WordOverlap        float64 `json:"word_overlap_score"`
	TechnicalTerms     float64 `json:"technical_terms_score"`
	ExpectedTermCount  int     `json:"expected_technical_terms"`
	GeneratedTermCount int     `json:"generated_technical_terms"`
	MatchedTermCount   int     `json:"technical_match_count"`
}

// AnswerSimilarity scores generated against expected on three axes:
// Jaccard over the word sets, overlap relative to the expected words,
// and recall of the technical terms present in the expected answer.
func AnswerSimilarity(generated, expected string) Similarity {
	genWords := wordSet(generated)
	expWords := wordSet(expected)

	common := 0
	for word := range genWords {
		if _, ok := expWords[word]; ok {
			common++
		}
	}
	union := len(genWords) + len(expWords) - common

	var jaccard, overlap float64
	if union > 0 {
		jaccard = float64(common) / float64(union)
	}
	if len(expWords) > 0 {
		overlap = float64(common) / float64(len(expWords))
	}

	expTerms := termsPresent(expected)
	genTerms := termsPresent(generated)
	matched := 0
	for _, term := range expTerms {
		if containsTerm(genTerms, term) {
			matched++
		}
	}

	technical := 1.0
	if len(expTerms) > 0 {
		technical = float64(matched) / float64(len(expTerms))
	}

	return Similarity{
		Jaccard:            round3(jaccard),
		WordOverlap:        round3(overlap),
		TechnicalTerms:     round3(technical),
		ExpectedTermCount:  len(expTerms),
		GeneratedTermCount: len(genTerms),
		MatchedTermCount:   matched,
	}
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}

func termsPresent(text string) []string {
	lower := strings.ToLower(text)
	var present []string
	for _, term := range technicalTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			present = append(present, term)
		}
	}
	return present
}

func containsTerm(terms []string, term string) bool {
	for _, candidate := range terms {
		if candidate == term {
			return true
		}
	}
	return false
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
