package gemini

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func newFakeExtractor(response string, err error) *KeywordExtractor {
	e := &KeywordExtractor{model: "gemini-2.5-flash"}
	e.generate = func(context.Context, string) (string, error) {
		return response, err
	}
	return e
}

func TestExtractParsesFencedArray(t *testing.T) {
	e := newFakeExtractor("```json\n[\"СП 22.13330\", \"Несущая способность\"]\n```", nil)

	keywords := e.Extract(context.Background(), "Какая несущая способность по СП 22.13330?")
	want := []string{"сп 22.13330", "несущая способность"}
	if !reflect.DeepEqual([]string(keywords), want) {
		t.Fatalf("keywords = %v, want %v", keywords, want)
	}
	if keywords.Phrase() != "сп 22.13330 несущая способность" {
		t.Fatalf("unexpected phrase %q", keywords.Phrase())
	}
}

func TestExtractReturnsEmptySetOnProviderFailure(t *testing.T) {
	e := newFakeExtractor("", errors.New("quota exceeded"))

	keywords := e.Extract(context.Background(), "осадка фундамента")
	if len(keywords) != 0 {
		t.Fatalf("expected empty set on failure, got %v", keywords)
	}
}

func TestExtractSkipsBlankInput(t *testing.T) {
	called := false
	e := &KeywordExtractor{model: "gemini-2.5-flash"}
	e.generate = func(context.Context, string) (string, error) {
		called = true
		return "[]", nil
	}

	if keywords := e.Extract(context.Background(), "   "); len(keywords) != 0 {
		t.Fatalf("expected empty set for blank input, got %v", keywords)
	}
	if called {
		t.Fatalf("blank input must not reach the provider")
	}
}

func TestExtractPromptContainsQuestion(t *testing.T) {
	var gotPrompt string
	e := &KeywordExtractor{model: "gemini-2.5-flash"}
	e.generate = func(_ context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return `["фундамент"]`, nil
	}

	e.Extract(context.Background(), "Как рассчитать осадку фундамента?")
	if !strings.Contains(gotPrompt, "Как рассчитать осадку фундамента?") {
		t.Fatalf("prompt must embed the question, got %q", gotPrompt)
	}
	if !strings.Contains(gotPrompt, "JSON list of keywords") {
		t.Fatalf("prompt must request a JSON list, got %q", gotPrompt)
	}
}

func TestParseKeywords(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "plain array",
			raw:  `["Terzaghi", "SPT"]`,
			want: []string{"terzaghi", "spt"},
		},
		{
			name: "fenced array",
			raw:  "```json\n[\"свайный фундамент\"]\n```",
			want: []string{"свайный фундамент"},
		},
		{
			name: "single characters dropped",
			raw:  `["b", "осадка", "Ф"]`,
			want: []string{"осадка"},
		},
		{
			name: "non-string entries skipped",
			raw:  `["грунт", 42, null, "свая"]`,
			want: []string{"грунт", "свая"},
		},
		{
			name: "capped at eight",
			raw:  `["k1","k2","k3","k4","k5","k6","k7","k8","k9","k10"]`,
			want: []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8"},
		},
		{
			name: "whitespace trimmed",
			raw:  `["  Несущая способность  "]`,
			want: []string{"несущая способность"},
		},
		{
			name: "invalid json",
			raw:  "keywords: осадка, фундамент",
			want: nil,
		},
		{
			name: "json object instead of array",
			raw:  `{"keywords": ["осадка"]}`,
			want: nil,
		},
		{
			name: "empty array",
			raw:  `[]`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseKeywords(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("parseKeywords(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
