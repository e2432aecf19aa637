package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/strataworks/geoassist/internal/core/domain"
)

const extractionPromptFormat = `Extract the most important keywords from this query for document search. Focus on:
- Proper nouns (names, software, standards)
- Technical terms and jargon
- Key concepts that define user intention
- Domain-specific terminology

Query: "%s"

Return only a JSON list of keywords (truly important ones):
["keyword1", "keyword2", ...]

Keywords:`

// KeywordExtractor derives the lexical search vocabulary from a question.
// Extract never fails: any provider or parse problem yields an empty set,
// which forces the engine into vector-only mode.
type KeywordExtractor struct {
	client *genai.Client
	model  string

	generate func(ctx context.Context, prompt string) (string, error)
}

func NewKeywordExtractor(ctx context.Context, apiKey, model string) (*KeywordExtractor, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	e := &KeywordExtractor{
		client: client,
		model:  model,
	}
	e.generate = e.generateContent
	return e, nil
}

func (e *KeywordExtractor) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

func (e *KeywordExtractor) Extract(ctx context.Context, text string) domain.KeywordSet {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	raw, err := e.generate(ctx, fmt.Sprintf(extractionPromptFormat, text))
	if err != nil {
		slog.Warn("keyword_extraction_failed", "error", err)
		return nil
	}
	return domain.KeywordSet(parseKeywords(raw))
}

func (e *KeywordExtractor) generateContent(ctx context.Context, prompt string) (string, error) {
	model := e.client.GenerativeModel(e.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response candidates")
	}
	if txt, ok := resp.Candidates[0].Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}
	return "", fmt.Errorf("unexpected response part type")
}

// parseKeywords accepts a JSON string array, optionally inside a markdown
// code fence. Entries are lowercased; single-character and non-string
// entries are dropped; at most MaxKeywords survive.
func parseKeywords(raw string) []string {
	content := strings.TrimSpace(raw)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var parsed []any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil
	}

	out := make([]string, 0, len(parsed))
	for _, item := range parsed {
		kw, ok := item.(string)
		if !ok {
			continue
		}
		kw = strings.TrimSpace(kw)
		if utf8.RuneCountInString(kw) <= 1 {
			continue
		}
		out = append(out, strings.ToLower(kw))
		if len(out) == domain.MaxKeywords {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
