package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/strataworks/geoassist/internal/core/domain"
	"github.com/strataworks/geoassist/internal/infrastructure/resilience"
)

type Config struct {
	APIKey              string
	BaseURL             string
	ChatModel           string
	EmbedModel          string
	SystemPrompt        string
	MaxCompletionTokens int
	Timeout             time.Duration
	MaxRetries          int
}

type Client struct {
	api                 *openai.Client
	chatModel           string
	embedModel          string
	systemPrompt        string
	maxCompletionTokens int
	executor            *resilience.Executor
}

func New(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:                 openai.NewClientWithConfig(clientCfg),
		chatModel:           cfg.ChatModel,
		embedModel:          cfg.EmbedModel,
		systemPrompt:        cfg.SystemPrompt,
		maxCompletionTokens: cfg.MaxCompletionTokens,
		executor:            resilience.NewExecutor(resilience.ProviderConfig(cfg.MaxRetries)),
	}
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateFromPrompt(ctx context.Context, prompt string) (string, error) {
	return g.client.complete(ctx, prompt, nil)
}

func (g *Generator) GenerateJSONFromPrompt(ctx context.Context, prompt string) (string, error) {
	return g.client.complete(ctx, prompt, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "embed query", fmt.Errorf("empty text"))
	}

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(e.client.embedModel),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	var vector []float32
	err := e.client.executor.Execute(ctx, "openai embed", func(ctx context.Context) error {
		resp, err := e.client.api.CreateEmbeddings(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("empty embedding response")
		}
		vector = resp.Data[0].Embedding
		return nil
	}, classifyOpenAIError)
	if err != nil {
		return nil, resilience.WrapTemporary("openai embed", err, classifyOpenAIError)
	}
	return vector, nil
}

func (c *Client) complete(ctx context.Context, prompt string, format *openai.ChatCompletionResponseFormat) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: c.systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:               c.chatModel,
		Messages:            messages,
		MaxCompletionTokens: c.maxCompletionTokens,
		ResponseFormat:      format,
	}

	var out string
	err := c.executor.Execute(ctx, "openai chat", func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty completion response")
		}
		out = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}, classifyOpenAIError)
	if err != nil {
		return "", resilience.WrapTemporary("openai chat", err, classifyOpenAIError)
	}
	return out, nil
}
