package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/strataworks/geoassist/internal/config"
	"github.com/strataworks/geoassist/internal/core/domain"
	"github.com/strataworks/geoassist/internal/core/ports"
	"github.com/strataworks/geoassist/internal/core/usecase"
	"github.com/strataworks/geoassist/internal/infrastructure/docstore/postgres"
	"github.com/strataworks/geoassist/internal/infrastructure/llm/gemini"
	"github.com/strataworks/geoassist/internal/infrastructure/llm/openai"
	"github.com/strataworks/geoassist/internal/infrastructure/queue/nats"
	"github.com/strataworks/geoassist/internal/infrastructure/vector/qdrant"
)

// App wires the retrieval engine, the agent loop and the audit pipeline
// once; every binary picks the pieces it serves.
type App struct {
	Config config.Config

	Search   *usecase.SearchUseCase
	Ask      *usecase.AskUseCase
	Recorder *usecase.RecordUseCase
	Queue    *nats.Queue

	closeFn func()
}

// Options carries per-binary hooks that cannot come from the environment.
type Options struct {
	// EmbedCacheLookup observes every query embedding cache lookup.
	EmbedCacheLookup func(hit bool)
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("doc store: %w", err)
	}
	passages := postgres.NewPassageStore(db, cfg.PostgresDSN)
	queryLog := postgres.NewQueryLogRepository(db)
	if err := passages.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure passages schema: %w", err)
	}
	if err := queryLog.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure query log schema: %w", err)
	}

	vectors := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	prompts, systemPrompt := loadPrompts(cfg.AgentConfigPath)

	llm := openai.New(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		ChatModel:           cfg.OpenAIModel,
		EmbedModel:          cfg.OpenAIEmbedModel,
		SystemPrompt:        systemPrompt,
		MaxCompletionTokens: cfg.LLMMaxCompletionTokens,
		Timeout:             time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
		MaxRetries:          cfg.LLMMaxRetries,
	})
	generator := openai.NewGenerator(llm)
	embedder := openai.NewCachedEmbedder(openai.NewEmbedder(llm), cfg.EmbedCacheSize, opts.EmbedCacheLookup)

	keywords, closeKeywords, err := buildKeywordExtractor(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		closeKeywords()
		_ = db.Close()
		return nil, fmt.Errorf("answer bus: %w", err)
	}

	search := usecase.NewSearchUseCase(embedder, vectors, passages, keywords, usecase.SearchConfig{
		TopK:               cfg.RAGTopK,
		ScoreThreshold:     cfg.RAGScoreThreshold,
		MinKeywords:        cfg.RAGMinKeywords,
		HybridVectorChunks: cfg.RAGHybridVectorChunks,
		KeywordChunks:      cfg.RAGKeywordChunks,
	})
	ask := usecase.NewAskUseCase(generator, search, queue, prompts, usecase.AskLimits{
		PlannerTimeout:   time.Duration(cfg.AgentPlannerTimeoutSeconds) * time.Second,
		ToolTimeout:      time.Duration(cfg.AgentToolTimeoutSeconds) * time.Second,
		SynthesisTimeout: time.Duration(cfg.AgentSynthesisTimeoutSeconds) * time.Second,
	})

	return &App{
		Config:   cfg,
		Search:   search,
		Ask:      ask,
		Recorder: usecase.NewRecordUseCase(queryLog),
		Queue:    queue,

		closeFn: func() {
			queue.Close()
			closeKeywords()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// loadPrompts reads the agent YAML. Any load failure falls back to the
// built-in prompt set so the binaries start without the file.
func loadPrompts(path string) (usecase.PromptSet, string) {
	agentCfg, err := config.LoadAgentConfig(path)
	if err != nil {
		slog.Warn("agent config not loaded, using built-in prompts", "path", path, "error", err)
		return usecase.PromptSet{}, ""
	}
	return usecase.PromptSet{
		Planner:    agentCfg.PlanningPrompt,
		Synthesis:  agentCfg.SynthesisPrompt,
		OutOfScope: agentCfg.OutOfScope,
	}, agentCfg.SystemPrompt
}

// buildKeywordExtractor returns the Gemini-backed extractor when a key is
// configured. Without a key every search runs vector-only.
func buildKeywordExtractor(ctx context.Context, cfg config.Config) (ports.KeywordExtractor, func(), error) {
	if cfg.GeminiAPIKey == "" {
		slog.Warn("gemini api key not set, keyword extraction disabled")
		return disabledKeywords{}, func() {}, nil
	}
	extractor, err := gemini.NewKeywordExtractor(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, nil, fmt.Errorf("init keyword extractor: %w", err)
	}
	return extractor, func() {
		if err := extractor.Close(); err != nil {
			slog.Warn("keyword extractor close failed", "error", err)
		}
	}, nil
}

type disabledKeywords struct{}

func (disabledKeywords) Extract(context.Context, string) domain.KeywordSet { return nil }
