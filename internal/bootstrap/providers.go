package bootstrap

import (
	"context"
	"fmt"
	"time"

	"ai-act-advisor-be/internal/config"
	"ai-act-advisor-be/internal/pkg/logger"
	"ai-act-advisor-be/pkg/embedding"
	"ai-act-advisor-be/pkg/embedding/jina"
	lcEmbedding "ai-act-advisor-be/pkg/embedding/langchain"
	"ai-act-advisor-be/pkg/llm"
	"ai-act-advisor-be/pkg/llm/factory"
	"ai-act-advisor-be/pkg/loader"
	"ai-act-advisor-be/pkg/rag/index"

	"github.com/redis/go-redis/v9"
)

const embeddingCacheTTL = 7 * 24 * time.Hour

// Providers holds the model backends shared by the REST server and the CLI.
type Providers struct {
	LLM      llm.LLMProvider
	Embedder embedding.Provider
	Redis    *redis.Client
}

// Health returns the LLM's health checker, or nil when it cannot report one.
func (p *Providers) Health() llm.HealthChecker {
	if hc, ok := p.LLM.(llm.HealthChecker); ok {
		return hc
	}
	return nil
}

func (p *Providers) Close() {
	if p.Redis != nil {
		_ = p.Redis.Close()
	}
}

func NewProviders(cfg *config.Config, sysLogger logger.ILogger) (*Providers, error) {
	baseURL := cfg.Ai.LLMBaseURL
	if baseURL == "" && cfg.Ai.LLMProvider == "ollama" {
		baseURL = cfg.Ai.OllamaBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, baseURL, cfg.Ai.LLMAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	sysLogger.Info("BOOTSTRAP", "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	var base embedding.Provider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		base = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	case "jina":
		base = jina.NewJinaProvider(cfg.Ai.EmbeddingAPIKey, cfg.Ai.EmbeddingModel)
	case "openai":
		base, err = lcEmbedding.NewOpenAIProvider(cfg.Ai.EmbeddingAPIKey, "", cfg.Ai.EmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Ai.EmbeddingProvider)
	}

	p := &Providers{LLM: llmProvider, Embedder: base}
	namespace := cfg.Ai.EmbeddingProvider + ":" + cfg.Ai.EmbeddingModel

	switch cfg.Ai.EmbeddingCache {
	case "redis":
		rdb := newRedisClient(cfg.App.RedisURL, sysLogger)
		if rdb != nil {
			p.Redis = rdb
			p.Embedder = embedding.NewCachedProvider(base, embedding.NewRedisVectorCache(rdb, embeddingCacheTTL), namespace, sysLogger)
			break
		}
		sysLogger.Warn("BOOTSTRAP", "Redis unavailable, using in-memory embedding cache", nil)
		p.Embedder = embedding.NewCachedProvider(base, embedding.NewMemoryVectorCache(embeddingCacheTTL), namespace, sysLogger)
	case "memory":
		p.Embedder = embedding.NewCachedProvider(base, embedding.NewMemoryVectorCache(embeddingCacheTTL), namespace, sysLogger)
	}

	sysLogger.Info("BOOTSTRAP", "Embedding provider ready", map[string]interface{}{
		"provider": cfg.Ai.EmbeddingProvider,
		"model":    cfg.Ai.EmbeddingModel,
		"cache":    cfg.Ai.EmbeddingCache,
	})
	return p, nil
}

// newRedisClient returns nil when the server does not answer a ping.
func newRedisClient(url string, sysLogger logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// BuildIndex loads the configured source and embeds it.
func BuildIndex(ctx context.Context, cfg *config.Config, embedder embedding.Provider, sysLogger logger.ILogger) (*index.PassageIndex, error) {
	l, err := loader.NewSourceLoader(ctx, sysLogger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", index.ErrIndexBuild, err)
	}
	text, err := l.Load(ctx, cfg.Corpus.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", index.ErrIndexBuild, err)
	}

	return index.Build(ctx, text, embedder,
		index.WithWindowSize(cfg.Corpus.WindowSize),
		index.WithConcurrency(cfg.Corpus.EmbedConcurrency),
		index.WithLogger(sysLogger),
	)
}
