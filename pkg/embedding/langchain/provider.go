package langchain

import (
	"context"
	"fmt"

	"ai-act-advisor-be/pkg/embedding"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider wraps a langchaingo embedder.
type Provider struct {
	embedder  embeddings.Embedder
	modelName string
}

var _ embedding.Provider = &Provider{}

// NewOpenAIProvider embeds through any OpenAI-compatible /embeddings endpoint.
func NewOpenAIProvider(apiKey, baseURL, modelName string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key required")
	}
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(modelName),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	e, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("create openai embedder: %w", err)
	}
	return NewProvider(e, modelName), nil
}

func NewProvider(e embeddings.Embedder, modelName string) *Provider {
	return &Provider{embedder: e, modelName: modelName}
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", embedding.ErrEmbedding, p.modelName, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", embedding.ErrEmbedding)
	}
	return vec, nil
}
