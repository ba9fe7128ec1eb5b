package embedding

import (
	"context"
	"errors"
)

// ErrEmbedding marks any failure to turn text into a vector.
var ErrEmbedding = errors.New("embedding service unavailable")

// Provider defines the interface for generating text embeddings
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, text string) ([]float32, error)

func (f ProviderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}
