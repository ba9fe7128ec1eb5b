// Package index holds the regulation passages and answers nearest-neighbour
// queries over them with exact cosine similarity.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"ai-act-advisor-be/internal/pkg/logger"
	"ai-act-advisor-be/pkg/embedding"
	"ai-act-advisor-be/pkg/rag/report"
	"ai-act-advisor-be/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// ErrIndexBuild is fatal: the advisor cannot run without its passages.
var ErrIndexBuild = errors.New("passage index build failed")

const (
	DefaultWindowSize  = 800
	DefaultConcurrency = 4
)

// Chunk is one overlapping window of the source text. Chunks are never
// modified after Build returns.
type Chunk struct {
	ID           int
	Text         string
	Embedding    []float32
	SourceOffset int
	Articles     []string
}

type Hit struct {
	ChunkID  int      `json:"chunk_id"`
	Score    float64  `json:"score"`
	Text     string   `json:"text"`
	Articles []string `json:"articles,omitempty"`
}

// Result is ordered by descending score; equal scores keep chunk order.
type Result []Hit

// Articles returns the article references of all hits, deduplicated in hit order.
func (r Result) Articles() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, h := range r {
		for _, a := range h.Articles {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}

type options struct {
	windowSize  int
	concurrency int
	logger      logger.ILogger
}

type Option func(*options)

// WithWindowSize sets the chunk window in runes. Overlap is always a quarter of it.
func WithWindowSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.windowSize = n
		}
	}
}

// WithConcurrency bounds the number of embedding calls in flight during Build.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func WithLogger(l logger.ILogger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// PassageIndex is safe for concurrent Query calls.
type PassageIndex struct {
	chunks   []Chunk
	embedder embedding.Provider
	logger   logger.ILogger
}

// Build chunks source, embeds every chunk and returns the finished index.
func Build(ctx context.Context, source string, embedder embedding.Provider, opts ...Option) (*PassageIndex, error) {
	o := options{
		windowSize:  DefaultWindowSize,
		concurrency: DefaultConcurrency,
		logger:      logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: source text is empty", ErrIndexBuild)
	}

	windows := utils.SplitWindows(source, o.windowSize, o.windowSize/4)
	chunks := make([]Chunk, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, w := range windows {
		i, w := i, w
		g.Go(func() error {
			vec, err := embedder.Embed(gctx, w.Text)
			if err != nil {
				return fmt.Errorf("%w: chunk %d: %v", ErrIndexBuild, i, err)
			}
			chunks[i] = Chunk{
				ID:           i,
				Text:         w.Text,
				Embedding:    vec,
				SourceOffset: w.Offset,
				Articles:     report.ExtractArticleRefs(w.Text),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		o.logger.Error("INDEX", "Index build failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	o.logger.Info("INDEX", "Passage index built", map[string]interface{}{
		"chunks":      len(chunks),
		"window_size": o.windowSize,
		"source_len":  len([]rune(source)),
	})
	return &PassageIndex{chunks: chunks, embedder: embedder, logger: o.logger}, nil
}

// NewFromChunks wraps chunks that already carry embeddings.
func NewFromChunks(chunks []Chunk, embedder embedding.Provider) *PassageIndex {
	return &PassageIndex{
		chunks:   append([]Chunk(nil), chunks...),
		embedder: embedder,
		logger:   logger.NewNopLogger(),
	}
}

func (p *PassageIndex) Len() int {
	return len(p.chunks)
}

// Query embeds text and returns the k most similar chunks.
func (p *PassageIndex) Query(ctx context.Context, text string, k int) (Result, error) {
	if k <= 0 || len(p.chunks) == 0 {
		return Result{}, nil
	}

	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, embedding.ErrEmbedding) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", embedding.ErrEmbedding, err)
	}

	hits := make(Result, len(p.chunks))
	for i, c := range p.chunks {
		hits[i] = Hit{
			ChunkID:  c.ID,
			Score:    Cosine(vec, c.Embedding),
			Text:     c.Text,
			Articles: c.Articles,
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	p.logger.Debug("INDEX", "Query served", map[string]interface{}{
		"k":         k,
		"hits":      len(hits),
		"top_score": hits[0].Score,
	})
	return hits, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero
// vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
