package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"ai-act-advisor-be/pkg/embedding"
	"ai-act-advisor-be/pkg/events"
	"ai-act-advisor-be/pkg/llm"
	"ai-act-advisor-be/pkg/rag/index"
	"ai-act-advisor-be/pkg/rag/interview"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

type downLLM struct{}

func (downLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", fmt.Errorf("%w: connection refused", llm.ErrInference)
}

func (downLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "", fmt.Errorf("%w: connection refused", llm.ErrInference)
}

func TestChatLoopSurvivesFailedTurns(t *testing.T) {
	embedder := embedding.ProviderFunc(func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	})
	idx := index.NewFromChunks([]index.Chunk{{ID: 0, Text: "Article 5 prohibited practices", Embedding: []float32{1, 0}}}, embedder)
	engine := interview.New(interview.Dependencies{LLM: downLLM{}, Index: idx}, interview.Config{MaxQuestions: 3})

	in := strings.NewReader("A chatbot for customer support\n\nreset\nexit\nnever read\n")
	var out bytes.Buffer

	require.NoError(t, chatLoop(context.Background(), engine, in, &out))

	text := out.String()
	assert.Contains(t, text, "up to 3 follow-up questions")
	assert.Contains(t, text, "Turn failed, please retry")
	assert.Contains(t, text, "Session reset.")
	assert.NotContains(t, text, "never read")
}

func TestChatLoopStopsAtEOF(t *testing.T) {
	engine := interview.New(interview.Dependencies{LLM: downLLM{}, Index: index.NewFromChunks(nil, nil)}, interview.Config{})
	var out bytes.Buffer
	assert.NoError(t, chatLoop(context.Background(), engine, strings.NewReader(""), &out))
}

func TestPrintHits(t *testing.T) {
	var out bytes.Buffer
	printHits(&out, index.Result{
		{ChunkID: 7, Score: 0.91234, Text: "Article 6\nClassification   rules", Articles: []string{"Article 6"}},
	})
	text := out.String()
	assert.Contains(t, text, "#1 chunk 7  score 0.912  [Article 6]")
	assert.Contains(t, text, "Article 6 Classification rules")

	out.Reset()
	printHits(&out, nil)
	assert.Equal(t, "No passages found.\n", out.String())
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 10))
	assert.Equal(t, "abc...", snippet("abcdef", 3))
	assert.Equal(t, "é ü", snippet("é\n\nü", 3))
}

func TestPrintEvent(t *testing.T) {
	var out bytes.Buffer
	e := events.BaseEvent{
		Type:       events.SessionClassified,
		Data:       map[string]interface{}{"risk_level": "HIGH_RISK"},
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local),
	}
	printEvent(&out, e)
	assert.Equal(t, "03:04:05 advisor.session_classified {\"risk_level\":\"HIGH_RISK\"}\n", out.String())
}
