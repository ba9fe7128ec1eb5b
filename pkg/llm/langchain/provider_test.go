package langchain

import (
	"context"
	"errors"
	"testing"

	"ai-act-advisor-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	reply    *llms.ContentResponse
	err      error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	return f.reply, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestChatMapsRolesAndOptions(t *testing.T) {
	model := &fakeModel{reply: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "ok"}},
	}}
	p := NewProvider(model, "gpt-4o-mini")

	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "be brief"},
		{Role: llm.RoleUser, Content: "hello"},
		{Role: llm.RoleAssistant, Content: "hi"},
	}, llm.WithTemperature(0.2), llm.WithMaxTokens(4000))

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	require.Len(t, model.messages, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, model.messages[2].Role)
	assert.Equal(t, 0.2, model.opts.Temperature)
	assert.Equal(t, 4000, model.opts.MaxTokens)
}

func TestChatErrors(t *testing.T) {
	_, err := NewProvider(&fakeModel{err: errors.New("boom")}, "m").Generate(context.Background(), "x")
	assert.ErrorIs(t, err, llm.ErrInference)

	_, err = NewProvider(&fakeModel{reply: &llms.ContentResponse{}}, "m").Generate(context.Background(), "x")
	assert.ErrorIs(t, err, llm.ErrInference)
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider("", "", "gpt-4o-mini")
	assert.Error(t, err)
}
