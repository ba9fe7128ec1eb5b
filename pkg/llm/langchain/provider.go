// Package langchain adapts langchaingo models to the llm.LLMProvider contract,
// covering any OpenAI-compatible endpoint (OpenAI, vLLM, LM Studio, llama.cpp server).
package langchain

import (
	"context"
	"fmt"

	"ai-act-advisor-be/pkg/llm"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

type Provider struct {
	model     llms.Model
	modelName string
}

var _ llm.LLMProvider = &Provider{}

// NewOpenAIProvider creates a provider backed by langchaingo's OpenAI client.
// baseURL may be empty to use the public OpenAI endpoint.
func NewOpenAIProvider(apiKey, baseURL, modelName string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key required")
	}
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(modelName),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return NewProvider(model, modelName), nil
}

// NewProvider wraps an existing langchaingo model.
func NewProvider(model llms.Model, modelName string) *Provider {
	return &Provider{model: model, modelName: modelName}
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{Temperature: 0.7}, options...)

	messages := make([]llms.MessageContent, 0, len(history))
	for _, m := range history {
		messages = append(messages, llms.TextParts(messageType(m.Role), m.Content))
	}

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	if opts.Model != "" {
		callOpts = append(callOpts, llms.WithModel(opts.Model))
	}

	response, err := p.model.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", fmt.Errorf("%w: generate content: %v", llm.ErrInference, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no response choices", llm.ErrInference)
	}
	return response.Choices[0].Content, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}

func messageType(role string) llms.ChatMessageType {
	switch role {
	case llm.RoleSystem:
		return llms.ChatMessageTypeSystem
	case llm.RoleAssistant, "model":
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
