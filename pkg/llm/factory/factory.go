package factory

import (
	"fmt"

	"ai-act-advisor-be/pkg/llm"
	"ai-act-advisor-be/pkg/llm/huggingface"
	"ai-act-advisor-be/pkg/llm/langchain"
	"ai-act-advisor-be/pkg/llm/ollama"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(apiKey, baseURL, modelName), nil
	case "openai":
		return langchain.NewOpenAIProvider(apiKey, baseURL, modelName)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
