package factory

import (
	"testing"

	"ai-act-advisor-be/pkg/llm/huggingface"
	"ai-act-advisor-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	p, err := NewLLMProvider("ollama", "llama3.1:8b", "", "")
	require.NoError(t, err)
	o, ok := p.(*ollama.OllamaProvider)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:11434", o.BaseURL)

	p, err = NewLLMProvider("huggingface", "meta-llama/Llama-3.1-8B-Instruct", "", "hf_x")
	require.NoError(t, err)
	assert.IsType(t, &huggingface.HuggingFaceProvider{}, p)

	_, err = NewLLMProvider("openai", "gpt-4o-mini", "", "")
	assert.Error(t, err)

	_, err = NewLLMProvider("gemini", "x", "", "")
	assert.EqualError(t, err, "unsupported LLM provider: gemini")
}
