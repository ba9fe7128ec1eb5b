package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-act-advisor-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer hf_key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "meta-llama/Llama-3.1-8B-Instruct", req.Model)
		assert.Equal(t, 0.2, req.Temperature)
		assert.Equal(t, 4000, req.MaxTokens)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Risk Level: HIGH_RISK"}}]}`))
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider("hf_key", srv.URL, "meta-llama/Llama-3.1-8B-Instruct")
	out, err := p.Generate(context.Background(), "classify", llm.WithTemperature(0.2), llm.WithMaxTokens(4000))
	require.NoError(t, err)
	assert.Equal(t, "Risk Level: HIGH_RISK", out)
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
	}{
		{name: "status", code: http.StatusServiceUnavailable, body: `loading`},
		{name: "api error", code: http.StatusOK, body: `{"error":{"message":"model overloaded"}}`},
		{name: "no choices", code: http.StatusOK, body: `{"choices":[]}`},
		{name: "bad json", code: http.StatusOK, body: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHuggingFaceProvider("", srv.URL, "m").Generate(context.Background(), "x")
			assert.ErrorIs(t, err, llm.ErrInference)
		})
	}
}
