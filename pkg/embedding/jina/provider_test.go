package jina

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-act-advisor-be/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJinaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"object":"embedding","index":0,"embedding":[0.1,0.2]}]}`))
	}))
	defer srv.Close()

	vec, err := NewJinaProvider("key", "").WithBaseURL(srv.URL).Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
}

func TestJinaErrors(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
	}{
		{name: "unauthorized", code: http.StatusUnauthorized, body: `{"detail":"bad key"}`},
		{name: "api error", code: http.StatusOK, body: `{"error":{"message":"quota"}}`},
		{name: "no data", code: http.StatusOK, body: `{"data":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewJinaProvider("key", "").WithBaseURL(srv.URL).Embed(context.Background(), "x")
			assert.ErrorIs(t, err, embedding.ErrEmbedding)
		})
	}
}
