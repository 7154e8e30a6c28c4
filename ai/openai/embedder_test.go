package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poiesic/wayfarer/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"), r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewEmbedder_InvalidConfig(t *testing.T) {
	_, err := NewEmbedder(&ai.Config{EmbeddingHost: "http://localhost:1/v1"})
	assert.Error(t, err)
}

func TestEmbedText(t *testing.T) {
	srv := embeddingServer(t, http.StatusOK, `{
		"object": "list",
		"data": [{"object": "embedding", "index": 0, "embedding": [0.25, -0.5, 1.0]}],
		"model": "text-embedding-3-small",
		"usage": {"prompt_tokens": 3, "total_tokens": 3}
	}`)

	embedder, err := NewEmbedder(ai.NewConfig(ai.WithEmbeddingHost(srv.URL), ai.WithAPIKey("sk-test")))
	require.NoError(t, err)

	vec, err := embedder.EmbedText(context.Background(), "Grand Hotel Paris")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1.0}, vec)
}

func TestEmbedText_ServerError(t *testing.T) {
	srv := embeddingServer(t, http.StatusInternalServerError, `{"error": {"message": "boom", "type": "server_error"}}`)

	embedder, err := NewEmbedder(ai.NewConfig(ai.WithEmbeddingHost(srv.URL), ai.WithAPIKey("sk-test")))
	require.NoError(t, err)

	_, err = embedder.EmbedText(context.Background(), "Grand Hotel Paris")
	assert.Error(t, err)
}
