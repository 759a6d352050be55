package embedder_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarix-ai/tarix/internal/embedder"
)

// newFakeHFServer returns an httptest.Server that answers the
// feature-extraction route with deterministic embeddings of length dim.
// Each returned vector starts with the input's index so order is testable.
func newFakeHFServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/pipeline/feature-extraction/") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Inputs []string `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		vecs := make([][]float64, len(req.Inputs))
		for i := range req.Inputs {
			vec := make([]float64, dim)
			vec[0] = float64(i)
			vecs[i] = vec
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(vecs)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHuggingFace_Embed_HappyPath(t *testing.T) {
	const dim = 384
	srv := newFakeHFServer(t, dim)

	emb := embedder.NewHuggingFaceWithURL(srv.URL, "token", "", dim, slog.Default())
	vec, err := emb.Embed(context.Background(), "live purebred horses")
	require.NoError(t, err)
	assert.Len(t, vec, dim)
}

func TestHuggingFace_Defaults(t *testing.T) {
	emb := embedder.NewHuggingFace("token", "", 0, slog.Default())
	assert.Equal(t, 384, emb.Dimension())
	assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", emb.ModelVersion())
}

func TestHuggingFace_EmbedBatch_OrderPreserving(t *testing.T) {
	const dim = 8
	srv := newFakeHFServer(t, dim)

	emb := embedder.NewHuggingFaceWithURL(srv.URL, "", "model", dim, slog.Default())
	texts := []string{"first", "second", "third", "fourth"}

	vecs, err := emb.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, vec := range vecs {
		assert.Equal(t, float32(i), vec[0], "vector %d out of order", i)
	}
}

func TestHuggingFace_EmbedBatch_Empty(t *testing.T) {
	emb := embedder.NewHuggingFace("", "model", 384, slog.Default())
	vecs, err := emb.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestHuggingFace_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	emb := embedder.NewHuggingFaceWithURL(srv.URL, "bad", "model", 384, slog.Default())
	_, err := emb.Embed(context.Background(), "query")
	require.Error(t, err)

	var backendErr *embedder.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusUnauthorized, backendErr.StatusCode)
	assert.False(t, backendErr.Retryable())
	assert.Equal(t, int32(1), calls.Load())
}

func TestHuggingFace_ServerErrorRetriedThenRecovers(t *testing.T) {
	const dim = 4
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([][]float64{make([]float64, dim)})
	}))
	t.Cleanup(srv.Close)

	emb := embedder.NewHuggingFaceWithURL(srv.URL, "", "model", dim, slog.Default())
	vec, err := emb.Embed(context.Background(), "query")
	require.NoError(t, err)
	assert.Len(t, vec, dim)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHuggingFace_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"unexpected shape"}`))
	}))
	t.Cleanup(srv.Close)

	emb := embedder.NewHuggingFaceWithURL(srv.URL, "", "model", 384, slog.Default())
	_, err := emb.Embed(context.Background(), "query")

	var backendErr *embedder.BackendError
	require.ErrorAs(t, err, &backendErr)
}

func TestHuggingFace_DimensionMismatchRejected(t *testing.T) {
	srv := newFakeHFServer(t, 16)

	emb := embedder.NewHuggingFaceWithURL(srv.URL, "", "model", 384, slog.Default())
	_, err := emb.Embed(context.Background(), "query")

	var backendErr *embedder.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Contains(t, backendErr.Error(), "dimension")
}
