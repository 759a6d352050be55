// Package retriever answers "which tariff records are most relevant to
// this text" by embedding the query and running nearest-neighbor search
// against the stored vectors.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tarix-ai/tarix/internal/embedder"
	"github.com/tarix-ai/tarix/internal/metrics"
	"github.com/tarix-ai/tarix/internal/models"
	"github.com/tarix-ai/tarix/internal/store"
)

// ErrEmptyQuery is returned when the query text is empty or whitespace.
// It maps to a client error, not a server failure.
var ErrEmptyQuery = errors.New("query text is required")

// Retriever runs the per-query pipeline: validate, embed, vector search.
// The query embedding comes from the same embedder used at index time, so
// stored and query vectors are always comparable.
type Retriever struct {
	embedder embedder.Embedder
	store    store.Store
	topK     int
	logger   *slog.Logger
}

// New creates a Retriever. topK is the default result count used when a
// caller passes k <= 0.
func New(emb embedder.Embedder, st store.Store, topK int, logger *slog.Logger) *Retriever {
	return &Retriever{
		embedder: emb,
		store:    st,
		topK:     topK,
		logger:   logger,
	}
}

// Search returns up to k tariff records nearest to the query text,
// nearest first. An empty result is valid, not an error.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = r.topK
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		metrics.Inc(metrics.EmbedFailures)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.store.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("searching store: %w", err)
	}

	metrics.Inc(metrics.SearchTotal)
	r.logger.Debug("similarity search complete", "k", k, "results", len(results))
	return results, nil
}

// Lookup performs the non-semantic substring match on HTS numbers.
func (r *Retriever) Lookup(ctx context.Context, partial string) ([]models.ExactMatch, error) {
	if strings.TrimSpace(partial) == "" {
		return nil, ErrEmptyQuery
	}

	matches, err := r.store.ExactMatch(ctx, partial)
	if err != nil {
		return nil, fmt.Errorf("looking up hts number: %w", err)
	}

	metrics.Inc(metrics.LookupTotal)
	return matches, nil
}
