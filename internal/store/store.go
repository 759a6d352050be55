package store

import (
	"context"

	"github.com/tarix-ai/tarix/internal/models"
)

// WriteMode controls how the indexer persists embedded rows.
type WriteMode int

const (
	// Upsert refreshes rows keyed on (htsnumber, indent); re-running the
	// indexer replaces embeddings instead of duplicating rows.
	Upsert WriteMode = iota

	// Append inserts unconditionally, matching the original ingestion
	// pipeline's insert-only behavior. Appending removes the (htsnumber,
	// indent) key, so repeated runs duplicate rows rather than fail.
	Append
)

func (m WriteMode) String() string {
	if m == Append {
		return "append"
	}
	return "upsert"
}

// EmbeddedRow pairs a tariff record with its embedding vector.
type EmbeddedRow struct {
	Record models.TariffRecord
	Vector []float32
}

// Store defines persistence for tariff records with vector search.
// Rows whose embedding is NULL, or whose embedding was produced by a
// different model version, never appear in Search results.
type Store interface {
	// EnsureSchema creates the tariff table, vector column, and indexes
	// if they do not exist.
	EnsureSchema(ctx context.Context) error

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// FetchAll returns every tariff record in the table.
	FetchAll(ctx context.Context) ([]models.TariffRecord, error)

	// WriteEmbedded persists embedded rows in a single transaction.
	// Either all rows commit or none do.
	WriteEmbedded(ctx context.Context, rows []EmbeddedRow, mode WriteMode) error

	// Search returns up to k embedded records ordered by ascending cosine
	// distance from the query vector. Ties break on (htsnumber, indent).
	Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error)

	// ExactMatch returns rows whose HTS number contains the given
	// substring, case-insensitively.
	ExactMatch(ctx context.Context, partial string) ([]models.ExactMatch, error)

	// Stats returns table row counts.
	Stats(ctx context.Context) (*models.TableStats, error)

	// Close releases the underlying connections.
	Close()
}
