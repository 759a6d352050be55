// Package indexer implements the offline full-table embedding refresh:
// read every tariff record, canonicalize, embed in batches, validate, and
// persist the embedded rows in a single transaction.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tarix-ai/tarix/internal/canonical"
	"github.com/tarix-ai/tarix/internal/embedder"
	"github.com/tarix-ai/tarix/internal/metrics"
	"github.com/tarix-ai/tarix/internal/store"
)

// Indexer orchestrates the batch embedding pipeline.
type Indexer struct {
	embedder *embedder.Batcher
	store    store.Store
	logger   *slog.Logger
}

// Summary reports the outcome of an indexing run.
type Summary struct {
	Rows         int
	Dimension    int
	ModelVersion string
	Elapsed      time.Duration
}

// New creates an Indexer. The batcher bounds peak memory during embedding.
func New(emb *embedder.Batcher, st store.Store, logger *slog.Logger) *Indexer {
	return &Indexer{embedder: emb, store: st, logger: logger}
}

// Run performs a full-table refresh. Any failure aborts the run before
// commit: a canonical text that does not re-parse indicates corruption and
// is never silently persisted, and the single transaction in WriteEmbedded
// guarantees readers observe either the complete run or none of it.
func (ix *Indexer) Run(ctx context.Context, mode store.WriteMode) (*Summary, error) {
	runID := uuid.NewString()
	start := time.Now()
	logger := ix.logger.With("run_id", runID)

	records, err := ix.store.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading tariff records: %w", err)
	}
	if len(records) == 0 {
		logger.Warn("no tariff records to index")
		return &Summary{
			Dimension:    ix.embedder.Dimension(),
			ModelVersion: ix.embedder.ModelVersion(),
			Elapsed:      time.Since(start),
		}, nil
	}
	logger.Info("loaded tariff records", "count", len(records))

	texts := make([]string, len(records))
	for i := range records {
		texts[i] = canonical.Canonicalize(records[i])
	}

	vecs, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		metrics.Inc(metrics.EmbedFailures)
		return nil, fmt.Errorf("embedding tariff records: %w", err)
	}
	if len(vecs) != len(records) {
		return nil, fmt.Errorf("embedded %d texts but received %d vectors", len(records), len(vecs))
	}

	// Re-parse each canonical text and persist the parsed values, not the
	// originals. A record that cannot round-trip would pair an embedding
	// with fields it does not represent, so the whole run aborts.
	rows := make([]store.EmbeddedRow, len(records))
	for i, text := range texts {
		parsed, err := canonical.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("validating record %d: %w", i, err)
		}
		rows[i] = store.EmbeddedRow{Record: parsed, Vector: vecs[i]}
	}

	if err := ix.store.WriteEmbedded(ctx, rows, mode); err != nil {
		return nil, fmt.Errorf("persisting embedded records: %w", err)
	}

	metrics.IndexedRows.Add(int64(len(rows)))

	summary := &Summary{
		Rows:         len(rows),
		Dimension:    ix.embedder.Dimension(),
		ModelVersion: ix.embedder.ModelVersion(),
		Elapsed:      time.Since(start),
	}
	logger.Info("indexing run complete",
		"rows", summary.Rows,
		"model_version", summary.ModelVersion,
		"mode", mode,
		"elapsed", summary.Elapsed)
	return summary, nil
}

// OnProgress forwards batch progress callbacks from the embedder, for
// progress bars in the CLI.
func (ix *Indexer) OnProgress(fn func(done, total int)) {
	ix.embedder.OnProgress = fn
}
