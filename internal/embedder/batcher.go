package embedder

import "context"

// DefaultBatchSize bounds peak memory during full-table indexing.
const DefaultBatchSize = 64

// Batcher wraps an Embedder and splits large EmbedBatch calls into
// consecutive chunks of at most BatchSize texts. Results are concatenated
// in input order. A failed chunk fails the whole call; embeddings from
// earlier chunks are discarded, never partially committed.
type Batcher struct {
	inner     Embedder
	batchSize int

	// OnProgress, when set, is called after each chunk with the number of
	// texts embedded so far and the total.
	OnProgress func(done, total int)
}

// NewBatcher wraps an embedder with chunked batch processing. A batchSize
// of 0 or less selects DefaultBatchSize.
func NewBatcher(inner Embedder, batchSize int) *Batcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Batcher{inner: inner, batchSize: batchSize}
}

// Embed delegates to the wrapped embedder.
func (b *Batcher) Embed(ctx context.Context, text string) ([]float32, error) {
	return b.inner.Embed(ctx, text)
}

// EmbedBatch embeds texts chunk by chunk, preserving input order.
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vecs, err := b.inner.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vecs...)

		if b.OnProgress != nil {
			b.OnProgress(end, len(texts))
		}
	}
	return all, nil
}

// Dimension returns the wrapped embedder's dimension.
func (b *Batcher) Dimension() int { return b.inner.Dimension() }

// ModelVersion returns the wrapped embedder's model version.
func (b *Batcher) ModelVersion() string { return b.inner.ModelVersion() }
