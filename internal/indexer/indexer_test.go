package indexer_test

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarix-ai/tarix/internal/embedder"
	"github.com/tarix-ai/tarix/internal/indexer"
	"github.com/tarix-ai/tarix/internal/models"
	"github.com/tarix-ai/tarix/internal/store"
)

const testDim = 4

// stubEmbedder derives a deterministic vector from the text hash.
type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		h := fnv.New32a()
		_, _ = h.Write([]byte(text))
		seed := h.Sum32()
		vec := make([]float32, testDim)
		for j := range vec {
			vec[j] = float32((seed>>(j*8))&0xff) / 255
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (s *stubEmbedder) Dimension() int       { return testDim }
func (s *stubEmbedder) ModelVersion() string { return "stub-v1" }

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func seedRecords(m *store.Mock) {
	m.SeedRecord(models.TariffRecord{
		HTSNumber:         strPtr("0101.21.00"),
		Indent:            intPtr(2),
		Description:       strPtr("Purebred breeding animals"),
		GeneralRateOfDuty: strPtr("Free"),
	})
	m.SeedRecord(models.TariffRecord{
		HTSNumber:   strPtr("0101.29.00"),
		Indent:      intPtr(2),
		Description: strPtr("Other horses"),
	})
	m.SeedRecord(models.TariffRecord{
		Description: strPtr("heading with null hts number"),
	})
}

func newIndexer(m *store.Mock, emb embedder.Embedder) *indexer.Indexer {
	return indexer.New(embedder.NewBatcher(emb, 2), m, slog.Default())
}

func TestIndexer_Run_EmbedsAllRecords(t *testing.T) {
	m := store.NewMock(testDim, "stub-v1")
	seedRecords(m)

	ix := newIndexer(m, &stubEmbedder{})
	summary, err := ix.Run(context.Background(), store.Upsert)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Rows)
	assert.Equal(t, testDim, summary.Dimension)
	assert.Equal(t, "stub-v1", summary.ModelVersion)

	stats, err := m.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.EmbeddedRows)
}

func TestIndexer_Run_UpsertIsIdempotent(t *testing.T) {
	m := store.NewMock(testDim, "stub-v1")
	m.SeedRecord(models.TariffRecord{
		HTSNumber: strPtr("0101.21.00"), Indent: intPtr(2), Description: strPtr("Purebred breeding animals"),
	})
	m.SeedRecord(models.TariffRecord{
		HTSNumber: strPtr("0101.29.00"), Indent: intPtr(2), Description: strPtr("Other horses"),
	})

	ix := newIndexer(m, &stubEmbedder{})
	_, err := ix.Run(context.Background(), store.Upsert)
	require.NoError(t, err)

	_, err = ix.Run(context.Background(), store.Upsert)
	require.NoError(t, err)

	stats, err := m.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalRows)
	assert.Equal(t, int64(2), stats.EmbeddedRows)
}

func TestIndexer_Run_AppendDuplicates(t *testing.T) {
	m := store.NewMock(testDim, "stub-v1")
	seedRecords(m)

	ix := newIndexer(m, &stubEmbedder{})
	_, err := ix.Run(context.Background(), store.Append)
	require.NoError(t, err)

	stats, err := m.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.TotalRows)
	assert.Equal(t, int64(3), stats.EmbeddedRows)
}

func TestIndexer_Run_EmbedFailureAbortsBeforeWrite(t *testing.T) {
	m := store.NewMock(testDim, "stub-v1")
	seedRecords(m)

	ix := newIndexer(m, &stubEmbedder{err: &embedder.BackendError{StatusCode: 503, Message: "down"}})
	_, err := ix.Run(context.Background(), store.Upsert)
	require.Error(t, err)

	var backendErr *embedder.BackendError
	require.ErrorAs(t, err, &backendErr)

	stats, statsErr := m.Stats(context.Background())
	require.NoError(t, statsErr)
	assert.Equal(t, int64(0), stats.EmbeddedRows, "no partial embeddings may be visible")
}

func TestIndexer_Run_MalformedRecordAbortsRun(t *testing.T) {
	m := store.NewMock(testDim, "stub-v1")
	// The field delimiter inside a value breaks the canonical round trip.
	m.SeedRecord(models.TariffRecord{
		HTSNumber:   strPtr("9999.99.99"),
		Indent:      intPtr(0),
		Description: strPtr("broken | description"),
	})

	ix := newIndexer(m, &stubEmbedder{})
	_, err := ix.Run(context.Background(), store.Upsert)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed canonical record")

	stats, statsErr := m.Stats(context.Background())
	require.NoError(t, statsErr)
	assert.Equal(t, int64(0), stats.EmbeddedRows)
}

func TestIndexer_Run_FetchFailureAborts(t *testing.T) {
	m := store.NewMock(testDim, "stub-v1")
	seedRecords(m)
	m.FetchErr = errors.New("connection refused")

	ix := newIndexer(m, &stubEmbedder{})
	_, err := ix.Run(context.Background(), store.Upsert)
	require.ErrorContains(t, err, "reading tariff records")
	require.ErrorContains(t, err, "connection refused")

	stats, statsErr := m.Stats(context.Background())
	require.NoError(t, statsErr)
	assert.Equal(t, int64(0), stats.EmbeddedRows)
}

func TestIndexer_Run_WriteFailurePropagates(t *testing.T) {
	m := store.NewMock(testDim, "stub-v1")
	seedRecords(m)
	m.WriteErr = errors.New("connection reset")

	ix := newIndexer(m, &stubEmbedder{})
	_, err := ix.Run(context.Background(), store.Upsert)
	require.ErrorContains(t, err, "connection reset")
}

func TestIndexer_Run_EmptyTable(t *testing.T) {
	m := store.NewMock(testDim, "stub-v1")

	ix := newIndexer(m, &stubEmbedder{})
	summary, err := ix.Run(context.Background(), store.Upsert)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Rows)
}

func TestIndexer_Run_ProgressReported(t *testing.T) {
	m := store.NewMock(testDim, "stub-v1")
	seedRecords(m)

	ix := newIndexer(m, &stubEmbedder{})
	var last int
	ix.OnProgress(func(done, total int) {
		assert.Equal(t, 3, total)
		last = done
	})

	_, err := ix.Run(context.Background(), store.Upsert)
	require.NoError(t, err)
	assert.Equal(t, 3, last)
}
