package retriever_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarix-ai/tarix/internal/embedder"
	"github.com/tarix-ai/tarix/internal/models"
	"github.com/tarix-ai/tarix/internal/retriever"
	"github.com/tarix-ai/tarix/internal/store"
)

const testDim = 3

// keywordEmbedder maps known phrases to fixed unit vectors so distances
// in tests are predictable.
type keywordEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (k *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if k.err != nil {
		return nil, k.err
	}
	if vec, ok := k.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

func (k *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := k.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (k *keywordEmbedder) Dimension() int       { return testDim }
func (k *keywordEmbedder) ModelVersion() string { return "kw-v1" }

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func newFixture() (*retriever.Retriever, *store.Mock) {
	m := store.NewMock(testDim, "kw-v1")
	emb := &keywordEmbedder{vectors: map[string][]float32{
		"horses": {1, 0, 0},
	}}
	return retriever.New(emb, m, 10, slog.Default()), m
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	r, _ := newFixture()

	for _, query := range []string{"", "   ", "\t\n"} {
		_, err := r.Search(context.Background(), query, 5)
		require.ErrorIs(t, err, retriever.ErrEmptyQuery, "query %q", query)
	}
}

func TestSearch_TopKOrdering(t *testing.T) {
	r, m := newFixture()
	m.SeedEmbedded(models.TariffRecord{HTSNumber: strPtr("0101.21.00"), Indent: intPtr(0), Description: strPtr("close")},
		[]float32{1, 0, 0}, "")
	m.SeedEmbedded(models.TariffRecord{HTSNumber: strPtr("0202.10.00"), Indent: intPtr(0), Description: strPtr("far")},
		[]float32{0, 1, 0}, "")
	m.SeedRecord(models.TariffRecord{HTSNumber: strPtr("0303.30.00"), Indent: intPtr(0), Description: strPtr("unembedded")})

	results, err := r.Search(context.Background(), "horses", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "0101.21.00", *results[0].Record.HTSNumber)
	assert.Equal(t, "0202.10.00", *results[1].Record.HTSNumber)
	assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
}

func TestSearch_DefaultTopK(t *testing.T) {
	r, m := newFixture()
	for i := 0; i < 15; i++ {
		m.SeedEmbedded(models.TariffRecord{HTSNumber: strPtr("0101"), Indent: intPtr(i)},
			[]float32{1, float32(i) / 15, 0}, "")
	}

	results, err := r.Search(context.Background(), "horses", 0)
	require.NoError(t, err)
	assert.Len(t, results, 10)
}

func TestSearch_EmptyStoreReturnsNoResults(t *testing.T) {
	r, _ := newFixture()

	results, err := r.Search(context.Background(), "horses", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_EmbedFailureSurfaced(t *testing.T) {
	m := store.NewMock(testDim, "kw-v1")
	emb := &keywordEmbedder{err: &embedder.BackendError{StatusCode: 502, Message: "bad gateway"}}
	r := retriever.New(emb, m, 10, slog.Default())

	_, err := r.Search(context.Background(), "horses", 5)
	require.Error(t, err)

	var backendErr *embedder.BackendError
	assert.ErrorAs(t, err, &backendErr)
}

func TestLookup_SubstringMatch(t *testing.T) {
	r, m := newFixture()
	m.SeedRecord(models.TariffRecord{
		HTSNumber:         strPtr("0101.21.00"),
		Description:       strPtr("Purebred breeding animals"),
		GeneralRateOfDuty: strPtr("Free"),
	})

	matches, err := r.Lookup(context.Background(), "0101")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "0101.21.00", matches[0].HTSNumber)
	assert.Equal(t, "Free", *matches[0].GeneralRateOfDuty)
}

func TestLookup_EmptyQueryRejected(t *testing.T) {
	r, _ := newFixture()
	_, err := r.Lookup(context.Background(), "  ")
	require.ErrorIs(t, err, retriever.ErrEmptyQuery)
}
