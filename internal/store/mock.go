package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/tarix-ai/tarix/internal/models"
)

// Mock is an in-memory implementation of Store for testing. It mirrors the
// Postgres behavior: NULL-embedding rows and rows embedded by a different
// model version are invisible to Search, results are ordered by ascending
// cosine distance with (htsnumber, indent) tie-breaks, and WriteEmbedded is
// all-or-nothing.
type Mock struct {
	mu           sync.RWMutex
	rows         []mockRow
	dimension    int
	modelVersion string

	// Error injection for failure-path tests. When set, the matching
	// method returns the error.
	FetchErr  error
	WriteErr  error
	SearchErr error
}

type mockRow struct {
	record       models.TariffRecord
	vector       []float32
	modelVersion string
}

// NewMock creates an empty mock store.
func NewMock(dimension int, modelVersion string) *Mock {
	return &Mock{dimension: dimension, modelVersion: modelVersion}
}

// SeedRecord adds a raw tariff record without an embedding.
func (m *Mock) SeedRecord(rec models.TariffRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, mockRow{record: rec})
}

// SeedEmbedded adds a record with an embedding produced by the given model
// version. Pass "" to use the store's configured version.
func (m *Mock) SeedEmbedded(rec models.TariffRecord, vector []float32, modelVersion string) {
	if modelVersion == "" {
		modelVersion = m.modelVersion
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, mockRow{record: rec, vector: vector, modelVersion: modelVersion})
}

// EnsureSchema is a no-op for the mock store.
func (m *Mock) EnsureSchema(_ context.Context) error { return nil }

// Ping is a no-op for the mock store.
func (m *Mock) Ping(_ context.Context) error { return nil }

// FetchAll returns every stored record.
func (m *Mock) FetchAll(_ context.Context) ([]models.TariffRecord, error) {
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := make([]models.TariffRecord, len(m.rows))
	for i := range m.rows {
		records[i] = m.rows[i].record
	}
	return records, nil
}

// WriteEmbedded stores all rows or none.
func (m *Mock) WriteEmbedded(_ context.Context, embedded []EmbeddedRow, mode WriteMode) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range embedded {
		if len(embedded[i].Vector) != m.dimension {
			return fmt.Errorf("row %d has dimension %d, store expects %d", i, len(embedded[i].Vector), m.dimension)
		}
	}

	for _, row := range embedded {
		if mode == Upsert {
			if idx, ok := m.findKey(row.Record.HTSNumber, row.Record.Indent); ok {
				m.rows[idx] = mockRow{record: row.Record, vector: row.Vector, modelVersion: m.modelVersion}
				continue
			}
		}
		m.rows = append(m.rows, mockRow{record: row.Record, vector: row.Vector, modelVersion: m.modelVersion})
	}
	return nil
}

// Search ranks embedded rows by cosine distance from the query vector.
func (m *Mock) Search(_ context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, store expects %d", len(vector), m.dimension)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []models.SearchResult
	for i := range m.rows {
		row := &m.rows[i]
		if row.vector == nil || row.modelVersion != m.modelVersion {
			continue
		}
		results = append(results, models.SearchResult{
			Record:   row.record,
			Distance: cosineDistance(vector, row.vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		hi, hj := derefOr(results[i].Record.HTSNumber, ""), derefOr(results[j].Record.HTSNumber, "")
		if hi != hj {
			return hi < hj
		}
		return derefIntOr(results[i].Record.Indent, 0) < derefIntOr(results[j].Record.Indent, 0)
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// ExactMatch performs a case-insensitive substring lookup on the HTS number.
func (m *Mock) ExactMatch(_ context.Context, partial string) ([]models.ExactMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var matches []models.ExactMatch
	for i := range m.rows {
		rec := &m.rows[i].record
		if rec.HTSNumber == nil {
			continue
		}
		if !strings.Contains(strings.ToLower(*rec.HTSNumber), strings.ToLower(partial)) {
			continue
		}
		if seen[*rec.HTSNumber] {
			continue
		}
		seen[*rec.HTSNumber] = true
		matches = append(matches, models.ExactMatch{
			HTSNumber:         *rec.HTSNumber,
			Description:       rec.Description,
			GeneralRateOfDuty: rec.GeneralRateOfDuty,
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].HTSNumber < matches[j].HTSNumber })
	return matches, nil
}

// Stats returns row counts.
func (m *Mock) Stats(_ context.Context) (*models.TableStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.TableStats{
		TotalRows:    int64(len(m.rows)),
		ModelVersion: m.modelVersion,
		Dimension:    m.dimension,
	}
	for i := range m.rows {
		if m.rows[i].vector != nil && m.rows[i].modelVersion == m.modelVersion {
			stats.EmbeddedRows++
		}
	}
	return stats, nil
}

// Close is a no-op for the mock store.
func (m *Mock) Close() {}

// findKey locates a row by (htsnumber, indent). Rows with a NULL key never
// match, mirroring Postgres unique-index semantics for NULLs.
func (m *Mock) findKey(htsNumber *string, indent *int) (int, bool) {
	if htsNumber == nil || indent == nil {
		return 0, false
	}
	for i := range m.rows {
		rec := &m.rows[i].record
		if rec.HTSNumber != nil && *rec.HTSNumber == *htsNumber &&
			rec.Indent != nil && *rec.Indent == *indent {
			return i, true
		}
	}
	return 0, false
}

// cosineDistance is 1 - cosine similarity, matching pgvector's <=> operator.
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

func derefIntOr(i *int, def int) int {
	if i == nil {
		return def
	}
	return *i
}
