package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/tarix-ai/tarix/internal/models"
)

const (
	pgConnectTimeout = 10 * time.Second

	// recordColumns lists the tariff columns in canonical order.
	recordColumns = "htsnumber, indent, description, unitquantity, generalrateofduty, " +
		"specialrateofduty, extrarateofduty, quotaquantity, additionalduties"
)

// Postgres implements Store on a PostgreSQL table with a pgvector column.
type Postgres struct {
	pool         *pgxpool.Pool
	dimension    int
	modelVersion string
	logger       *slog.Logger
}

// NewPostgres connects to Postgres and verifies the connection. The
// pgvector type codecs are registered on every pooled connection.
func NewPostgres(ctx context.Context, connString string, dimension int, modelVersion string, logger *slog.Logger) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pgConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("verifying Postgres connection: %w", err)
	}

	logger.Info("connected to Postgres", "dimension", dimension, "model_version", modelVersion)

	return &Postgres{
		pool:         pool,
		dimension:    dimension,
		modelVersion: modelVersion,
		logger:       logger,
	}, nil
}

// EnsureSchema creates the hts table and the vector column. The
// (htsnumber, indent) key index is managed per write mode by WriteEmbedded,
// not here: an append-mode table must not carry it.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS hts (
			htsnumber TEXT,
			indent INTEGER,
			description TEXT,
			unitquantity TEXT,
			generalrateofduty TEXT,
			specialrateofduty TEXT,
			extrarateofduty TEXT,
			quotaquantity TEXT,
			additionalduties TEXT,
			embeddings vector(%d),
			model_version TEXT
		)`, p.dimension),
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}

// Ping verifies connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging Postgres: %w", err)
	}
	return nil
}

// FetchAll reads every tariff record. The result is bounded by table size;
// the schedule is tens of thousands of rows, well within memory.
func (p *Postgres) FetchAll(ctx context.Context) ([]models.TariffRecord, error) {
	rows, err := p.pool.Query(ctx, "SELECT "+recordColumns+" FROM hts")
	if err != nil {
		return nil, fmt.Errorf("querying hts table: %w", err)
	}
	defer rows.Close()

	var records []models.TariffRecord
	for rows.Next() {
		var rec models.TariffRecord
		if err := scanRecord(rows, &rec); err != nil {
			return nil, fmt.Errorf("scanning hts row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading hts rows: %w", err)
	}
	return records, nil
}

// keyIndexName is the unique index backing upsert's conflict target.
const keyIndexName = "hts_htsnumber_indent_key"

// writeModeDDL returns the index statement run at the start of each write.
// Upsert needs the (htsnumber, indent) unique key for its conflict target;
// Append must remove it, since insert-only runs legitimately repeat keys.
// Switching an appended table back to upsert fails until the duplicate keys
// are cleaned up, which CREATE UNIQUE INDEX reports explicitly.
func writeModeDDL(mode WriteMode) string {
	if mode == Append {
		return "DROP INDEX IF EXISTS " + keyIndexName
	}
	return "CREATE UNIQUE INDEX IF NOT EXISTS " + keyIndexName + " ON hts (htsnumber, indent)"
}

// insertSQL returns the row insert statement for the given write mode.
func insertSQL(mode WriteMode) string {
	sql := "INSERT INTO hts (" + recordColumns + ", embeddings, model_version) " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)"
	if mode == Upsert {
		sql += " ON CONFLICT (htsnumber, indent) DO UPDATE SET " +
			"description = EXCLUDED.description, " +
			"unitquantity = EXCLUDED.unitquantity, " +
			"generalrateofduty = EXCLUDED.generalrateofduty, " +
			"specialrateofduty = EXCLUDED.specialrateofduty, " +
			"extrarateofduty = EXCLUDED.extrarateofduty, " +
			"quotaquantity = EXCLUDED.quotaquantity, " +
			"additionalduties = EXCLUDED.additionalduties, " +
			"embeddings = EXCLUDED.embeddings, " +
			"model_version = EXCLUDED.model_version"
	}
	return sql
}

// WriteEmbedded persists all rows inside one transaction using a pgx batch.
// Any failure rolls back the whole run; readers never observe partial state.
// The key index is created or dropped in the same transaction to match the
// write mode.
func (p *Postgres) WriteEmbedded(ctx context.Context, embedded []EmbeddedRow, mode WriteMode) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, writeModeDDL(mode)); err != nil {
		return fmt.Errorf("preparing %s write: %w", mode, err)
	}

	sql := insertSQL(mode)
	batch := &pgx.Batch{}
	for i := range embedded {
		rec := &embedded[i].Record
		batch.Queue(sql,
			rec.HTSNumber, rec.Indent, rec.Description, rec.UnitOfQuantity,
			rec.GeneralRateOfDuty, rec.SpecialRateOfDuty, rec.ExtraRateOfDuty,
			rec.QuotaQuantity, rec.AdditionalDuties,
			pgvector.NewVector(embedded[i].Vector), p.modelVersion,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range embedded {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("persisting embedded row %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing embedded rows: %w", err)
	}

	p.logger.Info("persisted embedded rows", "count", len(embedded), "mode", mode)
	return nil
}

// Search runs nearest-neighbor retrieval with the pgvector cosine distance
// operator. Only rows embedded by the configured model version are
// candidates; equal distances break ties on (htsnumber, indent) so rankings
// are reproducible.
func (p *Postgres) Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	if len(vector) != p.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, store expects %d", len(vector), p.dimension)
	}

	rows, err := p.pool.Query(ctx,
		"SELECT "+recordColumns+", embeddings <=> $1 AS distance FROM hts "+
			"WHERE embeddings IS NOT NULL AND model_version = $2 "+
			"ORDER BY embeddings <=> $1, htsnumber, indent LIMIT $3",
		pgvector.NewVector(vector), p.modelVersion, k,
	)
	if err != nil {
		return nil, fmt.Errorf("running similarity search: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var res models.SearchResult
		if err := scanRecord(rows, &res.Record, &res.Distance); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search results: %w", err)
	}
	return results, nil
}

// ExactMatch performs a case-insensitive substring lookup on the HTS number.
func (p *Postgres) ExactMatch(ctx context.Context, partial string) ([]models.ExactMatch, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT DISTINCT htsnumber, description, generalrateofduty FROM hts "+
			"WHERE htsnumber ILIKE '%' || $1 || '%' ORDER BY htsnumber",
		partial,
	)
	if err != nil {
		return nil, fmt.Errorf("querying hts numbers: %w", err)
	}
	defer rows.Close()

	var matches []models.ExactMatch
	for rows.Next() {
		var m models.ExactMatch
		if err := rows.Scan(&m.HTSNumber, &m.Description, &m.GeneralRateOfDuty); err != nil {
			return nil, fmt.Errorf("scanning hts match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading hts matches: %w", err)
	}
	return matches, nil
}

// Stats returns row counts for the tariff table.
func (p *Postgres) Stats(ctx context.Context) (*models.TableStats, error) {
	stats := &models.TableStats{
		ModelVersion: p.modelVersion,
		Dimension:    p.dimension,
	}
	err := p.pool.QueryRow(ctx,
		"SELECT COUNT(*), COUNT(*) FILTER (WHERE embeddings IS NOT NULL AND model_version = $1) FROM hts",
		p.modelVersion,
	).Scan(&stats.TotalRows, &stats.EmbeddedRows)
	if err != nil {
		return nil, fmt.Errorf("counting hts rows: %w", err)
	}
	return stats, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// scanRecord scans the nine tariff columns, plus any extra destinations,
// from the current row.
func scanRecord(rows pgx.Rows, rec *models.TariffRecord, extra ...any) error {
	dest := []any{
		&rec.HTSNumber, &rec.Indent, &rec.Description, &rec.UnitOfQuantity,
		&rec.GeneralRateOfDuty, &rec.SpecialRateOfDuty, &rec.ExtraRateOfDuty,
		&rec.QuotaQuantity, &rec.AdditionalDuties,
	}
	dest = append(dest, extra...)
	return rows.Scan(dest...)
}
