// Package storage persists ingested records in PostgreSQL.
//
// Two tables back the store: ingests tracks one row per ingest run, and
// ingest_records holds the produced records as JSONB payloads in input
// order. Records are written with the COPY protocol in batches, which is
// considerably faster than row-by-row inserts for bulk loads.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tablefeed/tablefeed/internal/core"
	"github.com/tablefeed/tablefeed/internal/flattext"
)

// DefaultBatchSize is the number of records buffered before a COPY flush.
const DefaultBatchSize = 1000

const schema = `
CREATE TABLE IF NOT EXISTS ingests (
	id UUID PRIMARY KEY,
	profile_key TEXT NOT NULL,
	file_name TEXT,
	started_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	records BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ingest_records (
	id BIGSERIAL PRIMARY KEY,
	ingest_id UUID NOT NULL REFERENCES ingests(id) ON DELETE CASCADE,
	line_number INTEGER NOT NULL,
	payload JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ingest_records_ingest ON ingest_records(ingest_id);
`

// Store is a PostgreSQL-backed record store. It implements
// core.SinkFactory.
type Store struct {
	pool      *pgxpool.Pool
	batchSize int
}

// New creates a Store using the given pool. batchSize <= 0 selects
// DefaultBatchSize.
func New(pool *pgxpool.Pool, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Store{pool: pool, batchSize: batchSize}
}

// EnsureSchema creates the store's tables when missing. Called once at
// startup so a fresh database works without manual migration.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Open starts one ingest run: it inserts the tracking row and returns a
// sink that buffers records and flushes them with COPY.
func (s *Store) Open(ctx context.Context, meta core.IngestMeta) (core.RecordSink, error) {
	id, err := uuid.Parse(meta.IngestID)
	if err != nil {
		return nil, fmt.Errorf("ingest id: %w", err)
	}
	ingestID := pgtype.UUID{Bytes: id, Valid: true}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO ingests (id, profile_key, file_name, started_at) VALUES ($1, $2, $3, $4)`,
		ingestID, meta.ProfileKey, textOrNull(meta.FileName), meta.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ingest: %w", err)
	}

	return &recordSink{
		store:    s,
		ingestID: ingestID,
		rows:     make([][]any, 0, s.batchSize),
	}, nil
}

// recordSink buffers record rows for one ingest and flushes them in
// batches. Not safe for concurrent use; the ingest pipeline is
// single-threaded per stream.
type recordSink struct {
	store    *Store
	ingestID pgtype.UUID
	rows     [][]any
	written  int64
}

var copyColumns = []string{"ingest_id", "line_number", "payload"}

func (k *recordSink) Write(ctx context.Context, line int, rec *flattext.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	k.rows = append(k.rows, []any{k.ingestID, int32(line), payload})
	if len(k.rows) >= k.store.batchSize {
		return k.flush(ctx)
	}
	return nil
}

func (k *recordSink) flush(ctx context.Context) error {
	if len(k.rows) == 0 {
		return nil
	}

	n, err := k.store.pool.CopyFrom(ctx,
		pgx.Identifier{"ingest_records"},
		copyColumns,
		pgx.CopyFromRows(k.rows),
	)
	if err != nil {
		return fmt.Errorf("copy records: %w", err)
	}

	k.written += n
	k.rows = k.rows[:0]
	return nil
}

// Close flushes buffered records and marks the ingest row completed.
func (k *recordSink) Close(ctx context.Context) error {
	if err := k.flush(ctx); err != nil {
		return err
	}

	_, err := k.store.pool.Exec(ctx,
		`UPDATE ingests SET completed_at = $2, records = $3 WHERE id = $1`,
		k.ingestID, time.Now(), k.written,
	)
	if err != nil {
		return fmt.Errorf("complete ingest: %w", err)
	}
	return nil
}

// IngestRow is one row of the ingests table.
type IngestRow struct {
	ID          string     `json:"id"`
	ProfileKey  string     `json:"profile_key"`
	FileName    string     `json:"file_name,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Records     int64      `json:"records"`
}

// RecentIngests returns the most recently started ingests, newest first.
func (s *Store) RecentIngests(ctx context.Context, limit int) ([]IngestRow, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, profile_key, file_name, started_at, completed_at, records
		 FROM ingests ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ingests: %w", err)
	}
	defer rows.Close()

	var result []IngestRow
	for rows.Next() {
		var (
			row         IngestRow
			id          pgtype.UUID
			fileName    pgtype.Text
			completedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &row.ProfileKey, &fileName, &row.StartedAt, &completedAt, &row.Records); err != nil {
			return nil, fmt.Errorf("scan ingest: %w", err)
		}
		row.ID = uuid.UUID(id.Bytes).String()
		row.FileName = fileName.String
		if completedAt.Valid {
			t := completedAt.Time
			row.CompletedAt = &t
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Records returns the stored payloads for one ingest in input order.
// Each payload is the record's JSON object.
func (s *Store) Records(ctx context.Context, ingestID string, limit, offset int) ([]json.RawMessage, error) {
	id, err := uuid.Parse(ingestID)
	if err != nil {
		return nil, fmt.Errorf("ingest id: %w", err)
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM ingest_records
		 WHERE ingest_id = $1 ORDER BY id LIMIT $2 OFFSET $3`,
		pgtype.UUID{Bytes: id, Valid: true}, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var result []json.RawMessage
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		result = append(result, json.RawMessage(payload))
	}
	return result, rows.Err()
}

// DeleteIngest removes one ingest and its records (cascade). Returns the
// number of record rows deleted.
func (s *Store) DeleteIngest(ctx context.Context, ingestID string) (int64, error) {
	id, err := uuid.Parse(ingestID)
	if err != nil {
		return 0, fmt.Errorf("ingest id: %w", err)
	}
	pgID := pgtype.UUID{Bytes: id, Valid: true}

	var count int64
	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ingest_records WHERE ingest_id = $1`, pgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM ingests WHERE id = $1`, pgID); err != nil {
		return 0, fmt.Errorf("delete ingest: %w", err)
	}
	return count, nil
}

// textOrNull converts a string to pgtype.Text, mapping empty to NULL.
func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
