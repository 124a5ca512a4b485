package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresStore implements Store for PostgreSQL databases.
type postgresStore struct {
	pool *pgxpool.Pool
}

// newPostgresStore creates the scans table if it doesn't exist.
func newPostgresStore(pool *pgxpool.Pool) (*postgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}

	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS scans (
			id UUID PRIMARY KEY,
			url TEXT NOT NULL,
			status TEXT NOT NULL,
			confidence INTEGER NOT NULL DEFAULT 0,
			cached BOOLEAN NOT NULL DEFAULT FALSE,
			scan_date TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create scans table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_scans_scan_date ON scans(scan_date)",
		"CREATE INDEX IF NOT EXISTS idx_scans_url ON scans(url)",
		"CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status)",
	}
	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	return &postgresStore{pool: pool}, nil
}

func (s *postgresStore) Insert(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scans (id, url, status, confidence, cached, scan_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.URL, string(rec.Status), rec.Confidence, rec.Cached, rec.ScanDate)
	if err != nil {
		return fmt.Errorf("failed to insert scan record: %w", err)
	}
	return nil
}

func (s *postgresStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, url, status, confidence, cached, scan_date
		FROM scans
		ORDER BY scan_date DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var status string
		if err := rows.Scan(&rec.ID, &rec.URL, &status, &rec.Confidence, &rec.Cached, &rec.ScanDate); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.Status = statusFromString(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *postgresStore) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.pool.Exec(ctx, "DELETE FROM scans WHERE scan_date < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup scan records: %w", err)
	}
	return result.RowsAffected(), nil
}

// Close is a no-op: the pool is managed by the storage layer.
func (s *postgresStore) Close() error {
	return nil
}
