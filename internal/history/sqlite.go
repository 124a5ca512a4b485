package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// sqliteStore implements Store for SQLite databases.
type sqliteStore struct {
	db *sql.DB
}

// newSQLiteStore creates the scans table if it doesn't exist.
func newSQLiteStore(db *sql.DB) (*sqliteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS scans (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			status TEXT NOT NULL,
			confidence INTEGER NOT NULL DEFAULT 0,
			cached INTEGER NOT NULL DEFAULT 0,
			scan_date DATETIME NOT NULL
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
		if _, err := db.Exec(idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Insert(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO scans (id, url, status, confidence, cached, scan_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.URL, string(rec.Status), rec.Confidence, rec.Cached,
		rec.ScanDate.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert scan record: %w", err)
	}
	return nil
}

func (s *sqliteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, status, confidence, cached, scan_date
		FROM scans
		ORDER BY scan_date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var status, scanDate string
		if err := rows.Scan(&rec.ID, &rec.URL, &status, &rec.Confidence, &rec.Cached, &scanDate); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.Status = statusFromString(status)
		if t, err := time.Parse(time.RFC3339Nano, scanDate); err == nil {
			rec.ScanDate = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *sqliteStore) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM scans WHERE scan_date < ?",
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup scan records: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return deleted, nil
}

// Close is a no-op: the DB connection is managed by the storage layer.
func (s *sqliteStore) Close() error {
	return nil
}
