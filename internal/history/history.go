// Package history keeps a local record of completed scans so the popup and
// dashboard surfaces can answer recent-activity queries without the backend.
// Entries are retention-cleaned by the daily maintenance job.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"linkguard/internal/core"
	"linkguard/internal/storage"
)

// DefaultRetentionDays is how long scan records are kept.
const DefaultRetentionDays = 30

// Record is one completed scan.
type Record struct {
	ID         string      `json:"id"`
	URL        string      `json:"url"`
	Status     core.Status `json:"status"`
	Confidence int         `json:"confidence"`
	Cached     bool        `json:"cached"`
	ScanDate   time.Time   `json:"scanDate"`
}

// Store persists scan records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Insert writes one record.
	Insert(ctx context.Context, rec Record) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// Cleanup deletes records older than the cutoff, returning the count.
	Cleanup(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases store resources. The underlying database connection
	// is owned by the storage layer and is not closed here.
	Close() error
}

// New creates a Store backed by the given storage connection.
func New(st storage.Storage) (Store, error) {
	switch st.Type() {
	case storage.TypeSQLite:
		return newSQLiteStore(st.SQLiteDB())
	case storage.TypePostgreSQL:
		return newPostgresStore(st.PostgreSQLPool())
	default:
		return nil, fmt.Errorf("unsupported storage type for history: %s", st.Type())
	}
}

// statusFromString maps a stored status back to a known verdict.
// Unrecognized values degrade to unknown rather than failing the read.
func statusFromString(s string) core.Status {
	switch core.Status(s) {
	case core.StatusSafe, core.StatusSuspicious, core.StatusMalicious:
		return core.Status(s)
	default:
		return core.StatusUnknown
	}
}

// Recorder adapts a Store to the dispatcher's fire-and-forget recording
// contract: failures are logged, never propagated into the scan flow.
type Recorder struct {
	store Store
}

// NewRecorder creates a Recorder over a Store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record writes a completed scan to history, best-effort.
func (r *Recorder) Record(ctx context.Context, res core.Result) {
	rec := Record{
		ID:         uuid.NewString(),
		URL:        res.URL,
		Status:     res.Status,
		Confidence: res.Confidence,
		Cached:     res.Cached,
		ScanDate:   res.ScanDate,
	}
	if err := r.store.Insert(ctx, rec); err != nil {
		slog.Warn("failed to record scan history", "error", err, "url", res.URL)
	}
}
