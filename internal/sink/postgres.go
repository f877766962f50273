package sink

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/charstats/internal/report"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/postgres"
)

// The document is stored as JSON rather than JSONB: JSONB reorders object
// keys, and the tables are ordered by count.
const snapshotSchema = `
CREATE TABLE IF NOT EXISTS charstats_snapshots (
    id          BIGSERIAL PRIMARY KEY,
    run_id      UUID NOT NULL UNIQUE,
    year_start  INTEGER NOT NULL,
    year_end    INTEGER NOT NULL,
    data        JSON NOT NULL,
    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const snapshotIndex = `
CREATE INDEX IF NOT EXISTS charstats_snapshots_years_idx
    ON charstats_snapshots (year_start, year_end, captured_at DESC)`

// SnapshotStore persists frequency documents in PostgreSQL.
type SnapshotStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewSnapshotStore(db *postgres.Client) *SnapshotStore {
	return &SnapshotStore{
		db:     db,
		logger: slog.Default().With("component", "snapshot-store"),
	}
}

func (s *SnapshotStore) Name() string { return "postgres" }

// EnsureSchema creates the snapshot table and its index if missing.
func (s *SnapshotStore) EnsureSchema(ctx context.Context) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, snapshotSchema); err != nil {
			return fmt.Errorf("creating snapshot table: %w", err)
		}
		if _, err := tx.ExecContext(ctx, snapshotIndex); err != nil {
			return fmt.Errorf("creating snapshot index: %w", err)
		}
		return nil
	})
}

func (s *SnapshotStore) Publish(ctx context.Context, snap *Snapshot) error {
	_, err := s.SaveSnapshot(ctx, snap)
	return err
}

// SaveSnapshot inserts the document and returns the new row id.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snap *Snapshot) (int64, error) {
	var buf bytes.Buffer
	if err := report.Encode(&buf, snap.Document); err != nil {
		return 0, err
	}

	var id int64
	err := s.db.DB.QueryRowContext(ctx,
		`INSERT INTO charstats_snapshots (run_id, year_start, year_end, data, captured_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		snap.RunID, snap.YearStart, snap.YearEnd, buf.String(), snap.CapturedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("saving snapshot: %w", err)
	}

	s.logger.Info("snapshot saved",
		"id", id,
		"run_id", snap.RunID,
		"year_start", snap.YearStart,
		"year_end", snap.YearEnd,
		"bytes", buf.Len(),
	)
	return id, nil
}

// LatestSnapshot loads the most recent document for the year range.
// Returns nil, nil if none exists yet.
func (s *SnapshotStore) LatestSnapshot(ctx context.Context, yearStart, yearEnd int) (*report.Document, error) {
	var data string
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM charstats_snapshots
		 WHERE year_start = $1 AND year_end = $2
		 ORDER BY captured_at DESC, id DESC LIMIT 1`,
		yearStart, yearEnd,
	).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	return report.Decode(bytes.NewBufferString(data))
}
