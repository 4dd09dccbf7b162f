// Package store persists periodic snapshots of aggregated search analytics
// in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/analytics"
)

const schema = `CREATE TABLE IF NOT EXISTS analytics_snapshots (
	id          BIGSERIAL PRIMARY KEY,
	data        JSONB NOT NULL,
	captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// DB is the subset of *sql.DB the store uses.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// StatsSource yields the stats to snapshot. *analytics.Aggregator
// satisfies it.
type StatsSource interface {
	Stats() analytics.AggregatedStats
}

type Store struct {
	db     DB
	now    func() time.Time
	logger *slog.Logger
}

func New(db DB) *Store {
	return &Store{
		db:     db,
		now:    time.Now,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating analytics_snapshots: %w", err)
	}
	return nil
}

func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analytics_snapshots (data, captured_at) VALUES ($1, $2)`,
		data, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Info("analytics snapshot saved", "total_searches", stats.TotalSearches)
	return nil
}

// LatestSnapshot returns nil, nil when nothing has been saved yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.Snapshot, error) {
	var (
		data []byte
		snap analytics.Snapshot
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, captured_at FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data, &snap.CapturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap.Stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &snap, nil
}

// ListSnapshots returns up to limit snapshots, newest first. Corrupt rows
// are skipped.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]analytics.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data, captured_at FROM analytics_snapshots ORDER BY captured_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []analytics.Snapshot
	for rows.Next() {
		var (
			data []byte
			snap analytics.Snapshot
		)
		if err := rows.Scan(&data, &snap.CapturedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if err := json.Unmarshal(data, &snap.Stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "error", err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// Run snapshots src every interval until ctx is cancelled, then takes a
// final snapshot.
func (s *Store) Run(ctx context.Context, src StatsSource, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("periodic snapshot started", "interval", interval)

	for {
		select {
		case <-ticker.C:
			if err := s.SaveSnapshot(ctx, src.Stats()); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.SaveSnapshot(shutdownCtx, src.Stats()); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			return nil
		}
	}
}
