package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/warp/staffing-engine/forecast"
	"github.com/warp/staffing-engine/generic"
)

// =============================================================================
// SNAPSHOT STORE (forecast.SnapshotStore interface)
// =============================================================================

// SaveSnapshot stores a computed forecast. Names are unique.
func (s *Store) SaveSnapshot(ctx context.Context, snap forecast.Snapshot) error {
	resultJSON, err := json.Marshal(snap.Result)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", snap.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO forecast_snapshots (id, name, month, result_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, snap.ID, snap.Name, snap.Month, string(resultJSON), snap.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateSnapshot
		}
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *Store) GetSnapshot(ctx context.Context, id string) (forecast.Snapshot, error) {
	snap, ok, err := s.findSnapshot(ctx, "id", id)
	if err != nil {
		return forecast.Snapshot{}, err
	}
	if !ok {
		return forecast.Snapshot{}, generic.ErrSnapshotNotFound
	}
	return snap, nil
}

func (s *Store) FindSnapshotByName(ctx context.Context, name string) (forecast.Snapshot, bool, error) {
	return s.findSnapshot(ctx, "name", name)
}

// ListSnapshots returns snapshots oldest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]forecast.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, month, result_json, created_at
		FROM forecast_snapshots
		ORDER BY created_at, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []forecast.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// findSnapshot looks a snapshot up by one of its unique columns.
func (s *Store) findSnapshot(ctx context.Context, column, value string) (forecast.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, month, result_json, created_at
		FROM forecast_snapshots WHERE `+column+` = ?
	`, value)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return forecast.Snapshot{}, false, nil
	}
	if err != nil {
		return forecast.Snapshot{}, false, err
	}
	return snap, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (forecast.Snapshot, error) {
	var (
		snap                  forecast.Snapshot
		resultJSON, createdAt string
	)
	if err := row.Scan(&snap.ID, &snap.Name, &snap.Month, &resultJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return snap, err
		}
		return snap, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &snap.Result); err != nil {
		return snap, fmt.Errorf("corrupt snapshot %s: %w", snap.ID, err)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return snap, fmt.Errorf("corrupt snapshot %s created_at: %w", snap.ID, err)
	}
	snap.CreatedAt = t
	return snap, nil
}

var _ forecast.SnapshotStore = (*Store)(nil)
