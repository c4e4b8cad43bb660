package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/overlay"
)

// =============================================================================
// OVERLAY STORE (overlay.Store interface)
// =============================================================================

// OverlayStore persists forecast overrides in overlay_deltas.
type OverlayStore struct {
	s *Store
}

// Overlays returns the overlay.Store view of the database.
func (s *Store) Overlays() *OverlayStore {
	return &OverlayStore{s: s}
}

func (o *OverlayStore) Get(ctx context.Context, scope string, key overlay.Key) (overlay.Delta, bool, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	var value, updatedAt string
	err := o.s.db.QueryRowContext(ctx, `
		SELECT value, updated_at FROM overlay_deltas
		WHERE scope = ? AND kind = ? AND entity_id = ? AND field = ?
	`, scope, key.Kind, key.EntityID, key.Field).Scan(&value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return overlay.Delta{}, false, nil
	}
	if err != nil {
		return overlay.Delta{}, false, fmt.Errorf("failed to read override %s: %w", key, err)
	}
	d, err := toDelta(key, value, updatedAt)
	if err != nil {
		return overlay.Delta{}, false, err
	}
	return d, true, nil
}

func (o *OverlayStore) Set(ctx context.Context, scope string, key overlay.Key, value decimal.Decimal) error {
	return o.Apply(ctx, scope, []overlay.Write{overlay.SetWrite(key, value)})
}

func (o *OverlayStore) Clear(ctx context.Context, scope string, key overlay.Key) error {
	return o.Apply(ctx, scope, []overlay.Write{overlay.ClearWrite(key)})
}

func (o *OverlayStore) Snapshot(ctx context.Context, scope string) (overlay.Snapshot, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	rows, err := o.s.db.QueryContext(ctx,
		"SELECT kind, entity_id, field, value FROM overlay_deltas WHERE scope = ?", scope)
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer rows.Close()

	snap := make(overlay.Snapshot)
	for rows.Next() {
		var (
			key   overlay.Key
			value string
		)
		if err := rows.Scan(&key.Kind, &key.EntityID, &key.Field, &value); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		if snap[key], err = parseDecimal("override "+key.String(), value); err != nil {
			return nil, err
		}
	}
	return snap, rows.Err()
}

// Apply runs the batch in one database transaction.
func (o *OverlayStore) Apply(ctx context.Context, scope string, writes []overlay.Write) error {
	for _, w := range writes {
		if err := w.Validate(); err != nil {
			return err
		}
	}
	now := o.s.now()
	return o.s.inTx(ctx, func(q querier) error {
		for _, w := range writes {
			var err error
			switch w.Op {
			case overlay.OpSet:
				_, err = q.ExecContext(ctx, `
					INSERT INTO overlay_deltas (scope, kind, entity_id, field, value, updated_at)
					VALUES (?, ?, ?, ?, ?, ?)
					ON CONFLICT(scope, kind, entity_id, field) DO UPDATE SET
						value = excluded.value,
						updated_at = excluded.updated_at
				`, scope, w.Key.Kind, w.Key.EntityID, w.Key.Field, w.Value.String(), now)
			case overlay.OpClear:
				_, err = q.ExecContext(ctx, `
					DELETE FROM overlay_deltas
					WHERE scope = ? AND kind = ? AND entity_id = ? AND field = ?
				`, scope, w.Key.Kind, w.Key.EntityID, w.Key.Field)
			}
			if err != nil {
				return fmt.Errorf("failed to %s override %s: %w", w.Op, w.Key, err)
			}
		}
		return nil
	})
}

func toDelta(key overlay.Key, value, updatedAt string) (overlay.Delta, error) {
	v, err := parseDecimal("override "+key.String(), value)
	if err != nil {
		return overlay.Delta{}, err
	}
	at, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return overlay.Delta{}, fmt.Errorf("%w: corrupt updated_at %q", generic.ErrInvalidInput, updatedAt)
	}
	return overlay.Delta{Key: key, Value: v, UpdatedAt: at}, nil
}

var _ overlay.Store = (*OverlayStore)(nil)
