package overlay

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Interface for override persistence
// =============================================================================

// Store persists overrides per scope. Writes are last-write-wins per key.
type Store interface {
	// Get returns the override for key. The flag is false when none is stored.
	Get(ctx context.Context, scope string, key Key) (Delta, bool, error)

	// Set stores value unconditionally.
	Set(ctx context.Context, scope string, key Key, value decimal.Decimal) error

	// Clear removes the override. Clearing an absent key is not an error.
	Clear(ctx context.Context, scope string, key Key) error

	// Snapshot returns every override in scope.
	Snapshot(ctx context.Context, scope string) (Snapshot, error)

	// Apply performs all writes atomically: either all land or none do.
	Apply(ctx context.Context, scope string, writes []Write) error
}
