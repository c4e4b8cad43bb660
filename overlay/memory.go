package overlay

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	scopes map[string]map[Key]Delta
	clock  generic.Clock
}

func NewMemory() *Memory {
	return NewMemoryWithClock(generic.SystemClock{})
}

func NewMemoryWithClock(clock generic.Clock) *Memory {
	return &Memory{
		scopes: make(map[string]map[Key]Delta),
		clock:  clock,
	}
}

func (m *Memory) Get(_ context.Context, scope string, key Key) (Delta, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.scopes[scope][key]
	return d, ok, nil
}

func (m *Memory) Set(ctx context.Context, scope string, key Key, value decimal.Decimal) error {
	return m.Apply(ctx, scope, []Write{SetWrite(key, value)})
}

func (m *Memory) Clear(ctx context.Context, scope string, key Key) error {
	return m.Apply(ctx, scope, []Write{ClearWrite(key)})
}

func (m *Memory) Snapshot(_ context.Context, scope string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(Snapshot, len(m.scopes[scope]))
	for k, d := range m.scopes[scope] {
		out[k] = d.Value
	}
	return out, nil
}

// Apply validates and writes the batch under a single lock.
func (m *Memory) Apply(ctx context.Context, scope string, writes []Write) error {
	return m.WithTx(ctx, func(tx *MemoryTx) error {
		for _, w := range writes {
			if err := tx.write(scope, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// TRANSACTIONS - snapshot + rollback on error
// =============================================================================

// MemoryTx is the view handed to WithTx callbacks. It must not escape fn.
type MemoryTx struct {
	parent *Memory
}

// WithTx executes fn while holding the write lock. When fn returns an
// error every change it made is rolled back.
func (m *Memory) WithTx(_ context.Context, fn func(tx *MemoryTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := m.copyScopes()
	if err := fn(&MemoryTx{parent: m}); err != nil {
		m.scopes = saved
		return err
	}
	return nil
}

func (tx *MemoryTx) Set(scope string, key Key, value decimal.Decimal) error {
	return tx.write(scope, SetWrite(key, value))
}

func (tx *MemoryTx) Clear(scope string, key Key) error {
	return tx.write(scope, ClearWrite(key))
}

func (tx *MemoryTx) Get(scope string, key Key) (Delta, bool) {
	d, ok := tx.parent.scopes[scope][key]
	return d, ok
}

func (tx *MemoryTx) write(scope string, w Write) error {
	if err := w.Validate(); err != nil {
		return err
	}
	m := tx.parent
	switch w.Op {
	case OpSet:
		if m.scopes[scope] == nil {
			m.scopes[scope] = make(map[Key]Delta)
		}
		m.scopes[scope][w.Key] = Delta{Key: w.Key, Value: w.Value, UpdatedAt: m.clock.Now()}
	case OpClear:
		delete(m.scopes[scope], w.Key)
	}
	return nil
}

func (m *Memory) copyScopes() map[string]map[Key]Delta {
	out := make(map[string]map[Key]Delta, len(m.scopes))
	for scope, deltas := range m.scopes {
		cp := make(map[Key]Delta, len(deltas))
		for k, d := range deltas {
			cp[k] = d
		}
		out[scope] = cp
	}
	return out
}

var _ Store = (*Memory)(nil)
