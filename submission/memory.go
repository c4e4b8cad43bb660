package submission

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/staffing-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type memKey struct {
	kind Kind
	key  string
}

type Memory struct {
	mu      sync.RWMutex
	records map[memKey]Submission
}

func NewMemory() *Memory {
	return &Memory{records: make(map[memKey]Submission)}
}

func (m *Memory) Exists(_ context.Context, kind Kind, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[memKey{kind, key}]
	return ok, nil
}

func (m *Memory) Record(_ context.Context, s Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordLocked(s)
}

func (m *Memory) recordLocked(s Submission) error {
	k := memKey{s.Kind, s.Key}
	if _, ok := m.records[k]; ok {
		return generic.ErrAlreadySubmitted
	}
	m.records[k] = s
	return nil
}

func (m *Memory) Get(_ context.Context, kind Kind, key string) (Submission, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.records[memKey{kind, key}]
	return s, ok, nil
}

func (m *Memory) List(_ context.Context, kind Kind) ([]Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(kind), nil
}

func (m *Memory) listLocked(kind Kind) []Submission {
	var out []Submission
	for k, s := range m.records {
		if k.kind == kind {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := make(map[memKey]Submission, len(m.records))
	for k, v := range m.records {
		saved[k] = v
	}
	if err := fn(&memoryTxView{parent: m}); err != nil {
		m.records = saved
		return err
	}
	return nil
}

// memoryTxView runs under the parent's write lock.
type memoryTxView struct {
	parent *Memory
}

func (v *memoryTxView) Exists(_ context.Context, kind Kind, key string) (bool, error) {
	_, ok := v.parent.records[memKey{kind, key}]
	return ok, nil
}

func (v *memoryTxView) Record(_ context.Context, s Submission) error {
	return v.parent.recordLocked(s)
}

func (v *memoryTxView) Get(_ context.Context, kind Kind, key string) (Submission, bool, error) {
	s, ok := v.parent.records[memKey{kind, key}]
	return s, ok, nil
}

func (v *memoryTxView) List(_ context.Context, kind Kind) ([]Submission, error) {
	return v.parent.listLocked(kind), nil
}

var _ TxStore = (*Memory)(nil)
