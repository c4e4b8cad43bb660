package forecast

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/staffing-engine/generic"
)

// MemorySnapshots is an in-memory SnapshotStore for tests and dev.
type MemorySnapshots struct {
	mu     sync.RWMutex
	byID   map[string]Snapshot
	byName map[string]string
}

func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{
		byID:   make(map[string]Snapshot),
		byName: make(map[string]string),
	}
}

func (m *MemorySnapshots) SaveSnapshot(_ context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byName[s.Name]; taken {
		return generic.ErrDuplicateSnapshot
	}
	m.byID[s.ID] = s
	m.byName[s.Name] = s.ID
	return nil
}

func (m *MemorySnapshots) GetSnapshot(_ context.Context, id string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[id]
	if !ok {
		return Snapshot{}, generic.ErrSnapshotNotFound
	}
	return s, nil
}

func (m *MemorySnapshots) FindSnapshotByName(_ context.Context, name string) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[name]
	if !ok {
		return Snapshot{}, false, nil
	}
	return m.byID[id], true, nil
}

func (m *MemorySnapshots) ListSnapshots(_ context.Context) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var _ SnapshotStore = (*MemorySnapshots)(nil)
