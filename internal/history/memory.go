package history

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/JonMunkholm/fichas/internal/core"
)

// DefaultMemoryCapacity bounds the in-process store.
const DefaultMemoryCapacity = 1000

// MemoryStore keeps the most recent conversions in process memory.
// Entries are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  []core.Conversion // oldest first
	capacity int
}

// NewMemoryStore returns a store holding at most capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{capacity: capacity}
}

// Record appends c, evicting the oldest entry when full.
func (m *MemoryStore) Record(_ context.Context, c core.Conversion) error {
	c.Duplicates = slices.Clone(c.Duplicates)

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) >= m.capacity {
		m.entries = slices.Delete(m.entries, 0, len(m.entries)-m.capacity+1)
	}
	m.entries = append(m.entries, c)
	return nil
}

// Recent returns up to limit entries, newest first.
func (m *MemoryStore) Recent(_ context.Context, limit int) ([]core.Conversion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]core.Conversion, 0, n)
	for i := len(m.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

// Prune drops entries created before the cutoff.
func (m *MemoryStore) Prune(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	for _, c := range m.entries {
		if !c.CreatedAt.Before(before) {
			kept = append(kept, c)
		}
	}
	removed := int64(len(m.entries) - len(kept))
	clear(m.entries[len(kept):])
	m.entries = kept
	return removed, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
