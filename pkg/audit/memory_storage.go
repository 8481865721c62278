package audit

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryStorage implements Storage in memory. Entries are held newest first;
// returned records carry copied payload maps.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryStorage creates an empty in-memory audit storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Store(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, copyEntry(entry))
	return nil
}

func (m *MemoryStorage) StoreBatch(ctx context.Context, entries []Entry) error {
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range entries {
		m.entries = append(m.entries, copyEntry(entry))
	}
	return nil
}

func (m *MemoryStorage) Query(ctx context.Context, criteria Criteria) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Entry
	for _, entry := range m.entries {
		if criteria.matches(entry) {
			matched = append(matched, copyEntry(entry))
		}
	}
	slices.SortStableFunc(matched, func(a, b Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if criteria.Offset > 0 {
		if criteria.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[criteria.Offset:]
	}
	if criteria.Limit > 0 && len(matched) > criteria.Limit {
		matched = matched[:criteria.Limit]
	}
	return matched, nil
}

func (m *MemoryStorage) Count(ctx context.Context, criteria Criteria) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, entry := range m.entries {
		if criteria.matches(entry) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	var removed int64
	for _, entry := range m.entries {
		if entry.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	m.entries = kept
	return removed, nil
}

func copyEntry(e Entry) Entry {
	cp := e
	if e.Request != nil {
		cp.Request = make(map[string]any, len(e.Request))
		maps.Copy(cp.Request, e.Request)
	}
	if e.Response != nil {
		cp.Response = make(map[string]any, len(e.Response))
		maps.Copy(cp.Response, e.Response)
	}
	return cp
}

var _ BatchStorage = (*MemoryStorage)(nil)
