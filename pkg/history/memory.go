package history

import (
	"context"
	"sync"
	"time"
)

// DefaultMemoryCapacity bounds the in-memory backend.
const DefaultMemoryCapacity = 10000

// MemoryStorage is an in-memory Storage implementation, used for tests and
// short-lived runs where persistence is unwanted. When the capacity is
// reached the oldest records are evicted.
type MemoryStorage struct {
	mu       sync.RWMutex
	records  []*Exchange
	capacity int
}

// NewMemoryStorage creates an in-memory storage with the given capacity.
// A capacity of zero or less uses DefaultMemoryCapacity.
func NewMemoryStorage(capacity int) *MemoryStorage {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStorage{capacity: capacity}
}

// Save stores a record, evicting the oldest when full.
func (m *MemoryStorage) Save(_ context.Context, ex *Exchange) error {
	cp := *ex

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, &cp)
	if len(m.records) > m.capacity {
		m.records = m.records[len(m.records)-m.capacity:]
	}
	return nil
}

// Recent returns up to limit records, most recent first.
func (m *MemoryStorage) Recent(_ context.Context, limit int) ([]*Exchange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.records)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]*Exchange, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		cp := *m.records[i]
		out = append(out, &cp)
	}
	return out, nil
}

// Count returns the number of stored records.
func (m *MemoryStorage) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.records)), nil
}

// DeleteOlderThan removes records completed before the cutoff.
func (m *MemoryStorage) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	var deleted int64
	for _, rec := range m.records {
		if rec.CompletedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	m.records = kept
	return deleted, nil
}

// Close is a no-op for the memory backend.
func (m *MemoryStorage) Close() error {
	return nil
}
