package store

import (
	"context"
	"sync"
	"time"
)

// Memory is a mutex-guarded in-process TokenStore for tests, examples, and
// single-node deployments. It trivially satisfies the read-after-write
// requirement.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemory returns an empty in-memory token store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*Record)}
}

func (m *Memory) Save(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records[rec.TokenHash] = &cp
	return nil
}

func (m *Memory) GetByHash(_ context.Context, hash string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[hash]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *Memory) Revoke(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[hash]
	if !ok {
		return false, nil
	}
	rec.Revoked = true
	return true, nil
}

func (m *Memory) RevokeAllForUser(_ context.Context, subject string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, rec := range m.records {
		if rec.Subject == subject && !rec.Revoked {
			rec.Revoked = true
			n++
		}
	}
	return n, nil
}

func (m *Memory) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for hash, rec := range m.records {
		if rec.Expired(now) {
			delete(m.records, hash)
			n++
		}
	}
	return n, nil
}
