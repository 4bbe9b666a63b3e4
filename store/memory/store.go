// Package memory implements store.Store in process memory. Safe for
// concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps one snapshot per job.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]*job.Snapshot
}

// New returns a new empty Store.
func New() *Store {
	return &Store{snapshots: make(map[string]*job.Snapshot)}
}

// LastSnapshot returns a copy of the stored snapshot of jobID.
func (m *Store) LastSnapshot(_ context.Context, jobID string) (*job.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[jobID]
	if !ok {
		return nil, job.ErrNotFound
	}
	return s.Clone(), nil
}

// SaveSnapshot stores a copy of s, replacing any earlier one.
func (m *Store) SaveSnapshot(_ context.Context, s *job.Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[s.ID] = s.Clone()
	return nil
}

// DeleteSnapshot forgets jobID.
func (m *Store) DeleteSnapshot(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, jobID)
	return nil
}

// ListSnapshots returns copies of every snapshot ordered by job id.
func (m *Store) ListSnapshots(_ context.Context) ([]*job.Snapshot, error) {
	m.mu.RLock()
	out := make([]*job.Snapshot, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		out = append(out, s.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }
