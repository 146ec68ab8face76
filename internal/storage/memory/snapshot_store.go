package memory

import (
	"context"
	"sort"
	"sync"

	"coinswiper/internal/domain"
	"coinswiper/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	rows []*domain.PairSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// InsertBatch appends one sync run's snapshot rows.
func (s *SnapshotStore) InsertBatch(_ context.Context, snaps []*domain.PairSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snaps {
		if snap == nil || snap.PairAddress == "" {
			return storage.ErrInvalidInput
		}
		cp := *snap
		s.rows = append(s.rows, &cp)
	}
	return nil
}

// GetByPair retrieves all snapshots for a pair, oldest first.
func (s *SnapshotStore) GetByPair(_ context.Context, pairAddress string) ([]*domain.PairSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PairSnapshot
	for _, row := range s.rows {
		if row.PairAddress == pairAddress {
			cp := *row
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SyncedAt.Before(result[j].SyncedAt)
	})
	return result, nil
}

// LatestSync returns the rows of the most recent sync run, rank ascending.
func (s *SnapshotStore) LatestSync(_ context.Context) ([]*domain.PairSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.rows) == 0 {
		return nil, nil
	}

	latest := s.rows[0].SyncedAt
	for _, row := range s.rows {
		if row.SyncedAt.After(latest) {
			latest = row.SyncedAt
		}
	}

	var result []*domain.PairSnapshot
	for _, row := range s.rows {
		if row.SyncedAt.Equal(latest) {
			cp := *row
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Rank < result[j].Rank
	})
	return result, nil
}
