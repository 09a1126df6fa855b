package memory

import (
	"context"
	"sync"
	"time"

	"certquiz-service/internal/domain"
)

// PerformanceStore keeps snapshots in memory.
type PerformanceStore struct {
	mu        sync.RWMutex
	snapshots map[string]domain.PerformanceSnapshot
}

func NewPerformanceStore() *PerformanceStore {
	return &PerformanceStore{snapshots: make(map[string]domain.PerformanceSnapshot)}
}

func (s *PerformanceStore) LoadSnapshot(_ context.Context, userID string) (domain.PerformanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[userID]
	if !ok {
		return domain.PerformanceSnapshot{UserID: userID}, nil
	}
	return copySnapshot(snap), nil
}

func (s *PerformanceStore) SaveSnapshot(_ context.Context, snap domain.PerformanceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.UserID] = copySnapshot(snap)
	return nil
}

func copySnapshot(snap domain.PerformanceSnapshot) domain.PerformanceSnapshot {
	snap.FirstQuizAt = copyTime(snap.FirstQuizAt)
	snap.LastQuizAt = copyTime(snap.LastQuizAt)
	return snap
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
