package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"certquiz-service/internal/domain"
)

// ResultStore keeps completed session results in memory.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.SessionResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.SessionResult)}
}

func (s *ResultStore) SaveSessionResult(_ context.Context, res domain.SessionResult) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[res.SessionID]; ok {
		return false, nil
	}
	res.Results = append([]domain.ScoredResult(nil), res.Results...)
	res.Applied = false
	s.results[res.SessionID] = res
	return true, nil
}

// MarkApplied flags a stored result as folded into the user's aggregates.
func (s *ResultStore) MarkApplied(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[sessionID]
	if !ok {
		return fmt.Errorf("%w: session result %s", domain.ErrNotFound, sessionID)
	}
	res.Applied = true
	s.results[sessionID] = res
	return nil
}

func (s *ResultStore) GetSessionResult(_ context.Context, sessionID string) (domain.SessionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[sessionID]
	if !ok {
		return domain.SessionResult{}, fmt.Errorf("%w: session result %s", domain.ErrNotFound, sessionID)
	}
	res.Results = append([]domain.ScoredResult(nil), res.Results...)
	return res, nil
}

// ListUserResults returns a user's results, oldest first.
func (s *ResultStore) ListUserResults(_ context.Context, userID string) ([]domain.SessionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.SessionResult
	for _, res := range s.results {
		if res.UserID == userID {
			res.Results = append([]domain.ScoredResult(nil), res.Results...)
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.Before(out[j].CompletedAt)
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out, nil
}
