package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"certquiz-service/internal/domain"
)

// AwardStore keeps awarded badges in memory, unique per (user, badge).
type AwardStore struct {
	mu     sync.RWMutex
	awards map[string]map[string]time.Time
}

func NewAwardStore() *AwardStore {
	return &AwardStore{awards: make(map[string]map[string]time.Time)}
}

func (s *AwardStore) LoadAwarded(_ context.Context, userID string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.awards[userID]))
	for id := range s.awards[userID] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *AwardStore) AwardIfAbsent(_ context.Context, a domain.AwardedBadge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.awards[a.UserID]
	if !ok {
		user = make(map[string]time.Time)
		s.awards[a.UserID] = user
	}
	if _, exists := user[a.BadgeID]; exists {
		return false, nil
	}
	user[a.BadgeID] = a.AwardedAt
	return true, nil
}

// ListAwards returns a user's awards ordered by award time, then badge id.
func (s *AwardStore) ListAwards(_ context.Context, userID string) ([]domain.AwardedBadge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AwardedBadge, 0, len(s.awards[userID]))
	for id, at := range s.awards[userID] {
		out = append(out, domain.AwardedBadge{UserID: userID, BadgeID: id, AwardedAt: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AwardedAt.Equal(out[j].AwardedAt) {
			return out[i].AwardedAt.Before(out[j].AwardedAt)
		}
		return out[i].BadgeID < out[j].BadgeID
	})
	return out, nil
}
