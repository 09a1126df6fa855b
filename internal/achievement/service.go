package achievement

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"certquiz-service/internal/domain"
	"certquiz-service/internal/lock"
)

// AwardStore persists awarded badges. AwardIfAbsent must be an insert-if-absent
// keyed by (userID, badgeID) and report whether a row was written.
type AwardStore interface {
	LoadAwarded(ctx context.Context, userID string) (map[string]struct{}, error)
	AwardIfAbsent(ctx context.Context, award domain.AwardedBadge) (bool, error)
	ListAwards(ctx context.Context, userID string) ([]domain.AwardedBadge, error)
}

// Service runs the award critical section for a user.
type Service struct {
	catalog []domain.Badge
	awards  AwardStore
	locks   lock.Locker
	now     func() time.Time
	log     *zap.Logger
}

func NewService(catalog []domain.Badge, awards AwardStore, locks lock.Locker, log *zap.Logger) *Service {
	return NewServiceWithClock(catalog, awards, locks, log, time.Now)
}

// NewServiceWithClock allows deterministic award timestamps in tests.
func NewServiceWithClock(catalog []domain.Badge, awards AwardStore, locks lock.Locker, log *zap.Logger, now func() time.Time) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{catalog: catalog, awards: awards, locks: locks, now: now, log: log}
}

// Catalog returns the configured badge rules.
func (s *Service) Catalog() []domain.Badge {
	return append([]domain.Badge(nil), s.catalog...)
}

// Award evaluates snap and records every newly qualifying badge. It returns
// only the badges this call actually inserted, so concurrent or retried calls
// never report the same award twice.
func (s *Service) Award(ctx context.Context, snap domain.PerformanceSnapshot) ([]domain.Badge, error) {
	unlock, err := s.locks.Lock(ctx, lock.UserKey(snap.UserID))
	if err != nil {
		return nil, fmt.Errorf("lock user %s: %w", snap.UserID, err)
	}
	defer unlock()
	return s.AwardLocked(ctx, snap)
}

// AwardLocked is Award for callers that already hold the user's lock.
func (s *Service) AwardLocked(ctx context.Context, snap domain.PerformanceSnapshot) ([]domain.Badge, error) {
	awarded, err := s.awards.LoadAwarded(ctx, snap.UserID)
	if err != nil {
		return nil, fmt.Errorf("load awarded badges: %w", err)
	}

	candidates := Evaluate(snap, s.catalog, awarded)
	if len(candidates) == 0 {
		return nil, nil
	}

	now := s.now()
	var granted []domain.Badge
	for _, b := range candidates {
		inserted, err := s.awards.AwardIfAbsent(ctx, domain.AwardedBadge{
			UserID:    snap.UserID,
			BadgeID:   b.ID,
			AwardedAt: now,
		})
		if err != nil {
			return granted, fmt.Errorf("award badge %s: %w", b.ID, err)
		}
		if !inserted {
			continue
		}
		s.log.Info("badge awarded", zap.String("user_id", snap.UserID), zap.String("badge_id", b.ID))
		granted = append(granted, b)
	}
	return granted, nil
}

// Earned lists the catalog badges a user holds, with award times.
func (s *Service) Earned(ctx context.Context, userID string) ([]EarnedBadge, error) {
	awards, err := s.awards.ListAwards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list awards: %w", err)
	}
	byID := make(map[string]domain.Badge, len(s.catalog))
	for _, b := range s.catalog {
		byID[b.ID] = b
	}
	out := make([]EarnedBadge, 0, len(awards))
	for _, a := range awards {
		b, ok := byID[a.BadgeID]
		if !ok {
			b = domain.Badge{ID: a.BadgeID, Name: a.BadgeID}
		}
		out = append(out, EarnedBadge{Badge: b, AwardedAt: a.AwardedAt})
	}
	return out, nil
}

// EarnedBadge is a badge together with the time it was awarded.
type EarnedBadge struct {
	domain.Badge
	AwardedAt time.Time `json:"awardedAt"`
}
