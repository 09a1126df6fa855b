// Package notify delivers newly awarded badges to user-facing sinks.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"certquiz-service/internal/domain"
)

// Sink receives newly awarded badges.
type Sink interface {
	NotifyBadges(ctx context.Context, userID string, badges []domain.Badge) error
}

// LogSink writes awards to the structured log.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) NotifyBadges(_ context.Context, userID string, badges []domain.Badge) error {
	for _, b := range badges {
		s.log.Info("new badge",
			zap.String("user_id", userID),
			zap.String("badge_id", b.ID),
			zap.String("badge", b.Name))
	}
	return nil
}

// Multi fans out to every sink and joins their errors.
type Multi []Sink

func (m Multi) NotifyBadges(ctx context.Context, userID string, badges []domain.Badge) error {
	var errs []error
	for _, s := range m {
		if err := s.NotifyBadges(ctx, userID, badges); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
