package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"certquiz-service/internal/domain"
)

// SessionStore keeps in-flight sessions in Redis as JSON with a sliding TTL,
// so any instance can serve any session.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Create(ctx context.Context, qs *domain.QuizSession) error {
	data, err := json.Marshal(qs)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(qs.ID), data, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: session %s already exists", domain.ErrValidation, qs.ID)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.QuizSession, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}
	var qs domain.QuizSession
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	if qs.Answers == nil {
		qs.Answers = make(map[int]string)
	}
	return &qs, nil
}

// Save overwrites an existing session and refreshes its TTL.
func (s *SessionStore) Save(ctx context.Context, qs *domain.QuizSession) error {
	data, err := json.Marshal(qs)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	err = s.client.SetArgs(ctx, s.key(qs.ID), data, redis.SetArgs{Mode: "XX", TTL: s.ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, qs.ID)
	}
	return err
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
