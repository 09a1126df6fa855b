package memory

import (
	"context"
	"fmt"
	"sync"

	"certquiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore. Sessions
// are copied on the way in and out so callers never share state.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.QuizSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*domain.QuizSession),
	}
}

func (s *SessionStore) Create(_ context.Context, qs *domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[qs.ID]; ok {
		return fmt.Errorf("%w: session %s already exists", domain.ErrValidation, qs.ID)
	}
	s.sessions[qs.ID] = qs.Clone()
	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (*domain.QuizSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qs, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	return qs.Clone(), nil
}

func (s *SessionStore) Save(_ context.Context, qs *domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[qs.ID]; !ok {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, qs.ID)
	}
	s.sessions[qs.ID] = qs.Clone()
	return nil
}

func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Len reports how many sessions are held.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
