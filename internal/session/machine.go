// Package session implements the lifecycle of a single quiz attempt:
// Created -> InProgress -> Completed. Completed is terminal.
//
// The functions mutate the *domain.QuizSession they are given and perform no
// I/O; callers serialize access per session and persist the result.
package session

import (
	"fmt"
	"math"
	"time"

	"certquiz-service/internal/domain"
	"certquiz-service/internal/scoring"
)

// New builds a session in the Created state with a fixed question order.
func New(id, userID, category string, questions []domain.QuestionRef, now time.Time) *domain.QuizSession {
	return &domain.QuizSession{
		ID:        id,
		UserID:    userID,
		Category:  category,
		Status:    domain.StatusCreated,
		Questions: append([]domain.QuestionRef(nil), questions...),
		Answers:   make(map[int]string, len(questions)),
		StartedAt: now,
	}
}

// Start creates a session from drawn questions and moves it to InProgress.
func Start(id, userID, category string, questions []domain.QuestionRef, now time.Time) (*domain.QuizSession, error) {
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestionsAvailable
	}
	for _, q := range questions {
		if err := scoring.ValidateQuestion(q); err != nil {
			return nil, err
		}
	}
	s := New(id, userID, category, questions, now)
	s.Status = domain.StatusInProgress
	return s, nil
}

// Current returns the question at the cursor. done is true once every
// question has been answered.
func Current(s *domain.QuizSession) (q domain.QuestionRef, position int, done bool) {
	if s.CurrentIndex >= len(s.Questions) {
		return domain.QuestionRef{}, len(s.Questions), true
	}
	return s.Questions[s.CurrentIndex], s.CurrentIndex, false
}

// SubmitAnswer records the answer for the question at the cursor and advances
// by one. Once every question is answered further submissions are no-ops, so
// a retried request never pushes the cursor out of bounds.
func SubmitAnswer(s *domain.QuizSession, raw string) error {
	if err := requireInProgress(s); err != nil {
		return err
	}
	if s.CurrentIndex >= len(s.Questions) {
		return nil
	}
	return record(s, s.CurrentIndex, raw)
}

// SubmitAnswerAt records an answer for an explicit position. Positions already
// answered are no-ops (the retry already happened); positions ahead of the
// cursor are rejected.
func SubmitAnswerAt(s *domain.QuizSession, position int, raw string) error {
	if err := requireInProgress(s); err != nil {
		return err
	}
	if position < 0 || position >= len(s.Questions) {
		return fmt.Errorf("%w: question position %d out of range [0,%d)", domain.ErrValidation, position, len(s.Questions))
	}
	if position < s.CurrentIndex {
		return nil
	}
	if position > s.CurrentIndex {
		return fmt.Errorf("%w: question position %d is ahead of current position %d", domain.ErrValidation, position, s.CurrentIndex)
	}
	return record(s, position, raw)
}

// Complete scores the session and marks it Completed. Calling it again on a
// completed session returns the cached results with first == false.
func Complete(s *domain.QuizSession, now time.Time) (results []domain.ScoredResult, first bool, err error) {
	switch s.Status {
	case domain.StatusCompleted:
		return s.Results, false, nil
	case domain.StatusInProgress:
	default:
		return nil, false, fmt.Errorf("%w: cannot complete session in state %s", domain.ErrInvalidTransition, s.Status)
	}
	if s.CurrentIndex != len(s.Questions) {
		return nil, false, fmt.Errorf("%w: %d of %d questions answered", domain.ErrInvalidTransition, s.CurrentIndex, len(s.Questions))
	}

	completedAt := now
	s.Results = scoring.ScoreAll(s.Questions, s.Answers)
	s.CompletedAt = &completedAt
	s.TimeTakenMinutes = TimeTakenMinutes(s.StartedAt, completedAt)
	s.Status = domain.StatusCompleted
	return s.Results, true, nil
}

// TimeTakenMinutes rounds the elapsed time to whole minutes. Clock skew that
// yields a negative duration clamps to zero.
func TimeTakenMinutes(startedAt, completedAt time.Time) int {
	minutes := math.Round(completedAt.Sub(startedAt).Minutes())
	if minutes < 0 {
		return 0
	}
	return int(minutes)
}

func requireInProgress(s *domain.QuizSession) error {
	if s.Status != domain.StatusInProgress {
		return fmt.Errorf("%w: cannot answer session in state %s", domain.ErrInvalidTransition, s.Status)
	}
	return nil
}

func record(s *domain.QuizSession, position int, raw string) error {
	norm, err := scoring.Normalize(raw)
	if err != nil {
		return err
	}
	q := s.Questions[position]
	for _, r := range norm {
		if !q.HasOption(string(r)) {
			return fmt.Errorf("%w: question %s has no option %c", domain.ErrValidation, q.ID, r)
		}
	}
	if _, exists := s.Answers[position]; exists {
		return nil
	}
	if s.Answers == nil {
		s.Answers = make(map[int]string, len(s.Questions))
	}
	s.Answers[position] = norm
	s.CurrentIndex++
	return nil
}
