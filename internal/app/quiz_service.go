package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"certquiz-service/internal/achievement"
	"certquiz-service/internal/domain"
	"certquiz-service/internal/lock"
	"certquiz-service/internal/performance"
	"certquiz-service/internal/scoring"
	"certquiz-service/internal/session"
)

// QuestionBank draws randomized questions without duplicates.
type QuestionBank interface {
	Draw(ctx context.Context, category string, count int) ([]domain.QuestionRef, error)
}

// SessionStore abstracts how in-flight quiz sessions are stored (in-memory, Redis, etc).
type SessionStore interface {
	Create(ctx context.Context, s *domain.QuizSession) error
	Get(ctx context.Context, sessionID string) (*domain.QuizSession, error)
	Save(ctx context.Context, s *domain.QuizSession) error
	Delete(ctx context.Context, sessionID string) error
}

// ResultStore persists completed sessions. SaveSessionResult is an
// insert-if-absent keyed by session id. MarkApplied records that a result has
// been folded into the user's snapshot.
type ResultStore interface {
	SaveSessionResult(ctx context.Context, res domain.SessionResult) (bool, error)
	GetSessionResult(ctx context.Context, sessionID string) (domain.SessionResult, error)
	ListUserResults(ctx context.Context, userID string) ([]domain.SessionResult, error)
	MarkApplied(ctx context.Context, sessionID string) error
}

// PerformanceStore loads and saves snapshots. LoadSnapshot returns an empty
// snapshot for users without completed sessions.
type PerformanceStore interface {
	LoadSnapshot(ctx context.Context, userID string) (domain.PerformanceSnapshot, error)
	SaveSnapshot(ctx context.Context, snap domain.PerformanceSnapshot) error
}

// Notifier receives newly granted badges for user-facing display.
type Notifier interface {
	NotifyBadges(ctx context.Context, userID string, badges []domain.Badge) error
}

// Options tunes question counts.
type Options struct {
	DefaultCount int
	MaxCount     int
}

// Deps groups the collaborators of QuizService.
type Deps struct {
	Questions    QuestionBank
	Sessions     SessionStore
	Results      ResultStore
	Performance  PerformanceStore
	Achievements *achievement.Service
	Notifier     Notifier
	Locks        lock.Locker
	Logger       *zap.Logger
	Options      Options
	Clock        func() time.Time
	NewID        func() string
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	questions    QuestionBank
	sessions     SessionStore
	results      ResultStore
	performance  PerformanceStore
	achievements *achievement.Service
	notifier     Notifier
	locks        lock.Locker
	log          *zap.Logger
	opts         Options
	now          func() time.Time
	newID        func() string
}

func NewQuizService(d Deps) *QuizService {
	s := &QuizService{
		questions:    d.Questions,
		sessions:     d.Sessions,
		results:      d.Results,
		performance:  d.Performance,
		achievements: d.Achievements,
		notifier:     d.Notifier,
		locks:        d.Locks,
		log:          d.Logger,
		opts:         d.Options,
		now:          d.Clock,
		newID:        d.NewID,
	}
	if s.locks == nil {
		s.locks = lock.NewKeyedMutex()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.opts.DefaultCount <= 0 {
		s.opts.DefaultCount = 20
	}
	if s.opts.MaxCount <= 0 {
		s.opts.MaxCount = 100
	}
	return s
}

// Outcome is what a finished session reports back to the caller.
type Outcome struct {
	SessionID        string                      `json:"sessionId"`
	Results          []domain.ScoredResult       `json:"results"`
	Tally            domain.Tally                `json:"tally"`
	TimeTakenMinutes int                         `json:"timeTakenMinutes"`
	Snapshot         *domain.PerformanceSnapshot `json:"snapshot,omitempty"`
	NewBadges        []domain.Badge              `json:"newBadges"`
}

// Start draws questions and opens a new in-progress session.
func (s *QuizService) Start(ctx context.Context, userID string, count int, category string) (*domain.QuizSession, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrValidation)
	}
	if count <= 0 {
		count = s.opts.DefaultCount
	}
	count = min(count, s.opts.MaxCount)

	questions, err := s.questions.Draw(ctx, category, count)
	if err != nil {
		return nil, err
	}
	qs, err := session.Start(s.newID(), userID, category, questions, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, qs); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.log.Info("quiz started",
		zap.String("session_id", qs.ID),
		zap.String("user_id", userID),
		zap.String("category", category),
		zap.Int("questions", len(qs.Questions)))
	return qs, nil
}

// Current returns the question at the session cursor.
func (s *QuizService) Current(ctx context.Context, sessionID string) (domain.QuestionRef, int, bool, error) {
	qs, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.QuestionRef{}, 0, false, err
	}
	q, pos, done := session.Current(qs)
	return q, pos, done, nil
}

// Session returns a copy of the in-flight session.
func (s *QuizService) Session(ctx context.Context, sessionID string) (*domain.QuizSession, error) {
	return s.sessions.Get(ctx, sessionID)
}

// SubmitAnswer records an answer for the current question. Submissions past
// the last question are accepted as no-ops.
func (s *QuizService) SubmitAnswer(ctx context.Context, sessionID, raw string) (*domain.QuizSession, error) {
	return s.mutate(ctx, sessionID, func(qs *domain.QuizSession) error {
		return session.SubmitAnswer(qs, raw)
	})
}

// SubmitAnswerAt records an answer for an explicit position.
func (s *QuizService) SubmitAnswerAt(ctx context.Context, sessionID string, position int, raw string) (*domain.QuizSession, error) {
	return s.mutate(ctx, sessionID, func(qs *domain.QuizSession) error {
		return session.SubmitAnswerAt(qs, position, raw)
	})
}

func (s *QuizService) mutate(ctx context.Context, sessionID string, fn func(*domain.QuizSession) error) (*domain.QuizSession, error) {
	unlock, err := s.locks.Lock(ctx, lock.SessionKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("lock session %s: %w", sessionID, err)
	}
	defer unlock()

	qs, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	before := qs.CurrentIndex
	if err := fn(qs); err != nil {
		return nil, err
	}
	if qs.CurrentIndex != before {
		if err := s.sessions.Save(ctx, qs); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
	}
	return qs, nil
}

// Finish completes a session and, exactly once per session, persists the
// result, folds it into the user's snapshot, awards badges and notifies.
// Retries return the stored outcome. A result whose aggregate step failed is
// applied again on retry.
func (s *QuizService) Finish(ctx context.Context, sessionID string) (Outcome, error) {
	unlock, err := s.locks.Lock(ctx, lock.SessionKey(sessionID))
	if err != nil {
		return Outcome{}, fmt.Errorf("lock session %s: %w", sessionID, err)
	}
	defer unlock()

	qs, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		// Already finalized and cleared from working storage.
		res, rerr := s.results.GetSessionResult(ctx, sessionID)
		if rerr != nil {
			return Outcome{}, rerr
		}
		return s.settle(ctx, res, false)
	}
	if err != nil {
		return Outcome{}, err
	}

	results, first, err := session.Complete(qs, s.now())
	if err != nil {
		return Outcome{}, err
	}
	if first {
		if err := s.sessions.Save(ctx, qs); err != nil {
			return Outcome{}, fmt.Errorf("save session: %w", err)
		}
	}

	res := domain.SessionResult{
		SessionID:        qs.ID,
		UserID:           qs.UserID,
		Category:         qs.Category,
		Results:          results,
		Tally:            scoring.Tally(results),
		TimeTakenMinutes: qs.TimeTakenMinutes,
		StartedAt:        qs.StartedAt,
		CompletedAt:      *qs.CompletedAt,
	}

	inserted, err := s.results.SaveSessionResult(ctx, res)
	if err != nil {
		return Outcome{}, fmt.Errorf("save session result: %w", err)
	}
	if !inserted {
		if res, err = s.results.GetSessionResult(ctx, sessionID); err != nil {
			return Outcome{}, err
		}
	}
	out, err := s.settle(ctx, res, inserted)
	if err != nil {
		return Outcome{}, err
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.log.Warn("clear finished session", zap.String("session_id", sessionID), zap.Error(err))
	}
	return out, nil
}

// settle applies a stored result to the user's aggregates unless that already
// happened. A fresh result is folded in incrementally; a result left unapplied
// by an earlier failure is recovered by replaying the user's whole history, so
// a snapshot that was saved before the failure is never counted twice.
func (s *QuizService) settle(ctx context.Context, res domain.SessionResult, fresh bool) (Outcome, error) {
	out := outcomeFromResult(res)
	if res.Applied {
		return out, nil
	}
	snap, badges, err := s.recordOutcome(ctx, res, !fresh)
	if err != nil {
		return Outcome{}, err
	}
	out.Snapshot = &snap
	if badges != nil {
		out.NewBadges = badges
	}
	s.log.Info("quiz completed",
		zap.String("session_id", res.SessionID),
		zap.String("user_id", res.UserID),
		zap.Float64("percentage", res.Tally.Percentage),
		zap.Int("time_taken_minutes", res.TimeTakenMinutes),
		zap.Int("new_badges", len(badges)),
		zap.Bool("recovered", !fresh))
	return out, nil
}

// recordOutcome runs the aggregate and award steps under the user's lock so
// back-to-back sessions of one user never interleave.
func (s *QuizService) recordOutcome(ctx context.Context, res domain.SessionResult, replay bool) (domain.PerformanceSnapshot, []domain.Badge, error) {
	unlock, err := s.locks.Lock(ctx, lock.UserKey(res.UserID))
	if err != nil {
		return domain.PerformanceSnapshot{}, nil, fmt.Errorf("lock user %s: %w", res.UserID, err)
	}
	defer unlock()

	var snap domain.PerformanceSnapshot
	if replay {
		history, err := s.results.ListUserResults(ctx, res.UserID)
		if err != nil {
			return domain.PerformanceSnapshot{}, nil, fmt.Errorf("list results: %w", err)
		}
		snap = performance.Replay(res.UserID, history)
	} else {
		snap, err = s.performance.LoadSnapshot(ctx, res.UserID)
		if err != nil {
			return domain.PerformanceSnapshot{}, nil, fmt.Errorf("load snapshot: %w", err)
		}
		snap.UserID = res.UserID
		snap = performance.ApplyResult(snap, res)
	}
	if err := s.performance.SaveSnapshot(ctx, snap); err != nil {
		return domain.PerformanceSnapshot{}, nil, fmt.Errorf("save snapshot: %w", err)
	}

	badges, err := s.achievements.AwardLocked(ctx, snap)
	if err != nil {
		return domain.PerformanceSnapshot{}, nil, fmt.Errorf("award badges: %w", err)
	}
	if err := s.results.MarkApplied(ctx, res.SessionID); err != nil {
		return domain.PerformanceSnapshot{}, nil, fmt.Errorf("mark result applied: %w", err)
	}
	if len(badges) > 0 && s.notifier != nil {
		if err := s.notifier.NotifyBadges(ctx, res.UserID, badges); err != nil {
			s.log.Warn("notify badges", zap.String("user_id", res.UserID), zap.Error(err))
		}
	}
	return snap, badges, nil
}

// Stats returns the user's current snapshot.
func (s *QuizService) Stats(ctx context.Context, userID string) (domain.PerformanceSnapshot, error) {
	snap, err := s.performance.LoadSnapshot(ctx, userID)
	if err != nil {
		return domain.PerformanceSnapshot{}, err
	}
	snap.UserID = userID
	return snap, nil
}

// Badges lists badges the user has earned.
func (s *QuizService) Badges(ctx context.Context, userID string) ([]achievement.EarnedBadge, error) {
	return s.achievements.Earned(ctx, userID)
}

// History lists the user's completed sessions.
func (s *QuizService) History(ctx context.Context, userID string) ([]domain.SessionResult, error) {
	return s.results.ListUserResults(ctx, userID)
}

// Recompute rebuilds the user's snapshot by replaying every persisted result
// and re-runs badge evaluation against it.
func (s *QuizService) Recompute(ctx context.Context, userID string) (domain.PerformanceSnapshot, []domain.Badge, error) {
	unlock, err := s.locks.Lock(ctx, lock.UserKey(userID))
	if err != nil {
		return domain.PerformanceSnapshot{}, nil, fmt.Errorf("lock user %s: %w", userID, err)
	}
	defer unlock()

	results, err := s.results.ListUserResults(ctx, userID)
	if err != nil {
		return domain.PerformanceSnapshot{}, nil, fmt.Errorf("list results: %w", err)
	}
	snap := performance.Replay(userID, results)
	if err := s.performance.SaveSnapshot(ctx, snap); err != nil {
		return domain.PerformanceSnapshot{}, nil, fmt.Errorf("save snapshot: %w", err)
	}
	badges, err := s.achievements.AwardLocked(ctx, snap)
	if err != nil {
		return snap, badges, err
	}
	for _, res := range results {
		if res.Applied {
			continue
		}
		if err := s.results.MarkApplied(ctx, res.SessionID); err != nil {
			return snap, badges, fmt.Errorf("mark result applied: %w", err)
		}
	}
	return snap, badges, nil
}

func outcomeFromResult(res domain.SessionResult) Outcome {
	return Outcome{
		SessionID:        res.SessionID,
		Results:          res.Results,
		Tally:            res.Tally,
		TimeTakenMinutes: res.TimeTakenMinutes,
		NewBadges:        []domain.Badge{},
	}
}
