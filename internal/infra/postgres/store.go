package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"certquiz-service/internal/domain"
)

type sessionResultModel struct {
	bun.BaseModel `bun:"table:session_results,alias:sr"`

	SessionID        string                `bun:"session_id,pk"`
	UserID           string                `bun:"user_id,notnull"`
	Category         string                `bun:"category"`
	Results          []domain.ScoredResult `bun:"results,type:jsonb"`
	CorrectCount     int                   `bun:"correct_count"`
	TotalCount       int                   `bun:"total_count"`
	Percentage       float64               `bun:"percentage"`
	TimeTakenMinutes int                   `bun:"time_taken_minutes"`
	StartedAt        time.Time             `bun:"started_at"`
	CompletedAt      time.Time             `bun:"completed_at"`
	StatsApplied     bool                  `bun:"stats_applied,notnull"`
}

func (m sessionResultModel) toDomain() domain.SessionResult {
	return domain.SessionResult{
		SessionID: m.SessionID,
		UserID:    m.UserID,
		Category:  m.Category,
		Results:   m.Results,
		Tally: domain.Tally{
			CorrectCount: m.CorrectCount,
			TotalCount:   m.TotalCount,
			Percentage:   m.Percentage,
		},
		TimeTakenMinutes: m.TimeTakenMinutes,
		StartedAt:        m.StartedAt,
		CompletedAt:      m.CompletedAt,
		Applied:          m.StatsApplied,
	}
}

type snapshotModel struct {
	bun.BaseModel `bun:"table:performance_snapshots,alias:ps"`

	UserID                 string     `bun:"user_id,pk"`
	TotalQuizzes           int        `bun:"total_quizzes"`
	TotalQuestionsAnswered int        `bun:"total_questions_answered"`
	TotalCorrectAnswers    int        `bun:"total_correct_answers"`
	AverageScore           float64    `bun:"average_score"`
	BestScore              float64    `bun:"best_score"`
	WorstScore             float64    `bun:"worst_score"`
	FastestTimeMinutes     int        `bun:"fastest_time_minutes"`
	TotalTimeMinutes       int        `bun:"total_time_minutes"`
	HighScoreQuizzes       int        `bun:"high_score_quizzes"`
	PerfectScoreQuizzes    int        `bun:"perfect_score_quizzes"`
	FirstQuizAt            *time.Time `bun:"first_quiz_at"`
	LastQuizAt             *time.Time `bun:"last_quiz_at"`
	UpdatedAt              time.Time  `bun:"updated_at"`
}

// snapshotColumns are overwritten on upsert.
var snapshotColumns = []string{
	"total_quizzes",
	"total_questions_answered",
	"total_correct_answers",
	"average_score",
	"best_score",
	"worst_score",
	"fastest_time_minutes",
	"total_time_minutes",
	"high_score_quizzes",
	"perfect_score_quizzes",
	"first_quiz_at",
	"last_quiz_at",
	"updated_at",
}

type awardModel struct {
	bun.BaseModel `bun:"table:awarded_badges,alias:ab"`

	UserID    string    `bun:"user_id,pk"`
	BadgeID   string    `bun:"badge_id,pk"`
	AwardedAt time.Time `bun:"awarded_at"`
}

// Store persists results, snapshots and awards with bun. It satisfies
// app.ResultStore, app.PerformanceStore and achievement.AwardStore.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// SaveSessionResult inserts res unless a row for its session already exists.
func (s *Store) SaveSessionResult(ctx context.Context, res domain.SessionResult) (bool, error) {
	m := &sessionResultModel{
		SessionID:        res.SessionID,
		UserID:           res.UserID,
		Category:         res.Category,
		Results:          res.Results,
		CorrectCount:     res.Tally.CorrectCount,
		TotalCount:       res.Tally.TotalCount,
		Percentage:       res.Tally.Percentage,
		TimeTakenMinutes: res.TimeTakenMinutes,
		StartedAt:        res.StartedAt,
		CompletedAt:      res.CompletedAt,
	}
	r, err := s.db.NewInsert().Model(m).On("CONFLICT (session_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert session result: %w", err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert session result: %w", err)
	}
	return n == 1, nil
}

// MarkApplied flags a stored result as folded into the user's aggregates.
func (s *Store) MarkApplied(ctx context.Context, sessionID string) error {
	r, err := s.db.NewUpdate().
		Model((*sessionResultModel)(nil)).
		Set("stats_applied = TRUE").
		Where("session_id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark result applied: %w", err)
	}
	if n, err := r.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: session result %s", domain.ErrNotFound, sessionID)
	}
	return nil
}

func (s *Store) GetSessionResult(ctx context.Context, sessionID string) (domain.SessionResult, error) {
	var m sessionResultModel
	err := s.db.NewSelect().Model(&m).Where("session_id = ?", sessionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionResult{}, fmt.Errorf("%w: session result %s", domain.ErrNotFound, sessionID)
	}
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("get session result: %w", err)
	}
	return m.toDomain(), nil
}

// ListUserResults returns a user's results, oldest first.
func (s *Store) ListUserResults(ctx context.Context, userID string) ([]domain.SessionResult, error) {
	var ms []sessionResultModel
	err := s.db.NewSelect().
		Model(&ms).
		Where("user_id = ?", userID).
		Order("completed_at ASC", "session_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list session results: %w", err)
	}
	out := make([]domain.SessionResult, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.toDomain())
	}
	return out, nil
}

// LoadSnapshot returns the stored snapshot, or an empty one for a new user.
func (s *Store) LoadSnapshot(ctx context.Context, userID string) (domain.PerformanceSnapshot, error) {
	var m snapshotModel
	err := s.db.NewSelect().Model(&m).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PerformanceSnapshot{UserID: userID}, nil
	}
	if err != nil {
		return domain.PerformanceSnapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return domain.PerformanceSnapshot{
		UserID:                 m.UserID,
		TotalQuizzes:           m.TotalQuizzes,
		TotalQuestionsAnswered: m.TotalQuestionsAnswered,
		TotalCorrectAnswers:    m.TotalCorrectAnswers,
		AverageScore:           m.AverageScore,
		BestScore:              m.BestScore,
		WorstScore:             m.WorstScore,
		FastestTimeMinutes:     m.FastestTimeMinutes,
		TotalTimeMinutes:       m.TotalTimeMinutes,
		HighScoreQuizzes:       m.HighScoreQuizzes,
		PerfectScoreQuizzes:    m.PerfectScoreQuizzes,
		FirstQuizAt:            m.FirstQuizAt,
		LastQuizAt:             m.LastQuizAt,
	}, nil
}

func (s *Store) SaveSnapshot(ctx context.Context, snap domain.PerformanceSnapshot) error {
	m := &snapshotModel{
		UserID:                 snap.UserID,
		TotalQuizzes:           snap.TotalQuizzes,
		TotalQuestionsAnswered: snap.TotalQuestionsAnswered,
		TotalCorrectAnswers:    snap.TotalCorrectAnswers,
		AverageScore:           snap.AverageScore,
		BestScore:              snap.BestScore,
		WorstScore:             snap.WorstScore,
		FastestTimeMinutes:     snap.FastestTimeMinutes,
		TotalTimeMinutes:       snap.TotalTimeMinutes,
		HighScoreQuizzes:       snap.HighScoreQuizzes,
		PerfectScoreQuizzes:    snap.PerfectScoreQuizzes,
		FirstQuizAt:            snap.FirstQuizAt,
		LastQuizAt:             snap.LastQuizAt,
		UpdatedAt:              s.now(),
	}
	q := s.db.NewInsert().Model(m).On("CONFLICT (user_id) DO UPDATE")
	for _, col := range snapshotColumns {
		q = q.Set(col + " = EXCLUDED." + col)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *Store) LoadAwarded(ctx context.Context, userID string) (map[string]struct{}, error) {
	var ids []string
	err := s.db.NewSelect().
		Model((*awardModel)(nil)).
		Column("badge_id").
		Where("user_id = ?", userID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("load awarded badges: %w", err)
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// AwardIfAbsent relies on the (user_id, badge_id) primary key so a badge is
// written at most once even across instances.
func (s *Store) AwardIfAbsent(ctx context.Context, award domain.AwardedBadge) (bool, error) {
	m := &awardModel{UserID: award.UserID, BadgeID: award.BadgeID, AwardedAt: award.AwardedAt}
	r, err := s.db.NewInsert().Model(m).On("CONFLICT (user_id, badge_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("award badge: %w", err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("award badge: %w", err)
	}
	return n == 1, nil
}

// ListAwards returns a user's awards, oldest first.
func (s *Store) ListAwards(ctx context.Context, userID string) ([]domain.AwardedBadge, error) {
	var ms []awardModel
	err := s.db.NewSelect().
		Model(&ms).
		Where("user_id = ?", userID).
		Order("awarded_at ASC", "badge_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list awards: %w", err)
	}
	out := make([]domain.AwardedBadge, 0, len(ms))
	for _, m := range ms {
		out = append(out, domain.AwardedBadge{UserID: m.UserID, BadgeID: m.BadgeID, AwardedAt: m.AwardedAt})
	}
	return out, nil
}
