package domain

import (
	"strings"
	"time"
)

// Option is one labeled choice of a question.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Text  string `json:"text" yaml:"text"`
}

// QuestionRef is a question as drawn into a session. It is referenced by value
// and never modified after the draw.
type QuestionRef struct {
	ID              string   `json:"id" yaml:"id"`
	Category        string   `json:"category" yaml:"category"`
	Prompt          string   `json:"prompt" yaml:"prompt"`
	Options         []Option `json:"options" yaml:"options"`
	CanonicalAnswer string   `json:"canonicalAnswer" yaml:"canonical_answer"`
	Explanation     string   `json:"explanation,omitempty" yaml:"explanation"`
}

// IsMultiSelect reports whether the canonical answer has more than one label.
func (q QuestionRef) IsMultiSelect() bool {
	seen := make(map[rune]struct{}, 5)
	for _, r := range strings.ToUpper(q.CanonicalAnswer) {
		if r >= 'A' && r <= 'E' {
			seen[r] = struct{}{}
		}
	}
	return len(seen) > 1
}

// HasOption reports whether the question offers the given label.
func (q QuestionRef) HasOption(label string) bool {
	for _, o := range q.Options {
		if o.Label == label {
			return true
		}
	}
	return false
}

// SessionStatus is the lifecycle state of a quiz attempt.
type SessionStatus string

const (
	StatusCreated    SessionStatus = "created"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// QuizSession is one user's attempt at a quiz.
type QuizSession struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	Category     string         `json:"category"`
	Status       SessionStatus  `json:"status"`
	Questions    []QuestionRef  `json:"questions"`
	CurrentIndex int            `json:"currentIndex"`
	Answers      map[int]string `json:"answers"` // position -> normalized answer
	StartedAt    time.Time      `json:"startedAt"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`

	// Set once the session is completed.
	Results          []ScoredResult `json:"results,omitempty"`
	TimeTakenMinutes int            `json:"timeTakenMinutes"`
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (s *QuizSession) Clone() *QuizSession {
	out := *s
	out.Questions = make([]QuestionRef, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = append([]Option(nil), q.Options...)
		out.Questions[i] = q
	}
	out.Answers = make(map[int]string, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	if s.Results != nil {
		out.Results = append([]ScoredResult(nil), s.Results...)
	}
	return &out
}

// ScoredResult is the outcome of a single question position. Prompt and
// Explanation are copied from the question for post-quiz review.
type ScoredResult struct {
	Position    int    `json:"position"`
	QuestionID  string `json:"questionId"`
	Prompt      string `json:"prompt,omitempty"`
	Submitted   string `json:"submitted"`
	Canonical   string `json:"canonical"`
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation,omitempty"`
}

// Tally summarizes a session's scored results.
type Tally struct {
	CorrectCount int     `json:"correctCount"`
	TotalCount   int     `json:"totalCount"`
	Percentage   float64 `json:"percentage"`
}

// SessionResult is the persisted outcome of a completed session.
type SessionResult struct {
	SessionID        string         `json:"sessionId"`
	UserID           string         `json:"userId"`
	Category         string         `json:"category"`
	Results          []ScoredResult `json:"results"`
	Tally            Tally          `json:"tally"`
	TimeTakenMinutes int            `json:"timeTakenMinutes"`
	StartedAt        time.Time      `json:"startedAt"`
	CompletedAt      time.Time      `json:"completedAt"`

	// Applied is set once the result has been folded into the user's
	// snapshot and badges were evaluated against it.
	Applied bool `json:"-"`
}

// PerformanceSnapshot is the folded aggregate of a user's completed sessions.
type PerformanceSnapshot struct {
	UserID                 string     `json:"userId"`
	TotalQuizzes           int        `json:"totalQuizzes"`
	TotalQuestionsAnswered int        `json:"totalQuestionsAnswered"`
	TotalCorrectAnswers    int        `json:"totalCorrectAnswers"`
	AverageScore           float64    `json:"averageScore"`
	BestScore              float64    `json:"bestScore"`
	WorstScore             float64    `json:"worstScore"`
	FastestTimeMinutes     int        `json:"fastestTimeMinutes"`
	TotalTimeMinutes       int        `json:"totalTimeMinutes"`
	HighScoreQuizzes       int        `json:"highScoreQuizzes"`
	PerfectScoreQuizzes    int        `json:"perfectScoreQuizzes"`
	FirstQuizAt            *time.Time `json:"firstQuizAt,omitempty"`
	LastQuizAt             *time.Time `json:"lastQuizAt,omitempty"`
}

// CriteriaType names the statistic a badge is evaluated against.
type CriteriaType string

const (
	CriteriaQuizCount       CriteriaType = "quiz_count"
	CriteriaHighScore       CriteriaType = "high_score"
	CriteriaPerfectScore    CriteriaType = "perfect_score"
	CriteriaAverageScore    CriteriaType = "average_score"
	CriteriaCorrectAnswers  CriteriaType = "correct_answers"
	CriteriaQuickCompletion CriteriaType = "quick_completion"
)

// Badge is a static award rule.
type Badge struct {
	ID            string       `json:"id" yaml:"id"`
	Name          string       `json:"name" yaml:"name"`
	Description   string       `json:"description" yaml:"description"`
	Icon          string       `json:"icon,omitempty" yaml:"icon"`
	CriteriaType  CriteriaType `json:"criteriaType" yaml:"criteria_type"`
	CriteriaValue float64      `json:"criteriaValue" yaml:"criteria_value"`
}

// AwardedBadge records that a user earned a badge. Unique per (UserID, BadgeID).
type AwardedBadge struct {
	UserID    string    `json:"userId"`
	BadgeID   string    `json:"badgeId"`
	AwardedAt time.Time `json:"awardedAt"`
}
