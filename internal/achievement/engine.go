// Package achievement evaluates badge rules against performance snapshots and
// awards newly earned badges at most once per user.
package achievement

import (
	"certquiz-service/internal/domain"
)

// MinQuizzesForAverage is the number of completed quizzes required before an
// average_score badge can qualify.
const MinQuizzesForAverage = 5

// Qualifies reports whether snap satisfies badge's criteria. Unknown criteria
// never qualify.
func Qualifies(b domain.Badge, snap domain.PerformanceSnapshot) bool {
	switch b.CriteriaType {
	case domain.CriteriaQuizCount:
		return float64(snap.TotalQuizzes) >= b.CriteriaValue
	case domain.CriteriaHighScore:
		return snap.HighScoreQuizzes > 0
	case domain.CriteriaPerfectScore:
		return snap.PerfectScoreQuizzes > 0
	case domain.CriteriaAverageScore:
		return snap.AverageScore >= b.CriteriaValue && snap.TotalQuizzes >= MinQuizzesForAverage
	case domain.CriteriaCorrectAnswers:
		return float64(snap.TotalCorrectAnswers) >= b.CriteriaValue
	case domain.CriteriaQuickCompletion:
		return snap.TotalQuizzes > 0 && float64(snap.FastestTimeMinutes) <= b.CriteriaValue
	default:
		return false
	}
}

// Evaluate returns the catalog badges that snap qualifies for and that are not
// in alreadyAwarded, in catalog order.
func Evaluate(snap domain.PerformanceSnapshot, catalog []domain.Badge, alreadyAwarded map[string]struct{}) []domain.Badge {
	var out []domain.Badge
	for _, b := range catalog {
		if _, ok := alreadyAwarded[b.ID]; ok {
			continue
		}
		if Qualifies(b, snap) {
			out = append(out, b)
		}
	}
	return out
}
