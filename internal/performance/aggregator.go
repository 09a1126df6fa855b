// Package performance folds completed sessions into per-user snapshots.
package performance

import (
	"sort"
	"time"

	"certquiz-service/internal/domain"
)

const (
	// HighScoreThreshold marks a session as a high score.
	HighScoreThreshold = 90.0
	// PerfectScoreThreshold marks a session as perfect.
	PerfectScoreThreshold = 100.0
)

// Apply folds one completed session into snapshot. It must run exactly once
// per session; the session state machine's Completed guard and the result
// store's insert-if-absent enforce that.
func Apply(snap domain.PerformanceSnapshot, tally domain.Tally, timeTakenMinutes int, completedAt time.Time) domain.PerformanceSnapshot {
	pct := tally.Percentage
	oldCount := snap.TotalQuizzes
	newCount := oldCount + 1

	if oldCount == 0 {
		snap.BestScore = pct
		snap.WorstScore = pct
		snap.FastestTimeMinutes = timeTakenMinutes
	} else {
		snap.BestScore = max(snap.BestScore, pct)
		snap.WorstScore = min(snap.WorstScore, pct)
		snap.FastestTimeMinutes = min(snap.FastestTimeMinutes, timeTakenMinutes)
	}
	snap.AverageScore = (snap.AverageScore*float64(oldCount) + pct) / float64(newCount)
	snap.TotalQuizzes = newCount
	snap.TotalQuestionsAnswered += tally.TotalCount
	snap.TotalCorrectAnswers += tally.CorrectCount
	snap.TotalTimeMinutes += timeTakenMinutes

	if pct >= HighScoreThreshold {
		snap.HighScoreQuizzes++
	}
	if pct >= PerfectScoreThreshold {
		snap.PerfectScoreQuizzes++
	}

	at := completedAt
	if snap.FirstQuizAt == nil {
		snap.FirstQuizAt = &at
	}
	snap.LastQuizAt = &at
	return snap
}

// ApplyResult is Apply for a persisted session result.
func ApplyResult(snap domain.PerformanceSnapshot, res domain.SessionResult) domain.PerformanceSnapshot {
	return Apply(snap, res.Tally, res.TimeTakenMinutes, res.CompletedAt)
}

// Replay rebuilds a user's snapshot from scratch in completion order.
func Replay(userID string, results []domain.SessionResult) domain.PerformanceSnapshot {
	ordered := append([]domain.SessionResult(nil), results...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CompletedAt.Before(ordered[j].CompletedAt)
	})

	snap := domain.PerformanceSnapshot{UserID: userID}
	for _, res := range ordered {
		snap = ApplyResult(snap, res)
	}
	return snap
}
