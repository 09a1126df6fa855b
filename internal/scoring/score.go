package scoring

import "certquiz-service/internal/domain"

// Score compares a submission with the question's canonical answer. Empty,
// missing and malformed submissions are incorrect; scoring never fails.
func Score(q domain.QuestionRef, position int, submitted string) domain.ScoredResult {
	canonical, err := Normalize(q.CanonicalAnswer)
	if err != nil {
		canonical = ""
	}
	res := domain.ScoredResult{
		Position:    position,
		QuestionID:  q.ID,
		Prompt:      q.Prompt,
		Submitted:   submitted,
		Canonical:   canonical,
		Explanation: q.Explanation,
	}

	norm, err := Normalize(submitted)
	if err != nil || norm == "" || canonical == "" {
		return res
	}
	res.Submitted = norm
	res.IsCorrect = norm == canonical
	return res
}

// ScoreAll scores every position of a question sequence against the answers
// map. Unanswered positions score as incorrect.
func ScoreAll(questions []domain.QuestionRef, answers map[int]string) []domain.ScoredResult {
	results := make([]domain.ScoredResult, len(questions))
	for i, q := range questions {
		results[i] = Score(q, i, answers[i])
	}
	return results
}

// Tally folds per-question results. An empty result set scores 0%.
func Tally(results []domain.ScoredResult) domain.Tally {
	t := domain.Tally{TotalCount: len(results)}
	for _, r := range results {
		if r.IsCorrect {
			t.CorrectCount++
		}
	}
	if t.TotalCount > 0 {
		t.Percentage = float64(t.CorrectCount) / float64(t.TotalCount) * 100
	}
	return t
}
