package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"certquiz-service/internal/domain"
)

func question(id, canonical string) domain.QuestionRef {
	return domain.QuestionRef{
		ID: id,
		Options: []domain.Option{
			{Label: "A"}, {Label: "B"}, {Label: "C"}, {Label: "D"},
		},
		CanonicalAnswer: canonical,
	}
}

func TestScoreMatchesNormalizedComparison(t *testing.T) {
	submissions := []string{"", "A", "B", "AC", "CA", "A,C", "ABC", "X", "c a"}
	canonicals := []string{"A", "B", "AC", "BD"}

	for _, c := range canonicals {
		q := question("q", c)
		for _, s := range submissions {
			normS, errS := Normalize(s)
			normC, _ := Normalize(c)
			want := errS == nil && normS != "" && normS == normC

			got := Score(q, 0, s)
			assert.Equal(t, want, got.IsCorrect, "canonical %q submission %q", c, s)
			assert.Equal(t, normC, got.Canonical)
		}
	}
}

func TestScoreEmptySubmissionIsIncorrect(t *testing.T) {
	res := Score(question("q1", "A"), 0, "")
	assert.False(t, res.IsCorrect)
	assert.Equal(t, "A", res.Canonical)
}

func TestTallyTwoQuestionScenario(t *testing.T) {
	questions := []domain.QuestionRef{question("q1", "B"), question("q2", "AC")}
	results := ScoreAll(questions, map[int]string{0: "B", 1: "CA"})

	tally := Tally(results)
	assert.Equal(t, 2, tally.CorrectCount)
	assert.Equal(t, 2, tally.TotalCount)
	assert.Equal(t, 100.0, tally.Percentage)
}

func TestTallyEmptyIsZero(t *testing.T) {
	tally := Tally(nil)
	assert.Equal(t, domain.Tally{}, tally)
}

func TestScoreAllUnansweredPositions(t *testing.T) {
	questions := []domain.QuestionRef{question("q1", "A"), question("q2", "B"), question("q3", "C")}
	results := ScoreAll(questions, map[int]string{0: "A"})

	assert.Len(t, results, 3)
	assert.True(t, results[0].IsCorrect)
	assert.False(t, results[1].IsCorrect)
	assert.False(t, results[2].IsCorrect)

	tally := Tally(results)
	assert.Equal(t, 1, tally.CorrectCount)
	assert.InDelta(t, 33.333, tally.Percentage, 0.001)
}
