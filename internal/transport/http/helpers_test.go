package http

import (
	"time"

	"go.uber.org/zap"

	"certquiz-service/internal/achievement"
	"certquiz-service/internal/app"
	"certquiz-service/internal/domain"
	"certquiz-service/internal/infra/memory"
	"certquiz-service/internal/lock"
	"certquiz-service/internal/notify"
)

func newTestService(hub *notify.Hub) *app.QuizService {
	locks := lock.NewKeyedMutex()
	var notifier app.Notifier = notify.NewLogSink(zap.NewNop())
	if hub != nil {
		notifier = notify.Multi{notifier, hub}
	}
	return app.NewQuizService(app.Deps{
		Questions:    memory.NewQuestionBank(memory.NewStaticQuestionLoader(sampleQuestions()), time.Minute, nil),
		Sessions:     memory.NewSessionStore(),
		Results:      memory.NewResultStore(),
		Performance:  memory.NewPerformanceStore(),
		Achievements: achievement.NewService(achievement.DefaultCatalog(), memory.NewAwardStore(), locks, nil),
		Notifier:     notifier,
		Locks:        locks,
		Options:      app.Options{DefaultCount: 2, MaxCount: 5},
	})
}

func sampleQuestions() []domain.QuestionRef {
	return []domain.QuestionRef{
		{
			ID:       "q1",
			Category: "math",
			Prompt:   "What is 2 + 2?",
			Options: []domain.Option{
				{Label: "A", Text: "3"},
				{Label: "B", Text: "4"},
				{Label: "C", Text: "5"},
			},
			CanonicalAnswer: "B",
			Explanation:     "Two plus two is four.",
		},
		{
			ID:       "q2",
			Category: "math",
			Prompt:   "Which are even? (Select two)",
			Options: []domain.Option{
				{Label: "A", Text: "2"},
				{Label: "B", Text: "3"},
				{Label: "C", Text: "4"},
			},
			CanonicalAnswer: "AC",
			Explanation:     "Even numbers are divisible by two.",
		},
	}
}

// correctAnswer looks up the answer key for a question id.
func correctAnswer(id string) string {
	for _, q := range sampleQuestions() {
		if q.ID == id {
			return q.CanonicalAnswer
		}
	}
	return ""
}
