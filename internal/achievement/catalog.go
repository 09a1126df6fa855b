package achievement

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"certquiz-service/internal/domain"
)

// DefaultCatalog is the badge set shipped with the service.
func DefaultCatalog() []domain.Badge {
	return []domain.Badge{
		{ID: "first-steps", Name: "First Steps", Description: "Complete your first quiz", Icon: "🎯", CriteriaType: domain.CriteriaQuizCount, CriteriaValue: 1},
		{ID: "quiz-master", Name: "Quiz Master", Description: "Complete 5 quizzes", Icon: "🏆", CriteriaType: domain.CriteriaQuizCount, CriteriaValue: 5},
		{ID: "dedicated-learner", Name: "Dedicated Learner", Description: "Complete 10 quizzes", Icon: "📚", CriteriaType: domain.CriteriaQuizCount, CriteriaValue: 10},
		{ID: "cloud-explorer", Name: "Cloud Explorer", Description: "Complete 25 quizzes", Icon: "🚀", CriteriaType: domain.CriteriaQuizCount, CriteriaValue: 25},
		{ID: "high-achiever", Name: "High Achiever", Description: "Score 90% or higher", Icon: "⭐", CriteriaType: domain.CriteriaHighScore, CriteriaValue: 90},
		{ID: "perfect-score", Name: "Perfect Score", Description: "Get 100% on a quiz", Icon: "💯", CriteriaType: domain.CriteriaPerfectScore, CriteriaValue: 100},
		{ID: "consistent-performer", Name: "Consistent Performer", Description: "Maintain 80% average over 5 quizzes", Icon: "🎖️", CriteriaType: domain.CriteriaAverageScore, CriteriaValue: 80},
		{ID: "quick-learner", Name: "Quick Learner", Description: "Complete a quiz in under 5 minutes", Icon: "⚡", CriteriaType: domain.CriteriaQuickCompletion, CriteriaValue: 5},
		{ID: "knowledge-seeker", Name: "Knowledge Seeker", Description: "Answer 100 questions correctly", Icon: "🧠", CriteriaType: domain.CriteriaCorrectAnswers, CriteriaValue: 100},
	}
}

type catalogFile struct {
	Badges []domain.Badge `yaml:"badges"`
}

// LoadCatalog reads a YAML badge catalog. An empty path yields DefaultCatalog.
func LoadCatalog(path string) ([]domain.Badge, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read badge catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode badge catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(f.Badges))
	for _, b := range f.Badges {
		if b.ID == "" {
			return nil, fmt.Errorf("%w: badge %q has no id", domain.ErrValidation, b.Name)
		}
		if _, dup := seen[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate badge id %q", domain.ErrValidation, b.ID)
		}
		seen[b.ID] = struct{}{}
	}
	return f.Badges, nil
}
