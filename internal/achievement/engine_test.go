package achievement

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"certquiz-service/internal/domain"
	"certquiz-service/internal/lock"
	"certquiz-service/internal/performance"
)

// fakeAwardStore implements AwardStore with insert-if-absent semantics.
type fakeAwardStore struct {
	mu     sync.Mutex
	awards map[string]map[string]time.Time
	writes int
}

func newFakeAwardStore() *fakeAwardStore {
	return &fakeAwardStore{awards: make(map[string]map[string]time.Time)}
}

func (f *fakeAwardStore) LoadAwarded(_ context.Context, userID string) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]struct{})
	for id := range f.awards[userID] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (f *fakeAwardStore) AwardIfAbsent(_ context.Context, a domain.AwardedBadge) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.awards[a.UserID] == nil {
		f.awards[a.UserID] = make(map[string]time.Time)
	}
	if _, ok := f.awards[a.UserID][a.BadgeID]; ok {
		return false, nil
	}
	f.awards[a.UserID][a.BadgeID] = a.AwardedAt
	f.writes++
	return true, nil
}

func (f *fakeAwardStore) ListAwards(_ context.Context, userID string) ([]domain.AwardedBadge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AwardedBadge
	for id, at := range f.awards[userID] {
		out = append(out, domain.AwardedBadge{UserID: userID, BadgeID: id, AwardedAt: at})
	}
	return out, nil
}

func badgeIDs(badges []domain.Badge) []string {
	ids := make([]string, 0, len(badges))
	for _, b := range badges {
		ids = append(ids, b.ID)
	}
	return ids
}

func TestQualifies(t *testing.T) {
	snap := domain.PerformanceSnapshot{
		TotalQuizzes:        3,
		TotalCorrectAnswers: 120,
		AverageScore:        92,
		FastestTimeMinutes:  4,
		HighScoreQuizzes:    1,
	}
	tests := []struct {
		badge domain.Badge
		want  bool
	}{
		{domain.Badge{CriteriaType: domain.CriteriaQuizCount, CriteriaValue: 3}, true},
		{domain.Badge{CriteriaType: domain.CriteriaQuizCount, CriteriaValue: 4}, false},
		{domain.Badge{CriteriaType: domain.CriteriaHighScore, CriteriaValue: 90}, true},
		{domain.Badge{CriteriaType: domain.CriteriaPerfectScore, CriteriaValue: 100}, false},
		{domain.Badge{CriteriaType: domain.CriteriaAverageScore, CriteriaValue: 80}, false},
		{domain.Badge{CriteriaType: domain.CriteriaCorrectAnswers, CriteriaValue: 100}, true},
		{domain.Badge{CriteriaType: domain.CriteriaQuickCompletion, CriteriaValue: 5}, true},
		{domain.Badge{CriteriaType: domain.CriteriaQuickCompletion, CriteriaValue: 3}, false},
		{domain.Badge{CriteriaType: "streak_days", CriteriaValue: 1}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Qualifies(tt.badge, snap), "%s %v", tt.badge.CriteriaType, tt.badge.CriteriaValue)
	}
}

func TestQuickCompletionNeedsACompletedQuiz(t *testing.T) {
	b := domain.Badge{CriteriaType: domain.CriteriaQuickCompletion, CriteriaValue: 5}
	assert.False(t, Qualifies(b, domain.PerformanceSnapshot{}))
}

func TestConsistentPerformerNeedsFiveQuizzes(t *testing.T) {
	catalog := DefaultCatalog()
	consistent := "consistent-performer"

	snap := domain.PerformanceSnapshot{UserID: "u1"}
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		snap = performance.Apply(snap, domain.Tally{CorrectCount: 17, TotalCount: 20, Percentage: 85}, 10, t0)
	}
	require.Equal(t, 4, snap.TotalQuizzes)
	require.InDelta(t, 85.0, snap.AverageScore, 1e-9)
	assert.NotContains(t, badgeIDs(Evaluate(snap, catalog, nil)), consistent)

	// A 70% fifth quiz pulls the average to 82.
	snap = performance.Apply(snap, domain.Tally{CorrectCount: 14, TotalCount: 20, Percentage: 70}, 10, t0)
	require.InDelta(t, 82.0, snap.AverageScore, 1e-9)
	assert.Contains(t, badgeIDs(Evaluate(snap, catalog, nil)), consistent)
}

func TestEvaluateSkipsAlreadyAwarded(t *testing.T) {
	snap := domain.PerformanceSnapshot{TotalQuizzes: 1, PerfectScoreQuizzes: 1, HighScoreQuizzes: 1, FastestTimeMinutes: 2}
	got := Evaluate(snap, DefaultCatalog(), map[string]struct{}{"first-steps": {}})
	assert.Equal(t, []string{"high-achiever", "perfect-score", "quick-learner"}, badgeIDs(got))
}

func TestAwardIsIdempotent(t *testing.T) {
	store := newFakeAwardStore()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewServiceWithClock(DefaultCatalog(), store, lock.NewKeyedMutex(), zap.NewNop(), func() time.Time { return at })

	snap := domain.PerformanceSnapshot{UserID: "u1", TotalQuizzes: 1, HighScoreQuizzes: 1, FastestTimeMinutes: 12}

	first, err := svc.Award(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, []string{"first-steps", "high-achiever"}, badgeIDs(first))

	second, err := svc.Award(context.Background(), snap)
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, 2, store.writes)

	earned, err := svc.Earned(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, earned, 2)
	for _, e := range earned {
		assert.Equal(t, at, e.AwardedAt)
	}
}

func TestConcurrentAwardNeverDoubleAwards(t *testing.T) {
	store := newFakeAwardStore()
	svc := NewService(DefaultCatalog(), store, lock.NewKeyedMutex(), zap.NewNop())
	snap := domain.PerformanceSnapshot{UserID: "u1", TotalQuizzes: 10, PerfectScoreQuizzes: 1, HighScoreQuizzes: 1, FastestTimeMinutes: 3}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted, err := svc.Award(context.Background(), snap)
			if err != nil {
				t.Errorf("award: %v", err)
				return
			}
			mu.Lock()
			total += len(granted)
			mu.Unlock()
		}()
	}
	wg.Wait()

	want := len(Evaluate(snap, DefaultCatalog(), nil))
	assert.Equal(t, want, total)
	assert.Equal(t, want, store.writes)
}

func TestLoadCatalog(t *testing.T) {
	got, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalog(), got)

	dir := t.TempDir()
	path := filepath.Join(dir, "badges.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
badges:
  - id: starter
    name: Starter
    criteria_type: quiz_count
    criteria_value: 2
`), 0o600))

	got, err = LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.CriteriaQuizCount, got[0].CriteriaType)
	assert.Equal(t, 2.0, got[0].CriteriaValue)

	require.NoError(t, os.WriteFile(path, []byte("badges:\n  - id: a\n  - id: a\n"), 0o600))
	_, err = LoadCatalog(path)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
