package memory

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"certquiz-service/internal/domain"
	"certquiz-service/internal/scoring"
)

// QuestionLoader fetches the question pool for a category from a backing
// store. An empty category means every question.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, category string) ([]domain.QuestionRef, error)
}

// QuestionBank caches category pools with TTL to avoid repeated DB hits and
// draws randomized questions from them.
type QuestionBank struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	log    *zap.Logger

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedPool
}

type cachedPool struct {
	questions []domain.QuestionRef
	expiresAt time.Time
}

func NewQuestionBank(loader QuestionLoader, ttl time.Duration, log *zap.Logger) *QuestionBank {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPool),
	}
}

// Draw returns up to count distinct questions in random order. The cached
// pool is never reordered.
func (b *QuestionBank) Draw(ctx context.Context, category string, count int) ([]domain.QuestionRef, error) {
	pool, err := b.pool(ctx, category)
	if err != nil {
		return nil, err
	}
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return DrawFrom(pool, count, b.rnd)
}

func (b *QuestionBank) pool(ctx context.Context, category string) ([]domain.QuestionRef, error) {
	key := cacheKey(category)
	now := b.clock()

	b.mu.RLock()
	if entry, ok := b.cache[key]; ok && entry.expiresAt.After(now) {
		b.mu.RUnlock()
		return entry.questions, nil
	}
	b.mu.RUnlock()

	result, err, _ := b.sf.Do(key, func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		if entry, ok := b.cache[key]; ok && entry.expiresAt.After(now) {
			b.mu.RUnlock()
			return entry.questions, nil
		}
		b.mu.RUnlock()

		loaded, err := b.loader.LoadQuestions(ctx, category)
		if err != nil {
			return nil, err
		}
		questions := ValidQuestions(loaded, b.log)

		b.mu.Lock()
		b.cache[key] = cachedPool{
			questions: questions,
			expiresAt: now.Add(ttlWithJitter(b.ttl, b.rand)),
		}
		b.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuestionRef), nil
}

func (b *QuestionBank) rand(n int64) int64 {
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.rnd.Int63n(n)
}

// DrawFrom picks up to count questions with distinct IDs from pool in random
// order without modifying pool. An empty pool is ErrNoQuestionsAvailable.
func DrawFrom(pool []domain.QuestionRef, count int, rnd *rand.Rand) ([]domain.QuestionRef, error) {
	seen := make(map[string]struct{}, len(pool))
	out := make([]domain.QuestionRef, 0, len(pool))
	for _, q := range pool {
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, domain.ErrNoQuestionsAvailable
	}
	rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if count > 0 && count < len(out) {
		out = out[:count]
	}
	return out, nil
}

// ValidQuestions drops questions that fail validation, logging each one.
func ValidQuestions(questions []domain.QuestionRef, log *zap.Logger) []domain.QuestionRef {
	out := make([]domain.QuestionRef, 0, len(questions))
	for _, q := range questions {
		if err := scoring.ValidateQuestion(q); err != nil {
			log.Warn("skipping invalid question", zap.String("question_id", q.ID), zap.Error(err))
			continue
		}
		out = append(out, q)
	}
	return out
}

// StaticQuestionLoader is a simple loader backed by an in-memory slice (useful for tests/demos).
type StaticQuestionLoader struct {
	questions []domain.QuestionRef
}

func NewStaticQuestionLoader(questions []domain.QuestionRef) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, category string) ([]domain.QuestionRef, error) {
	out := make([]domain.QuestionRef, 0, len(l.questions))
	for _, q := range l.questions {
		if category == "" || strings.EqualFold(q.Category, category) {
			out = append(out, q)
		}
	}
	return out, nil
}

func cacheKey(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// ttlWithJitter adds up to 10% jitter to spread expirations.
func ttlWithJitter(ttl time.Duration, rnd func(int64) int64) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitterMax := int64(ttl) / 10
	return ttl + time.Duration(rnd(jitterMax+1))
}
