package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"certquiz-service/internal/domain"
	"certquiz-service/internal/infra/memory"
)

// QuestionCache caches category pools in Redis and falls back to a loader on
// cache miss. Each pool is stored as JSON under quiz:questions:{category}, so
// every instance behind the same Redis shares one warm copy.
type QuestionCache struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	log    *zap.Logger

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration, log *zap.Logger) *QuestionCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Draw returns up to count distinct questions in random order.
func (c *QuestionCache) Draw(ctx context.Context, category string, count int) ([]domain.QuestionRef, error) {
	pool, err := c.pool(ctx, category)
	if err != nil {
		return nil, err
	}
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return memory.DrawFrom(pool, count, c.rnd)
}

func (c *QuestionCache) pool(ctx context.Context, category string) ([]domain.QuestionRef, error) {
	key := c.key(category)
	if pool, ok := c.cached(ctx, key); ok {
		return pool, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if pool, ok := c.cached(ctx, key); ok {
			return pool, nil
		}

		loaded, err := c.loader.LoadQuestions(ctx, category)
		if err != nil {
			return nil, err
		}
		pool := memory.ValidQuestions(loaded, c.log)

		data, err := json.Marshal(pool)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, data, c.ttlWithJitter()).Err(); err != nil {
			c.log.Warn("cache question pool", zap.String("key", key), zap.Error(err))
		}
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuestionRef), nil
}

func (c *QuestionCache) cached(ctx context.Context, key string) ([]domain.QuestionRef, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("read question pool", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var pool []domain.QuestionRef
	if err := json.Unmarshal(data, &pool); err != nil {
		c.log.Warn("decode question pool", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return pool, true
}

// Invalidate drops the cached pool for category.
func (c *QuestionCache) Invalidate(ctx context.Context, category string) error {
	return c.client.Del(ctx, c.key(category)).Err()
}

func (c *QuestionCache) key(category string) string {
	return "quiz:questions:" + strings.ToLower(strings.TrimSpace(category))
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
