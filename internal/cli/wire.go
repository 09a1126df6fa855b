package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"certquiz-service/internal/achievement"
	"certquiz-service/internal/app"
	"certquiz-service/internal/config"
	"certquiz-service/internal/infra/memory"
	pgstore "certquiz-service/internal/infra/postgres"
	infraredis "certquiz-service/internal/infra/redis"
	"certquiz-service/internal/lock"
	"certquiz-service/internal/logging"
	"certquiz-service/internal/notify"
	transport "certquiz-service/internal/transport/http"
)

// stack is the wired service graph plus what must be closed on exit.
type stack struct {
	log     *zap.Logger
	service *app.QuizService
	feed    transport.BadgeFeed
	checks  []transport.ReadyCheck
	closers []func()
}

func (rt *stack) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	_ = rt.log.Sync()
}

func loadConfig(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

// buildStack wires Redis when redis.addr is set and Postgres when
// postgres.url is set, falling back to in-memory implementations.
func buildStack(ctx context.Context, cfg config.Config, log *zap.Logger) (*stack, error) {
	rt := &stack{log: log}

	catalog, err := achievement.LoadCatalog(cfg.Badges.Path)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			rt.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		rt.checks = append(rt.checks, transport.ReadyCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	var (
		pool *pgxpool.Pool
		db   *bun.DB
	)
	if cfg.Postgres.URL != "" {
		pool, err = pgstore.NewPool(ctx, cfg.Postgres.URL, pgstore.PoolConfig{MaxConns: cfg.Postgres.MaxConns})
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
		rt.checks = append(rt.checks, transport.ReadyCheck{Name: "postgres", Ping: pool.Ping})
		db = pgstore.OpenDB(cfg.Postgres.URL)
		rt.closers = append(rt.closers, func() { _ = db.Close() })
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	if pool != nil {
		loader = pgstore.NewQuestionLoader(pool)
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)
	lockTTL := config.TTLDuration(cfg.Session.LockTTL, 10*time.Second)

	var (
		questions app.QuestionBank
		sessions  app.SessionStore
		locks     lock.Locker
	)
	sinks := notify.Multi{notify.NewLogSink(log)}
	if redisClient != nil {
		questions = infraredis.NewQuestionCache(redisClient, loader, cacheTTL, log)
		sessions = infraredis.NewSessionStore(redisClient, sessionTTL)
		locks = infraredis.NewLocker(redisClient, lockTTL, log)
		publisher := infraredis.NewNotifier(redisClient, log)
		sinks = append(sinks, publisher)
		rt.feed = publisher
	} else {
		questions = memory.NewQuestionBank(loader, cacheTTL, log)
		sessions = memory.NewSessionStore()
		locks = lock.NewKeyedMutex()
		hub := notify.NewHub()
		sinks = append(sinks, hub)
		rt.feed = hub
	}

	var (
		results     app.ResultStore
		performance app.PerformanceStore
		awards      achievement.AwardStore
	)
	if db != nil {
		store := pgstore.NewStore(db)
		results, performance, awards = store, store, store
	} else {
		log.Warn("postgres not configured; results, stats and badges are kept in memory")
		results = memory.NewResultStore()
		performance = memory.NewPerformanceStore()
		awards = memory.NewAwardStore()
	}

	rt.service = app.NewQuizService(app.Deps{
		Questions:    questions,
		Sessions:     sessions,
		Results:      results,
		Performance:  performance,
		Achievements: achievement.NewService(catalog, awards, locks, log),
		Notifier:     sinks,
		Locks:        locks,
		Logger:       log,
		Options: app.Options{
			DefaultCount: cfg.Quiz.DefaultCount,
			MaxCount:     cfg.Quiz.MaxCount,
		},
	})
	return rt, nil
}
