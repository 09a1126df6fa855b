package integration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"certquiz-service/internal/achievement"
	"certquiz-service/internal/app"
	"certquiz-service/internal/domain"
	pgstore "certquiz-service/internal/infra/postgres"
	infraredis "certquiz-service/internal/infra/redis"
)

func TestFinishEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := pgstore.OpenDB(pgURL)
	defer db.Close()
	if _, err := pgstore.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgstore.NewPool(ctx, pgURL, pgstore.PoolConfig{})
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgstore.NewQuestionLoader(pool)
	if _, err := loader.ReplaceCategories(ctx, []string{"cloud"}, sampleQuestions()); err != nil {
		t.Fatalf("seed questions: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	store := pgstore.NewStore(db)
	locks := infraredis.NewLocker(redisClient, 5*time.Second, zap.NewNop())
	service := app.NewQuizService(app.Deps{
		Questions:    infraredis.NewQuestionCache(redisClient, loader, 5*time.Minute, zap.NewNop()),
		Sessions:     infraredis.NewSessionStore(redisClient, 5*time.Minute),
		Results:      store,
		Performance:  store,
		Achievements: achievement.NewService(achievement.DefaultCatalog(), store, locks, zap.NewNop()),
		Notifier:     infraredis.NewNotifier(redisClient, zap.NewNop()),
		Locks:        locks,
		Logger:       zap.NewNop(),
	})

	qs, err := service.Start(ctx, "u1", 2, "Cloud")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for {
		q, _, done, err := service.Current(ctx, qs.ID)
		if err != nil {
			t.Fatalf("current: %v", err)
		}
		if done {
			break
		}
		if _, err := service.SubmitAnswer(ctx, qs.ID, q.CanonicalAnswer); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	// Concurrent completes must record the session exactly once.
	var wg sync.WaitGroup
	newBadges := make([]int, 4)
	for i := range newBadges {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := service.Finish(ctx, qs.ID)
			if err != nil {
				t.Errorf("finish: %v", err)
				return
			}
			if out.Tally.CorrectCount != 2 {
				t.Errorf("expected 2 correct, got %d", out.Tally.CorrectCount)
			}
			newBadges[i] = len(out.NewBadges)
		}(i)
	}
	wg.Wait()

	snap, err := service.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if snap.TotalQuizzes != 1 || snap.PerfectScoreQuizzes != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	earned, err := service.Badges(ctx, "u1")
	if err != nil {
		t.Fatalf("badges: %v", err)
	}
	total := 0
	for _, n := range newBadges {
		total += n
	}
	if total != len(earned) {
		t.Fatalf("reported %d new badges across finishes, stored %d", total, len(earned))
	}

	history, err := service.History(ctx, "u1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].SessionID != qs.ID {
		t.Fatalf("unexpected history: %+v", history)
	}
	if !history[0].Applied {
		t.Fatalf("expected stored result marked applied")
	}

	rebuilt, _, err := service.Recompute(ctx, "u1")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if rebuilt.TotalQuizzes != snap.TotalQuizzes || rebuilt.AverageScore != snap.AverageScore {
		t.Fatalf("recompute diverged: %+v vs %+v", rebuilt, snap)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func sampleQuestions() []domain.QuestionRef {
	opts := []domain.Option{
		{Label: "A", Text: "EC2"},
		{Label: "B", Text: "S3"},
		{Label: "C", Text: "Lambda"},
	}
	return []domain.QuestionRef{
		{ID: "q1", Category: "cloud", Prompt: "Which is object storage?", Options: opts, CanonicalAnswer: "B"},
		{ID: "q2", Category: "cloud", Prompt: "Which are compute? (Select two)", Options: opts, CanonicalAnswer: "AC"},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
