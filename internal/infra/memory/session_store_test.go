package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"certquiz-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	qs := &domain.QuizSession{
		ID:        "s1",
		UserID:    "u1",
		Status:    domain.StatusInProgress,
		Questions: sampleQuestions(),
		Answers:   map[int]string{},
		StartedAt: time.Now(),
	}
	if err := store.Create(ctx, qs); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, qs); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected duplicate create to fail, got %v", err)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Answers[0] = "A"
	got.CurrentIndex = 1

	again, _ := store.Get(ctx, "s1")
	if again.CurrentIndex != 0 || len(again.Answers) != 0 {
		t.Fatalf("expected stored session untouched by caller mutation, got %+v", again)
	}

	if err := store.Save(ctx, got); err != nil {
		t.Fatalf("save: %v", err)
	}
	again, _ = store.Get(ctx, "s1")
	if again.CurrentIndex != 1 || again.Answers[0] != "A" {
		t.Fatalf("expected saved progress, got %+v", again)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected session removed, got %v", err)
	}
	if err := store.Save(ctx, got); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected save of deleted session to fail, got %v", err)
	}
}
