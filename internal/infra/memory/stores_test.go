package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"certquiz-service/internal/domain"
)

func TestResultStoreInsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	res := domain.SessionResult{SessionID: "s1", UserID: "u1", Tally: domain.Tally{CorrectCount: 1, TotalCount: 2, Percentage: 50}, CompletedAt: t0}
	inserted, err := store.SaveSessionResult(ctx, res)
	if err != nil || !inserted {
		t.Fatalf("expected first save to insert, got inserted=%v err=%v", inserted, err)
	}

	dup := res
	dup.Tally.CorrectCount = 2
	inserted, err = store.SaveSessionResult(ctx, dup)
	if err != nil || inserted {
		t.Fatalf("expected duplicate save to be ignored, got inserted=%v err=%v", inserted, err)
	}

	got, err := store.GetSessionResult(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Tally.CorrectCount != 1 {
		t.Fatalf("expected original result kept, got %+v", got.Tally)
	}

	if _, err := store.GetSessionResult(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	_, _ = store.SaveSessionResult(ctx, domain.SessionResult{SessionID: "s0", UserID: "u1", CompletedAt: t0.Add(-time.Hour)})
	_, _ = store.SaveSessionResult(ctx, domain.SessionResult{SessionID: "x", UserID: "u2", CompletedAt: t0})
	list, err := store.ListUserResults(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].SessionID != "s0" || list[1].SessionID != "s1" {
		t.Fatalf("expected u1 results oldest first, got %+v", list)
	}
}

func TestResultStoreMarkApplied(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()

	if _, err := store.SaveSessionResult(ctx, domain.SessionResult{SessionID: "s1", UserID: "u1", Applied: true}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ := store.GetSessionResult(ctx, "s1")
	if got.Applied {
		t.Fatalf("expected a new result to start unapplied")
	}

	if err := store.MarkApplied(ctx, "s1"); err != nil {
		t.Fatalf("mark applied: %v", err)
	}
	got, _ = store.GetSessionResult(ctx, "s1")
	if !got.Applied {
		t.Fatalf("expected result marked applied")
	}
	if err := store.MarkApplied(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPerformanceStoreDefaultsToEmptySnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewPerformanceStore()

	snap, err := store.LoadSnapshot(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.UserID != "u1" || snap.TotalQuizzes != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}

	at := time.Now()
	snap.TotalQuizzes = 3
	first := at
	snap.FirstQuizAt = &first
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	*snap.FirstQuizAt = at.Add(time.Hour)

	got, _ := store.LoadSnapshot(ctx, "u1")
	if got.TotalQuizzes != 3 || !got.FirstQuizAt.Equal(at) {
		t.Fatalf("expected saved snapshot isolated from caller, got %+v", got)
	}
}

func TestAwardStoreUniquePerUserBadge(t *testing.T) {
	ctx := context.Background()
	store := NewAwardStore()
	at := time.Now()

	ok, _ := store.AwardIfAbsent(ctx, domain.AwardedBadge{UserID: "u1", BadgeID: "first-steps", AwardedAt: at})
	if !ok {
		t.Fatalf("expected first award inserted")
	}
	ok, _ = store.AwardIfAbsent(ctx, domain.AwardedBadge{UserID: "u1", BadgeID: "first-steps", AwardedAt: at.Add(time.Hour)})
	if ok {
		t.Fatalf("expected repeat award ignored")
	}
	ok, _ = store.AwardIfAbsent(ctx, domain.AwardedBadge{UserID: "u2", BadgeID: "first-steps", AwardedAt: at})
	if !ok {
		t.Fatalf("expected award for another user inserted")
	}

	awarded, _ := store.LoadAwarded(ctx, "u1")
	if _, ok := awarded["first-steps"]; !ok || len(awarded) != 1 {
		t.Fatalf("unexpected awarded set %v", awarded)
	}
	list, _ := store.ListAwards(ctx, "u1")
	if len(list) != 1 || !list[0].AwardedAt.Equal(at) {
		t.Fatalf("expected original award time kept, got %+v", list)
	}
}
