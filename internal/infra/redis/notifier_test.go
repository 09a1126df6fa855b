package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"certquiz-service/internal/domain"
)

func TestNotifierPublishesBadgeEvent(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	ctx := context.Background()
	sub := client.Subscribe(ctx, Channel("u1"))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := NewNotifier(client, nil).NotifyBadges(ctx, "u1", []domain.Badge{{ID: "first-steps", Name: "First Steps"}}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var ev BadgeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ev.UserID != "u1" || len(ev.Badges) != 1 || ev.Badges[0].ID != "first-steps" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for badge event")
	}
}

func TestNotifierSubscribeDecodesEvents(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	notifier := NewNotifier(newClient(mr), nil)
	ctx := context.Background()
	badges, cancel, err := notifier.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if err := notifier.NotifyBadges(ctx, "u1", []domain.Badge{{ID: "quiz-master"}}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	select {
	case got := <-badges:
		if len(got) != 1 || got[0].ID != "quiz-master" {
			t.Fatalf("unexpected badges: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for badges")
	}
}
