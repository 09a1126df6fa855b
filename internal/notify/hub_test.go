package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certquiz-service/internal/domain"
)

func TestHubDeliversToUserSubscribers(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()

	mine, cancelMine, err := hub.Subscribe(ctx, "u1")
	require.NoError(t, err)
	defer cancelMine()
	other, cancelOther, err := hub.Subscribe(ctx, "u2")
	require.NoError(t, err)
	defer cancelOther()

	require.NoError(t, hub.NotifyBadges(ctx, "u1", []domain.Badge{{ID: "first-steps"}}))

	select {
	case got := <-mine:
		require.Len(t, got, 1)
		assert.Equal(t, "first-steps", got[0].ID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for badge")
	}
	select {
	case got := <-other:
		t.Fatalf("unexpected delivery to other user: %+v", got)
	default:
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	ch, _, err := hub.Subscribe(ctx, "u1")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancel")
	}
	require.NoError(t, hub.NotifyBadges(context.Background(), "u1", []domain.Badge{{ID: "x"}}))
}
