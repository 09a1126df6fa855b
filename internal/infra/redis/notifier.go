package redis

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"certquiz-service/internal/domain"
)

// BadgeEvent is the payload published for each award batch.
type BadgeEvent struct {
	UserID string         `json:"userId"`
	Badges []domain.Badge `json:"badges"`
}

// Notifier publishes newly awarded badges on badges:{userID} so connected
// clients on any instance can surface them.
type Notifier struct {
	client *redis.Client
	log    *zap.Logger
}

func NewNotifier(client *redis.Client, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{client: client, log: log}
}

func (n *Notifier) NotifyBadges(ctx context.Context, userID string, badges []domain.Badge) error {
	data, err := json.Marshal(BadgeEvent{UserID: userID, Badges: badges})
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, Channel(userID), data).Err()
}

// Channel names the pub/sub channel for a user's badge events.
func Channel(userID string) string {
	return "badges:" + userID
}

// Subscribe streams userID's badge events published by any instance until ctx
// is done or cancel is called.
func (n *Notifier) Subscribe(ctx context.Context, userID string) (<-chan []domain.Badge, func(), error) {
	sub := n.client.Subscribe(ctx, Channel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan []domain.Badge, 8)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev BadgeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					n.log.Warn("decode badge event", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- ev.Badges:
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
	return out, cancel, nil
}
