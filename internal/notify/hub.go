package notify

import (
	"context"
	"sync"

	"certquiz-service/internal/domain"
)

// Hub is an in-process Sink that fans badge awards out to subscribers of the
// same user. Slow subscribers drop events rather than block the award path.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan []domain.Badge
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan []domain.Badge)}
}

// Subscribe registers for userID's awards until ctx is done or cancel is
// called. The returned channel is closed on cancel.
func (h *Hub) Subscribe(ctx context.Context, userID string) (<-chan []domain.Badge, func(), error) {
	ch := make(chan []domain.Badge, 8)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]chan []domain.Badge)
	}
	h.subs[userID][id] = ch
	h.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			h.mu.Lock()
			delete(h.subs[userID], id)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel, nil
}

func (h *Hub) NotifyBadges(_ context.Context, userID string, badges []domain.Badge) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[userID] {
		select {
		case ch <- append([]domain.Badge(nil), badges...):
		default:
		}
	}
	return nil
}
