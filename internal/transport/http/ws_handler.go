package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"certquiz-service/internal/app"
	"certquiz-service/internal/domain"
)

// BadgeFeed streams a user's newly awarded badges.
type BadgeFeed interface {
	Subscribe(ctx context.Context, userID string) (<-chan []domain.Badge, func(), error)
}

type WSHandler struct {
	service  *app.QuizService
	feed     BadgeFeed
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler builds the websocket endpoint. feed may be nil.
func NewWSHandler(service *app.QuizService, feed BadgeFeed, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		feed:    feed,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Category  string `json:"category"`
	Count     int    `json:"count"`
	SessionID string `json:"sessionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ServeWS upgrades HTTP requests to websockets and runs one quiz attempt at a
// time per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	var badges <-chan []domain.Badge
	if h.feed != nil {
		ch, cancel, err := h.feed.Subscribe(ctx, userID)
		if err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "badge feed unavailable", Status: http.StatusInternalServerError}})
			return
		}
		defer cancel()
		badges = ch
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	feedDone := make(chan struct{})

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.String("user_id", userID), zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(feedDone)
		if badges == nil {
			return
		}
		for {
			select {
			case batch, ok := <-badges:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "badges", Payload: batch}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	c := &wsConn{h: h, userID: userID, send: send, writerDone: writerDone}
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		c.handle(ctx, inbound)
	}

	close(closeSignals)
	<-feedDone
	close(send)
	<-writerDone
}

// wsConn is the per-connection state of the read loop.
type wsConn struct {
	h         *WSHandler
	userID    string
	sessionID string
	send      chan<- outboundMessage[any]

	// writerDone is closed once the writer stops draining send.
	writerDone <-chan struct{}
}

func (c *wsConn) handle(ctx context.Context, in inboundMessage) {
	switch in.Type {
	case "start":
		var p startPayload
		if len(in.Payload) > 0 {
			if err := json.Unmarshal(in.Payload, &p); err != nil {
				c.errorf(http.StatusBadRequest, "invalid start payload")
				return
			}
		}
		qs, err := c.open(ctx, p)
		if err != nil {
			c.fail(err)
			return
		}
		c.sessionID = qs.ID
		c.reply("question", newQuestionView(qs))

	case "answer":
		if c.sessionID == "" {
			c.errorf(http.StatusConflict, "no active session")
			return
		}
		var p answerRequest
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			c.errorf(http.StatusBadRequest, "invalid answer payload")
			return
		}
		raw, err := p.raw()
		if err != nil {
			c.fail(err)
			return
		}
		var qs *domain.QuizSession
		if p.Position != nil {
			qs, err = c.h.service.SubmitAnswerAt(ctx, c.sessionID, *p.Position, raw)
		} else {
			qs, err = c.h.service.SubmitAnswer(ctx, c.sessionID, raw)
		}
		if err != nil {
			c.fail(err)
			return
		}
		c.reply("question", newQuestionView(qs))

	case "finish":
		if c.sessionID == "" {
			c.errorf(http.StatusConflict, "no active session")
			return
		}
		out, err := c.h.service.Finish(ctx, c.sessionID)
		if err != nil {
			c.fail(err)
			return
		}
		c.sessionID = ""
		c.reply("results", out)

	default:
		c.errorf(http.StatusBadRequest, "unsupported message type")
	}
}

// open resumes p.SessionID when set, otherwise starts a new session.
func (c *wsConn) open(ctx context.Context, p startPayload) (*domain.QuizSession, error) {
	if p.SessionID == "" {
		return c.h.service.Start(ctx, c.userID, p.Count, p.Category)
	}
	qs, err := c.h.service.Session(ctx, p.SessionID)
	if err != nil {
		return nil, err
	}
	if qs.UserID != c.userID {
		return nil, domain.ErrNotFound
	}
	return qs, nil
}

// reply queues a message for the writer. It drops the message once the
// writer has stopped.
func (c *wsConn) reply(typ string, payload any) bool {
	select {
	case c.send <- outboundMessage[any]{Type: typ, Payload: payload}:
		return true
	case <-c.writerDone:
		return false
	}
}

func (c *wsConn) fail(err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		c.h.log.Error("ws request failed", zap.String("user_id", c.userID), zap.String("session_id", c.sessionID), zap.Error(err))
		msg = "internal error"
	}
	c.errorf(status, msg)
}

func (c *wsConn) errorf(status int, msg string) {
	c.reply("error", errorPayload{Message: msg, Status: status})
}
