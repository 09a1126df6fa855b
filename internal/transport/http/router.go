package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter mounts the REST API, the websocket endpoint, a liveness check
// and a readiness check running the given probes.
func NewRouter(h *Handlers, ws *WSHandler, log *zap.Logger, checks ...ReadyCheck) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log), middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", readyHandler(checks, log))

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.StartSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/question", h.CurrentQuestion)
			r.Post("/answers", h.SubmitAnswer)
			r.Post("/complete", h.CompleteSession)
		})
	})

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/stats", h.UserStats)
		r.Get("/badges", h.UserBadges)
		r.Get("/history", h.UserHistory)
	})

	if ws != nil {
		r.Get("/ws", ws.ServeWS)
	}
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
