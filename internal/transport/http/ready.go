package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ReadyCheck is a named dependency probe served by /readyz.
type ReadyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type readyView struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// readyHandler reports 503 when any check fails.
func readyHandler(checks []ReadyCheck, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		view := readyView{Status: "ready", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				log.Warn("readiness check failed", zap.String("check", c.Name), zap.Error(err))
				view.Checks[c.Name] = err.Error()
				view.Status = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			view.Checks[c.Name] = "ok"
		}
		writeJSON(w, status, view)
	}
}
