package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"certquiz-service/internal/app"
	"certquiz-service/internal/scoring"
)

// Handlers exposes the quiz use cases over JSON.
type Handlers struct {
	service *app.QuizService
	log     *zap.Logger
}

func NewHandlers(service *app.QuizService, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{service: service, log: log}
}

type startRequest struct {
	UserID   string `json:"userId"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type answerRequest struct {
	Answer   string   `json:"answer"`
	Labels   []string `json:"labels"`
	Position *int     `json:"position"`
}

// raw returns the submission as a single answer string.
func (a answerRequest) raw() (string, error) {
	if len(a.Labels) > 0 {
		return scoring.NormalizeLabels(a.Labels)
	}
	return a.Answer, nil
}

func (h *Handlers) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}
	qs, err := h.service.Start(r.Context(), req.UserID, req.Count, req.Category)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionView(qs))
}

func (h *Handlers) CurrentQuestion(w http.ResponseWriter, r *http.Request) {
	qs, err := h.service.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuestionView(qs))
}

func (h *Handlers) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}
	raw, err := req.raw()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	if req.Position != nil {
		qs, err := h.service.SubmitAnswerAt(ctx, id, *req.Position, raw)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newQuestionView(qs))
		return
	}
	qs, err := h.service.SubmitAnswer(ctx, id, raw)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuestionView(qs))
}

func (h *Handlers) CompleteSession(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Finish(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) UserStats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Stats(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handlers) UserBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.service.Badges(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, badges)
}

func (h *Handlers) UserHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.History(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeErr(w, status, "internal error")
		return
	}
	writeErr(w, status, err.Error())
}
