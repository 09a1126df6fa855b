package http

import (
	"certquiz-service/internal/domain"
)

// questionPayload is a question as shown to the taker, without its answer.
type questionPayload struct {
	ID          string          `json:"id"`
	Category    string          `json:"category"`
	Prompt      string          `json:"prompt"`
	Options     []domain.Option `json:"options"`
	MultiSelect bool            `json:"multiSelect"`
}

type questionView struct {
	SessionID string           `json:"sessionId"`
	Position  int              `json:"position"`
	Total     int              `json:"total"`
	Done      bool             `json:"done"`
	Question  *questionPayload `json:"question,omitempty"`
}

type sessionView struct {
	ID       string               `json:"id"`
	UserID   string               `json:"userId"`
	Category string               `json:"category"`
	Status   domain.SessionStatus `json:"status"`
	Answered int                  `json:"answered"`
	Total    int                  `json:"total"`
	Current  questionView         `json:"current"`
}

func newQuestionView(qs *domain.QuizSession) questionView {
	v := questionView{SessionID: qs.ID, Total: len(qs.Questions)}
	if qs.CurrentIndex >= len(qs.Questions) {
		v.Position = len(qs.Questions)
		v.Done = true
		return v
	}
	q := qs.Questions[qs.CurrentIndex]
	v.Position = qs.CurrentIndex
	v.Question = &questionPayload{
		ID:          q.ID,
		Category:    q.Category,
		Prompt:      q.Prompt,
		Options:     q.Options,
		MultiSelect: q.IsMultiSelect(),
	}
	return v
}

func newSessionView(qs *domain.QuizSession) sessionView {
	return sessionView{
		ID:       qs.ID,
		UserID:   qs.UserID,
		Category: qs.Category,
		Status:   qs.Status,
		Answered: len(qs.Answers),
		Total:    len(qs.Questions),
		Current:  newQuestionView(qs),
	}
}
