// Package importer converts exported question records (one column per option)
// into validated QuestionRefs.
package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"certquiz-service/internal/domain"
	"certquiz-service/internal/scoring"
)

// Record is one question in the export format.
type Record struct {
	QuestionID    string `json:"question_id"`
	Question      string `json:"question"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	OptionE       string `json:"option_e"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	Category      string `json:"category"`
}

// ReadFile decodes a JSON array of records.
func ReadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return records, nil
}

// ToQuestion converts a record. Blank option columns are dropped and the
// correct answer is normalized to canonical form.
func (r Record) ToQuestion() (domain.QuestionRef, error) {
	q := domain.QuestionRef{
		ID:          strings.TrimSpace(r.QuestionID),
		Category:    strings.TrimSpace(r.Category),
		Prompt:      strings.TrimSpace(r.Question),
		Explanation: strings.TrimSpace(r.Explanation),
	}
	texts := []string{r.OptionA, r.OptionB, r.OptionC, r.OptionD, r.OptionE}
	for i, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		q.Options = append(q.Options, domain.Option{Label: string(scoring.Labels[i]), Text: text})
	}
	canonical, err := scoring.Normalize(r.CorrectAnswer)
	if err != nil {
		return domain.QuestionRef{}, fmt.Errorf("question %s: %w", q.ID, err)
	}
	q.CanonicalAnswer = canonical
	if err := scoring.ValidateQuestion(q); err != nil {
		return domain.QuestionRef{}, err
	}
	return q, nil
}

// Result summarizes a conversion.
type Result struct {
	Questions  []domain.QuestionRef
	Categories []string
	Skipped    int
}

// Convert turns records into questions. category, when set, overrides each
// record's category. Records without an id get one derived from their index;
// invalid records are logged and skipped. Categories lists the distinct
// categories in first-seen order.
func Convert(records []Record, category string, log *zap.Logger) Result {
	if log == nil {
		log = zap.NewNop()
	}
	var res Result
	seenCat := make(map[string]struct{})
	seenID := make(map[string]struct{})
	for i, rec := range records {
		if category != "" {
			rec.Category = category
		}
		if strings.TrimSpace(rec.QuestionID) == "" {
			rec.QuestionID = fmt.Sprintf("%s_%04d", idPrefix(rec.Category), i+1)
		}
		q, err := rec.ToQuestion()
		if err != nil {
			log.Warn("skipping question record", zap.Int("index", i), zap.String("question_id", rec.QuestionID), zap.Error(err))
			res.Skipped++
			continue
		}
		if q.Category == "" {
			log.Warn("skipping question record without category", zap.String("question_id", q.ID))
			res.Skipped++
			continue
		}
		if _, dup := seenID[q.ID]; dup {
			log.Warn("skipping duplicate question id", zap.String("question_id", q.ID))
			res.Skipped++
			continue
		}
		seenID[q.ID] = struct{}{}
		key := strings.ToLower(q.Category)
		if _, ok := seenCat[key]; !ok {
			seenCat[key] = struct{}{}
			res.Categories = append(res.Categories, q.Category)
		}
		res.Questions = append(res.Questions, q)
	}
	return res
}

func idPrefix(category string) string {
	var b strings.Builder
	for _, w := range strings.Fields(category) {
		b.WriteByte(w[0])
	}
	if b.Len() == 0 {
		return "Q"
	}
	return strings.ToUpper(b.String())
}
