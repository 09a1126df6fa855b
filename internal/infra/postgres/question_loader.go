package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"certquiz-service/internal/domain"
)

// QuestionLoader loads question pools from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

// LoadQuestions returns every question in category (case-insensitive), or the
// whole bank when category is empty.
func (l *QuestionLoader) LoadQuestions(ctx context.Context, category string) ([]domain.QuestionRef, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, category, prompt, options, canonical_answer, explanation
		FROM questions
		WHERE $1 = '' OR lower(category) = lower($1)
		ORDER BY id`, category)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []domain.QuestionRef
	for rows.Next() {
		var (
			q   domain.QuestionRef
			raw []byte
		)
		if err := rows.Scan(&q.ID, &q.Category, &q.Prompt, &raw, &q.CanonicalAnswer, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for %s: %w", q.ID, err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return out, nil
}

// ReplaceCategories deletes the given categories and inserts questions in a
// single transaction. It returns how many questions were written.
func (l *QuestionLoader) ReplaceCategories(ctx context.Context, categories []string, questions []domain.QuestionRef) (int, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, c := range categories {
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE lower(category) = lower($1)`, c); err != nil {
			return 0, fmt.Errorf("delete category %s: %w", c, err)
		}
	}

	written := 0
	for _, q := range questions {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return 0, fmt.Errorf("marshal options for %s: %w", q.ID, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO questions (id, category, prompt, options, canonical_answer, explanation)
			VALUES ($1, $2, $3, $4::jsonb, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				category = excluded.category,
				prompt = excluded.prompt,
				options = excluded.options,
				canonical_answer = excluded.canonical_answer,
				explanation = excluded.explanation`,
			q.ID, q.Category, q.Prompt, string(opts), q.CanonicalAnswer, q.Explanation)
		if err != nil {
			return 0, fmt.Errorf("insert question %s: %w", q.ID, err)
		}
		written++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}
