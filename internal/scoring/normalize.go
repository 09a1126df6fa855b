// Package scoring canonicalizes answer labels and scores submissions. Every
// answer comparison in the service goes through Normalize.
package scoring

import (
	"fmt"
	"strings"

	"certquiz-service/internal/domain"
)

// Labels is the fixed label alphabet, in canonical order.
const Labels = "ABCDE"

// Normalize turns a raw answer such as "ca", "A,C" or "C A" into its canonical
// key ("AC"). Separators (comma, semicolon, whitespace) are ignored, duplicates
// collapse, and the empty input normalizes to "". Any other character is a
// validation error.
func Normalize(raw string) (string, error) {
	var set [len(Labels)]bool
	for _, r := range raw {
		switch r {
		case ',', ';', ' ', '\t', '\n', '\r':
			continue
		}
		idx := strings.IndexRune(Labels, toUpper(r))
		if idx < 0 {
			return "", fmt.Errorf("%w: invalid answer label %q", domain.ErrValidation, r)
		}
		set[idx] = true
	}

	var b strings.Builder
	for i, ok := range set {
		if ok {
			b.WriteByte(Labels[i])
		}
	}
	return b.String(), nil
}

// NormalizeLabels normalizes a list of selected labels, e.g. a multi-value
// form field.
func NormalizeLabels(labels []string) (string, error) {
	return Normalize(strings.Join(labels, ","))
}

// ValidateQuestion checks a question that enters the core from a loader.
func ValidateQuestion(q domain.QuestionRef) error {
	if q.ID == "" {
		return fmt.Errorf("%w: question without id", domain.ErrValidation)
	}
	if n := len(q.Options); n < 2 || n > len(Labels) {
		return fmt.Errorf("%w: question %s has %d options, want 2-%d", domain.ErrValidation, q.ID, n, len(Labels))
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		norm, err := Normalize(o.Label)
		if err != nil || len(norm) != 1 || norm != o.Label {
			return fmt.Errorf("%w: question %s has invalid option label %q", domain.ErrValidation, q.ID, o.Label)
		}
		if _, dup := seen[o.Label]; dup {
			return fmt.Errorf("%w: question %s repeats option %s", domain.ErrValidation, q.ID, o.Label)
		}
		seen[o.Label] = struct{}{}
	}

	canonical, err := Normalize(q.CanonicalAnswer)
	if err != nil {
		return fmt.Errorf("question %s canonical answer: %w", q.ID, err)
	}
	if canonical == "" {
		return fmt.Errorf("%w: question %s has no canonical answer", domain.ErrValidation, q.ID)
	}
	for _, r := range canonical {
		if _, ok := seen[string(r)]; !ok {
			return fmt.Errorf("%w: question %s canonical answer references missing option %c", domain.ErrValidation, q.ID, r)
		}
	}
	return nil
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}
