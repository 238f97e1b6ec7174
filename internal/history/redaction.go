package history

import (
	"context"
	"regexp"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
)

// RedactPII masks common high-risk PII patterns.
func RedactPII(input string) (redacted string, changed bool) {
	out := input

	next := emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	changed = changed || next != out
	out = next

	// Cards first so they are not taken for phone numbers.
	next = cardPattern.ReplaceAllString(out, "[REDACTED_CARD]")
	changed = changed || next != out
	out = next

	next = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out
	out = next

	return out, changed
}

// RedactingStore masks PII in every exchange before it reaches the backend.
type RedactingStore struct {
	Store
}

func NewRedactingStore(s Store) *RedactingStore {
	return &RedactingStore{Store: s}
}

func (s *RedactingStore) Append(ctx context.Context, ex Exchange) error {
	content, changed := RedactPII(ex.Content)
	ex.Content = content
	ex.PIIRedacted = ex.PIIRedacted || changed
	return s.Store.Append(ctx, ex)
}
