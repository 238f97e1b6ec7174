// Package history records the conversation log served by the history
// endpoint and used as model context.
package history

import (
	"context"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Exchange is one logged user or assistant message.
type Exchange struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	Source      string    `json:"source,omitempty"`
	PIIRedacted bool      `json:"pii_redacted"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists and retrieves exchanges.
type Store interface {
	Append(ctx context.Context, ex Exchange) error
	// List returns up to limit most recent exchanges in chronological order.
	// A limit <= 0 returns everything.
	List(ctx context.Context, limit int) ([]Exchange, error)
	Close() error
}
