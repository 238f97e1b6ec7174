package history

import (
	"context"
	"strings"
)

// NewStore picks a backend from dsn: empty for in-memory, postgres:// or
// postgresql:// for PostgreSQL, and sqlite:<path> or a *.db path for SQLite.
// Every backend redacts PII before persisting.
func NewStore(ctx context.Context, dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	var (
		store Store
		err   error
	)
	switch {
	case dsn == "":
		store = NewInMemoryStore()
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		store, err = NewPostgresStore(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite:"):
		store, err = NewSQLiteStore(ctx, strings.TrimPrefix(dsn, "sqlite:"))
	case strings.HasSuffix(dsn, ".db"):
		store, err = NewSQLiteStore(ctx, dsn)
	default:
		store, err = NewPostgresStore(ctx, dsn)
	}
	if err != nil {
		return nil, err
	}
	return NewRedactingStore(store), nil
}
