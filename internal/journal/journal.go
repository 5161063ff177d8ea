package journal

import (
	"context"
	"fmt"

	"github.com/xtrntr/sharktank/internal/models"
)

// Journal records every transaction dispatched to the remote service
type Journal interface {
	Record(ctx context.Context, e models.JournalEntry) error
	ListByPlayer(ctx context.Context, playerID, limit int) ([]models.JournalEntry, error)
	Close(ctx context.Context) error
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Open returns the journal for driver. "none" and "" give a no-op journal.
func Open(ctx context.Context, driver, dsn string) (Journal, error) {
	switch driver {
	case "", "none":
		return Nop{}, nil
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	}
	return nil, fmt.Errorf("unknown journal driver %q", driver)
}

// ClampLimit bounds a requested page size
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Nop discards entries
type Nop struct{}

func (Nop) Record(context.Context, models.JournalEntry) error { return nil }

func (Nop) ListByPlayer(context.Context, int, int) ([]models.JournalEntry, error) {
	return []models.JournalEntry{}, nil
}

func (Nop) Close(context.Context) error { return nil }
