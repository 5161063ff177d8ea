package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xtrntr/sharktank/internal/models"
)

// Postgres wraps a PostgreSQL connection pool
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres initializes a new database connection pool
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return &Postgres{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *Postgres) Close(ctx context.Context) error {
	db.Pool.Close()
	return nil
}

// Record inserts a journal entry
func (db *Postgres) Record(ctx context.Context, e models.JournalEntry) error {
	_, err := db.Pool.Exec(ctx,
		"INSERT INTO transactions (id, player_id, transaction_type, symbol, quantity, success, message, duration_ms, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		e.ID, e.PlayerID, string(e.TransactionType), e.Symbol, e.Quantity, e.Success, e.Message, e.Duration.Milliseconds(), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

// ListByPlayer retrieves a player's most recent entries, newest first
func (db *Postgres) ListByPlayer(ctx context.Context, playerID, limit int) ([]models.JournalEntry, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, player_id, transaction_type, symbol, quantity, success, message, duration_ms, created_at
		FROM transactions
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, playerID, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	entries := []models.JournalEntry{}
	for rows.Next() {
		var (
			e     models.JournalEntry
			ttype string
			ms    int64
		)
		if err := rows.Scan(&e.ID, &e.PlayerID, &ttype, &e.Symbol, &e.Quantity, &e.Success, &e.Message, &ms, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		e.TransactionType = models.TransactionType(ttype)
		e.Duration = time.Duration(ms) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
