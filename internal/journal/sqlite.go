package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xtrntr/sharktank/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	player_id INTEGER NOT NULL,
	transaction_type TEXT NOT NULL,
	symbol TEXT NOT NULL DEFAULT '',
	quantity INTEGER NOT NULL DEFAULT 0,
	success BOOLEAN NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_player ON transactions(player_id, created_at);
`

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) Record(ctx context.Context, e models.JournalEntry) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO transactions
		(id, player_id, transaction_type, symbol, quantity, success, message, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PlayerID, string(e.TransactionType), e.Symbol, e.Quantity,
		e.Success, e.Message, e.Duration.Milliseconds(), e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

func (j *SQLite) ListByPlayer(ctx context.Context, playerID, limit int) ([]models.JournalEntry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, player_id, transaction_type, symbol, quantity, success, message, duration_ms, created_at
		FROM transactions
		WHERE player_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, playerID, ClampLimit(limit))
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
	return entries, rows.Err()
}

func (j *SQLite) Close(ctx context.Context) error {
	return j.db.Close()
}
