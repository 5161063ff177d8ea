package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtrntr/sharktank/internal/id"
	"github.com/xtrntr/sharktank/internal/models"
)

func entry(playerID int, ttype models.TransactionType, at time.Time, ok bool) models.JournalEntry {
	return models.JournalEntry{
		ID:              id.New(),
		PlayerID:        playerID,
		TransactionType: ttype,
		Symbol:          "AAPL",
		Quantity:        3,
		Success:         ok,
		Message:         fmt.Sprintf("%s at %s", ttype, at.Format(time.RFC3339)),
		Duration:        120 * time.Millisecond,
		CreatedAt:       at,
	}
}

// exerciseJournal runs the same assertions against every backend
func exerciseJournal(t *testing.T, j Journal) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, j.Record(ctx, entry(1, models.TransactionBuy, base, true)))
	require.NoError(t, j.Record(ctx, entry(1, models.TransactionSell, base.Add(time.Minute), false)))
	require.NoError(t, j.Record(ctx, entry(2, models.TransactionGetStocks, base.Add(2*time.Minute), true)))
	require.NoError(t, j.Record(ctx, entry(1, models.TransactionDisplayAccount, base.Add(3*time.Minute), true)))

	got, err := j.ListByPlayer(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, models.TransactionDisplayAccount, got[0].TransactionType)
	assert.Equal(t, models.TransactionSell, got[1].TransactionType)
	assert.False(t, got[1].Success)
	assert.Equal(t, 120*time.Millisecond, got[2].Duration)
	assert.True(t, got[2].CreatedAt.Equal(base))

	got, err = j.ListByPlayer(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = j.ListByPlayer(ctx, 42, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestSQLite(t *testing.T) {
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close(context.Background())

	exerciseJournal(t, j)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	j, err := NewPostgres(ctx, dsn)
	require.NoError(t, err)
	defer j.Close(ctx)

	migration, err := os.ReadFile("../../migrations/001_init.sql")
	require.NoError(t, err)
	_, err = j.Pool.Exec(ctx, string(migration))
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("Unable to apply migration: %v", err)
	}
	_, err = j.Pool.Exec(ctx, "TRUNCATE TABLE transactions")
	require.NoError(t, err)

	exerciseJournal(t, j)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	j, err := Open(ctx, "none", "")
	require.NoError(t, err)
	assert.IsType(t, Nop{}, j)
	assert.NoError(t, j.Record(ctx, models.JournalEntry{}))

	j, err = Open(ctx, "sqlite", filepath.Join(t.TempDir(), "j.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, j)
	j.Close(ctx)

	_, err = Open(ctx, "mongo", "")
	assert.Error(t, err)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxLimit, ClampLimit(10000))
}
