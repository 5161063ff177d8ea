// Package desk dispatches a player's transactions to the remote service and
// turns the reply into a view, journaling every attempt.
package desk

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xtrntr/sharktank/internal/events"
	"github.com/xtrntr/sharktank/internal/id"
	"github.com/xtrntr/sharktank/internal/journal"
	"github.com/xtrntr/sharktank/internal/models"
	"github.com/xtrntr/sharktank/internal/view"
	"github.com/xtrntr/sharktank/internal/webhook"
)

// Dispatcher sends a validated transaction to the remote service
type Dispatcher interface {
	Submit(ctx context.Context, payload models.TransactionPayload, out webhook.Outcome) (*models.APIResponse, error)
}

// Desk manages transaction dispatch for logged-in players
type Desk struct {
	Dispatcher Dispatcher
	Journal    journal.Journal
	Events     events.Publisher
	Selector   view.Selector
	Logger     *zap.Logger
}

// NewDesk creates a new desk. Nil journal and publisher default to no-ops.
func NewDesk(d Dispatcher, j journal.Journal, p events.Publisher, logger *zap.Logger) *Desk {
	if j == nil {
		j = journal.Nop{}
	}
	if p == nil {
		p = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Desk{Dispatcher: d, Journal: j, Events: p, Selector: view.Selector{Logger: logger}, Logger: logger}
}

// Request is one action taken by a player
type Request struct {
	PlayerID int
	Password string
	Type     models.TransactionType
	Symbol   string
	Quantity int
	// Simple asks for the message view only, as the trade dialog does
	Simple bool
	// Quiet skips the journal and events, for background refreshes
	Quiet bool
}

// Result is a successful dispatch
type Result struct {
	Response *models.APIResponse
	View     view.View
}

// Execute validates, dispatches and journals req. The password is injected
// from the session and never journaled.
func (d *Desk) Execute(ctx context.Context, req Request) (*Result, error) {
	if req.Type == models.TransactionLogin {
		return nil, errors.New("login is handled by the auth service")
	}
	payload := models.TransactionPayload{
		PlayerID:        req.PlayerID,
		Password:        req.Password,
		TransactionType: req.Type,
	}
	if req.Type.IsTrade() {
		payload.Symbol = req.Symbol
		payload.Quantity = req.Quantity
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	out := webhook.OutcomeFor(req.Type)
	if req.Simple {
		out = webhook.TradeOutcome
	}

	start := time.Now()
	resp, err := d.Dispatcher.Submit(ctx, payload, out)
	if req.Quiet {
		if err != nil {
			return nil, err
		}
		return &Result{Response: resp, View: d.Selector.Select(resp, req.Simple)}, nil
	}
	entry := models.JournalEntry{
		ID:              id.New(),
		PlayerID:        payload.PlayerID,
		TransactionType: payload.TransactionType,
		Symbol:          payload.Symbol,
		Quantity:        payload.Quantity,
		Success:         err == nil,
		Duration:        time.Since(start),
		CreatedAt:       start.UTC(),
	}
	if err != nil {
		entry.Message = err.Error()
	} else {
		entry.Message = resp.Message
	}
	d.record(ctx, entry)

	if err != nil {
		d.Logger.Info("transaction failed",
			zap.Int("player_id", payload.PlayerID),
			zap.String("type", string(payload.TransactionType)),
			zap.Error(err))
		return nil, err
	}
	return &Result{Response: resp, View: d.Selector.Select(resp, req.Simple)}, nil
}

func (d *Desk) record(ctx context.Context, e models.JournalEntry) {
	ctx = context.WithoutCancel(ctx)
	if err := d.Journal.Record(ctx, e); err != nil {
		d.Logger.Error("journal record failed", zap.String("id", e.ID), zap.Error(err))
	}
	if err := d.Events.Publish(ctx, events.FromEntry(e)); err != nil {
		d.Logger.Error("event publish failed", zap.String("id", e.ID), zap.Error(err))
	}
}

// History returns the player's recent transactions, newest first
func (d *Desk) History(ctx context.Context, playerID, limit int) ([]models.JournalEntry, error) {
	return d.Journal.ListByPlayer(ctx, playerID, limit)
}
