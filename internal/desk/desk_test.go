package desk

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtrntr/sharktank/internal/events"
	"github.com/xtrntr/sharktank/internal/models"
	"github.com/xtrntr/sharktank/internal/orderedjson"
	"github.com/xtrntr/sharktank/internal/view"
	"github.com/xtrntr/sharktank/internal/webhook"
)

type fakeDispatcher struct {
	payloads []models.TransactionPayload
	outcomes []webhook.Outcome
	reply    string
	err      error
}

func (f *fakeDispatcher) Submit(ctx context.Context, p models.TransactionPayload, out webhook.Outcome) (*models.APIResponse, error) {
	f.payloads = append(f.payloads, p)
	f.outcomes = append(f.outcomes, out)
	if f.err != nil {
		return nil, f.err
	}
	data, err := orderedjson.Unmarshal([]byte(f.reply))
	if err != nil {
		return nil, err
	}
	return &models.APIResponse{Success: true, Message: out.Success, Data: data}, nil
}

type memJournal struct {
	mu      sync.Mutex
	entries []models.JournalEntry
}

func (m *memJournal) Record(ctx context.Context, e models.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memJournal) ListByPlayer(ctx context.Context, playerID, limit int) ([]models.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.JournalEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].PlayerID == playerID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *memJournal) Close(ctx context.Context) error { return nil }

type memPublisher struct {
	events []events.TransactionEvent
}

func (m *memPublisher) Publish(ctx context.Context, ev events.TransactionEvent) error {
	m.events = append(m.events, ev)
	return nil
}

func (m *memPublisher) Close() error { return nil }

func TestDesk_Execute(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		reply    string
		wantKind view.Kind
		wantMsg  string
	}{
		{
			name:     "Account",
			req:      Request{PlayerID: 3, Password: "pw", Type: models.TransactionDisplayAccount},
			reply:    `[{"player_id":3,"name":"Cy","cash_balance":50,"holdings":"{}"}]`,
			wantKind: view.KindAccount,
			wantMsg:  "Account details retrieved.",
		},
		{
			name:     "Stocks",
			req:      Request{PlayerID: 3, Password: "pw", Type: models.TransactionGetStocks},
			reply:    `[{"symbol":"AAPL","price":1}]`,
			wantKind: view.KindTable,
			wantMsg:  "Stock data retrieved.",
		},
		{
			name:     "TradeDialog",
			req:      Request{PlayerID: 3, Password: "pw", Type: models.TransactionBuy, Symbol: "aapl", Quantity: 2, Simple: true},
			reply:    `{"success":true}`,
			wantKind: view.KindMessage,
			wantMsg:  "Transaction processed successfully!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			disp := &fakeDispatcher{reply: tt.reply}
			j := &memJournal{}
			pub := &memPublisher{}
			d := NewDesk(disp, j, pub, nil)

			res, err := d.Execute(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, res.View.Kind)
			assert.Equal(t, tt.wantMsg, res.View.Message)

			require.Len(t, disp.payloads, 1)
			assert.Equal(t, "pw", disp.payloads[0].Password)
			require.Len(t, j.entries, 1)
			assert.True(t, j.entries[0].Success)
			assert.Len(t, pub.events, 1)
		})
	}
}

func TestDesk_ExecuteUppercasesTradeSymbol(t *testing.T) {
	disp := &fakeDispatcher{reply: `{}`}
	d := NewDesk(disp, nil, nil, nil)

	_, err := d.Execute(context.Background(), Request{PlayerID: 1, Password: "pw", Type: models.TransactionSell, Symbol: "msft", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "MSFT", disp.payloads[0].Symbol)
}

func TestDesk_ExecuteDropsTradeFieldsForQueries(t *testing.T) {
	disp := &fakeDispatcher{reply: `{}`}
	d := NewDesk(disp, nil, nil, nil)

	_, err := d.Execute(context.Background(), Request{PlayerID: 1, Type: models.TransactionGetStocks, Symbol: "X", Quantity: 5})
	require.NoError(t, err)
	assert.Empty(t, disp.payloads[0].Symbol)
	assert.Zero(t, disp.payloads[0].Quantity)
}

func TestDesk_ExecuteFailureIsJournaled(t *testing.T) {
	disp := &fakeDispatcher{err: &webhook.ResponseError{Status: 200, Message: "Insufficient funds"}}
	j := &memJournal{}
	d := NewDesk(disp, j, nil, nil)

	_, err := d.Execute(context.Background(), Request{PlayerID: 5, Password: "pw", Type: models.TransactionBuy, Symbol: "TSLA", Quantity: 1000})
	assert.EqualError(t, err, "Insufficient funds")

	require.Len(t, j.entries, 1)
	assert.False(t, j.entries[0].Success)
	assert.Equal(t, "Insufficient funds", j.entries[0].Message)

	hist, err := d.History(context.Background(), 5, 10)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestDesk_ValidationSkipsDispatch(t *testing.T) {
	disp := &fakeDispatcher{reply: `{}`}
	j := &memJournal{}
	d := NewDesk(disp, j, nil, nil)

	_, err := d.Execute(context.Background(), Request{PlayerID: 1, Type: models.TransactionBuy, Symbol: "AAPL", Quantity: 0})
	var verr *models.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Empty(t, disp.payloads)
	assert.Empty(t, j.entries)

	_, err = d.Execute(context.Background(), Request{PlayerID: 1, Password: "x", Type: models.TransactionLogin})
	assert.Error(t, err)
}

func TestDesk_QuietSkipsJournal(t *testing.T) {
	disp := &fakeDispatcher{reply: `[{"symbol":"AAPL"}]`}
	j := &memJournal{}
	pub := &memPublisher{}
	d := NewDesk(disp, j, pub, nil)

	res, err := d.Execute(context.Background(), Request{PlayerID: 1, Password: "pw", Type: models.TransactionGetStocks, Quiet: true})
	require.NoError(t, err)
	assert.Equal(t, view.KindTable, res.View.Kind)
	assert.Empty(t, j.entries)
	assert.Empty(t, pub.events)
}
