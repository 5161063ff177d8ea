package view

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtrntr/sharktank/internal/models"
	"github.com/xtrntr/sharktank/internal/orderedjson"
)

func response(t *testing.T, raw, msg string) *models.APIResponse {
	t.Helper()
	resp := &models.APIResponse{Success: true, Message: msg}
	if raw != "" {
		data, err := orderedjson.Unmarshal([]byte(raw))
		require.NoError(t, err)
		resp.Data = data
	}
	return resp
}

func TestSelect_Account(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantHoldings []Holding
		wantCash     string
	}{
		{
			name:         "HoldingsAsString",
			raw:          `[{"player_id":7,"name":"Alice","cash_balance":10250.5,"holdings":"{\"TSLA\":5,\"AAPL\":20}"}]`,
			wantHoldings: []Holding{{Symbol: "TSLA", Quantity: "5"}, {Symbol: "AAPL", Quantity: "20"}},
			wantCash:     "10250.50",
		},
		{
			name:         "HoldingsAsObject",
			raw:          `{"player_id":7,"name":"Alice","cash_balance":"99","holdings":{"MSFT":1}}`,
			wantHoldings: []Holding{{Symbol: "MSFT", Quantity: "1"}},
			wantCash:     "99.00",
		},
		{
			name:     "BrokenHoldings",
			raw:      `[{"player_id":7,"name":"Alice","cash_balance":0,"holdings":"{not json"}]`,
			wantCash: "0.00",
		},
		{
			name:     "EmptyHoldings",
			raw:      `[{"player_id":7,"name":"Alice","cash_balance":1,"holdings":"{}"}]`,
			wantCash: "1.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Select(response(t, tt.raw, "Account details retrieved."), false)
			require.Equal(t, KindAccount, v.Kind)
			assert.Equal(t, "Alice", v.Account.Name)
			assert.Equal(t, "7", v.Account.PlayerID)
			assert.Equal(t, tt.wantCash, v.Account.FormatCash())
			assert.Equal(t, tt.wantHoldings, v.Account.Holdings)
		})
	}
}

func TestSelect_AccountNeedsBothFields(t *testing.T) {
	v := Select(response(t, `[{"cash_balance":5}]`, ""), false)
	assert.Equal(t, KindTable, v.Kind)
}

func TestSelect_Table(t *testing.T) {
	raw := `[
		{"symbol":"AAPL","price":189.5,"meta":{"sector":"tech"}},
		{"symbol":"XOM","price":101,"extra":true},
		{"price":3},
		{"symbol":"GME","price":null}
	]`
	v := Select(response(t, raw, "Stock data retrieved."), false)
	require.Equal(t, KindTable, v.Kind)

	assert.Equal(t, []Header{
		{Name: "symbol", Clickable: true},
		{Name: "price"},
		{Name: "meta"},
	}, v.Table.Headers)

	require.Len(t, v.Table.Rows, 4)
	assert.Equal(t, []Cell{
		{Text: "AAPL", Clickable: true},
		{Text: "189.5"},
		{Text: `{"sector":"tech"}`},
	}, v.Table.Rows[0])
	assert.Equal(t, "", v.Table.Rows[1][2].Text)
	assert.Equal(t, Cell{Text: ""}, v.Table.Rows[2][0])
	assert.Equal(t, []Cell{
		{Text: "GME", Clickable: true},
		{Text: "null"},
		{Text: ""},
	}, v.Table.Rows[3])
}

func TestSelect_SingleObjectBecomesTable(t *testing.T) {
	v := Select(response(t, `{"success":true,"message":"done"}`, "done"), false)
	require.Equal(t, KindTable, v.Kind)
	assert.Len(t, v.Table.Rows, 1)
	assert.Equal(t, "done", v.Message)
}

func TestSelect_Message(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		simple bool
	}{
		{name: "Simple", raw: `[{"symbol":"AAPL"}]`, simple: true},
		{name: "NoData", raw: ""},
		{name: "EmptyArray", raw: `[]`},
		{name: "Scalars", raw: `["a","b"]`},
		{name: "String", raw: `"ok"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Select(response(t, tt.raw, "Transaction processed successfully!"), tt.simple)
			assert.Equal(t, KindMessage, v.Kind)
			assert.Equal(t, "Transaction processed successfully!", v.Message)
		})
	}

	assert.Equal(t, KindMessage, Select(nil, false).Kind)
}

func TestIsSymbolColumn(t *testing.T) {
	for _, h := range []string{"symbol", "Ticker", "NAME"} {
		assert.True(t, IsSymbolColumn(h), h)
	}
	assert.False(t, IsSymbolColumn("price"))
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	acct := View{Kind: KindAccount, Account: &Account{
		PlayerID:    "3",
		Name:        "Bob",
		CashBalance: decimal.RequireFromString("12.3"),
		Holdings:    []Holding{{Symbol: "AAPL", Quantity: "2"}},
	}}
	require.NoError(t, WriteText(&buf, acct))
	assert.Contains(t, buf.String(), "Cash:    $12.30")
	assert.Contains(t, buf.String(), "SYMBOL")
	assert.Contains(t, buf.String(), "| AAPL")

	buf.Reset()
	require.NoError(t, WriteText(&buf, View{Kind: KindTable, Table: &Table{
		Headers: []Header{{Name: "symbol", Clickable: true}, {Name: "price"}},
		Rows:    [][]Cell{{{Text: "TSLA", Clickable: true}, {Text: "250"}}},
	}}))
	assert.Contains(t, buf.String(), "SYMBOL")
	assert.Contains(t, buf.String(), "PRICE")
	assert.Contains(t, buf.String(), "TSLA")

	buf.Reset()
	require.NoError(t, WriteText(&buf, View{Kind: KindMessage, Message: "hello"}))
	assert.Equal(t, "hello\n", buf.String())
}
