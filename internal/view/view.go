// Package view decides how a webhook reply is shown: as an account summary,
// as a table of rows, or as a plain confirmation message.
package view

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xtrntr/sharktank/internal/models"
	"github.com/xtrntr/sharktank/internal/orderedjson"
)

type Kind string

const (
	KindAccount Kind = "account"
	KindTable   Kind = "table"
	KindMessage Kind = "message"
)

// View is the rendering decision for one reply
type View struct {
	Kind    Kind     `json:"kind"`
	Message string   `json:"message,omitempty"`
	Account *Account `json:"account,omitempty"`
	Table   *Table   `json:"table,omitempty"`
}

// Account is the portfolio summary of a player
type Account struct {
	PlayerID    string          `json:"player_id"`
	Name        string          `json:"name"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	Holdings    []Holding       `json:"holdings"`
}

type Holding struct {
	Symbol   string `json:"symbol"`
	Quantity string `json:"quantity"`
}

// Table is a generic list of rows keyed by the first row's columns
type Table struct {
	Headers []Header `json:"headers"`
	Rows    [][]Cell `json:"rows"`
}

type Header struct {
	Name      string `json:"name"`
	Clickable bool   `json:"clickable"`
}

type Cell struct {
	Text      string `json:"text"`
	Clickable bool   `json:"clickable,omitempty"`
}

// Selector turns replies into views. Logger receives holdings parse failures.
type Selector struct {
	Logger *zap.Logger
}

// Select is Selector.Select with a no-op logger
func Select(resp *models.APIResponse, simple bool) View {
	return Selector{}.Select(resp, simple)
}

// Select picks the view for resp. With simple set only the message view is
// produced.
func (s Selector) Select(resp *models.APIResponse, simple bool) View {
	if resp == nil {
		return View{Kind: KindMessage}
	}
	msg := View{Kind: KindMessage, Message: resp.Message}
	if simple {
		return msg
	}

	rows := Rows(resp.Data)
	if len(rows) == 0 {
		return msg
	}
	first, ok := rows[0].(*orderedjson.Object)
	if !ok {
		return msg
	}

	if first.Has("cash_balance") && first.Has("holdings") {
		return View{Kind: KindAccount, Message: resp.Message, Account: s.account(first)}
	}
	return View{Kind: KindTable, Message: resp.Message, Table: buildTable(first, rows)}
}

// Rows returns data as a list: arrays as-is, a single value wrapped, nil empty
func Rows(data any) []any {
	switch t := data.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

func (s Selector) account(obj *orderedjson.Object) *Account {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	acct := &Account{
		PlayerID: orderedjson.Text(obj.Values["player_id"]),
		Name:     orderedjson.Text(obj.Values["name"]),
	}

	cash := orderedjson.Text(obj.Values["cash_balance"])
	if d, err := decimal.NewFromString(cash); err == nil {
		acct.CashBalance = d
	} else if cash != "" {
		logger.Warn("unparsable cash balance", zap.String("cash_balance", cash))
	}

	holdings, err := parseHoldings(obj.Values["holdings"])
	if err != nil {
		logger.Error("failed to parse holdings", zap.Error(err))
	}
	for _, sym := range holdings.Keys {
		acct.Holdings = append(acct.Holdings, Holding{
			Symbol:   sym,
			Quantity: orderedjson.Text(holdings.Values[sym]),
		})
	}
	return acct
}

// parseHoldings accepts holdings either as an object or as a JSON-encoded
// string such as "{\"AAPL\":20}". Failures yield an empty set.
func parseHoldings(v any) (*orderedjson.Object, error) {
	switch t := v.(type) {
	case *orderedjson.Object:
		return t, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return orderedjson.NewObject(), nil
		}
		parsed, err := orderedjson.Unmarshal([]byte(t))
		if err != nil {
			return orderedjson.NewObject(), err
		}
		obj, ok := parsed.(*orderedjson.Object)
		if !ok {
			return orderedjson.NewObject(), fmt.Errorf("holdings: expected object, got %T", parsed)
		}
		return obj, nil
	}
	return orderedjson.NewObject(), nil
}

// IsSymbolColumn reports whether a column names a tradable instrument
func IsSymbolColumn(name string) bool {
	switch strings.ToLower(name) {
	case "symbol", "ticker", "name":
		return true
	}
	return false
}

func buildTable(first *orderedjson.Object, rows []any) *Table {
	t := &Table{}
	for _, h := range first.Keys {
		t.Headers = append(t.Headers, Header{Name: h, Clickable: IsSymbolColumn(h)})
	}
	for _, r := range rows {
		obj, _ := r.(*orderedjson.Object)
		cells := make([]Cell, 0, len(t.Headers))
		for _, h := range t.Headers {
			v, ok := obj.Get(h.Name)
			text := orderedjson.Text(v)
			if ok && v == nil {
				text = "null"
			}
			cells = append(cells, Cell{Text: text, Clickable: h.Clickable && text != ""})
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// FormatCash renders a balance with two decimals
func (a *Account) FormatCash() string {
	return a.CashBalance.StringFixed(2)
}
