package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TransactionType tags every request sent to the transaction webhook
type TransactionType string

const (
	TransactionBuy            TransactionType = "buy"
	TransactionSell           TransactionType = "sell"
	TransactionDisplayAccount TransactionType = "displayAccount"
	TransactionLogin          TransactionType = "login"
	TransactionGetStocks      TransactionType = "getStocks"
)

// ParseTransactionType returns the tag for s, or false if s is not a known tag
func ParseTransactionType(s string) (TransactionType, bool) {
	switch t := TransactionType(s); t {
	case TransactionBuy, TransactionSell, TransactionDisplayAccount, TransactionLogin, TransactionGetStocks:
		return t, true
	}
	return "", false
}

// IsTrade reports whether t places an order
func (t TransactionType) IsTrade() bool {
	return t == TransactionBuy || t == TransactionSell
}

// TransactionPayload is the JSON body posted to the webhook
type TransactionPayload struct {
	PlayerID        int             `json:"player_id"`
	Password        string          `json:"password,omitempty"`
	Symbol          string          `json:"symbol,omitempty"`
	Quantity        int             `json:"quantity,omitempty"`
	TransactionType TransactionType `json:"transactionType"`
}

// APIResponse is a normalized webhook reply. Data holds the decoded body as-is.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JournalEntry is one dispatched transaction as recorded locally
type JournalEntry struct {
	ID              string          `json:"id"`
	PlayerID        int             `json:"player_id"`
	TransactionType TransactionType `json:"transaction_type"`
	Symbol          string          `json:"symbol,omitempty"`
	Quantity        int             `json:"quantity,omitempty"`
	Success         bool            `json:"success"`
	Message         string          `json:"message,omitempty"`
	Duration        time.Duration   `json:"duration"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ValidationError is returned for form input the webhook should never see
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

const (
	msgPlayerID = "Player ID must be a positive number."
	msgPassword = "Password is required."
	msgSymbol   = "Symbol is required."
	msgQuantity = "Quantity must be a positive number."
)

// ParsePositiveInt parses form input such as a player id or quantity. Like a
// browser's parseInt it reads the leading decimal digits after optional
// whitespace and sign, so "12abc" and "12.9" yield 12. Anything that does not
// start with a positive integer yields 0.
func ParsePositiveInt(s string) int {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// Validate checks the payload against the rules for its transaction type and
// normalizes the symbol of trades to upper case.
func (p *TransactionPayload) Validate() error {
	if _, ok := ParseTransactionType(string(p.TransactionType)); !ok {
		return fmt.Errorf("unknown transaction type %q", p.TransactionType)
	}
	if p.PlayerID <= 0 {
		return invalid(msgPlayerID)
	}
	switch p.TransactionType {
	case TransactionLogin:
		if strings.TrimSpace(p.Password) == "" {
			return invalid(msgPassword)
		}
	case TransactionBuy, TransactionSell:
		if strings.TrimSpace(p.Symbol) == "" {
			return invalid(msgSymbol)
		}
		if p.Quantity <= 0 {
			return invalid(msgQuantity)
		}
		p.Symbol = strings.ToUpper(p.Symbol)
	}
	return nil
}
