package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xtrntr/sharktank/internal/circuitbreaker"
	"github.com/xtrntr/sharktank/internal/id"
	"github.com/xtrntr/sharktank/internal/models"
	"github.com/xtrntr/sharktank/internal/orderedjson"
)

const maxBody = 4 << 20

var (
	// ErrUnavailable wraps transport failures and an open circuit
	ErrUnavailable = errors.New("transaction service unavailable")
	// ErrInvalidResponse is returned when the reply body is not JSON
	ErrInvalidResponse = errors.New("invalid response from transaction service")

	errServerFault = errors.New("server fault")
)

// ResponseError is a failure reported by the transaction service, either via
// a non-2xx status or an explicit success=false body.
type ResponseError struct {
	Status  int
	Message string
}

func (e *ResponseError) Error() string { return e.Message }

// Client posts transactions to the remote webhook
type Client struct {
	URL     string
	HTTP    *http.Client
	Breaker *circuitbreaker.CircuitBreaker
	Logger  *zap.Logger
}

// NewClient creates a client with its own timeout and breaker
func NewClient(url string, timeout time.Duration, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		URL:     url,
		HTTP:    &http.Client{Timeout: timeout},
		Breaker: breaker,
		Logger:  logger,
	}
}

type reply struct {
	status int
	body   any
}

func (r *reply) ok() bool { return r.status >= 200 && r.status < 300 }

// post sends payload and decodes the reply. Only transport errors and 5xx
// statuses count against the breaker; the 5xx reply itself is still returned
// so its message can be shown. Undecodable bodies below 500 and requests the
// caller abandoned are passed through without tripping it.
func (c *Client) post(ctx context.Context, payload models.TransactionPayload) (*reply, error) {
	var rep *reply
	action := func() error {
		var err error
		rep, err = c.roundTrip(ctx, payload)
		if rep != nil && rep.status >= 500 {
			if err != nil {
				return fmt.Errorf("%w: %w", errServerFault, err)
			}
			return errServerFault
		}
		return err
	}
	tripping := func(err error) bool {
		switch {
		case errors.Is(err, errServerFault):
			return true
		case ctx.Err() != nil, errors.Is(err, ErrInvalidResponse):
			return false
		}
		return true
	}

	var err error
	if c.Breaker != nil {
		err = c.Breaker.Execute(action, tripping)
	} else {
		err = action()
	}
	switch {
	case err == nil:
		return rep, nil
	case errors.Is(err, ErrInvalidResponse):
		return nil, err
	case errors.Is(err, errServerFault):
		return rep, nil
	default:
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

func (c *Client) roundTrip(ctx context.Context, payload models.TransactionPayload) (*reply, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	reqID := id.New()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		c.Logger.Warn("webhook request failed",
			zap.String("request_id", reqID),
			zap.String("type", string(payload.TransactionType)),
			zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	decoded, err := orderedjson.Decode(io.LimitReader(resp.Body, maxBody))
	c.Logger.Debug("webhook reply",
		zap.String("request_id", reqID),
		zap.String("type", string(payload.TransactionType)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))
	if err != nil {
		return &reply{status: resp.StatusCode}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &reply{status: resp.StatusCode, body: decoded}, nil
}

// Login verifies credentials with the transaction service. A reply wrapped in
// an array is unwrapped to its first element.
func (c *Client) Login(ctx context.Context, playerID int, password string) error {
	payload := models.TransactionPayload{
		PlayerID:        playerID,
		Password:        password,
		TransactionType: models.TransactionLogin,
	}
	if err := payload.Validate(); err != nil {
		return err
	}

	rep, err := c.post(ctx, payload)
	if err != nil {
		return err
	}

	body := rep.body
	if arr, ok := body.([]any); ok && len(arr) > 0 {
		body = arr[0]
	}
	obj, _ := body.(*orderedjson.Object)

	if !rep.ok() {
		msg := firstText(obj, "message", "error")
		if msg == "" {
			msg = fmt.Sprintf("Login failed with status %d", rep.status)
		}
		return &ResponseError{Status: rep.status, Message: msg}
	}

	if flag := successFlag(obj); flag != flagTrue {
		msg := firstText(obj, "message")
		if msg == "" {
			msg = "Login failed. Please check credentials."
		}
		return &ResponseError{Status: rep.status, Message: msg}
	}
	return nil
}

// Outcome carries the default texts used when the service omits a message
type Outcome struct {
	Success string
	Failure string
}

var (
	AccountOutcome = Outcome{Success: "Account details retrieved.", Failure: "Operation failed. Please check the input and try again."}
	StocksOutcome  = Outcome{Success: "Stock data retrieved.", Failure: "Operation failed. Please check the input and try again."}
	TradeOutcome   = Outcome{Success: "Transaction processed successfully!", Failure: "Operation failed."}
)

// OutcomeFor picks the default texts for a transaction type
func OutcomeFor(t models.TransactionType) Outcome {
	switch t {
	case models.TransactionDisplayAccount:
		return AccountOutcome
	case models.TransactionGetStocks:
		return StocksOutcome
	}
	return TradeOutcome
}

// Submit dispatches a non-login transaction. Only an explicit false success
// flag is a failure; replies without a flag are treated as successful.
func (c *Client) Submit(ctx context.Context, payload models.TransactionPayload, out Outcome) (*models.APIResponse, error) {
	if payload.TransactionType == models.TransactionLogin {
		return nil, errors.New("use Login for login transactions")
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	rep, err := c.post(ctx, payload)
	if err != nil {
		return nil, err
	}
	obj, _ := rep.body.(*orderedjson.Object)

	if !rep.ok() {
		msg := firstText(obj, "error", "message")
		if msg == "" {
			msg = fmt.Sprintf("Request failed with status %d", rep.status)
		}
		return nil, &ResponseError{Status: rep.status, Message: msg}
	}

	if successFlag(obj) == flagFalse {
		msg := firstText(obj, "message")
		if msg == "" {
			msg = out.Failure
		}
		return nil, &ResponseError{Status: rep.status, Message: msg}
	}

	msg := firstText(obj, "message")
	if msg == "" {
		msg = out.Success
	}
	return &models.APIResponse{Success: true, Message: msg, Data: rep.body}, nil
}

type flag int

const (
	flagMissing flag = iota
	flagTrue
	flagFalse
)

// successFlag reads "success", which the service sends either as a JSON
// boolean or as the string "true"/"false".
func successFlag(obj *orderedjson.Object) flag {
	v, ok := obj.Get("success")
	if !ok {
		return flagMissing
	}
	switch t := v.(type) {
	case bool:
		if t {
			return flagTrue
		}
		return flagFalse
	case string:
		switch t {
		case "true":
			return flagTrue
		case "false":
			return flagFalse
		}
	}
	return flagMissing
}

func firstText(obj *orderedjson.Object, keys ...string) string {
	for _, k := range keys {
		v, ok := obj.Get(k)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case json.Number:
			if t != "0" {
				return t.String()
			}
		case nil, bool:
		default:
			return orderedjson.Compact(t)
		}
	}
	return ""
}
