package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type State = gobreaker.State

const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// ErrOpen is returned without running the action while the circuit is open
var ErrOpen = errors.New("circuit breaker is open")

// ignored carries an action error that must not count as a failure
type ignored struct{ err error }

func (e *ignored) Error() string { return e.err.Error() }

// CircuitBreaker guards calls to one remote dependency
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewCircuitBreaker opens after threshold consecutive failures and probes
// again with a single request once timeout has passed.
func NewCircuitBreaker(threshold int, timeout time.Duration, logger *zap.Logger) *CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = 1
	}
	limit := uint32(threshold)

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "webhook",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= limit
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fields := []zap.Field{zap.String("breaker", name), zap.Stringer("from", from), zap.Stringer("to", to)}
			if to == gobreaker.StateOpen {
				logger.Error("circuit open", append(fields, zap.Duration("reset_after", timeout))...)
				return
			}
			logger.Info("circuit state change", fields...)
		},
		IsSuccessful: func(err error) bool {
			var ig *ignored
			return err == nil || errors.As(err, &ig)
		},
	})}
}

// State returns the current state, moving open to half-open once the reset
// timeout has passed.
func (b *CircuitBreaker) State() State {
	return b.cb.State()
}

// Execute runs action unless the circuit is open. Errors returned by action
// count as failures only when tripping(err) is true, or when tripping is nil;
// other errors pass through untouched.
func (b *CircuitBreaker) Execute(action func() error, tripping func(error) bool) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		err := action()
		if err != nil && tripping != nil && !tripping(err) {
			return nil, &ignored{err: err}
		}
		return nil, err
	})

	var ig *ignored
	switch {
	case errors.As(err, &ig):
		return ig.err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ErrOpen
	}
	return err
}
