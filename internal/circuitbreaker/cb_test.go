package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func fail() error    { return errBoom }
func succeed() error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute, nil)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(fail, nil), errBoom)
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil }, nil)
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, 20*time.Millisecond, nil)

	assert.Error(t, cb.Execute(fail, nil))
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	assert.NoError(t, cb.Execute(succeed, nil))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(2, 20*time.Millisecond, nil)

	cb.Execute(fail, nil)
	cb.Execute(fail, nil)
	time.Sleep(40 * time.Millisecond)

	assert.ErrorIs(t, cb.Execute(fail, nil), errBoom)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_NonTrippingErrors(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute, nil)
	never := func(error) bool { return false }

	for i := 0; i < 5; i++ {
		err := cb.Execute(fail, never)
		assert.Equal(t, errBoom, err)
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute, nil)

	cb.Execute(fail, nil)
	cb.Execute(succeed, nil)
	cb.Execute(fail, nil)
	assert.Equal(t, StateClosed, cb.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
}
