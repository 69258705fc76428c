package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("connection reset")
	errRejected  = errors.New("bad request")
)

func fail(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func ok(context.Context) error { return nil }

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.September, 2, 10, 0, 0, 0, time.UTC)

	var transitions []string
	cb := New("test",
		WithFailureThreshold(3),
		WithTimeout(time.Minute),
		WithOnStateChange(func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}),
	)
	cb.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, cb.Execute(ctx, fail(errTransient)), errTransient)
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.September, 2, 10, 0, 0, 0, time.UTC)
	cb := New("test", WithFailureThreshold(1), WithTimeout(time.Second))
	cb.now = func() time.Time { return now }

	_ = cb.Execute(ctx, fail(errTransient))
	require.Equal(t, StateOpen, cb.State())

	now = now.Add(time.Second)
	_ = cb.Execute(ctx, fail(errTransient))
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, ok), ErrCircuitOpen)
}

func TestCircuitBreaker_IsFailureFiltersErrors(t *testing.T) {
	ctx := context.Background()
	cb := TelegramAPIBreaker(nil, func(err error) bool { return errors.Is(err, errTransient) })

	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail(errRejected)), errRejected)
	}
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 10, cb.Counts().TotalSuccesses)

	cb.Reset()
	assert.Equal(t, Counts{}, cb.Counts())
	assert.Equal(t, "telegram-api", cb.Name())
}
