package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tradeops-labs/orderscope/internal/metrics"
)

func breakerConfig() Config {
	cfg := DefaultConfig()
	cfg.FailureThreshold = 3
	cfg.SuccessThreshold = 2
	cfg.MaxRequests = 5
	cfg.Timeout = 50 * time.Millisecond
	cfg.Interval = 200 * time.Millisecond
	return cfg
}

func failTimes(ctx context.Context, cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		_ = cb.Execute(ctx, func() error { return errors.New("collaborator down") })
	}
}

func TestBreakerOpensAfterFailureThreshold(t *testing.T) {
	cb := NewCircuitBreaker("cb-threshold", breakerConfig(), zaptest.NewLogger(t))
	ctx := context.Background()

	require.Equal(t, StateClosed, cb.State())

	// Successes never move a closed breaker.
	for i := 0; i < 3; i++ {
		require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	}
	assert.Equal(t, StateClosed, cb.State())

	failTimes(ctx, cb, 3)
	assert.Equal(t, StateOpen, cb.State())

	// An open breaker rejects without invoking the call.
	invoked := false
	err := cb.Execute(ctx, func() error { invoked = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, invoked)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("cb-recovery", breakerConfig(), zaptest.NewLogger(t))
	ctx := context.Background()

	failTimes(ctx, cb, 3)
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(80 * time.Millisecond)

	// The first call after the timeout runs in half-open.
	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.State())

	// Reaching the success threshold closes the breaker again.
	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("cb-reopen", breakerConfig(), zaptest.NewLogger(t))
	ctx := context.Background()

	failTimes(ctx, cb, 3)
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(80 * time.Millisecond)

	failTimes(ctx, cb, 1)
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerHalfOpenRequestCeiling(t *testing.T) {
	cfg := breakerConfig()
	cfg.MaxRequests = 2
	cfg.SuccessThreshold = 10 // keep the breaker half-open for the whole test
	cb := NewCircuitBreaker("cb-ceiling", cfg, zaptest.NewLogger(t))
	ctx := context.Background()

	cb.mutex.Lock()
	cb.state = StateHalfOpen
	cb.generation++
	cb.counts = Counts{}
	cb.mutex.Unlock()

	for i := 0; i < 2; i++ {
		require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	}

	err := cb.Execute(ctx, func() error { return nil })
	assert.ErrorIs(t, err, ErrTooManyRequests)
}

func TestBreakerCounts(t *testing.T) {
	cb := NewCircuitBreaker("cb-counts", breakerConfig(), zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	_ = cb.Execute(ctx, func() error { return errors.New("collaborator down") })
	require.NoError(t, cb.Execute(ctx, func() error { return nil }))

	counts := cb.Counts()
	assert.Equal(t, uint32(3), counts.Requests)
	assert.Equal(t, uint32(2), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(0), counts.ConsecutiveFailures, "a success resets the failure streak")
}

func TestBreakerStateChangeUpdatesMetrics(t *testing.T) {
	const name = "cb-gauges"
	cb := NewCircuitBreaker(name, breakerConfig(), zaptest.NewLogger(t))
	ctx := context.Background()

	stateGauge := metrics.CircuitBreakerState.WithLabelValues(name)
	tripCounter := metrics.CircuitBreakerTrips.WithLabelValues(name)

	assert.Equal(t, float64(StateClosed), testutil.ToFloat64(stateGauge))
	tripsBefore := testutil.ToFloat64(tripCounter)

	failTimes(ctx, cb, 3)
	assert.Equal(t, float64(StateOpen), testutil.ToFloat64(stateGauge))
	assert.Equal(t, tripsBefore+1, testutil.ToFloat64(tripCounter))

	// Recovery moves the gauge back without counting another trip.
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	assert.Equal(t, float64(StateClosed), testutil.ToFloat64(stateGauge))
	assert.Equal(t, tripsBefore+1, testutil.ToFloat64(tripCounter))
}
