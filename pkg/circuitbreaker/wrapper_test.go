package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruleflow/internal/config"
)

func TestDo_TripsAfterFailures(t *testing.T) {
	w := NewWrapper(Config{
		Name:        "test-trip",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: tripOnRatio(2, 0.5),
	})

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_, err := Do(context.Background(), w, func() (string, error) { return "", boom })
		require.ErrorIs(t, err, boom)
	}

	assert.True(t, w.IsOpen())
	_, err := Do(context.Background(), w, func() (string, error) { return "ok", nil })
	assert.True(t, IsBreakerError(err))
}

func TestDo_ReturnsTypedResult(t *testing.T) {
	w := NewWrapper(DefaultConfig("test-typed"))
	got, err := Do(context.Background(), w, func() (map[string]interface{}, error) {
		return map[string]interface{}{"a": 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got["a"])
}

func TestExecuteWithContext_Cancelled(t *testing.T) {
	w := NewWrapper(DefaultConfig("test-cancelled"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := w.ExecuteWithContext(ctx, func() (interface{}, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestFromConfig(t *testing.T) {
	c := FromConfig("svc", config.CircuitBreakerConfig{
		MaxRequests:  5,
		Timeout:      10 * time.Second,
		FailureRatio: 0.8,
		MinRequests:  10,
	})
	assert.Equal(t, "svc", c.Name)
	assert.Equal(t, uint32(5), c.MaxRequests)
	assert.Equal(t, 60*time.Second, c.Interval)
	assert.Equal(t, 10*time.Second, c.Timeout)
	assert.False(t, c.ReadyToTrip(gobreaker.Counts{Requests: 9, TotalFailures: 9}))
	assert.True(t, c.ReadyToTrip(gobreaker.Counts{Requests: 10, TotalFailures: 8}))
}
