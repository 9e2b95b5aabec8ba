package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() *Config {
	cfg := DefaultConfig()
	cfg.InitialDelayBeforeRetrying = time.Millisecond
	cfg.MaxDelayBeforeRetrying = 5 * time.Millisecond
	cfg.ShouldLogFirstFailure = false
	cfg.LogEveryNthFailure = 0
	return cfg
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, int32(3), cfg.MaxNumRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.InitialDelayBeforeRetrying)
	assert.Equal(t, 500*time.Millisecond, cfg.MaxDelayBeforeRetrying)
	assert.True(t, cfg.ShouldLogFirstFailure)
	assert.False(t, cfg.ShouldLogNumRetriesOnSuccess)
}

func TestRetrySucceedsWithoutRetrying(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastConfig(), func(ctx context.Context) ([]interface{}, error) {
		calls++
		return []interface{}{"ok"}, nil
	}, nil, "no-op operation")

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []interface{}{"ok"}, result)
}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastConfig(), func(ctx context.Context) ([]interface{}, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("transient")
		}
		return []interface{}{"recovered"}, nil
	}, nil, "flaky operation")

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []interface{}{"recovered"}, result)
}

func TestRetryStopsAfterMaxRetries(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxNumRetries = 2
	calls := 0

	_, err := Retry(context.Background(), cfg, func(ctx context.Context) ([]interface{}, error) {
		calls++
		return nil, errors.New("always fails")
	}, nil, "doomed operation")

	assert.Error(t, err)
	assert.Equal(t, 3, calls) // initial attempt + 2 retries
}

func TestRetryHonorsShouldRetryFn(t *testing.T) {
	calls := 0
	sentinel := errors.New("unretryable")

	_, err := Retry(context.Background(), fastConfig(), func(ctx context.Context) ([]interface{}, error) {
		calls++
		return nil, sentinel
	}, func(err error) bool { return false }, "unretryable operation")

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnContextCancellation(t *testing.T) {
	cfg := fastConfig()
	cfg.InitialDelayBeforeRetrying = 50 * time.Millisecond
	cfg.MaxDelayBeforeRetrying = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := Retry(ctx, cfg, func(ctx context.Context) ([]interface{}, error) {
		calls++
		return nil, errors.New("always fails")
	}, nil, "cancelled operation")

	assert.Error(t, err)
	assert.GreaterOrEqual(t, calls, 1)
}

func TestMinPicksSmaller(t *testing.T) {
	assert.Equal(t, 3, Min(3, 5))
	assert.Equal(t, 3, Min(5, 3))
	assert.Equal(t, int64(3), Min(int64(3), int64(3)))
}
