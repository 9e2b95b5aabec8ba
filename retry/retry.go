package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/platformseal/hsm-go/internal/hsmlog"
)

func SleepWithContext(ctx context.Context, duration time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(duration):
	}
}

func Min[V int | int64](a V, b V) V {
	if a <= b {
		return a
	}
	return b
}

type Config struct {
	MaxNumRetries                int32
	InitialDelayBeforeRetrying   time.Duration
	MaxDelayBeforeRetrying       time.Duration
	ShouldLogFirstFailure        bool
	LogEveryNthFailure           int32
	LogLevelWhenFailure          hsmlog.Level
	ShouldLogNumRetriesOnSuccess bool
	LogLevelWhenSuccess          hsmlog.Level
}

const (
	/* (S)tructured (L)ogging */
	SLnumRetries    = "numRetries"
	InfiniteRetries = -1
)

// DefaultConfig retries a handful of times with a short backoff, suited to
// transient TPM/credential-store I/O errors rather than user-facing auth
// failures (those are returned immediately, never retried).
func DefaultConfig() *Config {
	return &Config{
		MaxNumRetries:                3,
		InitialDelayBeforeRetrying:   time.Duration(50) * time.Millisecond,
		MaxDelayBeforeRetrying:       time.Duration(500) * time.Millisecond,
		ShouldLogFirstFailure:        true,
		LogEveryNthFailure:           1,
		LogLevelWhenFailure:          hsmlog.WarnLevel,
		ShouldLogNumRetriesOnSuccess: false,
		LogLevelWhenSuccess:          hsmlog.DebugLevel,
	}
}

/*
Pass nil for shouldRetryFn in order to always retry.
*/
func Retry(ctx context.Context, cfg *Config, retryableOperationFn func(ctx context.Context) ([]interface{}, error),
	shouldRetryFn func(error) bool, descriptionOfOperation string) ([]interface{}, error) {
	delayBeforeRetryMS := cfg.InitialDelayBeforeRetrying.Milliseconds()
	var numRetries int32
performOperation:
	result, err := retryableOperationFn(ctx)
	if err != nil {
		if cfg.MaxNumRetries != InfiniteRetries && numRetries == cfg.MaxNumRetries {
			return nil, errors.Wrapf(err, "failed after max %d retries: %s", numRetries, descriptionOfOperation)
		}

		if shouldRetryFn != nil && !shouldRetryFn(err) {
			return nil, errors.Wrapf(err, "failed, unretryable, after %d retries: %s", numRetries,
				descriptionOfOperation)
		}

		numRetries++

		if numRetries > 1 {
			delayBeforeRetryMS = Min(delayBeforeRetryMS*2, cfg.MaxDelayBeforeRetrying.Milliseconds())
		}

		if (cfg.ShouldLogFirstFailure && numRetries == 1) ||
			(cfg.LogEveryNthFailure > 0 && ((numRetries % cfg.LogEveryNthFailure) == 0)) {
			hsmlog.Info(string(cfg.LogLevelWhenFailure), fmt.Sprintf("retrying failure: %s", descriptionOfOperation),
				err, SLnumRetries, numRetries,
				"delayBeforeRetry", time.Duration(delayBeforeRetryMS)*time.Millisecond)
		}

		SleepWithContext(ctx, time.Duration(delayBeforeRetryMS)*time.Millisecond)
		if err2 := ctx.Err(); err2 != nil {
			return nil, errors.Wrapf(err, "context error during retry: %s - %s", descriptionOfOperation,
				err2.Error())
		}
		goto performOperation
	}

	if numRetries > 0 && cfg.ShouldLogNumRetriesOnSuccess {
		hsmlog.Info(string(cfg.LogLevelWhenSuccess), fmt.Sprintf("ultimately succeeded: %s", descriptionOfOperation),
			nil, SLnumRetries, numRetries)
	}

	return result, nil
}
