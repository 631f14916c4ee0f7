package connect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marks/internal/logger"
)

func fastOptions() RetryOptions {
	return RetryOptions{
		ConnectTimeout: 500 * time.Millisecond,
		RetryInterval:  5 * time.Millisecond,
		MaxWait:        20 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
		WarnThreshold:  2,
	}
}

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	ping := func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}

	err := WithRetry(context.Background(), "redis", "localhost:6379", fastOptions(), ping, logger.New("error", false))
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestWithRetry_TimesOut(t *testing.T) {
	opts := fastOptions()
	opts.ConnectTimeout = 40 * time.Millisecond

	down := errors.New("connection refused")
	err := WithRetry(context.Background(), "postgres", "db:5432", opts,
		func(context.Context) error { return down }, logger.New("error", false))

	require.Error(t, err)
	require.ErrorIs(t, err, down)
	require.Contains(t, err.Error(), "postgres unavailable at db:5432")
}

func TestRetryOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RetryOptions)
	}{
		{"zero connect timeout", func(o *RetryOptions) { o.ConnectTimeout = 0 }},
		{"zero retry interval", func(o *RetryOptions) { o.RetryInterval = 0 }},
		{"zero max wait", func(o *RetryOptions) { o.MaxWait = 0 }},
		{"zero ping timeout", func(o *RetryOptions) { o.PingTimeout = 0 }},
		{"negative warn threshold", func(o *RetryOptions) { o.WarnThreshold = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := fastOptions()
			tt.mutate(&opts)
			require.Error(t, opts.Validate())
		})
	}

	require.NoError(t, fastOptions().Validate())
}
