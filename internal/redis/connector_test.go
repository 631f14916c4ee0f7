package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marks/internal/connect"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

func retryOptions() connect.RetryOptions {
	return connect.RetryOptions{
		ConnectTimeout: 200 * time.Millisecond,
		RetryInterval:  10 * time.Millisecond,
		MaxWait:        50 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
		WarnThreshold:  1,
	}
}

func TestNew_Connects(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := New(context.Background(), ConnectOptions{Addr: mr.Addr(), Retry: retryOptions()}, logger.New("error", false))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestNew_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), ConnectOptions{Addr: addr, Retry: retryOptions()}, logger.New("error", false))
	require.Error(t, err)
	require.Contains(t, err.Error(), "redis unavailable")
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(context.Background(), ConnectOptions{Addr: "localhost:0"}, logger.New("error", false))
	require.Error(t, err)
}
