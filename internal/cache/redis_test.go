package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedis(context.Background(), "redis://"+mr.Addr(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedisSetGetFlush(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)
	require.NoError(t, mr.Set("unrelated", "keep"))

	etag := c.Set(ctx, "combined:2024", []byte(`[1,2]`), time.Hour)
	data, got, ok := c.Get(ctx, "combined:2024")
	require.True(t, ok)
	assert.Equal(t, etag, got)
	assert.Equal(t, `[1,2]`, string(data))
	assert.True(t, mr.Exists(redisPrefix+"combined:2024"))
	assert.Equal(t, 1, c.Stats(ctx)["total_keys"])

	require.NoError(t, c.Flush(ctx))
	_, _, ok = c.Get(ctx, "combined:2024")
	assert.False(t, ok)
	assert.True(t, mr.Exists("unrelated"), "flush only touches cache keys")
}

func TestRedisExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)

	c.Set(ctx, "runs:20", []byte("x"), time.Minute)
	mr.FastForward(2 * time.Minute)

	_, _, ok := c.Get(ctx, "runs:20")
	assert.False(t, ok)
}

func TestRedisErrorIsAMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)
	mr.Close()

	_, _, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not-a-url", slog.Default())
	assert.Error(t, err)
}
