package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemorySetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(ctx, true)

	etag := c.Set(ctx, "k", []byte(`{"a":1}`), time.Minute)
	data, got, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, etag, got)
	assert.JSONEq(t, `{"a":1}`, string(data))

	_, _, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(ctx, true)
	now := time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", []byte("x"), time.Minute)
	now = now.Add(2 * time.Minute)
	_, _, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Stats(ctx)["expired_keys"])

	c.evict()
	assert.Equal(t, 0, c.Stats(ctx)["total_keys"])
}

func TestMemoryFlush(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(ctx, true)
	c.Set(ctx, "a", []byte("1"), time.Hour)
	c.Set(ctx, "b", []byte("2"), time.Hour)

	assert.NoError(t, c.Flush(ctx))
	_, _, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats(ctx)["total_keys"])
}

func TestDisabledMemoryNeverHits(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(ctx, false)
	etag := c.Set(ctx, "k", []byte("x"), time.Hour)
	assert.Equal(t, ComputeETag([]byte("x")), etag)
	_, _, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestETag(t *testing.T) {
	a := ComputeETag([]byte("one"))
	assert.Equal(t, a, ComputeETag([]byte("one")))
	assert.NotEqual(t, a, ComputeETag([]byte("two")))
	assert.Regexp(t, `^W/"[0-9a-f]{16}"$`, a)

	assert.True(t, CheckETagMatch(a, a))
	assert.True(t, CheckETagMatch("*", a))
	assert.False(t, CheckETagMatch("", a))
	assert.False(t, CheckETagMatch(`W/"other"`, a))
}
