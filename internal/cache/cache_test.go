package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemory(t *testing.T) Cache {
	t.Helper()

	c, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "memcached"

	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := newMemory(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "key", []byte("value"), time.Minute))

	got, ok := c.Get(ctx, "key")
	require.True(t, ok)
	assert.Equal(t, []byte("value"), got)

	require.NoError(t, c.Delete(ctx, "key"))
	_, ok = c.Get(ctx, "key")
	assert.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := newMemory(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get(ctx, "key")
	assert.False(t, ok)
}

func TestMemoryCacheDeletePrefix(t *testing.T) {
	c := newMemory(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "media:trending:views:10", []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, "media:recent:10", []byte("b"), time.Minute))
	require.NoError(t, c.Set(ctx, "other:key", []byte("c"), time.Minute))

	require.NoError(t, c.DeletePrefix(ctx, "media:"))

	_, ok := c.Get(ctx, "media:trending:views:10")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "media:recent:10")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "other:key")
	assert.True(t, ok)
}

func TestMemoryCacheEvictsWhenFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxKeys = 2

	c, err := New(cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 2*time.Minute))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 3*time.Minute))

	// "a" had the nearest expiry and goes first.
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "b")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "c")
	assert.True(t, ok)
}

func TestMemoryCacheHealthAndClose(t *testing.T) {
	c := newMemory(t)

	assert.NoError(t, c.Health(context.Background()))
	assert.NoError(t, c.Close())
	// Closing twice is safe.
	assert.NoError(t, c.Close())
}
