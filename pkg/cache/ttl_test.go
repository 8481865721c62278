package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardkit/guardkit/pkg/cache"
)

func TestCache_GetSet(t *testing.T) {
	t.Parallel()

	c := cache.New[string, int](10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("a", 2)
	v, ok = c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestCache_Expiry(t *testing.T) {
	t.Parallel()

	c := cache.New[string, int](10, time.Minute)

	c.SetTTL("short", 1, time.Nanosecond)
	time.Sleep(time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok, "expired entry must be reported as missing")

	c.SetTTL("forever", 2, 0)
	v, ok := c.Get("forever")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCache_LRUEviction(t *testing.T) {
	t.Parallel()

	c := cache.New[int, string](2, 0)

	c.Set(1, "one")
	c.Set(2, "two")

	// Touch 1 so 2 becomes the eviction candidate.
	_, ok := c.Get(1)
	require.True(t, ok)

	c.Set(3, "three")

	_, ok = c.Get(2)
	assert.False(t, ok, "least recently used entry must be evicted")
	_, ok = c.Get(1)
	assert.True(t, ok)
	_, ok = c.Get(3)
	assert.True(t, ok)
}

func TestCache_DeleteFlush(t *testing.T) {
	t.Parallel()

	c := cache.New[string, int](10, 0)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Flush()
	assert.Equal(t, 0, c.Len())
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestCache_PanicsOnInvalidCapacity(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		cache.New[string, int](0, time.Minute)
	})
}
