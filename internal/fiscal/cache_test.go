package fiscal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheGetSet(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c := NewTTLCache(30*time.Second, func() time.Time { return now })

	_, ok := c.Get("client-1")
	assert.False(t, ok)

	c.Set("client-1", NewData())
	d, ok := c.Get("client-1")
	require.True(t, ok)
	assert.NotNil(t, d)

	// Entries are keyed per client.
	_, ok = c.Get("client-2")
	assert.False(t, ok)
}

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c := NewTTLCache(30*time.Second, func() time.Time { return now })

	c.Set("client-1", NewData())

	now = now.Add(29 * time.Second)
	_, ok := c.Get("client-1")
	assert.True(t, ok, "entry should survive inside the TTL")

	now = now.Add(2 * time.Second)
	_, ok = c.Get("client-1")
	assert.False(t, ok, "entry should expire past the TTL")
}

func TestTTLCacheInvalidate(t *testing.T) {
	c := NewTTLCache(time.Minute, nil)

	c.Set("client-1", NewData())
	c.Invalidate("client-1")

	_, ok := c.Get("client-1")
	assert.False(t, ok)
}
