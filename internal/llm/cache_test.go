package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchCacheSetGet(t *testing.T) {
	cache := newBatchCache(time.Minute)
	defer cache.Close()

	resp := BatchResponse{BatchID: "batch-1"}
	cache.set("key", resp)

	got, found := cache.get("key")
	require.True(t, found)
	assert.Equal(t, resp, got)

	_, found = cache.get("missing")
	assert.False(t, found)
}

func TestBatchCacheExpiry(t *testing.T) {
	cache := newBatchCache(20 * time.Millisecond)
	defer cache.Close()

	cache.set("key", BatchResponse{BatchID: "batch-1"})
	time.Sleep(40 * time.Millisecond)

	_, found := cache.get("key")
	assert.False(t, found)
}

func TestBatchCacheSize(t *testing.T) {
	cache := newBatchCache(time.Minute)
	defer cache.Close()

	assert.Equal(t, 0, cache.size())
	cache.set("a", BatchResponse{})
	cache.set("b", BatchResponse{})
	assert.Equal(t, 2, cache.size())
}
