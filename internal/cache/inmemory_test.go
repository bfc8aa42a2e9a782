package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(time.Minute)

	c.Set(ctx, GenerateKey(PrefixMetricValue, "volume", "seller-1"), 10, 0)
	c.Set(ctx, GenerateKey(PrefixMetricValue, "volume", "seller-2"), 20, 0)
	c.Set(ctx, GenerateKey(PrefixEntityName, "seller-1"), "Blue Shop", 0)

	v, ok := c.Get(ctx, "metric:v1::volume:seller-1")
	assert.True(t, ok)
	assert.Equal(t, 10, v)

	_, ok = c.Get(ctx, GenerateKey(PrefixEntityName, "seller-2"))
	assert.False(t, ok)

	v, ok = c.Get(ctx, GenerateKey(PrefixEntityName, "seller-1"))
	assert.True(t, ok)
	assert.Equal(t, "Blue Shop", v)

	c.Set(ctx, "short", 1, time.Nanosecond)
	time.Sleep(time.Millisecond)
	_, ok = c.Get(ctx, "short")
	assert.False(t, ok)
}
