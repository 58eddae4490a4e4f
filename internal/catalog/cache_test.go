package catalog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableCache points at a port nothing listens on
func unreachableCache() *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	return NewRedisCache(rdb, time.Minute, "test:")
}

func TestRedisCache_KeyPrefix(t *testing.T) {
	c := unreachableCache()
	defer c.rdb.Close()

	assert.Equal(t, "test:"+keyScoreTop5, c.key(keyScoreTop5))
}

func TestRedisCache_Errors(t *testing.T) {
	c := unreachableCache()
	defer c.rdb.Close()
	ctx := context.Background()

	var dest []ScoredListing
	hit, err := c.Get(ctx, keyScoreTop5, &dest)
	assert.False(t, hit)
	assert.ErrorContains(t, err, "cache get "+keyScoreTop5)

	assert.ErrorContains(t, c.Set(ctx, keyScoreTop5, []int{1}), "cache set "+keyScoreTop5)
	assert.ErrorContains(t, c.Set(ctx, keyScoreTop5, make(chan int)), "cache encode "+keyScoreTop5)
	assert.ErrorContains(t, c.Delete(ctx, frontPageKeys...), "cache delete")
	assert.NoError(t, c.Delete(ctx))
}

func TestRedisCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	c := NewRedisCache(rdb, time.Minute, "test:"+time.Now().Format("150405.000")+":")
	ctx := context.Background()

	var got []ScoredListing
	hit, err := c.Get(ctx, keyScoreTop5, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := []ScoredListing{NewScoredListing(ListingRow{ID: 1, Title: "oak desk", Score: 85, Reviews: 2})}
	require.NoError(t, c.Set(ctx, keyScoreTop5, want))
	ttl, err := rdb.TTL(ctx, c.key(keyScoreTop5)).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)

	hit, err = c.Get(ctx, keyScoreTop5, &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, want, got)

	require.NoError(t, c.Delete(ctx, frontPageKeys...))
	hit, err = c.Get(ctx, keyScoreTop5, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestNopCache(t *testing.T) {
	var c Cache = NopCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, keyScoreTop5, []int{1}))
	var dest []int
	hit, err := c.Get(ctx, keyScoreTop5, &dest)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, c.Delete(ctx, frontPageKeys...))
}
