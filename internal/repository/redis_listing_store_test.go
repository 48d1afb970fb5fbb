package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/studybot/pkg/errors"
)

func unreachableRedis(t *testing.T) *RedisListingStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisListingStore(client, "studybot:", nil)
}

func TestRedisListingStoreTransportErrors(t *testing.T) {
	store := unreachableRedis(t)
	ctx := context.Background()

	var dest []string
	err := store.Get(ctx, "events:org", &dest)
	require.Error(t, err)
	assert.NotErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.ErrorContains(t, err, "redis get events:org")

	assert.ErrorContains(t, store.Set(ctx, "events:org", []string{"a"}, time.Minute), "redis set")
	assert.ErrorContains(t, store.DeleteByPattern(ctx, "events:*"), "redis scan")
}

func TestRedisListingStoreRejectsUnencodableValue(t *testing.T) {
	store := unreachableRedis(t)
	err := store.Set(context.Background(), "events:org", make(chan int), time.Minute)
	assert.ErrorContains(t, err, "encode listing")
}
