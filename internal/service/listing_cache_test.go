package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studybot/internal/models"
)

func TestListingCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	metrics := NewMetricsService()
	cache := NewListingCache(newMapListingStore(), 0, metrics, nil)
	require.True(t, cache.Enabled())

	var got []models.StudyEvent
	hit, err := cache.Get(ctx, "events:org", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "events:org", []models.StudyEvent{{ID: "e1", Title: "Sprint Planning"}}, 0))

	hit, err = cache.Get(ctx, "events:org", &got)
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 1)
	assert.Equal(t, "Sprint Planning", got[0].Title)

	require.NoError(t, cache.Invalidate(ctx, listingCachePattern))
	hit, _ = cache.Get(ctx, "events:org", &got)
	assert.False(t, hit)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.ListingCacheHits)
	assert.Equal(t, uint64(2), snap.ListingCacheMisses)
	assert.InDelta(t, 1.0/3.0, snap.ListingCacheHitRatio, 0.0001)
}

func TestListingCacheBackendErrorIsMiss(t *testing.T) {
	store := newMapListingStore()
	store.getErr = errors.New("i/o timeout")
	cache := NewListingCache(store, time.Minute, nil, nil)

	var got []models.StudyEvent
	hit, err := cache.Get(context.Background(), "events:org", &got)
	assert.NoError(t, err)
	assert.False(t, hit)
}

func TestListingCacheDisabled(t *testing.T) {
	ctx := context.Background()
	for _, cache := range []*ListingCache{nil, NewListingCache(nil, 0, nil, nil)} {
		assert.False(t, cache.Enabled())
		hit, err := cache.Get(ctx, "k", &[]models.StudyEvent{})
		assert.NoError(t, err)
		assert.False(t, hit)
		assert.NoError(t, cache.Set(ctx, "k", "v", 0))
		assert.NoError(t, cache.Invalidate(ctx, "*"))
	}
}
