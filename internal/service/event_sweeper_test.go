package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCounter struct {
	count int
	err   error
}

func (s stubCounter) CountUpcoming(context.Context) (int, error) {
	return s.count, s.err
}

func TestSweepUpdatesGaugeAndCache(t *testing.T) {
	metrics := NewMetricsService()
	cache := &recordingInvalidator{}
	sweeper := NewEventSweeper(stubCounter{count: 7}, cache, metrics, "", nil)

	sweeper.Sweep(context.Background())

	assert.Equal(t, int64(7), metrics.Snapshot().UpcomingEvents)
	assert.Equal(t, []string{listingCachePattern}, cache.Patterns())
}

func TestSweepStopsOnCountError(t *testing.T) {
	metrics := NewMetricsService()
	metrics.SetUpcomingEvents(3)
	cache := &recordingInvalidator{}
	sweeper := NewEventSweeper(stubCounter{err: errors.New("db down")}, cache, metrics, "", nil)

	sweeper.Sweep(context.Background())

	assert.Equal(t, int64(3), metrics.Snapshot().UpcomingEvents)
	assert.Empty(t, cache.Patterns())
}

func TestSweeperStartRejectsBadSchedule(t *testing.T) {
	sweeper := NewEventSweeper(stubCounter{}, nil, nil, "every now and then", nil)
	assert.Error(t, sweeper.Start(context.Background()))
	sweeper.Stop()
}

func TestSweeperStartRunsImmediately(t *testing.T) {
	metrics := NewMetricsService()
	sweeper := NewEventSweeper(stubCounter{count: 2}, nil, metrics, "@every 1h", nil)

	require.NoError(t, sweeper.Start(context.Background()))
	require.NoError(t, sweeper.Start(context.Background()))
	defer sweeper.Stop()

	require.Eventually(t, func() bool {
		return metrics.Snapshot().UpcomingEvents == 2
	}, time.Second, 10*time.Millisecond)
}
