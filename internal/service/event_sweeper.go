package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type upcomingCounter interface {
	CountUpcoming(ctx context.Context) (int, error)
}

// EventSweeper periodically refreshes the upcoming-events gauge and drops
// cached listings so started events fall out of them.
type EventSweeper struct {
	counter  upcomingCounter
	cache    listingInvalidator
	metrics  *MetricsService
	schedule string
	timeout  time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
}

// NewEventSweeper constructs a sweeper running on a standard cron expression or @every descriptor.
func NewEventSweeper(counter upcomingCounter, cache listingInvalidator, metrics *MetricsService, schedule string, logger *zap.Logger) *EventSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = "@every 5m"
	}
	return &EventSweeper{
		counter:  counter,
		cache:    cache,
		metrics:  metrics,
		schedule: schedule,
		timeout:  30 * time.Second,
		logger:   logger,
	}
}

// Start registers the sweep and starts the scheduler. A first sweep runs immediately.
func (s *EventSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	id, err := c.AddFunc(s.schedule, func() { s.Sweep(ctx) })
	if err != nil {
		return fmt.Errorf("invalid sweeper schedule %q: %w", s.schedule, err)
	}
	s.cron = c
	s.entryID = id
	c.Start()
	s.logger.Info("event sweeper started", zap.String("schedule", s.schedule))

	go s.Sweep(ctx)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *EventSweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("event sweeper stopped")
}

// Sweep performs one refresh pass.
func (s *EventSweeper) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	count, err := s.counter.CountUpcoming(ctx)
	if err != nil {
		s.logger.Warn("event sweep failed", zap.Error(err))
		return
	}
	s.metrics.SetUpcomingEvents(count)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, listingCachePattern); err != nil {
			s.logger.Warn("sweep cache invalidation failed", zap.Error(err))
		}
	}
	s.logger.Debug("event sweep completed", zap.Int("upcoming", count))
}
