package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studybot/internal/models"
	appErrors "github.com/noah-isme/studybot/pkg/errors"
)

type listingCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// EventQueryService produces filtered, start-ordered event listings.
type EventQueryService struct {
	store    EventStore
	clock    Clock
	cache    listingCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewEventQueryService constructs the query engine. cache may be nil.
func NewEventQueryService(store EventStore, clock Clock, cache listingCache, cacheTTL time.Duration, logger *zap.Logger) *EventQueryService {
	if clock == nil {
		clock = NewSystemClock(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &EventQueryService{store: store, clock: clock, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// ListEventsForOrganizer returns the organizer's events that have not started yet.
func (s *EventQueryService) ListEventsForOrganizer(ctx context.Context, organizerID string, location *models.StudyEventLocation, period models.StudyEventPeriod) ([]models.StudyEvent, error) {
	return s.list(ctx, models.StudyEventFilter{
		Organizer: organizerID,
		Location:  location,
		Period:    period,
	})
}

// ListUpcomingEvents returns not-yet-started events matching visibility.
// Results are also restricted to events organized by requesterID.
func (s *EventQueryService) ListUpcomingEvents(ctx context.Context, requesterID string, location *models.StudyEventLocation, period models.StudyEventPeriod, visibility models.StudyEventVisibility) ([]models.StudyEvent, error) {
	return s.list(ctx, models.StudyEventFilter{
		Organizer:  requesterID,
		Location:   location,
		Period:     period,
		Visibility: &visibility,
	})
}

// CountUpcoming returns how many stored events have not started.
func (s *EventQueryService) CountUpcoming(ctx context.Context) (int, error) {
	events, err := s.store.List(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	now := s.clock.Now()
	count := 0
	for i := range events {
		if events[i].Start.After(now) {
			count++
		}
	}
	return count, nil
}

func (s *EventQueryService) list(ctx context.Context, filter models.StudyEventFilter) ([]models.StudyEvent, error) {
	key := listingCacheKey(filter)
	if s.cache != nil {
		var cached []models.StudyEvent
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			// Entries may have started since they were cached.
			return ApplyFilter(cached, filter, s.clock.Now()), nil
		}
	}

	events, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("failed to list study events", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}

	result := ApplyFilter(events, filter, s.clock.Now())

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
			s.logger.Debug("listing cache write skipped", zap.String("key", key), zap.Error(err))
		}
	}
	return result, nil
}

// ApplyFilter runs the listing pipeline over events relative to now:
// organizer match, future start, optional location, visibility and period,
// then a stable ascending sort by start.
func ApplyFilter(events []models.StudyEvent, filter models.StudyEventFilter, now time.Time) []models.StudyEvent {
	out := make([]models.StudyEvent, 0, len(events))
	for _, event := range events {
		if event.Organizer != filter.Organizer {
			continue
		}
		if !event.Start.After(now) {
			continue
		}
		if filter.Location != nil && event.Location != *filter.Location {
			continue
		}
		if filter.Visibility != nil && event.Visibility != *filter.Visibility {
			continue
		}
		out = append(out, event)
	}
	out = FilterByPeriod(out, filter.Period, now)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// FilterByPeriod keeps events whose start lies strictly inside the period window.
// Unknown or empty periods return events unchanged.
func FilterByPeriod(events []models.StudyEvent, period models.StudyEventPeriod, now time.Time) []models.StudyEvent {
	var lower, upper time.Time
	switch period {
	case models.PeriodThisWeek:
		lower, upper = WeekWindow(now)
	case models.PeriodThisMonth:
		lower, upper = MonthWindow(now)
	default:
		return events
	}
	out := make([]models.StudyEvent, 0, len(events))
	for _, event := range events {
		if event.Start.After(lower) && event.Start.Before(upper) {
			out = append(out, event)
		}
	}
	return out
}

// WeekWindow returns Monday 00:00 of now's week and the following Monday 00:00.
func WeekWindow(now time.Time) (time.Time, time.Time) {
	offset := (int(now.Weekday()) + 6) % 7
	monday := time.Date(now.Year(), now.Month(), now.Day()-offset, 0, 0, 0, 0, now.Location())
	return monday, monday.AddDate(0, 0, 7)
}

// MonthWindow returns the 1st of now's month at 00:00 and the month's last day at 00:00.
func MonthWindow(now time.Time) (time.Time, time.Time) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first, first.AddDate(0, 1, -1)
}

func listingCacheKey(filter models.StudyEventFilter) string {
	location := "any"
	if filter.Location != nil {
		location = string(*filter.Location)
	}
	visibility := "any"
	if filter.Visibility != nil {
		visibility = string(*filter.Visibility)
	}
	period := string(filter.Period)
	if period == "" {
		period = "all"
	}
	return fmt.Sprintf("events:%s:%s:%s:%s", filter.Organizer, visibility, location, period)
}
