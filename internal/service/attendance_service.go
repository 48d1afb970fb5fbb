package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/studybot/internal/models"
)

const (
	msgRSVPFailure    = "Something went wrong! Please try again."
	msgRSVPAlreadyIn  = "You have already RSVP'd to the %s event."
	msgRSVPJoined     = "You have successfully RSVP'd to the %s event."
	msgRSVPFull       = "%s has reached full capacity! RSVPs are no longer available."
	msgRSVPLeft       = "You have successfully un-RSVP'd from the %s event."
	msgRSVPAlreadyOut = "You have already un-RSVP'd from the %s event."

	rsvpActionAdd    = "rsvp"
	rsvpActionRemove = "unrsvp"
)

// AttendanceService manages the attendee roster of study events.
// It does not check start times; callers gate on that.
type AttendanceService struct {
	store   EventStore
	locks   *EventLocks
	metrics *MetricsService
	cache   listingInvalidator
	logger  *zap.Logger
}

// NewAttendanceService constructs the attendance engine. locks must be the
// table shared with the lifecycle engine; nil creates a private one.
func NewAttendanceService(store EventStore, locks *EventLocks, metrics *MetricsService, cache listingInvalidator, logger *zap.Logger) *AttendanceService {
	if locks == nil {
		locks = NewEventLocks()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		store:   store,
		locks:   locks,
		metrics: metrics,
		cache:   cache,
		logger:  logger,
	}
}

// AddAttendee places userID on the event roster when capacity allows.
func (s *AttendanceService) AddAttendee(ctx context.Context, userID, eventID string) models.RSVPOutcome {
	outcome := s.addAttendee(ctx, userID, eventID)
	s.metrics.RecordRSVP(rsvpActionAdd, outcome.Status)
	return outcome
}

func (s *AttendanceService) addAttendee(ctx context.Context, userID, eventID string) models.RSVPOutcome {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(eventID) == "" {
		return failedOutcome()
	}

	unlock := s.locks.Lock(eventID)
	defer unlock()

	event, err := s.store.Get(ctx, eventID)
	if err != nil {
		s.logger.Error("rsvp could not load event", zap.String("event_id", eventID), zap.Error(err))
		return failedOutcome()
	}
	if event == nil {
		return failedOutcome()
	}

	if event.HasAttendee(userID) {
		return models.RSVPOutcome{Status: models.RSVPAlreadyIn, Message: fmt.Sprintf(msgRSVPAlreadyIn, event.Title), Event: event}
	}
	if !event.HasCapacity() {
		return models.RSVPOutcome{Status: models.RSVPFull, Message: fmt.Sprintf(msgRSVPFull, event.Title), Event: event}
	}

	event.Attendees = append(event.Attendees, userID)
	updated, err := s.store.Update(ctx, event)
	if err != nil || updated == nil {
		s.logger.Error("failed to persist rsvp", zap.String("event_id", eventID), zap.String("user_id", userID), zap.Error(err))
		return failedOutcome()
	}
	s.invalidate(ctx)
	s.logger.Info("attendee added", zap.String("event_id", eventID), zap.String("user_id", userID), zap.Int("attendees", len(updated.Attendees)))
	return models.RSVPOutcome{Status: models.RSVPJoined, Message: fmt.Sprintf(msgRSVPJoined, updated.Title), Event: updated}
}

// RemoveAttendee takes userID off the event roster.
func (s *AttendanceService) RemoveAttendee(ctx context.Context, userID, eventID string) models.RSVPOutcome {
	outcome := s.removeAttendee(ctx, userID, eventID)
	s.metrics.RecordRSVP(rsvpActionRemove, outcome.Status)
	return outcome
}

func (s *AttendanceService) removeAttendee(ctx context.Context, userID, eventID string) models.RSVPOutcome {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(eventID) == "" {
		return failedOutcome()
	}

	unlock := s.locks.Lock(eventID)
	defer unlock()

	event, err := s.store.Get(ctx, eventID)
	if err != nil {
		s.logger.Error("un-rsvp could not load event", zap.String("event_id", eventID), zap.Error(err))
		return failedOutcome()
	}
	if event == nil {
		return failedOutcome()
	}

	if !event.HasAttendee(userID) {
		return models.RSVPOutcome{Status: models.RSVPAlreadyOut, Message: fmt.Sprintf(msgRSVPAlreadyOut, event.Title), Event: event}
	}

	remaining := make(models.StringList, 0, len(event.Attendees))
	for _, id := range event.Attendees {
		if id != userID {
			remaining = append(remaining, id)
		}
	}
	event.Attendees = remaining

	updated, err := s.store.Update(ctx, event)
	if err != nil || updated == nil {
		s.logger.Error("failed to persist un-rsvp", zap.String("event_id", eventID), zap.String("user_id", userID), zap.Error(err))
		return failedOutcome()
	}
	s.invalidate(ctx)
	s.logger.Info("attendee removed", zap.String("event_id", eventID), zap.String("user_id", userID))
	return models.RSVPOutcome{Status: models.RSVPLeft, Message: fmt.Sprintf(msgRSVPLeft, updated.Title), Event: updated}
}

func (s *AttendanceService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, listingCachePattern); err != nil {
		s.logger.Warn("listing cache invalidation failed", zap.Error(err))
	}
}

func failedOutcome() models.RSVPOutcome {
	return models.RSVPOutcome{Status: models.RSVPFailed, Message: msgRSVPFailure}
}
