package service

import (
	"context"
	"fmt"
	"strings"

	ical "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/noah-isme/studybot/internal/models"
	appErrors "github.com/noah-isme/studybot/pkg/errors"
)

const calendarProductID = "-//studybot//study events//EN"

// CalendarInviteService renders study events as iCalendar invites.
type CalendarInviteService struct {
	events EventStore
	clock  Clock
	domain string
	logger *zap.Logger
}

// NewCalendarInviteService constructs the invite renderer. domain qualifies event UIDs.
func NewCalendarInviteService(events EventStore, clock Clock, domain string, logger *zap.Logger) *CalendarInviteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = NewSystemClock(nil)
	}
	if domain == "" {
		domain = "studybot.local"
	}
	return &CalendarInviteService{events: events, clock: clock, domain: domain, logger: logger}
}

// Invite returns the serialized calendar for eventID.
func (s *CalendarInviteService) Invite(ctx context.Context, eventID string) (string, error) {
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event == nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "Event not found.")
	}
	return s.Render(event), nil
}

// Render builds a REQUEST calendar holding one VEVENT for event.
func (s *CalendarInviteService) Render(event *models.StudyEvent) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodRequest)
	cal.SetProductId(calendarProductID)

	vevent := cal.AddEvent(fmt.Sprintf("%s@%s", event.ID, s.domain))
	vevent.SetDtStampTime(s.clock.Now().UTC())
	if !event.CreatedAt.IsZero() {
		vevent.SetCreatedTime(event.CreatedAt.UTC())
	}
	if !event.UpdatedAt.IsZero() {
		vevent.SetModifiedAt(event.UpdatedAt.UTC())
	}
	vevent.SetStartAt(event.Start.UTC())
	vevent.SetEndAt(event.End.UTC())
	vevent.SetSummary(event.Title)
	vevent.SetLocation(locationLabel(event.Location))

	description := event.Description
	if len(event.Attachments) > 0 {
		description = strings.TrimSpace(description + "\n\nAttachments: " + strings.Join(event.Attachments, ", "))
	}
	if description != "" {
		vevent.SetDescription(description)
	}
	if event.Organizer != "" {
		vevent.SetOrganizer("mailto:" + s.address(event.Organizer))
	}
	// AddAttendee adds the mailto: scheme itself.
	for _, attendee := range event.Attendees {
		vevent.AddAttendee(s.address(attendee))
	}

	s.logger.Debug("calendar invite rendered", zap.String("event_id", event.ID), zap.Int("attendees", len(event.Attendees)))
	return cal.Serialize()
}

func (s *CalendarInviteService) address(platformID string) string {
	return fmt.Sprintf("%s@%s", platformID, s.domain)
}

func locationLabel(loc models.StudyEventLocation) string {
	switch loc {
	case models.LocationOnline:
		return "Online"
	case models.LocationSiliconValley:
		return "Silicon Valley"
	default:
		s := strings.ToLower(string(loc))
		if s == "" {
			return ""
		}
		return strings.ToUpper(s[:1]) + s[1:]
	}
}
