package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/noah-isme/studybot/internal/models"
	appErrors "github.com/noah-isme/studybot/pkg/errors"
)

const (
	msgRSVPTooLate      = "Event has already started, and it's too late to RSVP now."
	msgUnRSVPTooLate    = "Event has already started, and it's too late to un-RSVP now."
	msgEditStarted      = "You cannot edit this event as it has already started."
	msgEditNotFound     = "Event not found."
	msgEditFailed       = "There was a problem during update"
	msgEditSucceeded    = "Event updated successfully!"
	msgDeleteStarted    = "Event has already started! you cannot delete this event now."
	msgDeleteMissing    = "This event no longer exists and cannot be deleted."
	msgDeleteSucceeded  = "Event has been successfully deleted."
	msgNotOrganizer     = "Only the organizer can manage this event."
	msgCancelledNotice  = "Hey <@%s>, %s event is cancelled by owner."
	msgInviteNotice     = "Hey <@%s>, do you want to join %s event beginning on %s?"
	msgInviteSent       = "Invitation is sent to <@%s>!"
	msgInviteRejected   = "An invitation cannot be sent to <@%s>!"
	msgAcceptanceNotice = "Hey <@%s>, <@%s> has accepted the invitation to your event %s."
)

type verificationChecker interface {
	IsVerified(ctx context.Context, platformID string) bool
}

type noticeSender interface {
	Send(ctx context.Context, notices ...Notice)
}

// CreateEventRequest mirrors the create-event command options as raw values.
type CreateEventRequest struct {
	Title        string `json:"title" validate:"required"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
	Location     string `json:"location" validate:"required"`
	Visibility   string `json:"visibility" validate:"required"`
	Description  string `json:"description"`
	Attachments  string `json:"attachments"`
	MaxAttendees *int   `json:"max_attendees"`
}

// EventCommandService runs the member-facing event commands on top of the
// lifecycle and attendance engines: ownership, start gates and notices.
type EventCommandService struct {
	lifecycle  *EventLifecycleService
	attendance *AttendanceService
	users      verificationChecker
	notices    noticeSender
	logger     *zap.Logger
}

// NewEventCommandService wires the command layer.
func NewEventCommandService(lifecycle *EventLifecycleService, attendance *AttendanceService, users verificationChecker, notices noticeSender, logger *zap.Logger) *EventCommandService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventCommandService{
		lifecycle:  lifecycle,
		attendance: attendance,
		users:      users,
		notices:    notices,
		logger:     logger,
	}
}

// Create validates raw command input in the order the chat command reports
// problems and persists the event for organizerID.
func (s *EventCommandService) Create(ctx context.Context, organizerID string, req CreateEventRequest) (*models.StudyEvent, error) {
	if utf8.RuneCountInString(req.Title) > models.MaxTitleLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, msgTitleTooLong)
	}
	start, err := s.lifecycle.ParseEventTime(req.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := s.lifecycle.ParseEventTime(req.EndTime)
	if err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, appErrors.Clone(appErrors.ErrValidation, msgStartAfterEnd)
	}

	maxAttendees := s.lifecycle.defaultMaxAttendees
	if req.MaxAttendees != nil {
		maxAttendees = *req.MaxAttendees
	}

	return s.lifecycle.CreateEventWithOptions(ctx, CreateEventInput{
		Title:      req.Title,
		Start:      start,
		End:        end,
		Location:   models.StudyEventLocation(req.Location),
		Visibility: models.StudyEventVisibility(req.Visibility),
	}, OptionalFields{
		Description:  req.Description,
		Attachments:  SplitAttachments(req.Attachments),
		OrganizerID:  organizerID,
		MaxAttendees: maxAttendees,
	})
}

// SplitAttachments turns a comma separated list into trimmed, non-empty entries.
func SplitAttachments(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Get returns the event or ErrNotFound.
func (s *EventCommandService) Get(ctx context.Context, eventID string) (*models.StudyEvent, error) {
	event, err := s.lifecycle.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, msgEditNotFound)
	}
	return event, nil
}

// Edit applies an organizer's edit request and returns the success message.
func (s *EventCommandService) Edit(ctx context.Context, requesterID, eventID string, req EditRequest) (*models.StudyEvent, string, error) {
	event, err := s.lifecycle.GetEvent(ctx, eventID)
	if err != nil {
		return nil, "", err
	}
	if event == nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, msgEditNotFound)
	}
	if event.Organizer != requesterID {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, msgNotOrganizer)
	}
	if s.lifecycle.IsStarted(ctx, eventID) {
		return nil, "", appErrors.Clone(appErrors.ErrEventStarted, msgEditStarted)
	}

	patch, err := s.lifecycle.ValidatePatch(event, req)
	if err != nil {
		return nil, "", err
	}
	if !s.lifecycle.UpdateEvent(ctx, eventID, patch) {
		return nil, "", appErrors.Clone(appErrors.ErrInternal, msgEditFailed)
	}

	updated, err := s.lifecycle.GetEvent(ctx, eventID)
	if err != nil || updated == nil {
		patch.Apply(event)
		updated = event
	}
	return updated, msgEditSucceeded, nil
}

// Cancel deletes an organizer's event and notifies every attendee.
func (s *EventCommandService) Cancel(ctx context.Context, requesterID, eventID string) (string, error) {
	event, err := s.lifecycle.GetEvent(ctx, eventID)
	if err != nil {
		return "", err
	}
	if event == nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, msgDeleteMissing)
	}
	if event.Organizer != requesterID {
		return "", appErrors.Clone(appErrors.ErrForbidden, msgNotOrganizer)
	}
	if s.lifecycle.IsStarted(ctx, eventID) {
		return "", appErrors.Clone(appErrors.ErrEventStarted, msgDeleteStarted)
	}
	if !s.lifecycle.DeleteEvent(ctx, eventID) {
		return "", appErrors.Clone(appErrors.ErrNotFound, msgDeleteMissing)
	}

	if s.notices != nil && len(event.Attendees) > 0 {
		notices := make([]Notice, 0, len(event.Attendees))
		for _, attendee := range event.Attendees {
			notices = append(notices, Notice{
				Kind:        NoticeCancellation,
				RecipientID: attendee,
				EventID:     event.ID,
				Message:     fmt.Sprintf(msgCancelledNotice, attendee, event.Title),
			})
		}
		s.notices.Send(ctx, notices...)
	}
	return msgDeleteSucceeded, nil
}

// AttachChannel records the chat channel created for the event.
func (s *EventCommandService) AttachChannel(ctx context.Context, requesterID, eventID, channelID string) error {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if event.Organizer != requesterID {
		return appErrors.Clone(appErrors.ErrForbidden, msgNotOrganizer)
	}
	if strings.TrimSpace(channelID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "channel id is required")
	}
	if !s.lifecycle.AttachChannel(ctx, eventID, channelID) {
		return appErrors.Clone(appErrors.ErrInternal, msgEditFailed)
	}
	return nil
}

// RSVP joins userID to the event unless it has started. Accepted invitations
// to private events are reported to the organizer.
func (s *EventCommandService) RSVP(ctx context.Context, userID, eventID string) models.RSVPOutcome {
	if s.lifecycle.IsStarted(ctx, eventID) {
		return models.RSVPOutcome{Status: models.RSVPStarted, Message: msgRSVPTooLate}
	}
	outcome := s.attendance.AddAttendee(ctx, userID, eventID)
	if outcome.Status == models.RSVPJoined && outcome.Event != nil &&
		outcome.Event.Visibility == models.VisibilityPrivate && outcome.Event.Organizer != "" && s.notices != nil {
		s.notices.Send(ctx, Notice{
			Kind:        NoticeAcceptance,
			RecipientID: outcome.Event.Organizer,
			EventID:     eventID,
			Message:     fmt.Sprintf(msgAcceptanceNotice, outcome.Event.Organizer, userID, outcome.Event.Title),
		})
	}
	return outcome
}

// UnRSVP removes userID from the event unless it has started.
func (s *EventCommandService) UnRSVP(ctx context.Context, userID, eventID string) models.RSVPOutcome {
	if s.lifecycle.IsStarted(ctx, eventID) {
		return models.RSVPOutcome{Status: models.RSVPStarted, Message: msgUnRSVPTooLate}
	}
	return s.attendance.RemoveAttendee(ctx, userID, eventID)
}

// Invite sends a direct invitation for the organizer's event to a verified member.
func (s *EventCommandService) Invite(ctx context.Context, requesterID, eventID, inviteeID string) (string, error) {
	event, err := s.lifecycle.GetEvent(ctx, eventID)
	if err != nil {
		return "", err
	}
	if event == nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf(msgInviteRejected, inviteeID))
	}
	if event.Organizer != requesterID {
		return "", appErrors.Clone(appErrors.ErrForbidden, msgNotOrganizer)
	}
	if strings.TrimSpace(inviteeID) == "" || event.StartedAt(s.lifecycle.clock.Now()) ||
		s.users == nil || !s.users.IsVerified(ctx, inviteeID) {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf(msgInviteRejected, inviteeID))
	}

	if s.notices != nil {
		s.notices.Send(ctx, Notice{
			Kind:        NoticeInvitation,
			RecipientID: inviteeID,
			EventID:     event.ID,
			Message:     fmt.Sprintf(msgInviteNotice, inviteeID, event.Title, event.Start.Format(models.EventTimeLayout)),
		})
	}
	s.logger.Info("invitation sent", zap.String("event_id", event.ID), zap.String("invitee", inviteeID))
	return fmt.Sprintf(msgInviteSent, inviteeID), nil
}
