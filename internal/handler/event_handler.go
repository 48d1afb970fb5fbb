package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studybot/internal/dto"
	"github.com/noah-isme/studybot/internal/middleware"
	"github.com/noah-isme/studybot/internal/models"
	"github.com/noah-isme/studybot/internal/service"
	appErrors "github.com/noah-isme/studybot/pkg/errors"
	"github.com/noah-isme/studybot/pkg/export"
	"github.com/noah-isme/studybot/pkg/response"
)

type eventCommands interface {
	Create(ctx context.Context, organizerID string, req service.CreateEventRequest) (*models.StudyEvent, error)
	Get(ctx context.Context, eventID string) (*models.StudyEvent, error)
	Edit(ctx context.Context, requesterID, eventID string, req service.EditRequest) (*models.StudyEvent, string, error)
	Cancel(ctx context.Context, requesterID, eventID string) (string, error)
	AttachChannel(ctx context.Context, requesterID, eventID, channelID string) error
	RSVP(ctx context.Context, userID, eventID string) models.RSVPOutcome
	UnRSVP(ctx context.Context, userID, eventID string) models.RSVPOutcome
	Invite(ctx context.Context, requesterID, eventID, inviteeID string) (string, error)
}

type eventQueries interface {
	ListEventsForOrganizer(ctx context.Context, organizerID string, location *models.StudyEventLocation, period models.StudyEventPeriod) ([]models.StudyEvent, error)
	ListUpcomingEvents(ctx context.Context, requesterID string, location *models.StudyEventLocation, period models.StudyEventPeriod, visibility models.StudyEventVisibility) ([]models.StudyEvent, error)
}

type rosterExporter interface {
	Export(ctx context.Context, requester *models.JWTClaims, eventID string, format export.Format) (*service.RosterExport, error)
}

type calendarInviter interface {
	Invite(ctx context.Context, eventID string) (string, error)
}

// EventHandler exposes study event endpoints.
type EventHandler struct {
	commands eventCommands
	queries  eventQueries
	roster   rosterExporter
	calendar calendarInviter
}

// NewEventHandler builds the handler.
func NewEventHandler(commands eventCommands, queries eventQueries, roster rosterExporter, calendar calendarInviter) *EventHandler {
	return &EventHandler{commands: commands, queries: queries, roster: roster, calendar: calendar}
}

// Create godoc
// @Summary Create study event
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body service.CreateEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	event, err := h.commands.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Get godoc
// @Summary Get study event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.commands.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Update godoc
// @Summary Edit study event
// @Description Only present fields are changed
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body service.EditRequest true "Edit payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events/{id} [patch]
func (h *EventHandler) Update(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req service.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	event, message, err := h.commands.Edit(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.EventMessageResponse{Message: message, Event: event}, nil)
}

// Delete godoc
// @Summary Cancel study event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	message, err := h.commands.Cancel(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MessageResponse{Message: message}, nil)
}

// AttachChannel godoc
// @Summary Attach chat channel
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.AttachChannelRequest true "Channel payload"
// @Success 204
// @Router /events/{id}/channel [put]
func (h *EventHandler) AttachChannel(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req dto.AttachChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.commands.AttachChannel(c.Request.Context(), claims.UserID, c.Param("id"), req.ChannelID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListMine godoc
// @Summary List my upcoming events
// @Tags Events
// @Produce json
// @Param location query string false "Location filter"
// @Param period query string false "this_week or this_month"
// @Success 200 {object} response.Envelope
// @Router /events/mine [get]
func (h *EventHandler) ListMine(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var query dto.EventListQuery
	_ = c.ShouldBindQuery(&query)
	location, err := parseLocationQuery(query.Location)
	if err != nil {
		response.Error(c, err)
		return
	}

	events, err := h.queries.ListEventsForOrganizer(c.Request.Context(), claims.UserID, location, models.StudyEventPeriod(query.Period))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(events))
	response.JSON(c, http.StatusOK, events, nil, middleware.ExtractMeta(c))
}

// ListUpcoming godoc
// @Summary List upcoming events by visibility
// @Tags Events
// @Produce json
// @Param location query string false "Location filter"
// @Param period query string false "this_week or this_month"
// @Param visibility query string false "PUBLIC_EVENT (default) or PRIVATE_EVENT"
// @Success 200 {object} response.Envelope
// @Router /events/upcoming [get]
func (h *EventHandler) ListUpcoming(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var query dto.EventListQuery
	_ = c.ShouldBindQuery(&query)
	location, err := parseLocationQuery(query.Location)
	if err != nil {
		response.Error(c, err)
		return
	}
	visibility := models.VisibilityPublic
	if query.Visibility != "" {
		parsed, ok := models.ParseVisibility(query.Visibility)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "visibility must be PUBLIC_EVENT or PRIVATE_EVENT"))
			return
		}
		visibility = parsed
	}

	events, err := h.queries.ListUpcomingEvents(c.Request.Context(), claims.UserID, location, models.StudyEventPeriod(query.Period), visibility)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(events))
	response.JSON(c, http.StatusOK, events, nil, middleware.ExtractMeta(c))
}

// RSVP godoc
// @Summary RSVP to an event
// @Tags Attendance
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events/{id}/rsvp [post]
func (h *EventHandler) RSVP(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	outcome := h.commands.RSVP(c.Request.Context(), claims.UserID, c.Param("id"))
	response.JSON(c, rsvpStatusCode(outcome.Status), outcome, nil)
}

// UnRSVP godoc
// @Summary Withdraw an RSVP
// @Tags Attendance
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events/{id}/rsvp [delete]
func (h *EventHandler) UnRSVP(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	outcome := h.commands.UnRSVP(c.Request.Context(), claims.UserID, c.Param("id"))
	response.JSON(c, rsvpStatusCode(outcome.Status), outcome, nil)
}

// Invite godoc
// @Summary Invite a verified member
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.InviteRequest true "Invite payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events/{id}/invitations [post]
func (h *EventHandler) Invite(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req dto.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	message, err := h.commands.Invite(c.Request.Context(), claims.UserID, c.Param("id"), req.InviteeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.MessageResponse{Message: message})
}

// Roster godoc
// @Summary Export attendee roster
// @Tags Events
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Event ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /events/{id}/roster [get]
func (h *EventHandler) Roster(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf"))
		return
	}

	file, err := h.roster.Export(c.Request.Context(), claims, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// Calendar godoc
// @Summary Download iCalendar invite
// @Tags Events
// @Produce text/calendar
// @Param id path string true "Event ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /events/{id}/ics [get]
func (h *EventHandler) Calendar(c *gin.Context) {
	body, err := h.calendar.Invite(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "event-"+c.Param("id")+".ics", "text/calendar; charset=utf-8", []byte(body))
}

func parseLocationQuery(raw string) (*models.StudyEventLocation, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	loc, ok := models.ParseLocation(raw)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Error: Invalid location, please enter a valid location.")
	}
	return &loc, nil
}

func rsvpStatusCode(status models.RSVPStatus) int {
	switch status {
	case models.RSVPJoined, models.RSVPLeft, models.RSVPAlreadyIn, models.RSVPAlreadyOut:
		return http.StatusOK
	case models.RSVPFull, models.RSVPStarted:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}
