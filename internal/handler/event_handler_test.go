package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studybot/internal/dto"
	"github.com/noah-isme/studybot/internal/middleware"
	"github.com/noah-isme/studybot/internal/models"
	"github.com/noah-isme/studybot/internal/repository"
	"github.com/noah-isme/studybot/internal/service"
)

func buildEventRouter(t *testing.T, verified ...string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	clock := service.ClockFunc(func() time.Time { return now })
	events := repository.NewMemoryStudyEventRepository()
	members := repository.NewMemoryEventUserRepository()
	for _, id := range verified {
		require.NoError(t, members.Create(context.Background(), &models.EventUser{PlatformID: id, Name: id, Role: models.EventUserRoleStudent}))
	}

	locks := service.NewEventLocks()
	lifecycle := service.NewEventLifecycleService(events, locks, clock, time.UTC, 0, nil, nil, nil)
	attendance := service.NewAttendanceService(events, locks, nil, nil, nil)
	users := service.NewUserService(members, service.VerificationPolicy{}, nil, nil)
	notices := service.NewNotificationService(nil, &service.MemoryNotifier{}, nil, nil)
	commands := service.NewEventCommandService(lifecycle, attendance, users, notices, nil)
	queries := service.NewEventQueryService(events, clock, nil, 0, nil)
	roster := service.NewRosterService(events, members, nil, nil, nil)
	calendar := service.NewCalendarInviteService(events, clock, "", nil)
	h := NewEventHandler(commands, queries, roster, calendar)

	r := gin.New()
	r.Use(middleware.WithResponseMeta(), testClaims())
	r.POST("/events", h.Create)
	r.GET("/events/mine", h.ListMine)
	r.GET("/events/upcoming", h.ListUpcoming)
	r.GET("/events/:id", h.Get)
	r.PATCH("/events/:id", h.Update)
	r.DELETE("/events/:id", h.Delete)
	r.PUT("/events/:id/channel", h.AttachChannel)
	r.POST("/events/:id/rsvp", h.RSVP)
	r.DELETE("/events/:id/rsvp", h.UnRSVP)
	r.POST("/events/:id/invitations", h.Invite)
	r.GET("/events/:id/roster", h.Roster)
	r.GET("/events/:id/ics", h.Calendar)
	return r
}

var sprintPlanningPayload = map[string]interface{}{
	"title":      "Sprint Planning",
	"start_time": "2025-06-02T09:00",
	"end_time":   "2025-06-02T10:00",
	"location":   "ONLINE",
	"visibility": "PUBLIC_EVENT",
}

func createEvent(t *testing.T, router *gin.Engine, organizer string) models.StudyEvent {
	t.Helper()
	w := performRequest(router, http.MethodPost, "/events", organizer, sprintPlanningPayload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var event models.StudyEvent
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &event))
	require.NotEmpty(t, event.ID)
	return event
}

func TestEventHandlerCreate(t *testing.T) {
	router := buildEventRouter(t)
	event := createEvent(t, router, "organizer")
	assert.Equal(t, "organizer", event.Organizer)
	assert.Equal(t, 100, event.MaxAttendees)

	t.Run("unauthenticated", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/events", "", sprintPlanningPayload)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/events", "organizer", "{")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("title too long", func(t *testing.T) {
		payload := map[string]interface{}{}
		for k, v := range sprintPlanningPayload {
			payload[k] = v
		}
		payload["title"] = strings.Repeat("x", 26)
		w := performRequest(router, http.MethodPost, "/events", "organizer", payload)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Error: Event title must not exceed 25 characters.", decodeEnvelope(t, w).Error.Message)
	})
}

func TestEventHandlerRSVPFlow(t *testing.T) {
	router := buildEventRouter(t)
	event := createEvent(t, router, "organizer")

	var outcome models.RSVPOutcome
	w := performRequest(router, http.MethodPost, "/events/"+event.ID+"/rsvp", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &outcome))
	assert.Equal(t, "You have successfully RSVP'd to the Sprint Planning event.", outcome.Message)

	w = performRequest(router, http.MethodPost, "/events/"+event.ID+"/rsvp", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &outcome))
	assert.Equal(t, models.RSVPAlreadyIn, outcome.Status)

	w = performRequest(router, http.MethodDelete, "/events/"+event.ID+"/rsvp", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &outcome))
	assert.Equal(t, models.RSVPLeft, outcome.Status)

	w = performRequest(router, http.MethodPost, "/events/missing/rsvp", "u1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestEventHandlerListings(t *testing.T) {
	router := buildEventRouter(t)
	createEvent(t, router, "organizer")

	w := performRequest(router, http.MethodGet, "/events/mine", "organizer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	var events []models.StudyEvent
	require.NoError(t, json.Unmarshal(env.Data, &events))
	assert.Len(t, events, 1)
	assert.EqualValues(t, 1, env.Meta["count"])

	w = performRequest(router, http.MethodGet, "/events/upcoming?location=boston", "organizer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &events))
	assert.Empty(t, events)

	w = performRequest(router, http.MethodGet, "/events/upcoming?visibility=hidden", "organizer", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, http.MethodGet, "/events/mine?location=mars", "organizer", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHandlerEditAndCancel(t *testing.T) {
	router := buildEventRouter(t)
	event := createEvent(t, router, "organizer")

	w := performRequest(router, http.MethodPatch, "/events/"+event.ID, "organizer", map[string]string{"title": "Retro"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Event updated successfully!")

	w = performRequest(router, http.MethodPatch, "/events/"+event.ID, "organizer", map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_UPDATES", decodeEnvelope(t, w).Error.Code)

	w = performRequest(router, http.MethodPatch, "/events/"+event.ID, "intruder", map[string]string{"title": "Mine now"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performRequest(router, http.MethodPut, "/events/"+event.ID+"/channel", "organizer", map[string]string{"channel_id": "c-1"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = performRequest(router, http.MethodGet, "/events/"+event.ID, "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"channel_id":"c-1"`)

	w = performRequest(router, http.MethodDelete, "/events/"+event.ID, "organizer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Event has been successfully deleted.")

	w = performRequest(router, http.MethodGet, "/events/"+event.ID, "u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventHandlerInvite(t *testing.T) {
	router := buildEventRouter(t, "friend")
	event := createEvent(t, router, "organizer")

	w := performRequest(router, http.MethodPost, "/events/"+event.ID+"/invitations", "organizer", map[string]string{"invitee_id": "friend"})
	require.Equal(t, http.StatusAccepted, w.Code)
	var reply dto.MessageResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &reply))
	assert.Equal(t, "Invitation is sent to <@friend>!", reply.Message)

	w = performRequest(router, http.MethodPost, "/events/"+event.ID+"/invitations", "organizer", map[string]string{"invitee_id": "stranger"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, http.MethodPost, "/events/"+event.ID+"/invitations", "organizer", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHandlerDownloads(t *testing.T) {
	router := buildEventRouter(t)
	event := createEvent(t, router, "organizer")

	w := performRequest(router, http.MethodGet, "/events/"+event.ID+"/roster", "organizer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="roster-sprint-planning.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "No,Member,Name,Role")

	w = performRequest(router, http.MethodGet, "/events/"+event.ID+"/roster?format=pdf", "organizer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	w = performRequest(router, http.MethodGet, "/events/"+event.ID+"/roster?format=xlsx", "organizer", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, http.MethodGet, "/events/"+event.ID+"/roster", "u1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performRequest(router, http.MethodGet, "/events/"+event.ID+"/ics", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/calendar"))
	assert.Contains(t, w.Body.String(), "SUMMARY:Sprint Planning")

	w = performRequest(router, http.MethodGet, "/events/missing/ics", "u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRSVPStatusCode(t *testing.T) {
	cases := map[models.RSVPStatus]int{
		models.RSVPJoined:     http.StatusOK,
		models.RSVPLeft:       http.StatusOK,
		models.RSVPAlreadyIn:  http.StatusOK,
		models.RSVPAlreadyOut: http.StatusOK,
		models.RSVPFull:       http.StatusConflict,
		models.RSVPStarted:    http.StatusConflict,
		models.RSVPFailed:     http.StatusUnprocessableEntity,
	}
	for status, want := range cases {
		assert.Equal(t, want, rsvpStatusCode(status), string(status))
	}
}

func TestEventHandlerRequiresClaims(t *testing.T) {
	h := NewEventHandler(nil, nil, nil, nil)
	c, w := newGinContext(http.MethodPost, "/events/e1/rsvp", nil, nil)
	h.RSVP(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
