package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studybot/internal/models"
	"github.com/noah-isme/studybot/internal/repository"
	appErrors "github.com/noah-isme/studybot/pkg/errors"
)

// Sunday 1 June 2025, noon UTC.
var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(now time.Time) Clock {
	return ClockFunc(func() time.Time { return now })
}

func errMessage(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return appErrors.FromError(err).Message
}

func strPtr(s string) *string { return &s }

func newTestLifecycle(now time.Time) (*EventLifecycleService, *repository.MemoryStudyEventRepository) {
	store := repository.NewMemoryStudyEventRepository()
	return NewEventLifecycleService(store, nil, fixedClock(now), time.UTC, 0, nil, nil, nil), store
}

func validInput() CreateEventInput {
	return CreateEventInput{
		Title:      "Sprint Planning",
		Start:      time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC),
		End:        time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC),
		Location:   models.LocationOnline,
		Visibility: models.VisibilityPublic,
	}
}

func TestParseEventTime(t *testing.T) {
	svc, _ := newTestLifecycle(testNow)

	parsed, err := svc.ParseEventTime("2025-06-02T09:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC), parsed)

	for _, raw := range []string{"2025-06-02 09:00", "06/02/2025 09:00", "2025-06-02T09:00:00", "", "2025-13-02T09:00"} {
		_, err := svc.ParseEventTime(raw)
		assert.Equal(t, msgInvalidDate, errMessage(t, err), raw)
		assert.ErrorIs(t, err, appErrors.ErrValidation)
	}
}

func TestParseEventTimeUsesLocation(t *testing.T) {
	loc := time.FixedZone("PDT", -7*60*60)
	parsed, err := ParseEventTime("2025-06-02T09:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 2, 16, 0, 0, 0, time.UTC), parsed.UTC())
}

func TestBuildEventDefaults(t *testing.T) {
	svc, _ := newTestLifecycle(testNow)

	event, err := svc.BuildEvent(validInput())
	require.NoError(t, err)
	assert.Empty(t, event.ID)
	assert.Equal(t, "Sprint Planning", event.Title)
	assert.Equal(t, DefaultMaxAttendees, event.MaxAttendees)
	assert.Empty(t, event.Attendees)
	assert.Empty(t, event.Attachments)
	assert.Empty(t, event.Organizer)
}

func TestBuildEventValidation(t *testing.T) {
	svc, _ := newTestLifecycle(testNow)

	cases := []struct {
		name   string
		mutate func(*CreateEventInput)
		want   string
	}{
		{"title too long", func(in *CreateEventInput) { in.Title = strings.Repeat("x", 26) }, msgTitleTooLong},
		{"unknown location", func(in *CreateEventInput) { in.Location = "MARS" }, msgInvalidLocation},
		{"unknown visibility", func(in *CreateEventInput) { in.Visibility = "SECRET" }, msgInvalidType},
		{"start after end", func(in *CreateEventInput) { in.Start, in.End = in.End, in.Start }, msgStartAfterEnd},
		{"start equals end", func(in *CreateEventInput) { in.End = in.Start }, msgStartAfterEnd},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := svc.BuildEvent(input)
			assert.Equal(t, tc.want, errMessage(t, err))
		})
	}
}

func TestBuildEventAcceptsTitleAtLimit(t *testing.T) {
	svc, _ := newTestLifecycle(testNow)
	input := validInput()
	input.Title = strings.Repeat("é", models.MaxTitleLength)

	_, err := svc.BuildEvent(input)
	require.NoError(t, err)
}

func TestCreateEventWithOptions(t *testing.T) {
	svc, store := newTestLifecycle(testNow)
	ctx := context.Background()

	event, err := svc.CreateEventWithOptions(ctx, validInput(), OptionalFields{
		Description:  "Plan the sprint",
		Attachments:  []string{"https://example.com/board"},
		OrganizerID:  "organizer-1",
		MaxAttendees: 5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, event.ID)

	stored, err := store.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "organizer-1", stored.Organizer)
	assert.Equal(t, 5, stored.MaxAttendees)
	assert.Equal(t, models.StringList{"https://example.com/board"}, stored.Attachments)

	_, err = svc.CreateEventWithOptions(ctx, validInput(), OptionalFields{OrganizerID: "organizer-1"})
	assert.Equal(t, msgMaxAttendees, errMessage(t, err))
}

func TestIsStarted(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLifecycle(testNow)

	input := validInput()
	input.Start = testNow
	input.End = testNow.Add(time.Hour)
	startingNow, err := svc.CreateEvent(ctx, input)
	require.NoError(t, err)

	future, err := svc.CreateEvent(ctx, validInput())
	require.NoError(t, err)

	assert.True(t, svc.IsStarted(ctx, startingNow.ID))
	assert.False(t, svc.IsStarted(ctx, future.ID))
	assert.False(t, svc.IsStarted(ctx, "missing"))
	assert.False(t, svc.IsStarted(ctx, ""))
}

func TestDeleteEvent(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestLifecycle(testNow)

	future, err := svc.CreateEvent(ctx, validInput())
	require.NoError(t, err)

	past := validInput()
	past.Start = testNow.Add(-2 * time.Hour)
	past.End = testNow.Add(-time.Hour)
	started, err := svc.CreateEvent(ctx, past)
	require.NoError(t, err)

	assert.True(t, svc.DeleteEvent(ctx, future.ID))
	gone, err := store.Get(ctx, future.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	assert.False(t, svc.DeleteEvent(ctx, future.ID))
	assert.False(t, svc.DeleteEvent(ctx, started.ID))
	kept, err := store.Get(ctx, started.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, started.ID, kept.ID)
	assert.False(t, svc.DeleteEvent(ctx, "missing"))
}

func TestValidatePatch(t *testing.T) {
	svc, _ := newTestLifecycle(testNow)
	event, err := svc.BuildEvent(validInput())
	require.NoError(t, err)

	t.Run("title", func(t *testing.T) {
		patch, err := svc.ValidatePatch(event, EditRequest{Title: strPtr("Retro")})
		require.NoError(t, err)
		require.NotNil(t, patch.Title)
		assert.Equal(t, "Retro", *patch.Title)
		assert.Nil(t, patch.Start)

		_, err = svc.ValidatePatch(event, EditRequest{Title: strPtr(strings.Repeat("t", 26))})
		assert.Equal(t, msgEditTitle, errMessage(t, err))
	})

	t.Run("start checked against stored end", func(t *testing.T) {
		patch, err := svc.ValidatePatch(event, EditRequest{StartTime: strPtr("2025-06-02T08:00")})
		require.NoError(t, err)
		assert.Equal(t, 8, patch.Start.Hour())

		_, err = svc.ValidatePatch(event, EditRequest{StartTime: strPtr("2025-06-02T11:00")})
		assert.Equal(t, msgEditStart, errMessage(t, err))

		_, err = svc.ValidatePatch(event, EditRequest{StartTime: strPtr("tomorrow")})
		assert.Equal(t, msgEditStart, errMessage(t, err))
	})

	t.Run("start checked against new end", func(t *testing.T) {
		patch, err := svc.ValidatePatch(event, EditRequest{
			StartTime: strPtr("2025-06-03T11:00"),
			EndTime:   strPtr("2025-06-03T12:00"),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, patch.Start.Day())
		assert.Equal(t, 3, patch.End.Day())
	})

	t.Run("end", func(t *testing.T) {
		_, err := svc.ValidatePatch(event, EditRequest{EndTime: strPtr("2025-06-02T08:00")})
		assert.Equal(t, msgEditEnd, errMessage(t, err))

		_, err = svc.ValidatePatch(event, EditRequest{EndTime: strPtr("bad")})
		assert.Equal(t, msgEditEnd, errMessage(t, err))
	})

	t.Run("location", func(t *testing.T) {
		patch, err := svc.ValidatePatch(event, EditRequest{Location: strPtr("boston")})
		require.NoError(t, err)
		assert.Equal(t, models.LocationBoston, *patch.Location)

		_, err = svc.ValidatePatch(event, EditRequest{Location: strPtr("Mars")})
		assert.Equal(t, msgInvalidLocation, errMessage(t, err))
	})

	t.Run("nothing to change", func(t *testing.T) {
		_, err := svc.ValidatePatch(event, EditRequest{})
		assert.ErrorIs(t, err, appErrors.ErrNoUpdates)
	})
}

func TestUpdateEvent(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestLifecycle(testNow)
	event, err := svc.CreateEvent(ctx, validInput())
	require.NoError(t, err)

	title := "Backlog Grooming"
	loc := models.LocationSeattle
	assert.True(t, svc.UpdateEvent(ctx, event.ID, models.EventPatch{Title: &title, Location: &loc}))

	stored, err := store.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, title, stored.Title)
	assert.Equal(t, models.LocationSeattle, stored.Location)
	assert.Equal(t, event.Start, stored.Start)

	assert.False(t, svc.UpdateEvent(ctx, "missing", models.EventPatch{Title: &title}))
}

func TestAttachChannel(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestLifecycle(testNow)
	event, err := svc.CreateEvent(ctx, validInput())
	require.NoError(t, err)

	assert.True(t, svc.AttachChannel(ctx, event.ID, "channel-42"))
	stored, _ := store.Get(ctx, event.ID)
	assert.Equal(t, "channel-42", stored.ChannelID)
	assert.False(t, svc.AttachChannel(ctx, "missing", "channel-42"))
}

func TestSetOptionalFieldsCopiesAttachments(t *testing.T) {
	event := &models.StudyEvent{}
	attachments := []string{"a", "b"}
	SetOptionalFields(event, "desc", attachments, "org", 0)
	attachments[0] = "changed"

	assert.Equal(t, models.StringList{"a", "b"}, event.Attachments)
	assert.Equal(t, 0, event.MaxAttendees)
	assert.Equal(t, "org", event.Organizer)
}

// faultyStore fails the configured operations and otherwise behaves like the memory store.
type faultyStore struct {
	*repository.MemoryStudyEventRepository
	updateErr error
	updateNil bool
	deleteErr error
	onGet     func()
	hooked    atomic.Bool
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryStudyEventRepository: repository.NewMemoryStudyEventRepository()}
}

func (s *faultyStore) Get(ctx context.Context, id string) (*models.StudyEvent, error) {
	event, err := s.MemoryStudyEventRepository.Get(ctx, id)
	if s.onGet != nil && s.hooked.CompareAndSwap(false, true) {
		s.onGet()
	}
	return event, err
}

func (s *faultyStore) Update(ctx context.Context, event *models.StudyEvent) (*models.StudyEvent, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	if s.updateNil {
		return nil, nil
	}
	return s.MemoryStudyEventRepository.Update(ctx, event)
}

func (s *faultyStore) Delete(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.MemoryStudyEventRepository.Delete(ctx, id)
}

func TestDeleteEventStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	svc := NewEventLifecycleService(store, nil, fixedClock(testNow), time.UTC, 0, nil, nil, nil)
	event, err := svc.CreateEvent(ctx, validInput())
	require.NoError(t, err)

	store.deleteErr = errors.New("connection reset")
	assert.False(t, svc.DeleteEvent(ctx, event.ID))

	kept, err := store.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestUpdateEventStoreFailure(t *testing.T) {
	ctx := context.Background()
	title := "Backlog Grooming"

	t.Run("update error", func(t *testing.T) {
		store := newFaultyStore()
		svc := NewEventLifecycleService(store, nil, fixedClock(testNow), time.UTC, 0, nil, nil, nil)
		event, err := svc.CreateEvent(ctx, validInput())
		require.NoError(t, err)

		store.updateErr = errors.New("connection reset")
		assert.False(t, svc.UpdateEvent(ctx, event.ID, models.EventPatch{Title: &title}))
		assert.False(t, svc.AttachChannel(ctx, event.ID, "channel-42"))
	})

	t.Run("update returns nothing", func(t *testing.T) {
		store := newFaultyStore()
		svc := NewEventLifecycleService(store, nil, fixedClock(testNow), time.UTC, 0, nil, nil, nil)
		event, err := svc.CreateEvent(ctx, validInput())
		require.NoError(t, err)

		store.updateNil = true
		assert.False(t, svc.UpdateEvent(ctx, event.ID, models.EventPatch{Title: &title}))

		stored, err := store.Get(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, "Sprint Planning", stored.Title)
	})
}

func TestUpdateEventKeepsConcurrentRSVP(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	locks := NewEventLocks()
	svc := NewEventLifecycleService(store, locks, fixedClock(testNow), time.UTC, 0, nil, nil, nil)
	attendance := NewAttendanceService(store, locks, nil, nil, nil)

	event, err := svc.CreateEventWithOptions(ctx, validInput(), OptionalFields{OrganizerID: "org", MaxAttendees: 5})
	require.NoError(t, err)

	// The RSVP starts after the edit has read the event and before it writes.
	var outcome models.RSVPOutcome
	done := make(chan struct{})
	store.onGet = func() {
		started := make(chan struct{})
		go func() {
			close(started)
			outcome = attendance.AddAttendee(ctx, "u1", event.ID)
			close(done)
		}()
		<-started
		time.Sleep(20 * time.Millisecond)
	}

	title := "Backlog Grooming"
	require.True(t, svc.UpdateEvent(ctx, event.ID, models.EventPatch{Title: &title}))
	<-done

	assert.Equal(t, models.RSVPJoined, outcome.Status)
	stored, err := store.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, title, stored.Title)
	assert.Equal(t, models.StringList{"u1"}, stored.Attendees)
}
