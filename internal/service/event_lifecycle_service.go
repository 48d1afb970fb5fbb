package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studybot/internal/models"
	appErrors "github.com/noah-isme/studybot/pkg/errors"
)

// EventStore is the key-value persistence every engine reads and writes through.
// Get and Update return a nil event (and nil error) when the id is unknown.
type EventStore interface {
	Get(ctx context.Context, id string) (*models.StudyEvent, error)
	Add(ctx context.Context, event *models.StudyEvent) (*models.StudyEvent, error)
	Update(ctx context.Context, event *models.StudyEvent) (*models.StudyEvent, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.StudyEvent, error)
	Count(ctx context.Context) (int, error)
}

type listingInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// DefaultMaxAttendees is applied to new events when the caller gives none.
const DefaultMaxAttendees = 100

const (
	msgTitleTooLong     = "Error: Event title must not exceed 25 characters."
	msgInvalidDate      = "Error: Invalid date format. Please use the format YYYY-MM-DDTHH:MM."
	msgStartAfterEnd    = "Error: Start date cannot be greater than end date."
	msgInvalidLocation  = "Error: Invalid location, please enter a valid location."
	msgInvalidType      = "Error: Event visibility must be PUBLIC_EVENT or PRIVATE_EVENT."
	msgMaxAttendees     = "Error: Maximum attendees must be a positive integer."
	msgEditTitle        = "Error: Title length should be less than 25 characters"
	msgEditStart        = "Error: Invalid start time format or start date must be before end date of the event."
	msgEditEnd          = "Error: Invalid end time format and also end time must be after the start time."
	listingCachePattern = "events:*"
)

// CreateEventInput carries the mandatory creation parameters.
type CreateEventInput struct {
	Title      string                      `validate:"required"`
	Start      time.Time                   `validate:"required"`
	End        time.Time                   `validate:"required"`
	Location   models.StudyEventLocation   `validate:"location"`
	Visibility models.StudyEventVisibility `validate:"visibility"`
}

// OptionalFields are the caller-validated extras set after construction.
type OptionalFields struct {
	Description  string
	Attachments  []string
	OrganizerID  string
	MaxAttendees int
}

// EditRequest holds raw edit values. A nil slot means the field is not being changed.
type EditRequest struct {
	Title     *string `json:"title"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Location  *string `json:"location"`
}

// EventLifecycleService owns creation, edit, and deletion rules for study events.
type EventLifecycleService struct {
	store               EventStore
	locks               *EventLocks
	clock               Clock
	location            *time.Location
	defaultMaxAttendees int
	validator           *validator.Validate
	cache               listingInvalidator
	logger              *zap.Logger
}

// NewEventLifecycleService constructs the lifecycle engine. locks must be the
// table shared with the attendance engine; nil creates a private one.
func NewEventLifecycleService(store EventStore, locks *EventLocks, clock Clock, loc *time.Location, defaultMaxAttendees int, validate *validator.Validate, cache listingInvalidator, logger *zap.Logger) *EventLifecycleService {
	if locks == nil {
		locks = NewEventLocks()
	}
	if clock == nil {
		clock = NewSystemClock(loc)
	}
	if loc == nil {
		loc = time.Local
	}
	if defaultMaxAttendees <= 0 {
		defaultMaxAttendees = DefaultMaxAttendees
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerEventValidations(validate)
	return &EventLifecycleService{
		store:               store,
		locks:               locks,
		clock:               clock,
		location:            loc,
		defaultMaxAttendees: defaultMaxAttendees,
		validator:           validate,
		cache:               cache,
		logger:              logger,
	}
}

func registerEventValidations(validate *validator.Validate) {
	_ = validate.RegisterValidation("location", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseLocation(fl.Field().String())
		return ok
	})
	_ = validate.RegisterValidation("visibility", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseVisibility(fl.Field().String())
		return ok
	})
}

// ParseEventTime parses raw strictly as YYYY-MM-DDTHH:MM in the engine's location.
func (s *EventLifecycleService) ParseEventTime(raw string) (time.Time, error) {
	return ParseEventTime(raw, s.location)
}

// ParseEventTime parses raw strictly as YYYY-MM-DDTHH:MM in loc.
func ParseEventTime(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(models.EventTimeLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, msgInvalidDate)
	}
	return t, nil
}

// BuildEvent validates the input and returns an unsaved event with creation defaults.
func (s *EventLifecycleService) BuildEvent(input CreateEventInput) (*models.StudyEvent, error) {
	if utf8.RuneCountInString(input.Title) > models.MaxTitleLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, msgTitleTooLong)
	}
	if err := s.validator.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			switch fieldErrs[0].Tag() {
			case "location":
				return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, msgInvalidLocation)
			case "visibility":
				return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, msgInvalidType)
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if !input.Start.Before(input.End) {
		return nil, appErrors.Clone(appErrors.ErrValidation, msgStartAfterEnd)
	}
	location, _ := models.ParseLocation(string(input.Location))
	visibility, _ := models.ParseVisibility(string(input.Visibility))
	return &models.StudyEvent{
		Title:        input.Title,
		Start:        input.Start,
		End:          input.End,
		Location:     location,
		Visibility:   visibility,
		Attachments:  models.StringList{},
		MaxAttendees: s.defaultMaxAttendees,
		Attendees:    models.StringList{},
		Waitlist:     models.StringList{},
	}, nil
}

// CreateEvent validates, assigns an id and persists a new event with default capacity.
func (s *EventLifecycleService) CreateEvent(ctx context.Context, input CreateEventInput) (*models.StudyEvent, error) {
	event, err := s.BuildEvent(input)
	if err != nil {
		return nil, err
	}
	return s.persistNew(ctx, event)
}

// CreateEventWithOptions builds the event, applies caller-validated extras, then persists it.
func (s *EventLifecycleService) CreateEventWithOptions(ctx context.Context, input CreateEventInput, opts OptionalFields) (*models.StudyEvent, error) {
	if opts.MaxAttendees <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, msgMaxAttendees)
	}
	event, err := s.BuildEvent(input)
	if err != nil {
		return nil, err
	}
	SetOptionalFields(event, opts.Description, opts.Attachments, opts.OrganizerID, opts.MaxAttendees)
	return s.persistNew(ctx, event)
}

func (s *EventLifecycleService) persistNew(ctx context.Context, event *models.StudyEvent) (*models.StudyEvent, error) {
	saved, err := s.store.Add(ctx, event)
	if err != nil {
		s.logger.Error("failed to persist study event", zap.String("title", event.Title), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Failed to create event.")
	}
	s.invalidateListings(ctx)
	s.logger.Info("study event created", zap.String("event_id", saved.ID), zap.String("organizer", saved.Organizer))
	return saved, nil
}

// SetOptionalFields overwrites description, attachments, organizer and capacity without validation.
func SetOptionalFields(event *models.StudyEvent, description string, attachments []string, organizerID string, maxAttendees int) {
	event.Description = description
	event.Attachments = models.StringList(attachments).Clone()
	event.Organizer = organizerID
	event.MaxAttendees = maxAttendees
}

// GetEvent resolves an event; (nil, nil) when it does not exist.
func (s *EventLifecycleService) GetEvent(ctx context.Context, id string) (*models.StudyEvent, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	event, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// IsStarted reports whether the event's start is at or before now. Unknown events are not started.
func (s *EventLifecycleService) IsStarted(ctx context.Context, id string) bool {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		s.logger.Warn("start check could not load event", zap.String("event_id", id), zap.Error(err))
		return false
	}
	if event == nil {
		return false
	}
	return event.StartedAt(s.clock.Now())
}

// DeleteEvent removes a not-yet-started event. Started, missing, or failed deletions report false.
func (s *EventLifecycleService) DeleteEvent(ctx context.Context, id string) bool {
	unlock := s.locks.Lock(id)
	defer unlock()

	if s.IsStarted(ctx, id) {
		return false
	}
	event, err := s.GetEvent(ctx, id)
	if err != nil || event == nil {
		return false
	}
	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Error("unable to delete study event", zap.String("event_id", id), zap.Error(err))
		return false
	}
	s.invalidateListings(ctx)
	s.logger.Info("study event deleted", zap.String("event_id", id))
	return true
}

// ValidatePatch applies the edit rules against event and returns the typed patch.
// Start and end are checked against the simultaneously edited counterpart when it
// parses, otherwise against the stored value.
func (s *EventLifecycleService) ValidatePatch(event *models.StudyEvent, req EditRequest) (models.EventPatch, error) {
	var patch models.EventPatch

	if req.Title != nil {
		title := *req.Title
		if title == "" || utf8.RuneCountInString(title) > models.MaxTitleLength {
			return models.EventPatch{}, appErrors.Clone(appErrors.ErrValidation, msgEditTitle)
		}
		patch.Title = &title
	}

	var newStart, newEnd *time.Time
	if req.StartTime != nil {
		if t, err := s.ParseEventTime(*req.StartTime); err == nil {
			newStart = &t
		}
	}
	if req.EndTime != nil {
		if t, err := s.ParseEventTime(*req.EndTime); err == nil {
			newEnd = &t
		}
	}

	if req.StartTime != nil {
		effectiveEnd := event.End
		if newEnd != nil {
			effectiveEnd = *newEnd
		}
		if newStart == nil || effectiveEnd.IsZero() || !newStart.Before(effectiveEnd) {
			return models.EventPatch{}, appErrors.Clone(appErrors.ErrValidation, msgEditStart)
		}
		patch.Start = newStart
	}

	if req.EndTime != nil {
		effectiveStart := event.Start
		if newStart != nil {
			effectiveStart = *newStart
		}
		if newEnd == nil || effectiveStart.IsZero() || !effectiveStart.Before(*newEnd) {
			return models.EventPatch{}, appErrors.Clone(appErrors.ErrValidation, msgEditEnd)
		}
		patch.End = newEnd
	}

	if req.Location != nil {
		loc, ok := models.ParseLocation(*req.Location)
		if !ok {
			return models.EventPatch{}, appErrors.Clone(appErrors.ErrValidation, msgInvalidLocation)
		}
		patch.Location = &loc
	}

	if patch.Empty() {
		return models.EventPatch{}, appErrors.ErrNoUpdates
	}
	return patch, nil
}

// UpdateEvent applies every present patch slot and persists the event.
// It reports true only when the store returned the updated event.
func (s *EventLifecycleService) UpdateEvent(ctx context.Context, id string, patch models.EventPatch) bool {
	unlock := s.locks.Lock(id)
	defer unlock()

	event, err := s.GetEvent(ctx, id)
	if err != nil {
		s.logger.Error("update could not load event", zap.String("event_id", id), zap.Error(err))
		return false
	}
	if event == nil {
		return false
	}
	patch.Apply(event)
	updated, err := s.store.Update(ctx, event)
	if err != nil {
		s.logger.Error("failed to update study event", zap.String("event_id", id), zap.Error(err))
		return false
	}
	if updated == nil {
		return false
	}
	s.invalidateListings(ctx)
	return true
}

// AttachChannel records the communication channel created for the event.
func (s *EventLifecycleService) AttachChannel(ctx context.Context, id, channelID string) bool {
	unlock := s.locks.Lock(id)
	defer unlock()

	event, err := s.GetEvent(ctx, id)
	if err != nil || event == nil {
		return false
	}
	event.ChannelID = channelID
	updated, err := s.store.Update(ctx, event)
	if err != nil {
		s.logger.Error("failed to attach channel", zap.String("event_id", id), zap.Error(err))
		return false
	}
	return updated != nil
}

func (s *EventLifecycleService) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, listingCachePattern); err != nil {
		s.logger.Warn("listing cache invalidation failed", zap.Error(err))
	}
}
