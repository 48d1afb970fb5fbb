package models

import (
	"strings"
	"time"
)

// MaxTitleLength bounds study event titles.
const MaxTitleLength = 25

// EventTimeLayout is the strict local timestamp format accepted from callers.
const EventTimeLayout = "2006-01-02T15:04"

// StudyEventLocation enumerates where a study event can take place.
type StudyEventLocation string

const (
	LocationOnline        StudyEventLocation = "ONLINE"
	LocationSeattle       StudyEventLocation = "SEATTLE"
	LocationBoston        StudyEventLocation = "BOSTON"
	LocationPortland      StudyEventLocation = "PORTLAND"
	LocationSiliconValley StudyEventLocation = "SILICON_VALLEY"
)

// Locations lists every supported location in declaration order.
var Locations = []StudyEventLocation{
	LocationOnline,
	LocationSeattle,
	LocationBoston,
	LocationPortland,
	LocationSiliconValley,
}

// ParseLocation matches raw case-insensitively against the location enumeration.
func ParseLocation(raw string) (StudyEventLocation, bool) {
	candidate := StudyEventLocation(strings.ToUpper(strings.TrimSpace(raw)))
	for _, loc := range Locations {
		if loc == candidate {
			return loc, true
		}
	}
	return "", false
}

// StudyEventVisibility marks an event as publicly discoverable or invite only.
type StudyEventVisibility string

const (
	VisibilityPublic  StudyEventVisibility = "PUBLIC_EVENT"
	VisibilityPrivate StudyEventVisibility = "PRIVATE_EVENT"
)

// ParseVisibility accepts the stored form or the short PUBLIC/PRIVATE aliases.
func ParseVisibility(raw string) (StudyEventVisibility, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(VisibilityPublic), "PUBLIC":
		return VisibilityPublic, true
	case string(VisibilityPrivate), "PRIVATE":
		return VisibilityPrivate, true
	default:
		return "", false
	}
}

// StudyEvent is a scheduled study gathering.
type StudyEvent struct {
	ID           string               `db:"id" bson:"_id" json:"id"`
	Title        string               `db:"title" bson:"title" json:"title"`
	Start        time.Time            `db:"start_time" bson:"start" json:"start"`
	End          time.Time            `db:"end_time" bson:"end" json:"end"`
	Organizer    string               `db:"organizer" bson:"organizer" json:"organizer"`
	Location     StudyEventLocation   `db:"location" bson:"location" json:"location"`
	Visibility   StudyEventVisibility `db:"visibility" bson:"event_type" json:"visibility"`
	Description  string               `db:"description" bson:"description" json:"description"`
	ChannelID    string               `db:"channel_id" bson:"channel_id" json:"channel_id"`
	Attachments  StringList           `db:"attachments" bson:"attachment_files" json:"attachments"`
	MaxAttendees int                  `db:"max_attendees" bson:"max_attendees" json:"max_attendees"`
	Attendees    StringList           `db:"attendees" bson:"attendees" json:"attendees"`
	MaxWaitlist  int                  `db:"max_waitlist" bson:"max_waitlist" json:"max_waitlist"`
	Waitlist     StringList           `db:"waitlist" bson:"waitlist" json:"waitlist"`
	CreatedAt    time.Time            `db:"created_at" bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time            `db:"updated_at" bson:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (e *StudyEvent) Clone() *StudyEvent {
	if e == nil {
		return nil
	}
	out := *e
	out.Attachments = e.Attachments.Clone()
	out.Attendees = e.Attendees.Clone()
	out.Waitlist = e.Waitlist.Clone()
	return &out
}

// HasAttendee reports whether userID is on the attendee roster.
func (e *StudyEvent) HasAttendee(userID string) bool {
	for _, id := range e.Attendees {
		if id == userID {
			return true
		}
	}
	return false
}

// HasCapacity reports whether one more attendee fits. Zero means unlimited.
func (e *StudyEvent) HasCapacity() bool {
	return e.MaxAttendees == 0 || len(e.Attendees) < e.MaxAttendees
}

// StartedAt reports whether the event has started at the given instant.
func (e *StudyEvent) StartedAt(now time.Time) bool {
	return !e.Start.After(now)
}

// EventPatch carries one optional slot per editable field.
type EventPatch struct {
	Title    *string
	Start    *time.Time
	End      *time.Time
	Location *StudyEventLocation
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Start == nil && p.End == nil && p.Location == nil
}

// Apply writes every present slot onto the event.
func (p EventPatch) Apply(event *StudyEvent) {
	if p.Title != nil {
		event.Title = *p.Title
	}
	if p.Start != nil {
		event.Start = *p.Start
	}
	if p.End != nil {
		event.End = *p.End
	}
	if p.Location != nil {
		event.Location = *p.Location
	}
}

// StudyEventPeriod narrows listings to a relative time window.
type StudyEventPeriod string

const (
	PeriodThisWeek  StudyEventPeriod = "this_week"
	PeriodThisMonth StudyEventPeriod = "this_month"
)

// StudyEventFilter describes a listing query.
type StudyEventFilter struct {
	Organizer  string
	Visibility *StudyEventVisibility
	Location   *StudyEventLocation
	Period     StudyEventPeriod
}
