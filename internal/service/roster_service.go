package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/studybot/internal/models"
	appErrors "github.com/noah-isme/studybot/pkg/errors"
	"github.com/noah-isme/studybot/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// RosterExport is a rendered attendee list ready to be served.
type RosterExport struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// RosterService renders the attendee roster of an event.
type RosterService struct {
	events  EventStore
	members memberLookup
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewRosterService constructs a RosterService. Nil renderers fall back to the pkg/export defaults.
func NewRosterService(events EventStore, members memberLookup, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &RosterService{events: events, members: members, csv: csv, pdf: pdf, logger: logger}
}

// Export renders the roster for eventID. Only the organizer and staff may export.
func (s *RosterService) Export(ctx context.Context, requester *models.JWTClaims, eventID string, format export.Format) (*RosterExport, error) {
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Event not found.")
	}
	if requester == nil || (requester.UserID != event.Organizer && requester.Role != models.EventUserRoleStaff) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the organizer or staff can export the roster")
	}

	dataset := s.buildDataset(ctx, event)

	var payload []byte
	switch format {
	case export.FormatCSV:
		payload, err = s.csv.Render(dataset)
	case export.FormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}
	if err != nil {
		s.logger.Error("roster render failed", zap.String("event_id", eventID), zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	return &RosterExport{
		Filename:    fmt.Sprintf("roster-%s.%s", slug(event.Title), format.Extension()),
		ContentType: format.ContentType(),
		Payload:     payload,
	}, nil
}

func (s *RosterService) buildDataset(ctx context.Context, event *models.StudyEvent) export.Dataset {
	capacity := "unlimited"
	if event.MaxAttendees > 0 {
		capacity = strconv.Itoa(event.MaxAttendees)
	}
	dataset := export.Dataset{
		Title:    event.Title,
		Subtitle: fmt.Sprintf("%s | %s | %d/%s attending", event.Start.Format(models.EventTimeLayout), event.Location, len(event.Attendees), capacity),
		Footer:   fmt.Sprintf("Organizer %s", event.Organizer),
		Headers:  []string{"No", "Member", "Name", "Role"},
		Widths:   []float64{0.5, 2, 2, 1},
	}
	for i, id := range event.Attendees {
		name, role := "", ""
		if s.members != nil {
			member, err := s.members.FindByPlatformID(ctx, id)
			if err != nil {
				s.logger.Warn("roster member lookup failed", zap.String("platform_id", id), zap.Error(err))
			} else if member != nil {
				name, role = member.Name, string(member.Role)
			}
		}
		dataset.AddRow(strconv.Itoa(i+1), id, name, role)
	}
	return dataset
}

func slug(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "event"
	}
	return out
}
