package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studybot/internal/models"
)

const studyEventColumns = `id, title, start_time, end_time, organizer, location, visibility, description, channel_id,
attachments, max_attendees, attendees, max_waitlist, waitlist, created_at, updated_at`

// StudyEventRepository persists study events in PostgreSQL.
type StudyEventRepository struct {
	db *sqlx.DB
}

// NewStudyEventRepository constructs a PostgreSQL backed event store.
func NewStudyEventRepository(db *sqlx.DB) *StudyEventRepository {
	return &StudyEventRepository{db: db}
}

// Get fetches an event by id. A missing event yields (nil, nil).
func (r *StudyEventRepository) Get(ctx context.Context, id string) (*models.StudyEvent, error) {
	query := fmt.Sprintf("SELECT %s FROM study_events WHERE id = $1", studyEventColumns)
	var event models.StudyEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get study event: %w", err)
	}
	return &event, nil
}

// Add inserts a new event, assigning an id when absent.
func (r *StudyEventRepository) Add(ctx context.Context, event *models.StudyEvent) (*models.StudyEvent, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	const query = `INSERT INTO study_events (id, title, start_time, end_time, organizer, location, visibility, description, channel_id,
attachments, max_attendees, attendees, max_waitlist, waitlist, created_at, updated_at)
VALUES (:id, :title, :start_time, :end_time, :organizer, :location, :visibility, :description, :channel_id,
:attachments, :max_attendees, :attendees, :max_waitlist, :waitlist, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return nil, fmt.Errorf("create study event: %w", err)
	}
	return event, nil
}

// Update overwrites the stored event. It returns (nil, nil) when no row matched.
func (r *StudyEventRepository) Update(ctx context.Context, event *models.StudyEvent) (*models.StudyEvent, error) {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE study_events SET title = :title, start_time = :start_time, end_time = :end_time, organizer = :organizer,
location = :location, visibility = :visibility, description = :description, channel_id = :channel_id, attachments = :attachments,
max_attendees = :max_attendees, attendees = :attendees, max_waitlist = :max_waitlist, waitlist = :waitlist, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return nil, fmt.Errorf("update study event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update study event rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return event, nil
}

// Delete removes an event.
func (r *StudyEventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM study_events WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete study event: %w", err)
	}
	return nil
}

// List returns every stored event.
func (r *StudyEventRepository) List(ctx context.Context) ([]models.StudyEvent, error) {
	query := fmt.Sprintf("SELECT %s FROM study_events", studyEventColumns)
	var events []models.StudyEvent
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list study events: %w", err)
	}
	return events, nil
}

// Count returns the number of stored events.
func (r *StudyEventRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM study_events"); err != nil {
		return 0, fmt.Errorf("count study events: %w", err)
	}
	return total, nil
}
