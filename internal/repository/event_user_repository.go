package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studybot/internal/models"
)

// EventUserRepository persists verified members in PostgreSQL.
type EventUserRepository struct {
	db *sqlx.DB
}

// NewEventUserRepository constructs the repository.
func NewEventUserRepository(db *sqlx.DB) *EventUserRepository {
	return &EventUserRepository{db: db}
}

// FindByPlatformID returns the verified member or (nil, nil).
func (r *EventUserRepository) FindByPlatformID(ctx context.Context, platformID string) (*models.EventUser, error) {
	const query = `SELECT id, platform_id, name, role, email, created_at FROM event_users WHERE platform_id = $1`
	var user models.EventUser
	if err := r.db.GetContext(ctx, &user, query, platformID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find event user: %w", err)
	}
	return &user, nil
}

// Create inserts a verified member.
func (r *EventUserRepository) Create(ctx context.Context, user *models.EventUser) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO event_users (id, platform_id, name, role, email, created_at)
VALUES (:id, :platform_id, :name, :role, :email, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create event user: %w", err)
	}
	return nil
}

// List returns all verified members ordered by name.
func (r *EventUserRepository) List(ctx context.Context) ([]models.EventUser, error) {
	const query = `SELECT id, platform_id, name, role, email, created_at FROM event_users ORDER BY name ASC`
	var users []models.EventUser
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list event users: %w", err)
	}
	return users, nil
}

// MemoryEventUserRepository keeps verified members in process.
type MemoryEventUserRepository struct {
	mu    sync.RWMutex
	users []models.EventUser
}

// NewMemoryEventUserRepository constructs an empty member store.
func NewMemoryEventUserRepository() *MemoryEventUserRepository {
	return &MemoryEventUserRepository{}
}

// FindByPlatformID returns the member or (nil, nil).
func (r *MemoryEventUserRepository) FindByPlatformID(ctx context.Context, platformID string) (*models.EventUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.PlatformID == platformID {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

// Create appends the member.
func (r *MemoryEventUserRepository) Create(ctx context.Context, user *models.EventUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.users = append(r.users, *user)
	return nil
}

// List returns a copy of all members.
func (r *MemoryEventUserRepository) List(ctx context.Context) ([]models.EventUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.EventUser, len(r.users))
	copy(out, r.users)
	return out, nil
}
