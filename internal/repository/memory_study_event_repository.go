package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/studybot/internal/models"
)

// MemoryStudyEventRepository is an in-process event store for local runs and tests.
// Stored events are copied on the way in and out.
type MemoryStudyEventRepository struct {
	mu     sync.RWMutex
	events map[string]*models.StudyEvent
	order  []string
}

// NewMemoryStudyEventRepository constructs an empty store.
func NewMemoryStudyEventRepository() *MemoryStudyEventRepository {
	return &MemoryStudyEventRepository{events: make(map[string]*models.StudyEvent)}
}

// Get returns a copy of the event or (nil, nil) when absent.
func (r *MemoryStudyEventRepository) Get(ctx context.Context, id string) (*models.StudyEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	event, ok := r.events[id]
	if !ok {
		return nil, nil
	}
	return event.Clone(), nil
}

// Add stores a copy of the event.
func (r *MemoryStudyEventRepository) Add(ctx context.Context, event *models.StudyEvent) (*models.StudyEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	if _, exists := r.events[event.ID]; !exists {
		r.order = append(r.order, event.ID)
	}
	r.events[event.ID] = event.Clone()
	return event, nil
}

// Update overwrites an existing event; (nil, nil) when the id is unknown.
func (r *MemoryStudyEventRepository) Update(ctx context.Context, event *models.StudyEvent) (*models.StudyEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; !ok {
		return nil, nil
	}
	event.UpdatedAt = time.Now().UTC()
	r.events[event.ID] = event.Clone()
	return event, nil
}

// Delete removes the event if present.
func (r *MemoryStudyEventRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return nil
	}
	delete(r.events, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns copies of all events in insertion order.
func (r *MemoryStudyEventRepository) List(ctx context.Context) ([]models.StudyEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.StudyEvent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.events[id].Clone())
	}
	return out, nil
}

// Count returns the number of stored events.
func (r *MemoryStudyEventRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events), nil
}
