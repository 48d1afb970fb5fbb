package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/studybot/internal/models"
)

// MongoStudyEventRepository keeps study events as documents keyed by id.
type MongoStudyEventRepository struct {
	col *mongo.Collection
}

// NewMongoStudyEventRepository wraps a collection as an event store.
func NewMongoStudyEventRepository(col *mongo.Collection) *MongoStudyEventRepository {
	return &MongoStudyEventRepository{col: col}
}

// Get fetches an event by id. A missing document yields (nil, nil).
func (r *MongoStudyEventRepository) Get(ctx context.Context, id string) (*models.StudyEvent, error) {
	var event models.StudyEvent
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&event); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find study event %s: %w", id, err)
	}
	return &event, nil
}

// Add inserts the event document.
func (r *MongoStudyEventRepository) Add(ctx context.Context, event *models.StudyEvent) (*models.StudyEvent, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, event); err != nil {
		return nil, fmt.Errorf("insert study event: %w", err)
	}
	return event, nil
}

// Update replaces the stored document. It returns (nil, nil) when nothing matched.
func (r *MongoStudyEventRepository) Update(ctx context.Context, event *models.StudyEvent) (*models.StudyEvent, error) {
	event.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": event.ID}, event)
	if err != nil {
		return nil, fmt.Errorf("replace study event %s: %w", event.ID, err)
	}
	if res.MatchedCount == 0 {
		return nil, nil
	}
	return event, nil
}

// Delete removes the document.
func (r *MongoStudyEventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete study event %s: %w", id, err)
	}
	return nil
}

// List returns every event document.
func (r *MongoStudyEventRepository) List(ctx context.Context) ([]models.StudyEvent, error) {
	cursor, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find study events: %w", err)
	}
	var events []models.StudyEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode study events: %w", err)
	}
	return events, nil
}

// Count returns the number of documents.
func (r *MongoStudyEventRepository) Count(ctx context.Context) (int, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count study events: %w", err)
	}
	return int(n), nil
}

// MongoEventUserRepository keeps verified members in a document collection.
type MongoEventUserRepository struct {
	col *mongo.Collection
}

// NewMongoEventUserRepository wraps a collection as a member store.
func NewMongoEventUserRepository(col *mongo.Collection) *MongoEventUserRepository {
	return &MongoEventUserRepository{col: col}
}

// FindByPlatformID returns the member or (nil, nil).
func (r *MongoEventUserRepository) FindByPlatformID(ctx context.Context, platformID string) (*models.EventUser, error) {
	var user models.EventUser
	if err := r.col.FindOne(ctx, bson.M{"discord_id": platformID}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find event user: %w", err)
	}
	return &user, nil
}

// Create inserts the member document.
func (r *MongoEventUserRepository) Create(ctx context.Context, user *models.EventUser) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if _, err := r.col.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("insert event user: %w", err)
	}
	return nil
}

// List returns every member sorted by name.
func (r *MongoEventUserRepository) List(ctx context.Context) ([]models.EventUser, error) {
	cursor, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find event users: %w", err)
	}
	var users []models.EventUser
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode event users: %w", err)
	}
	return users, nil
}
