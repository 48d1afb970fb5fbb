package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS study_events (
	id TEXT PRIMARY KEY,
	title VARCHAR(25) NOT NULL,
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL,
	organizer TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL,
	visibility TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	channel_id TEXT NOT NULL DEFAULT '',
	attachments TEXT[] NOT NULL DEFAULT '{}',
	max_attendees INTEGER NOT NULL DEFAULT 100,
	attendees TEXT[] NOT NULL DEFAULT '{}',
	max_waitlist INTEGER NOT NULL DEFAULT 0,
	waitlist TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CHECK (start_time < end_time)
)`,
	`CREATE INDEX IF NOT EXISTS idx_study_events_organizer_start ON study_events (organizer, start_time)`,
	`CREATE TABLE IF NOT EXISTS event_users (
	id TEXT PRIMARY KEY,
	platform_id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	email TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`,
}

// Migrate creates the tables used by the PostgreSQL store.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
