package models

import "time"

// EventUserRole distinguishes students from staff.
type EventUserRole string

const (
	EventUserRoleStudent EventUserRole = "STUDENT"
	EventUserRoleStaff   EventUserRole = "STAFF"
)

// EventUser is a verified chat member.
type EventUser struct {
	ID         string        `db:"id" bson:"_id" json:"id"`
	PlatformID string        `db:"platform_id" bson:"discord_id" json:"platform_id"`
	Name       string        `db:"name" bson:"name" json:"name"`
	Role       EventUserRole `db:"role" bson:"role" json:"role"`
	Email      string        `db:"email" bson:"email" json:"email"`
	CreatedAt  time.Time     `db:"created_at" bson:"created_at" json:"created_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
