package dto

import "github.com/noah-isme/studybot/internal/models"

// AttachChannelRequest binds the chat channel created for an event.
type AttachChannelRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
}

// InviteRequest names the member to invite.
type InviteRequest struct {
	InviteeID string `json:"invitee_id" binding:"required"`
}

// MessageResponse carries a user-facing reply.
type MessageResponse struct {
	Message string `json:"message"`
}

// EventMessageResponse pairs the affected event with the reply text.
type EventMessageResponse struct {
	Message string             `json:"message"`
	Event   *models.StudyEvent `json:"event,omitempty"`
}

// EventListQuery captures listing query parameters.
type EventListQuery struct {
	Location   string `form:"location"`
	Period     string `form:"period"`
	Visibility string `form:"visibility"`
}

// VerifyRequest is the verification payload submitted by a member.
type VerifyRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

// VerifyResponse returns the stored member with the welcome reply.
type VerifyResponse struct {
	Message string            `json:"message"`
	User    *models.EventUser `json:"user"`
}
