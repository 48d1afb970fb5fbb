package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IssueTokenRequest asks for an access token on behalf of a chat member.
type IssueTokenRequest struct {
	PlatformID string `json:"platform_id" validate:"required"`
}

// IssueTokenResponse returns a signed access token.
type IssueTokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
}

// JWTClaims represents the JWT payload for access tokens. UserID is the
// caller's opaque chat-platform identity.
type JWTClaims struct {
	UserID string        `json:"user_id"`
	Role   EventUserRole `json:"role"`
	Name   string        `json:"name"`
	jwt.RegisteredClaims
}
