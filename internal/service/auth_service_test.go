package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studybot/internal/models"
	"github.com/noah-isme/studybot/internal/repository"
	appErrors "github.com/noah-isme/studybot/pkg/errors"
)

func newTestAuth(t *testing.T, now *time.Time) (*AuthService, *repository.MemoryEventUserRepository) {
	t.Helper()
	members := repository.NewMemoryEventUserRepository()
	clock := ClockFunc(func() time.Time { return *now })
	svc := NewAuthService(members, clock, nil, nil, AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "studybot-test",
	})
	return svc, members
}

func TestIssueTokenForUnverifiedMember(t *testing.T) {
	now := testNow
	svc, _ := newTestAuth(t, &now)

	resp, err := svc.IssueToken(context.Background(), models.IssueTokenRequest{PlatformID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, testNow, resp.IssuedAt)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.EventUserRoleStudent, claims.Role)
	assert.Equal(t, "studybot-test", claims.Issuer)
}

func TestIssueTokenCarriesVerifiedRole(t *testing.T) {
	now := testNow
	svc, members := newTestAuth(t, &now)
	require.NoError(t, members.Create(context.Background(), &models.EventUser{
		PlatformID: "staff-1",
		Name:       "Grace",
		Role:       models.EventUserRoleStaff,
		Email:      "grace.hopper@northeastern.edu",
	}))

	resp, err := svc.IssueToken(context.Background(), models.IssueTokenRequest{PlatformID: "staff-1"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.EventUserRoleStaff, claims.Role)
	assert.Equal(t, "Grace", claims.Name)
}

func TestIssueTokenRequiresPlatformID(t *testing.T) {
	now := testNow
	svc, _ := newTestAuth(t, &now)
	_, err := svc.IssueToken(context.Background(), models.IssueTokenRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	now := testNow
	svc, _ := newTestAuth(t, &now)
	resp, err := svc.IssueToken(context.Background(), models.IssueTokenRequest{PlatformID: "u1"})
	require.NoError(t, err)

	now = testNow.Add(2 * time.Hour)
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	now := testNow
	svc, _ := newTestAuth(t, &now)
	other := NewAuthService(nil, fixedClock(testNow), nil, nil, AuthConfig{AccessTokenSecret: "another-secret"})

	resp, err := other.IssueToken(context.Background(), models.IssueTokenRequest{PlatformID: "u1"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
