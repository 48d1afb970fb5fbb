package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studybot/internal/models"
	"github.com/noah-isme/studybot/internal/repository"
	appErrors "github.com/noah-isme/studybot/pkg/errors"
)

type failingUserRepo struct{}

func (failingUserRepo) FindByPlatformID(context.Context, string) (*models.EventUser, error) {
	return nil, errors.New("connection reset")
}

func (failingUserRepo) Create(context.Context, *models.EventUser) error {
	return errors.New("connection reset")
}

func (failingUserRepo) List(context.Context) ([]models.EventUser, error) {
	return nil, errors.New("connection reset")
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryEventUserRepository()
	svc := NewUserService(repo, VerificationPolicy{}, nil, nil)

	user, msg, err := svc.Verify(ctx, VerifyRequest{
		PlatformID: "u1",
		Name:       "Ada",
		Email:      " ada.lovelace@northeastern.edu ",
		Role:       "student",
	})
	require.NoError(t, err)
	assert.Equal(t, "Welcome Ada!, you are successfully verified.", msg)
	assert.Equal(t, models.EventUserRoleStudent, user.Role)
	assert.Equal(t, "ada.lovelace@northeastern.edu", user.Email)
	assert.NotEmpty(t, user.ID)

	_, _, err = svc.Verify(ctx, VerifyRequest{PlatformID: "u1", Name: "Ada", Email: "ada.lovelace@northeastern.edu", Role: "STUDENT"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, "You are already verified!", errMessage(t, err))

	assert.True(t, svc.IsVerified(ctx, "u1"))
	assert.False(t, svc.IsVerified(ctx, "u2"))

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestVerifyRejectsEmail(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repository.NewMemoryEventUserRepository(), VerificationPolicy{}, nil, nil)

	for _, email := range []string{"a@northeastern.edu", "someone.long@gmail.com", "ada.lovelace@northeastern.edu.evil"} {
		_, _, err := svc.Verify(ctx, VerifyRequest{PlatformID: "u1", Name: "Ada", Email: email, Role: "STAFF"})
		assert.Equal(t, "Email is invalid(< 20 characters) or doesn't end with @northeastern.edu", errMessage(t, err), email)
	}
}

func TestVerifyCustomPolicy(t *testing.T) {
	svc := NewUserService(repository.NewMemoryEventUserRepository(), VerificationPolicy{EmailDomain: "@uni.test", MinEmailLength: 5}, nil, nil)

	_, _, err := svc.Verify(context.Background(), VerifyRequest{PlatformID: "u1", Name: "Ada", Email: "a@uni.test", Role: "STAFF"})
	require.NoError(t, err)

	_, _, err = svc.Verify(context.Background(), VerifyRequest{PlatformID: "u2", Name: "Bob", Email: "bob@northeastern.edu", Role: "STAFF"})
	assert.Equal(t, "Email is invalid(< 5 characters) or doesn't end with @uni.test", errMessage(t, err))
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(repository.NewMemoryEventUserRepository(), VerificationPolicy{}, nil, nil)
	_, _, err := svc.Verify(context.Background(), VerifyRequest{PlatformID: "u1", Name: "Ada", Email: "ada.lovelace@northeastern.edu", Role: "ADMIN"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestUserServiceRepositoryFailures(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(failingUserRepo{}, VerificationPolicy{}, nil, nil)

	_, _, err := svc.Verify(ctx, VerifyRequest{PlatformID: "u1", Name: "Ada", Email: "ada.lovelace@northeastern.edu", Role: "STUDENT"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Equal(t, "Something went wrong, please try again later.", errMessage(t, err))

	assert.False(t, svc.IsVerified(ctx, "u1"))

	_, err = svc.Get(ctx, "u1")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestGetUnverified(t *testing.T) {
	svc := NewUserService(repository.NewMemoryEventUserRepository(), VerificationPolicy{}, nil, nil)
	_, err := svc.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, appErrors.ErrNotVerified)
}
