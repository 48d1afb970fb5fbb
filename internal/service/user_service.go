package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studybot/internal/models"
	appErrors "github.com/noah-isme/studybot/pkg/errors"
)

const (
	msgAlreadyVerified = "You are already verified!"
	msgVerifyFailed    = "Something went wrong, please try again later."
	msgVerifyWelcome   = "Welcome %s!, you are successfully verified."
	msgInvalidEmail    = "Email is invalid(< %d characters) or doesn't end with %s"
)

type eventUserRepository interface {
	FindByPlatformID(ctx context.Context, platformID string) (*models.EventUser, error)
	Create(ctx context.Context, user *models.EventUser) error
	List(ctx context.Context) ([]models.EventUser, error)
}

// VerifyRequest carries a member's self-declared email and role.
type VerifyRequest struct {
	PlatformID string               `json:"-" validate:"required"`
	Name       string               `json:"name" validate:"required"`
	Email      string               `json:"email" validate:"required"`
	Role       models.EventUserRole `json:"role" validate:"required,oneof=STUDENT STAFF"`
}

// VerificationPolicy sets the accepted email shape.
type VerificationPolicy struct {
	EmailDomain    string
	MinEmailLength int
}

// UserService verifies chat members and answers verification lookups.
type UserService struct {
	repo      eventUserRepository
	policy    VerificationPolicy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo eventUserRepository, policy VerificationPolicy, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if policy.EmailDomain == "" {
		policy.EmailDomain = "@northeastern.edu"
	}
	if policy.MinEmailLength <= 0 {
		policy.MinEmailLength = 20
	}
	return &UserService{repo: repo, policy: policy, validator: validate, logger: logger}
}

func (s *UserService) invalidEmailMessage() string {
	return fmt.Sprintf(msgInvalidEmail, s.policy.MinEmailLength, s.policy.EmailDomain)
}

// Verify records a member after checking the email. It returns the welcome message.
func (s *UserService) Verify(ctx context.Context, req VerifyRequest) (*models.EventUser, string, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Role = models.EventUserRole(strings.ToUpper(string(req.Role)))
	if err := s.validator.Struct(req); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}
	if !s.validEmail(req.Email) {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, s.invalidEmailMessage())
	}

	existing, err := s.repo.FindByPlatformID(ctx, req.PlatformID)
	if err != nil {
		s.logger.Error("verification lookup failed", zap.String("platform_id", req.PlatformID), zap.Error(err))
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msgVerifyFailed)
	}
	if existing != nil {
		return existing, "", appErrors.Clone(appErrors.ErrConflict, msgAlreadyVerified)
	}

	user := &models.EventUser{
		PlatformID: req.PlatformID,
		Name:       req.Name,
		Role:       req.Role,
		Email:      req.Email,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		s.logger.Error("failed to store verified member", zap.String("platform_id", req.PlatformID), zap.Error(err))
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msgVerifyFailed)
	}
	s.logger.Info("member verified", zap.String("platform_id", user.PlatformID), zap.String("role", string(user.Role)))
	return user, fmt.Sprintf(msgVerifyWelcome, user.Name), nil
}

func (s *UserService) validEmail(email string) bool {
	return len(email) >= s.policy.MinEmailLength &&
		strings.HasSuffix(strings.ToLower(email), strings.ToLower(s.policy.EmailDomain))
}

// Get returns the verification record for platformID or ErrNotVerified.
func (s *UserService) Get(ctx context.Context, platformID string) (*models.EventUser, error) {
	user, err := s.repo.FindByPlatformID(ctx, platformID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load member")
	}
	if user == nil {
		return nil, appErrors.ErrNotVerified
	}
	return user, nil
}

// IsVerified reports whether platformID has a verification record.
func (s *UserService) IsVerified(ctx context.Context, platformID string) bool {
	user, err := s.repo.FindByPlatformID(ctx, platformID)
	if err != nil {
		s.logger.Warn("verification check failed", zap.String("platform_id", platformID), zap.Error(err))
		return false
	}
	return user != nil
}

// List returns every verified member.
func (s *UserService) List(ctx context.Context) ([]models.EventUser, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, nil
}
