package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studybot/internal/dto"
	"github.com/noah-isme/studybot/internal/models"
	"github.com/noah-isme/studybot/internal/service"
	appErrors "github.com/noah-isme/studybot/pkg/errors"
	"github.com/noah-isme/studybot/pkg/response"
)

type memberService interface {
	Verify(ctx context.Context, req service.VerifyRequest) (*models.EventUser, string, error)
	Get(ctx context.Context, platformID string) (*models.EventUser, error)
	List(ctx context.Context) ([]models.EventUser, error)
}

// UserHandler handles member verification endpoints.
type UserHandler struct {
	service memberService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc memberService) *UserHandler {
	return &UserHandler{service: svc}
}

// Verify godoc
// @Summary Verify the calling member
// @Description Registers the caller's university email and role
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.VerifyRequest true "Verification payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users/verify [post]
func (h *UserHandler) Verify(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	user, message, err := h.service.Verify(c.Request.Context(), service.VerifyRequest{
		PlatformID: claims.UserID,
		Name:       req.Name,
		Email:      req.Email,
		Role:       models.EventUserRole(req.Role),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.VerifyResponse{Message: message, User: user})
}

// Me godoc
// @Summary Get the caller's verification record
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	user, err := h.service.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// List godoc
// @Summary List verified members
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, users, &models.Pagination{Page: 1, PageSize: len(users), TotalCount: len(users)})
}
