package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studybot/internal/middleware"
	"github.com/noah-isme/studybot/internal/models"
	appErrors "github.com/noah-isme/studybot/pkg/errors"
	"github.com/noah-isme/studybot/pkg/response"
)

// requireClaims returns the caller claims or writes a 401 and reports false.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}
