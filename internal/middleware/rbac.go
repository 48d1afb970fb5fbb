package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studybot/internal/models"
	appErrors "github.com/noah-isme/studybot/pkg/errors"
	"github.com/noah-isme/studybot/pkg/response"
)

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...models.EventUserRole) gin.HandlerFunc {
	allowedRoles := make(map[models.EventUserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedRoles[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowedRoles[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
