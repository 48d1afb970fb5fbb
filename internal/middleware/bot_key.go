package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/studybot/pkg/errors"
	"github.com/noah-isme/studybot/pkg/response"
)

// BotKeyHeader carries the shared secret of the chat bot process.
const BotKeyHeader = "X-Bot-Key"

// BotKey admits only requests presenting the configured bot secret.
// An empty secret rejects every request.
func BotKey(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(BotKeyHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid bot key"))
			c.Abort()
			return
		}
		c.Next()
	}
}
