package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"hrdoc-assistant/internal/transport/http/response"
)

type AdminChecker interface {
	IsAdmin(ctx context.Context, sessionID string) (bool, error)
}

// RequireAdmin admits only sessions that have passed the admin login.
func RequireAdmin(checker AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := checker.IsAdmin(c.Request.Context(), SessionID(c))
		if err != nil {
			response.Error(c, http.StatusServiceUnavailable, response.CodeStoreUnavailable, "session store unavailable")
			c.Abort()
			return
		}
		if !ok {
			response.Error(c, http.StatusForbidden, response.CodeAdminRequired, "admin login required")
			c.Abort()
			return
		}
		c.Next()
	}
}
