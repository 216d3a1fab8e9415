package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hrdoc-assistant/internal/pkg/jwtutil"
	"hrdoc-assistant/internal/session"
	"hrdoc-assistant/internal/transport/http/response"
)

const (
	SessionCookieName   = "hrdoc_session"
	ContextSessionIDKey = "session_id"
)

type SessionResolver interface {
	Resolve(ctx context.Context, id string) (*session.Session, bool, error)
}

type SessionCookieConfig struct {
	Secret string
	TTL    time.Duration
	Secure bool
}

// Session binds every request to a conversation session carried in a signed
// cookie. A missing, forged or expired cookie starts a new session. The
// cookie is reissued once half its lifetime has passed.
func Session(resolver SessionResolver, cfg SessionCookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			sid       string
			expiresAt time.Time
		)
		if raw, err := c.Cookie(SessionCookieName); err == nil && raw != "" {
			if claims, parseErr := jwtutil.ParseToken(cfg.Secret, raw); parseErr == nil {
				sid = claims.SessionID
				if claims.ExpiresAt != nil {
					expiresAt = claims.ExpiresAt.Time
				}
			}
		}

		sess, created, err := resolver.Resolve(c.Request.Context(), sid)
		if err != nil {
			response.Error(c, http.StatusServiceUnavailable, response.CodeStoreUnavailable, "session store unavailable")
			c.Abort()
			return
		}

		if created || time.Until(expiresAt) < cfg.TTL/2 {
			token, err := jwtutil.GenerateToken(cfg.Secret, cfg.TTL, sess.ID)
			if err != nil {
				response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "issue session cookie failed")
				c.Abort()
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookieName, token, int(cfg.TTL.Seconds()), "/", "", cfg.Secure, true)
		}

		c.Set(ContextSessionIDKey, sess.ID)
		c.Next()
	}
}

func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionIDKey)
}
