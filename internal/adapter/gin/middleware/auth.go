package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-account-service/pkg/logger"
	"user-account-service/pkg/security"
)

// CookieName is the session cookie set on register and authenticate.
const CookieName = "jwt"

const ctxUserIDKey = "auth.userID"

// TokenVerifier validates a session token.
type TokenVerifier interface {
	Verify(token string) (*security.Claims, error)
}

// AuthMiddleware gates routes behind a valid session token.
type AuthMiddleware struct {
	tokens TokenVerifier
	log    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(tokens TokenVerifier, log *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, log: log}
}

// RequireAuth accepts a bearer token or the session cookie.
// The header wins when both are present.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			if cookie, err := c.Cookie(CookieName); err == nil {
				raw = cookie
			}
		}

		if raw == "" {
			abortUnauthorized(c, "Missing session token")
			return
		}

		claims, err := m.tokens.Verify(raw)
		if err != nil {
			logger.WithContext(c.Request.Context(), m.log).Debug("token rejected", zap.Error(err))
			abortUnauthorized(c, "Invalid or expired session token")
			return
		}

		SetUserID(c, claims.UserID())

		c.Next()
	}
}

// SetUserID records the authenticated caller on the gin and request contexts.
func SetUserID(c *gin.Context, id string) {
	c.Set(ctxUserIDKey, id)
	c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), id))
}

// UserIDFromContext returns the authenticated caller's id.
func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": msg,
	})
}
