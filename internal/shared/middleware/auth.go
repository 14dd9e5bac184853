package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/crewboard/server/internal/shared/response"
	"github.com/gin-gonic/gin"
)

const (
	// AuthorizationHeader is the header key for authorization.
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens.
	BearerPrefix = "Bearer "
	// IdentityIDKey is the context key for the authenticated identity id.
	IdentityIDKey = "identity_id"
)

// TokenVerifier verifies a session token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RequireAuth returns a middleware that rejects requests without a valid
// session token and stores the subject under IdentityIDKey.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, "authorization header required")
			return
		}

		subject, err := verifier.Verify(token)
		if err != nil || subject == "" {
			response.Abort(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		c.Set(IdentityIDKey, subject)
		c.Next()
	}
}

// RequireAdminToken guards operational endpoints with a static bearer
// token. An empty token disables the guarded routes.
func RequireAdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			response.Abort(c, http.StatusNotFound, "not found")
			return
		}
		got := extractBearerToken(c)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			response.Abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if !strings.HasPrefix(authHeader, BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
}

// IdentityID returns the authenticated identity id, or "".
func IdentityID(c *gin.Context) string {
	return c.GetString(IdentityIDKey)
}
