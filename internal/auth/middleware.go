package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"pharmline/internal/config"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// RequireUser verifies a bearer token and injects the resolved identity into
// the request context.
func RequireUser(r *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tok := strings.TrimPrefix(raw, bearerPrefix)

		id, err := r.Resolve(tok, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// RequireConsole gates staff-console routes behind basic auth. When console
// credentials are not configured the whole surface answers 503 rather than
// letting anyone in or crashing the process.
func RequireConsole(cfg config.ConsoleConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Configured() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "console credentials not configured"})
			return
		}
		user, pass, ok := c.Request.BasicAuth()
		if !ok || !constEq(user, cfg.User) || !constEq(pass, cfg.Password) {
			c.Header("WWW-Authenticate", `Basic realm="console"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func constEq(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
