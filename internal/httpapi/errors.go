package httpapi

import (
	"errors"
	"net/http"

	"pharmline/internal/auth"
	"pharmline/internal/callqueue"
	"pharmline/internal/telephony"

	"github.com/gin-gonic/gin"
)

// writeError maps internal sentinel errors to HTTP responses. This is the
// only place status codes are chosen; services below the HTTP layer speak
// sentinels.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, callqueue.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrUnauthenticated):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	case errors.Is(err, callqueue.ErrPermissionDenied):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, callqueue.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, callqueue.ErrUnavailable), errors.Is(err, telephony.ErrNotConfigured):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error": "service temporarily unavailable",
			"hint":  "the call backend is over capacity or not configured; retry shortly",
		})
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
