package middleware

import (
	"strconv"

	"github.com/architect/chess-trainer/internal/common/errors"
	"github.com/gin-gonic/gin"
)

// AuthRequired middleware resolves the acting learner from the session
// cookie or the Authorization header.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for session cookie first
		session, err := c.Cookie("session_id")
		if err == nil && session != "" {
			c.Set("learner_id", session)
			c.Next()
			return
		}

		// Check for token in Authorization header
		token := c.GetHeader("Authorization")
		if token != "" {
			c.Set("learner_id", token)
			c.Next()
			return
		}

		appErr := errors.Unauthorized("missing or invalid authentication")
		c.JSON(appErr.Status, appErr)
		c.Abort()
	}
}

// OptionalAuth does not fail if credentials are missing, but resolves them if present.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := c.Cookie("session_id")
		if err == nil && session != "" {
			c.Set("learner_id", session)
		} else {
			token := c.GetHeader("Authorization")
			if token != "" {
				c.Set("learner_id", token)
			}
		}
		c.Next()
	}
}

// LearnerID extracts the numeric learner ID set by the auth middleware.
// Returns 1 (the demo learner) when unauthenticated or unparsable, so the
// trainer stays usable without an identity provider.
func LearnerID(c *gin.Context) uint {
	raw := c.GetString("learner_id")
	if raw == "" {
		return 1
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 1
	}
	return uint(id)
}
