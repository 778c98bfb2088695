package mw

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tally-backend/internal/auth"
	"tally-backend/internal/model"
)

// SessionVerifier checks a request token against the server-side session.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (model.Session, error)
}

// RequireSession admits only requests carrying a valid admin session and puts
// that session into the request context.
func RequireSession(v SessionVerifier, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := v.Verify(c.Request.Context(), auth.TokenFromRequest(c.Request))
		if err != nil {
			if errors.Is(err, auth.ErrInvalidSession) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			log.Error("session lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Error loading data"})
			return
		}

		c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), session))
		c.Next()
	}
}
