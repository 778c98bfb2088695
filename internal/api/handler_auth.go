package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tally-backend/internal/auth"
)

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

// SessionResponse describes the caller's admin session.
type SessionResponse struct {
	ID        string    `json:"id"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login handles POST /api/admin/login. The token is returned in the body and
// set as the admin cookie.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Please enter the admin password.")
		return
	}

	token, session, err := h.auth.Login(c.Request.Context(), req.Password, c.ClientIP())
	if errors.Is(err, auth.ErrInvalidPassword) {
		h.metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		h.log.Warn("admin login rejected", zap.String("client_ip", c.ClientIP()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}
	if err != nil {
		h.metrics.LoginAttempts.WithLabelValues("error").Inc()
		h.saveFailed(c, "session", err)
		return
	}

	h.metrics.LoginAttempts.WithLabelValues("success").Inc()
	h.log.Info("admin login", zap.String("session_id", session.ID), zap.String("client_ip", c.ClientIP()))

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, token, int(h.auth.TTL().Seconds()), "/", "", h.SecureCookies, true)
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": session.ExpiresAt,
	})
}

// Logout handles POST /api/admin/logout.
func (h *Handler) Logout(c *gin.Context) {
	err := h.auth.Logout(c.Request.Context(), auth.TokenFromRequest(c.Request))
	if err != nil && !errors.Is(err, auth.ErrInvalidSession) {
		h.saveFailed(c, "session", err)
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", h.SecureCookies, true)
	c.Status(http.StatusNoContent)
}

// GetSession handles GET /api/admin/session.
func (h *Handler) GetSession(c *gin.Context) {
	session, ok := auth.FromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, SessionResponse{
		ID:        session.ID,
		IssuedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
	})
}
