package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tally-backend/internal/auth"
	"tally-backend/internal/metrics"
	"tally-backend/internal/store"
	"tally-backend/internal/tally"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	tally   *tally.Service
	auth    *auth.Manager
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time

	// SecureCookies marks the admin cookie Secure; set when served over TLS.
	SecureCookies bool
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, am *auth.Manager, m *metrics.Metrics, log *zap.Logger) *Handler {
	if m == nil {
		m = metrics.Nop()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		store:   s,
		tally:   tally.NewService(s, m),
		auth:    am,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// loadFailed answers a failed read. Missing entities are 404; anything else
// is logged and reported as the generic load error.
func (h *Handler) loadFailed(c *gin.Context, what string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	h.log.Error("error loading data", zap.String("what", what), zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Error loading data"})
}

// saveFailed answers a failed write with the generic save error for what.
func (h *Handler) saveFailed(c *gin.Context, what string, err error) {
	h.log.Error("error saving "+what, zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Error saving " + what})
}
