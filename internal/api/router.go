package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tally-backend/config"
	"tally-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router. Public reads are rate
// limited and cached; admin writes require a session and flush the cache.
func NewRouter(h *Handler, cfg *config.Config, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(h.log))
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		h.log.Warn("ignoring trusted proxies", zap.Error(err))
	}
	h.SecureCookies = cfg.Server.Mode == gin.ReleaseMode

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	responseCache := mw.NewResponseCache(cfg.Server.CacheTTL)
	caching := responseCache.Middleware()

	r.GET("/healthz", h.Healthz)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/dashboard", caching, h.GetDashboard)
		api.GET("/districts", caching, h.GetDistricts)
		api.GET("/wards", caching, h.GetWards)
		api.GET("/wards/:ward_id", caching, h.GetWard)
		api.GET("/centers", caching, h.GetCenters)
		api.GET("/centers/:center_id", caching, h.GetCenter)
		api.GET("/centers/:center_id/export.csv", caching, h.ExportCenterCSV)
		api.GET("/candidates", caching, h.GetCandidates)
		api.GET("/candidates/:candidate_id", caching, h.GetCandidate)
		api.GET("/export/results.xlsx", caching, h.ExportResultsXLSX)
	}

	admin := api.Group("/admin")
	{
		admin.POST("/login", mw.PerMinute(cfg.Admin.LoginRatePerMin), h.Login)
		admin.POST("/logout", h.Logout)
	}

	protected := admin.Group("")
	protected.Use(mw.RequireSession(h.auth, h.log), responseCache.FlushOnWrite())
	{
		protected.GET("/session", h.GetSession)
		protected.POST("/districts", h.CreateDistrict)
		protected.POST("/wards", h.CreateWard)
		protected.POST("/centers", h.CreateCenter)
		protected.POST("/candidates", h.CreateCandidate)
		protected.GET("/centers/:center_id/votes", h.GetVoteForm)
		protected.PUT("/centers/:center_id/votes", h.PutVotes)
	}

	return r
}
