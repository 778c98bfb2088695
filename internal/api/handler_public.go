package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tally-backend/internal/model"
)

// WardItem is a ward in a list, with the number of centers it groups.
type WardItem struct {
	model.Ward
	CenterCount int `json:"centerCount"`
}

// GetDashboard handles GET /api/dashboard.
func (h *Handler) GetDashboard(c *gin.Context) {
	view, err := h.tally.Dashboard(c.Request.Context())
	if err != nil {
		h.loadFailed(c, "dashboard", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetDistricts handles GET /api/districts.
func (h *Handler) GetDistricts(c *gin.Context) {
	districts, err := h.store.ListDistricts(c.Request.Context())
	if err != nil {
		h.loadFailed(c, "districts", err)
		return
	}
	c.JSON(http.StatusOK, districts)
}

// GetWards handles GET /api/wards?district_id=&search=&page=&size=.
func (h *Handler) GetWards(c *gin.Context) {
	ctx := c.Request.Context()
	wards, err := h.store.ListWards(ctx, c.Query("district_id"))
	if err != nil {
		h.loadFailed(c, "wards", err)
		return
	}
	centers, err := h.store.ListCenters(ctx, "")
	if err != nil {
		h.loadFailed(c, "centers", err)
		return
	}

	perWard := make(map[string]int, len(wards))
	for _, center := range centers {
		perWard[center.WardID]++
	}

	search := c.Query("search")
	items := make([]WardItem, 0, len(wards))
	for _, w := range wards {
		if matches(search, w.Name) {
			items = append(items, WardItem{Ward: w, CenterCount: perWard[w.ID]})
		}
	}
	c.JSON(http.StatusOK, paginate(c, items))
}

// GetWard handles GET /api/wards/:ward_id.
func (h *Handler) GetWard(c *gin.Context) {
	view, err := h.tally.Ward(c.Request.Context(), c.Param("ward_id"))
	if err != nil {
		h.loadFailed(c, "ward", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetCenters handles GET /api/centers?ward_id=&search=&page=&size=. The
// search matches the center name or number.
func (h *Handler) GetCenters(c *gin.Context) {
	centers, err := h.store.ListCenters(c.Request.Context(), c.Query("ward_id"))
	if err != nil {
		h.loadFailed(c, "centers", err)
		return
	}

	search := c.Query("search")
	items := make([]model.Center, 0, len(centers))
	for _, center := range centers {
		if matches(search, center.Name, center.CenterNumber) {
			items = append(items, center)
		}
	}
	c.JSON(http.StatusOK, paginate(c, items))
}

// GetCenter handles GET /api/centers/:center_id.
func (h *Handler) GetCenter(c *gin.Context) {
	view, err := h.tally.Center(c.Request.Context(), c.Param("center_id"))
	if err != nil {
		h.loadFailed(c, "center", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetCandidates handles GET /api/candidates: every candidate with their
// district-wide total, highest first.
func (h *Handler) GetCandidates(c *gin.Context) {
	results, err := h.tally.CandidateTotals(c.Request.Context())
	if err != nil {
		h.loadFailed(c, "candidates", err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// GetCandidate handles GET /api/candidates/:candidate_id.
func (h *Handler) GetCandidate(c *gin.Context) {
	view, err := h.tally.Candidate(c.Request.Context(), c.Param("candidate_id"))
	if err != nil {
		h.loadFailed(c, "candidate", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Healthz handles GET /healthz by pinging the database.
func (h *Handler) Healthz(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
