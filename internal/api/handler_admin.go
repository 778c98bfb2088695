package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tally-backend/internal/auth"
	"tally-backend/internal/entry"
	"tally-backend/internal/model"
	"tally-backend/internal/parse"
	"tally-backend/internal/store"
	"tally-backend/internal/tally"
)

// rawCount accepts a count sent either as a JSON string or a JSON number and
// keeps its text, so numeric-only validation sees exactly what was typed.
type rawCount string

func (r *rawCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*r = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = rawCount(s)
	default:
		*r = rawCount(data)
	}
	return nil
}

type createDistrictRequest struct {
	Name string `json:"name"`
}

type createWardRequest struct {
	Name       string `json:"name"`
	DistrictID string `json:"districtId"`
}

type createCenterRequest struct {
	Name             string   `json:"name"`
	CenterNumber     string   `json:"centerNumber"`
	WardID           string   `json:"wardId"`
	RegisteredVoters rawCount `json:"registeredVoters"`
}

type createCandidateRequest struct {
	Name  string `json:"name"`
	Party string `json:"party"`
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// CreateDistrict handles POST /api/admin/districts.
func (h *Handler) CreateDistrict(c *gin.Context) {
	var req createDistrictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		badRequest(c, "Please enter a district name.")
		return
	}

	district := model.District{Name: strings.TrimSpace(req.Name)}
	if err := h.store.CreateDistrict(c.Request.Context(), &district); err != nil {
		h.saveFailed(c, "district", err)
		return
	}
	h.log.Info("district added", zap.String("id", district.ID), zap.String("name", district.Name))
	c.JSON(http.StatusCreated, district)
}

// CreateWard handles POST /api/admin/wards.
func (h *Handler) CreateWard(c *gin.Context) {
	var req createWardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.DistrictID == "" {
		badRequest(c, "Please enter a ward name and select a district.")
		return
	}

	ward := model.Ward{Name: strings.TrimSpace(req.Name), DistrictID: req.DistrictID}
	if err := h.store.CreateWard(c.Request.Context(), &ward); err != nil {
		h.saveFailed(c, "ward", err)
		return
	}
	h.log.Info("ward added", zap.String("id", ward.ID), zap.String("district_id", ward.DistrictID))
	c.JSON(http.StatusCreated, ward)
}

// CreateCenter handles POST /api/admin/centers.
func (h *Handler) CreateCenter(c *gin.Context) {
	var req createCenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.CenterNumber) == "" || req.WardID == "" {
		badRequest(c, "Please enter center name, center number, and select a ward.")
		return
	}
	registered, err := parse.ParseCount(string(req.RegisteredVoters))
	if err != nil {
		badRequest(c, "Registered voters must contain digits only.")
		return
	}

	center := model.Center{
		Name:             strings.TrimSpace(req.Name),
		CenterNumber:     strings.TrimSpace(req.CenterNumber),
		WardID:           req.WardID,
		RegisteredVoters: registered,
	}
	if err := h.store.CreateCenter(c.Request.Context(), &center); err != nil {
		h.saveFailed(c, "center", err)
		return
	}
	h.log.Info("center added", zap.String("id", center.ID), zap.String("ward_id", center.WardID))
	c.JSON(http.StatusCreated, center)
}

// CreateCandidate handles POST /api/admin/candidates.
func (h *Handler) CreateCandidate(c *gin.Context) {
	var req createCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Party) == "" {
		badRequest(c, "Please enter candidate name and party.")
		return
	}

	candidate := model.Candidate{Name: strings.TrimSpace(req.Name), Party: strings.TrimSpace(req.Party)}
	if err := h.store.CreateCandidate(c.Request.Context(), &candidate); err != nil {
		h.saveFailed(c, "candidate", err)
		return
	}
	h.log.Info("candidate added", zap.String("id", candidate.ID), zap.String("name", candidate.Name))
	c.JSON(http.StatusCreated, candidate)
}

// VoteFormResponse is the vote-entry form for one center.
type VoteFormResponse struct {
	State       string            `json:"state"`
	Center      model.Center      `json:"center"`
	Candidates  []model.Candidate `json:"candidates"`
	Counts      map[string]int    `json:"counts"`
	Total       int               `json:"total"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	TotalError  string            `json:"totalError,omitempty"`
	CanSave     bool              `json:"canSave"`
	Vote        *tally.VoteInfo   `json:"vote"`
	Results     []tally.Result    `json:"results"`
}

func formResponse(f *entry.Form) VoteFormResponse {
	resp := VoteFormResponse{
		State:       f.State().String(),
		Center:      f.Center(),
		Candidates:  f.Candidates(),
		Counts:      f.Counts(),
		Total:       f.Total(),
		FieldErrors: f.FieldErrors(),
		TotalError:  f.TotalError(),
		CanSave:     f.CanSave(),
		Results:     tally.CenterTotals(f.Candidates(), f.Vote()),
	}
	if len(resp.FieldErrors) == 0 {
		resp.FieldErrors = nil
	}
	if v := f.Vote(); v != nil {
		resp.Vote = &tally.VoteInfo{ID: v.ID, SubmittedAt: v.SubmittedAt, UpdatedAt: v.UpdatedAt}
	}
	return resp
}

// GetVoteForm handles GET /api/admin/centers/:center_id/votes.
func (h *Handler) GetVoteForm(c *gin.Context) {
	form := entry.NewForm(h.store)
	if err := form.Select(c.Request.Context(), c.Param("center_id")); err != nil {
		h.loadFailed(c, "center", err)
		return
	}
	c.JSON(http.StatusOK, formResponse(form))
}

type putVotesRequest struct {
	Counts map[string]rawCount `json:"counts" binding:"required"`
}

// PutVotes handles PUT /api/admin/centers/:center_id/votes. It answers 201
// when the center's record was created and 200 when it was updated.
// Candidates missing from the body keep their stored count, or 0 when the
// center has no record yet.
func (h *Handler) PutVotes(c *gin.Context) {
	var req putVotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	ctx := c.Request.Context()
	centerID := c.Param("center_id")
	form := entry.NewForm(h.store)
	if err := form.Select(ctx, centerID); err != nil {
		h.loadFailed(c, "center", err)
		return
	}

	raw := make(map[string]string, len(req.Counts))
	for id, v := range req.Counts {
		raw[id] = string(v)
	}
	// Field problems are recorded on the form and reported below.
	_ = form.SetCounts(raw)

	created, err := form.Save(ctx, h.now())
	var verr *tally.ValidationError
	switch {
	case errors.As(err, &verr):
		h.metrics.VotesSaved.WithLabelValues("invalid").Inc()
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "Invalid vote counts",
			"fields": verr.Fields,
			"total":  verr.Total,
		})
		return
	case errors.Is(err, entry.ErrSaveFailed):
		h.metrics.VotesSaved.WithLabelValues("failed").Inc()
		h.saveFailed(c, "votes", err)
		return
	case errors.Is(err, store.ErrNotFound):
		h.loadFailed(c, "center", err)
		return
	case err != nil:
		// The write went through but the reload did not.
		h.metrics.VotesSaved.WithLabelValues("failed").Inc()
		h.loadFailed(c, "votes", err)
		return
	}

	result, status := "updated", http.StatusOK
	if created {
		result, status = "created", http.StatusCreated
	}
	h.metrics.VotesSaved.WithLabelValues(result).Inc()

	fields := []zap.Field{zap.String("center_id", centerID), zap.String("result", result), zap.Int("total", form.Total())}
	if session, ok := auth.FromContext(ctx); ok {
		fields = append(fields, zap.String("session_id", session.ID))
	}
	h.log.Info("votes saved", fields...)

	c.JSON(status, formResponse(form))
}
