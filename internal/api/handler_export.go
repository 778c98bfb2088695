package api

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"tally-backend/internal/model"
	"tally-backend/internal/tally"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportCenterCSV handles GET /api/centers/:center_id/export.csv: the
// center's leaderboard as CSV.
func (h *Handler) ExportCenterCSV(c *gin.Context) {
	view, err := h.tally.Center(c.Request.Context(), c.Param("center_id"))
	if err != nil {
		h.loadFailed(c, "center", err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"center_%s.csv\"", view.Center.CenterNumber))

	writer := csv.NewWriter(c.Writer)
	writer.Write([]string{"center_number", "center", "candidate", "party", "votes", "percentage"})
	for _, r := range view.Candidates {
		writer.Write([]string{
			view.Center.CenterNumber,
			view.Center.Name,
			r.Name,
			r.Party,
			strconv.Itoa(r.TotalVotes),
			strconv.FormatFloat(r.Percentage, 'f', 1, 64),
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.log.Warn("csv export interrupted", zap.Error(err))
	}
}

// ExportResultsXLSX handles GET /api/export/results.xlsx: the district
// leaderboard, ward totals and every center's counts as one workbook.
func (h *Handler) ExportResultsXLSX(c *gin.Context) {
	data, err := h.loadExport(c.Request.Context())
	if err != nil {
		h.loadFailed(c, "results", err)
		return
	}

	f, err := buildResultsWorkbook(data)
	if err != nil {
		h.loadFailed(c, "results", err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"results_%s.xlsx\"", h.now().Format("20060102")))
	if err := f.Write(c.Writer); err != nil {
		h.log.Warn("xlsx export interrupted", zap.Error(err))
	}
}

type exportData struct {
	candidates []model.Candidate
	wards      []model.Ward
	centers    []model.Center
	votes      []model.Vote
}

func (h *Handler) loadExport(ctx context.Context) (exportData, error) {
	var (
		d   exportData
		err error
	)
	if d.candidates, err = h.store.ListCandidates(ctx); err != nil {
		return d, err
	}
	if d.wards, err = h.store.ListWards(ctx, ""); err != nil {
		return d, err
	}
	if d.centers, err = h.store.ListCenters(ctx, ""); err != nil {
		return d, err
	}
	if d.votes, err = h.store.ListVotes(ctx); err != nil {
		return d, err
	}
	return d, nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func buildResultsWorkbook(d exportData) (*excelize.File, error) {
	f := excelize.NewFile()

	const candidatesSheet = "Candidates"
	if err := f.SetSheetName("Sheet1", candidatesSheet); err != nil {
		return nil, err
	}
	if err := setRow(f, candidatesSheet, 1, "Candidate", "Party", "Votes", "Percentage"); err != nil {
		return nil, err
	}
	for i, r := range tally.DistrictTotals(d.candidates, d.votes) {
		if err := setRow(f, candidatesSheet, i+2, r.Name, r.Party, r.TotalVotes, round1(r.Percentage)); err != nil {
			return nil, err
		}
	}

	const wardsSheet = "Wards"
	if _, err := f.NewSheet(wardsSheet); err != nil {
		return nil, err
	}
	if err := setRow(f, wardsSheet, 1, "Ward", "Votes", "Percentage", "Registered voters", "Turnout"); err != nil {
		return nil, err
	}
	registered := make(map[string]int, len(d.wards))
	for _, center := range d.centers {
		registered[center.WardID] += center.RegisteredVoters
	}
	for i, r := range tally.WardVoteTotals(d.wards, d.centers, d.votes) {
		turnout := round1(tally.Turnout(r.TotalVotes, registered[r.ID]))
		if err := setRow(f, wardsSheet, i+2, r.Name, r.TotalVotes, round1(r.Percentage), registered[r.ID], turnout); err != nil {
			return nil, err
		}
	}

	const centersSheet = "Centers"
	if _, err := f.NewSheet(centersSheet); err != nil {
		return nil, err
	}
	header := []any{"Center number", "Center", "Ward", "Registered voters"}
	for _, cand := range d.candidates {
		header = append(header, cand.Name)
	}
	header = append(header, "Total", "Turnout")
	if err := setRow(f, centersSheet, 1, header...); err != nil {
		return nil, err
	}

	wardNames := make(map[string]string, len(d.wards))
	for _, w := range d.wards {
		wardNames[w.ID] = w.Name
	}
	counts := make(map[string]map[string]int, len(d.votes))
	for _, v := range d.votes {
		counts[v.CenterID] = v.CountMap()
	}
	for i, center := range d.centers {
		row := []any{center.CenterNumber, center.Name, wardNames[center.WardID], center.RegisteredVoters}
		total := 0
		for _, cand := range d.candidates {
			n := counts[center.ID][cand.ID]
			total += n
			row = append(row, n)
		}
		row = append(row, total, round1(tally.Turnout(total, center.RegisteredVoters)))
		if err := setRow(f, centersSheet, i+2, row...); err != nil {
			return nil, err
		}
	}

	f.SetColWidth(candidatesSheet, "A", "A", 30)
	f.SetColWidth(wardsSheet, "A", "A", 30)
	f.SetColWidth(centersSheet, "B", "C", 30)
	return f, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
