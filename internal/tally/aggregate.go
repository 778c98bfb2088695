// Package tally turns raw per-center vote records into leaderboards,
// ward breakdowns and turnout figures.
//
// The aggregation functions are pure: they take fully loaded collections and
// recompute every figure from scratch. Service wraps them with the store reads
// each view needs.
package tally

import (
	"sort"

	"tally-backend/internal/model"
)

// Result is one row of an aggregation: a candidate or a ward with its vote
// total and that total's share of the grand total.
type Result struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Party      string  `json:"party,omitempty"`
	TotalVotes int     `json:"totalVotes"`
	Percentage float64 `json:"percentage"`
}

// DistrictTotals sums every vote record per candidate across the district.
func DistrictTotals(candidates []model.Candidate, votes []model.Vote) []Result {
	totals := make(map[string]int)
	grand := 0
	for _, v := range votes {
		for _, c := range v.Counts {
			totals[c.CandidateID] += c.Count
			grand += c.Count
		}
	}
	return candidateResults(candidates, totals, grand)
}

// WardTotals is DistrictTotals restricted to the votes of centers in wardID.
func WardTotals(wardID string, candidates []model.Candidate, centers []model.Center, votes []model.Vote) []Result {
	inWard := make(map[string]bool)
	for _, c := range centers {
		if c.WardID == wardID {
			inWard[c.ID] = true
		}
	}

	wardVotes := make([]model.Vote, 0, len(votes))
	for _, v := range votes {
		if inWard[v.CenterID] {
			wardVotes = append(wardVotes, v)
		}
	}
	return DistrictTotals(candidates, wardVotes)
}

// CenterTotals takes a center's single vote record as the per-candidate
// totals. A nil record yields zero for every candidate.
func CenterTotals(candidates []model.Candidate, vote *model.Vote) []Result {
	var totals map[string]int
	grand := 0
	if vote != nil {
		totals = vote.CountMap()
		grand = vote.Total()
	}
	return candidateResults(candidates, totals, grand)
}

// CandidateByWard breaks one candidate's votes down by ward. Every ward is
// listed, including those with no votes. Votes whose center is unknown are
// skipped. The bool is false when candidateID is not a known candidate.
func CandidateByWard(candidateID string, candidates []model.Candidate, wards []model.Ward, centers []model.Center, votes []model.Vote) ([]Result, bool) {
	if !hasCandidate(candidates, candidateID) {
		return nil, false
	}

	centerWard := centerWards(centers)
	totals := make(map[string]int, len(wards))
	grand := 0
	for _, v := range votes {
		wardID, ok := centerWard[v.CenterID]
		if !ok {
			continue
		}
		n := v.CountMap()[candidateID]
		totals[wardID] += n
		grand += n
	}
	return wardResults(wards, totals, grand), true
}

// WardVoteTotals sums all candidates' votes per ward, for turnout-style
// figures rather than candidate shares.
func WardVoteTotals(wards []model.Ward, centers []model.Center, votes []model.Vote) []Result {
	centerWard := centerWards(centers)
	totals := make(map[string]int, len(wards))
	grand := 0
	for _, v := range votes {
		wardID, ok := centerWard[v.CenterID]
		if !ok {
			continue
		}
		n := v.Total()
		totals[wardID] += n
		grand += n
	}
	return wardResults(wards, totals, grand)
}

// Turnout is votes as a percentage of registered; 0 when nobody is registered.
func Turnout(votes, registered int) float64 {
	if registered <= 0 {
		return 0
	}
	return float64(votes) / float64(registered) * 100
}

// Share is part as a percentage of whole; 0 when whole is 0.
func Share(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// SumTotals adds up the TotalVotes of every row.
func SumTotals(results []Result) int {
	sum := 0
	for _, r := range results {
		sum += r.TotalVotes
	}
	return sum
}

// RegisteredVoters sums the registered voters of the given centers.
func RegisteredVoters(centers []model.Center) int {
	sum := 0
	for _, c := range centers {
		sum += c.RegisteredVoters
	}
	return sum
}

func candidateResults(candidates []model.Candidate, totals map[string]int, grand int) []Result {
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, Result{
			ID:         c.ID,
			Name:       c.Name,
			Party:      c.Party,
			TotalVotes: totals[c.ID],
			Percentage: Share(totals[c.ID], grand),
		})
	}
	sortByVotes(results)
	return results
}

func wardResults(wards []model.Ward, totals map[string]int, grand int) []Result {
	results := make([]Result, 0, len(wards))
	for _, w := range wards {
		results = append(results, Result{
			ID:         w.ID,
			Name:       w.Name,
			TotalVotes: totals[w.ID],
			Percentage: Share(totals[w.ID], grand),
		})
	}
	sortByVotes(results)
	return results
}

// sortByVotes orders rows by descending total; ties keep their input order.
func sortByVotes(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalVotes > results[j].TotalVotes
	})
}

func centerWards(centers []model.Center) map[string]string {
	m := make(map[string]string, len(centers))
	for _, c := range centers {
		m[c.ID] = c.WardID
	}
	return m
}

func hasCandidate(candidates []model.Candidate, id string) bool {
	for _, c := range candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}
