package tally

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"tally-backend/internal/metrics"
	"tally-backend/internal/model"
	"tally-backend/internal/store"
)

// topCentersLimit caps the per-candidate center ranking.
const topCentersLimit = 10

// Reader is the part of the store the read views need.
type Reader interface {
	ListCandidates(ctx context.Context) ([]model.Candidate, error)
	ListWards(ctx context.Context, districtID string) ([]model.Ward, error)
	ListCenters(ctx context.Context, wardID string) ([]model.Center, error)
	ListVotes(ctx context.Context) ([]model.Vote, error)
	GetWard(ctx context.Context, id string) (model.Ward, error)
	GetCenter(ctx context.Context, id string) (model.Center, error)
	GetCandidate(ctx context.Context, id string) (model.Candidate, error)
	GetVote(ctx context.Context, centerID string) (model.Vote, error)
}

// Service loads the collections each view needs and aggregates them.
type Service struct {
	reader  Reader
	metrics *metrics.Metrics
}

// NewService creates a read service. A nil m disables metrics.
func NewService(r Reader, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.Nop()
	}
	return &Service{reader: r, metrics: m}
}

// DashboardView is the district-wide overview.
type DashboardView struct {
	Candidates       []Result `json:"candidates"`
	Wards            []Result `json:"wards"`
	TotalVotes       int      `json:"totalVotes"`
	RegisteredVoters int      `json:"registeredVoters"`
	Turnout          float64  `json:"turnout"`
	CenterCount      int      `json:"centerCount"`
	ReportedCenters  int      `json:"reportedCenters"`
}

// CenterRow is one center inside a ward view.
type CenterRow struct {
	model.Center
	TotalVotes int     `json:"totalVotes"`
	Turnout    float64 `json:"turnout"`
	Reported   bool    `json:"reported"`
}

// WardView is the per-ward page.
type WardView struct {
	Ward             model.Ward  `json:"ward"`
	Candidates       []Result    `json:"candidates"`
	Centers          []CenterRow `json:"centers"`
	TotalVotes       int         `json:"totalVotes"`
	RegisteredVoters int         `json:"registeredVoters"`
	Turnout          float64     `json:"turnout"`
}

// VoteInfo describes a center's stored record.
type VoteInfo struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submittedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CenterView is the per-center page.
type CenterView struct {
	Center     model.Center `json:"center"`
	WardName   string       `json:"wardName,omitempty"`
	Candidates []Result     `json:"candidates"`
	TotalVotes int          `json:"totalVotes"`
	Turnout    float64      `json:"turnout"`
	Vote       *VoteInfo    `json:"vote"`
}

// WardShare is one ward's row in a candidate view.
type WardShare struct {
	Result
	RegisteredVoters int     `json:"registeredVoters"`
	Turnout          float64 `json:"turnout"`
}

// CenterVotes ranks a center by one candidate's votes.
type CenterVotes struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Votes int    `json:"votes"`
}

// CandidateView is the per-candidate page.
type CandidateView struct {
	Candidate        model.Candidate `json:"candidate"`
	TotalVotes       int             `json:"totalVotes"`
	Share            float64         `json:"share"`
	RegisteredVoters int             `json:"registeredVoters"`
	Turnout          float64         `json:"turnout"`
	Wards            []WardShare     `json:"wards"`
	TopCenters       []CenterVotes   `json:"topCenters"`
}

// collections is what a view fetched. Only the requested fields are filled.
type collections struct {
	candidates []model.Candidate
	wards      []model.Ward
	centers    []model.Center
	votes      []model.Vote
}

type need int

const (
	needCandidates need = 1 << iota
	needWards
	needCenters
	needVotes
)

// load fetches the requested collections concurrently and waits for all of them.
func (s *Service) load(ctx context.Context, n need, extra ...func(context.Context) error) (collections, error) {
	var c collections
	g, gctx := errgroup.WithContext(ctx)

	if n&needCandidates != 0 {
		g.Go(func() (err error) {
			c.candidates, err = s.reader.ListCandidates(gctx)
			return err
		})
	}
	if n&needWards != 0 {
		g.Go(func() (err error) {
			c.wards, err = s.reader.ListWards(gctx, "")
			return err
		})
	}
	if n&needCenters != 0 {
		g.Go(func() (err error) {
			c.centers, err = s.reader.ListCenters(gctx, "")
			return err
		})
	}
	if n&needVotes != 0 {
		g.Go(func() (err error) {
			c.votes, err = s.reader.ListVotes(gctx)
			return err
		})
	}
	for _, fn := range extra {
		fn := fn
		g.Go(func() error { return fn(gctx) })
	}

	if err := g.Wait(); err != nil {
		return collections{}, err
	}
	return c, nil
}

func (s *Service) observe(view string, start time.Time) {
	s.metrics.AggregationDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
}

// CandidateTotals returns the district-wide candidate leaderboard.
func (s *Service) CandidateTotals(ctx context.Context) ([]Result, error) {
	defer s.observe("candidate_totals", time.Now())

	c, err := s.load(ctx, needCandidates|needVotes)
	if err != nil {
		return nil, fmt.Errorf("load district totals: %w", err)
	}
	return DistrictTotals(c.candidates, c.votes), nil
}

// Dashboard builds the district overview.
func (s *Service) Dashboard(ctx context.Context) (DashboardView, error) {
	defer s.observe("dashboard", time.Now())

	c, err := s.load(ctx, needCandidates|needWards|needCenters|needVotes)
	if err != nil {
		return DashboardView{}, fmt.Errorf("load dashboard: %w", err)
	}

	candidates := DistrictTotals(c.candidates, c.votes)
	total := SumTotals(candidates)
	registered := RegisteredVoters(c.centers)

	known := make(map[string]bool, len(c.centers))
	for _, center := range c.centers {
		known[center.ID] = true
	}
	reported := 0
	for _, v := range c.votes {
		if known[v.CenterID] {
			reported++
		}
	}

	return DashboardView{
		Candidates:       candidates,
		Wards:            WardVoteTotals(c.wards, c.centers, c.votes),
		TotalVotes:       total,
		RegisteredVoters: registered,
		Turnout:          Turnout(total, registered),
		CenterCount:      len(c.centers),
		ReportedCenters:  reported,
	}, nil
}

// Ward builds the view for one ward. Unknown wards return store.ErrNotFound.
func (s *Service) Ward(ctx context.Context, wardID string) (WardView, error) {
	defer s.observe("ward", time.Now())

	var ward model.Ward
	c, err := s.load(ctx, needCandidates|needCenters|needVotes, func(ctx context.Context) (err error) {
		ward, err = s.reader.GetWard(ctx, wardID)
		return err
	})
	if err != nil {
		return WardView{}, fmt.Errorf("load ward %s: %w", wardID, err)
	}

	totalsByCenter := make(map[string]int, len(c.votes))
	for _, v := range c.votes {
		totalsByCenter[v.CenterID] = v.Total()
	}

	rows := make([]CenterRow, 0)
	registered := 0
	for _, center := range c.centers {
		if center.WardID != wardID {
			continue
		}
		n, reported := totalsByCenter[center.ID]
		rows = append(rows, CenterRow{
			Center:     center,
			TotalVotes: n,
			Turnout:    Turnout(n, center.RegisteredVoters),
			Reported:   reported,
		})
		registered += center.RegisteredVoters
	}

	candidates := WardTotals(wardID, c.candidates, c.centers, c.votes)
	total := SumTotals(candidates)
	return WardView{
		Ward:             ward,
		Candidates:       candidates,
		Centers:          rows,
		TotalVotes:       total,
		RegisteredVoters: registered,
		Turnout:          Turnout(total, registered),
	}, nil
}

// Center builds the view for one center. Unknown centers return
// store.ErrNotFound; a center without a record shows zero for everyone.
func (s *Service) Center(ctx context.Context, centerID string) (CenterView, error) {
	defer s.observe("center", time.Now())

	var (
		center model.Center
		vote   *model.Vote
	)
	c, err := s.load(ctx, needCandidates|needWards,
		func(ctx context.Context) (err error) {
			center, err = s.reader.GetCenter(ctx, centerID)
			return err
		},
		func(ctx context.Context) error {
			v, err := s.reader.GetVote(ctx, centerID)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			vote = &v
			return nil
		},
	)
	if err != nil {
		return CenterView{}, fmt.Errorf("load center %s: %w", centerID, err)
	}

	view := CenterView{
		Center:     center,
		Candidates: CenterTotals(c.candidates, vote),
	}
	for _, w := range c.wards {
		if w.ID == center.WardID {
			view.WardName = w.Name
			break
		}
	}
	if vote != nil {
		view.TotalVotes = vote.Total()
		view.Vote = &VoteInfo{ID: vote.ID, SubmittedAt: vote.SubmittedAt, UpdatedAt: vote.UpdatedAt}
	}
	view.Turnout = Turnout(view.TotalVotes, center.RegisteredVoters)
	return view, nil
}

// Candidate builds the view for one candidate. Unknown candidates return
// store.ErrNotFound.
func (s *Service) Candidate(ctx context.Context, candidateID string) (CandidateView, error) {
	defer s.observe("candidate", time.Now())

	c, err := s.load(ctx, needCandidates|needWards|needCenters|needVotes)
	if err != nil {
		return CandidateView{}, fmt.Errorf("load candidate %s: %w", candidateID, err)
	}

	byWard, ok := CandidateByWard(candidateID, c.candidates, c.wards, c.centers, c.votes)
	if !ok {
		return CandidateView{}, fmt.Errorf("candidate %q: %w", candidateID, store.ErrNotFound)
	}

	var candidate model.Candidate
	for _, cand := range c.candidates {
		if cand.ID == candidateID {
			candidate = cand
			break
		}
	}

	view := CandidateView{Candidate: candidate}
	for _, r := range DistrictTotals(c.candidates, c.votes) {
		if r.ID == candidateID {
			view.Share = r.Percentage
			break
		}
	}

	registeredByWard := make(map[string]int, len(c.wards))
	for _, center := range c.centers {
		registeredByWard[center.WardID] += center.RegisteredVoters
	}
	view.Wards = make([]WardShare, 0, len(byWard))
	for _, r := range byWard {
		registered := registeredByWard[r.ID]
		view.Wards = append(view.Wards, WardShare{
			Result:           r,
			RegisteredVoters: registered,
			Turnout:          Turnout(r.TotalVotes, registered),
		})
	}

	view.TotalVotes = SumTotals(byWard)
	view.RegisteredVoters = RegisteredVoters(c.centers)
	view.Turnout = Turnout(view.TotalVotes, view.RegisteredVoters)
	view.TopCenters = topCenters(candidateID, c.centers, c.votes)
	return view, nil
}

func topCenters(candidateID string, centers []model.Center, votes []model.Vote) []CenterVotes {
	byCenter := make(map[string]int, len(votes))
	for _, v := range votes {
		byCenter[v.CenterID] += v.CountMap()[candidateID]
	}

	ranked := make([]CenterVotes, 0, len(centers))
	for _, c := range centers {
		ranked = append(ranked, CenterVotes{ID: c.ID, Name: c.Name, Votes: byCenter[c.ID]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Votes > ranked[j].Votes })
	if len(ranked) > topCentersLimit {
		ranked = ranked[:topCentersLimit]
	}
	return ranked
}
