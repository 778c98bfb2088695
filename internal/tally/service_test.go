package tally_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally-backend/internal/metrics"
	"tally-backend/internal/model"
	"tally-backend/internal/store"
	"tally-backend/internal/tally"
	"tally-backend/internal/testutil"
)

func newService(t *testing.T) (*tally.Service, store.Store, *prometheus.Registry) {
	t.Helper()
	gormDB := testutil.NewTestDB(t)
	testutil.SeedFixture(t, gormDB)
	s := store.NewGormStore(gormDB)

	reg := prometheus.NewRegistry()
	return tally.NewService(s, metrics.New(reg)), s, reg
}

func saveVote(t *testing.T, s store.Store, centerID string, counts map[string]int) {
	t.Helper()
	_, _, err := s.SaveVote(context.Background(), centerID, counts, time.Now())
	require.NoError(t, err)
}

func TestService_Dashboard(t *testing.T) {
	svc, s, reg := newService(t)
	saveVote(t, s, "c1", map[string]int{"a": 100, "b": 50})
	saveVote(t, s, "c3", map[string]int{"a": 20, "b": 30})

	view, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	require.Len(t, view.Candidates, 2)
	assert.Equal(t, "a", view.Candidates[0].ID)
	assert.Equal(t, 120, view.Candidates[0].TotalVotes)
	assert.Equal(t, 200, view.TotalVotes)
	assert.Equal(t, 920, view.RegisteredVoters)
	assert.InDelta(t, 21.739, view.Turnout, 0.001)
	assert.Equal(t, 3, view.CenterCount)
	assert.Equal(t, 2, view.ReportedCenters)

	require.Len(t, view.Wards, 2)
	assert.Equal(t, "w1", view.Wards[0].ID)
	assert.Equal(t, 150, view.Wards[0].TotalVotes)

	count, err := promtestutil.GatherAndCount(reg, "tally_aggregation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestService_Ward(t *testing.T) {
	svc, s, _ := newService(t)
	saveVote(t, s, "c1", map[string]int{"a": 100, "b": 50})

	view, err := svc.Ward(context.Background(), "w1")
	require.NoError(t, err)

	assert.Equal(t, "Ward 1 - Mwansambo", view.Ward.Name)
	assert.Equal(t, 150, view.TotalVotes)
	assert.Equal(t, 720, view.RegisteredVoters)
	require.Len(t, view.Centers, 2)
	assert.True(t, view.Centers[0].Reported)
	assert.Equal(t, 150, view.Centers[0].TotalVotes)
	assert.False(t, view.Centers[1].Reported)

	_, err = svc.Ward(context.Background(), "nope")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestService_Center(t *testing.T) {
	svc, s, _ := newService(t)

	empty, err := svc.Center(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, empty.Vote)
	assert.Zero(t, empty.TotalVotes)
	assert.Equal(t, "Ward 1 - Mwansambo", empty.WardName)

	saveVote(t, s, "c1", map[string]int{"a": 100, "b": 50})

	view, err := svc.Center(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, view.Vote)
	assert.Equal(t, 150, view.TotalVotes)
	assert.InDelta(t, 66.7, view.Candidates[0].Percentage, 0.05)
	assert.InDelta(t, 33.3, view.Candidates[1].Percentage, 0.05)
	assert.InDelta(t, 35.714, view.Turnout, 0.001)

	_, err = svc.Center(context.Background(), "nope")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestService_Candidate(t *testing.T) {
	svc, s, _ := newService(t)
	saveVote(t, s, "c1", map[string]int{"a": 100, "b": 50})
	saveVote(t, s, "c2", map[string]int{"a": 10, "b": 90})
	saveVote(t, s, "c3", map[string]int{"a": 40})

	view, err := svc.Candidate(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, "Candidate A", view.Candidate.Name)
	assert.Equal(t, 150, view.TotalVotes)
	assert.InDelta(t, 51.72, view.Share, 0.01)
	require.Len(t, view.Wards, 2)
	assert.Equal(t, "w1", view.Wards[0].ID)
	assert.Equal(t, 110, view.Wards[0].TotalVotes)
	assert.Equal(t, 720, view.Wards[0].RegisteredVoters)

	require.Len(t, view.TopCenters, 3)
	assert.Equal(t, []string{"c1", "c3", "c2"},
		[]string{view.TopCenters[0].ID, view.TopCenters[1].ID, view.TopCenters[2].ID})

	_, err = svc.Candidate(context.Background(), "ghost")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestService_CandidateTotals(t *testing.T) {
	svc, s, _ := newService(t)
	saveVote(t, s, "c2", map[string]int{"b": 3})

	results, err := svc.CandidateTotals(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ID)
	assert.InDelta(t, 100, results[0].Percentage, 1e-9)
}

// failingReader cannot list candidates.
type failingReader struct {
	tally.Reader
}

func (failingReader) ListCandidates(context.Context) ([]model.Candidate, error) {
	return nil, errors.New("connection refused")
}

func (failingReader) ListVotes(context.Context) ([]model.Vote, error) {
	return nil, nil
}

func TestService_LoadFailure(t *testing.T) {
	svc := tally.NewService(failingReader{}, nil)

	_, err := svc.CandidateTotals(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, errors.Is(err, store.ErrNotFound))
}
