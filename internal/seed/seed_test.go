package seed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tally-backend/config"
	"tally-backend/internal/store"
	"tally-backend/internal/testutil"
)

const seedYAML = `
districts:
  - id: nkhotakota-central
    name: Nkhotakota Central
wards:
  - id: ward-1
    district_id: nkhotakota-central
    name: Ward 1 - Mwansambo
centers:
  - id: center-123
    ward_id: ward-1
    center_number: C-123
    name: Mwansambo Primary School
    registered_voters: 420
candidates:
  - id: penyani-jamane
    name: Penyani Jamane
    party: Independent
  - id: candidate-b
    name: Candidate B
    party: MCP
`

func newTestService(t *testing.T) (*Service, store.Store, *observer.ObservedLogs) {
	t.Helper()
	s := store.NewGormStore(testutil.NewTestDB(t))
	core, logs := observer.New(zap.InfoLevel)
	svc := NewService(config.SeedConfig{TimeoutSeconds: 5}, s, zap.New(core))
	svc.now = func() time.Time { return time.Date(2025, 9, 16, 8, 0, 0, 0, time.UTC) }
	return svc, s, logs
}

func writeSeedFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun_FromFile(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	report, err := svc.Run(ctx, writeSeedFile(t, seedYAML))
	require.NoError(t, err)
	assert.Equal(t, Report{Districts: 1, Wards: 1, Centers: 1, Candidates: 2}, report)

	center, err := s.GetCenter(ctx, "center-123")
	require.NoError(t, err)
	assert.Equal(t, "ward-1", center.WardID)
	assert.Equal(t, "C-123", center.CenterNumber)
	assert.Equal(t, 420, center.RegisteredVoters)

	candidates, err := s.ListCandidates(ctx)
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestRun_IsIdempotent(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()
	path := writeSeedFile(t, seedYAML)

	_, err := svc.Run(ctx, path)
	require.NoError(t, err)

	updated := writeSeedFile(t, `
centers:
  - id: center-123
    ward_id: ward-1
    center_number: C-123
    name: Mwansambo Primary School
    registered_voters: 450
`)
	// The ward lives only in the store now; the reference must still resolve.
	report, err := svc.Run(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Centers)
	assert.Zero(t, report.Skipped)

	center, err := s.GetCenter(ctx, "center-123")
	require.NoError(t, err)
	assert.Equal(t, 450, center.RegisteredVoters)

	centers, err := s.ListCenters(ctx, "")
	require.NoError(t, err)
	assert.Len(t, centers, 1)
}

func TestRun_FromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/yaml")
		w.Write([]byte(seedYAML))
	}))
	defer server.Close()

	svc, s, _ := newTestService(t)
	report, err := svc.Run(context.Background(), server.URL+"/seed.yaml")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Candidates)

	_, err = s.GetWard(context.Background(), "ward-1")
	assert.NoError(t, err)
}

func TestLoad_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		source  string
		wantErr string
	}{
		{"empty source", "", "no seed source given"},
		{"missing file", filepath.Join(t.TempDir(), "nope.yaml"), "no such file"},
		{"bad status", server.URL, "received non-200 status code: 404"},
		{"bad yaml", writeSeedFile(t, "districts: [unterminated"), "failed to decode seed document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Load(ctx, tt.source)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApply_SkipsBrokenEntries(t *testing.T) {
	svc, s, logs := newTestService(t)
	ctx := context.Background()

	doc := &Document{
		Districts: []District{{ID: "d1", Name: "Nkhotakota Central"}, {ID: "d2"}},
		Wards: []Ward{
			{ID: "w1", DistrictID: "d1", Name: "Ward 1"},
			{ID: "w2", DistrictID: "missing", Name: "Orphan ward"},
		},
		Centers: []Center{
			{ID: "c1", WardID: "w1", CenterNumber: "C-1", Name: "School", RegisteredVoters: 100},
			{ID: "c2", WardID: "w2", CenterNumber: "C-2", Name: "Under orphan ward"},
			{ID: "c3", WardID: "w1", CenterNumber: "C-3", Name: "Negative", RegisteredVoters: -5},
			{ID: "c4", WardID: "w1", Name: "No number"},
		},
		Candidates: []Candidate{{ID: "a", Name: "Candidate A", Party: "Independent"}, {ID: "b", Name: "No party"}},
	}

	report, err := svc.Apply(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, Report{Districts: 1, Wards: 1, Centers: 1, Candidates: 1, Skipped: 6}, report)
	assert.Equal(t, 6, logs.FilterMessage("skipping seed entry").Len())

	_, err = s.GetWard(ctx, "w2")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetCenter(ctx, "c2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestApply_GeneratesMissingIDs(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, &Document{Candidates: []Candidate{{Name: "Candidate C", Party: "DPP"}}})
	require.NoError(t, err)

	candidates, err := s.ListCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.NotEmpty(t, candidates[0].ID)
}

func TestApply_NothingToWrite(t *testing.T) {
	svc, _, logs := newTestService(t)

	report, err := svc.Apply(context.Background(), &Document{})
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
	assert.Equal(t, 1, logs.FilterMessage("seed document has nothing to write").Len())
}

type failingUpserts struct {
	store.Store
}

func (failingUpserts) UpsertSeed(context.Context, store.SeedBatch) error {
	return errors.New("database is locked")
}

func TestApply_StoreFailure(t *testing.T) {
	svc, s, _ := newTestService(t)
	svc.store = failingUpserts{Store: s}

	_, err := svc.Apply(context.Background(), &Document{Districts: []District{{ID: "d1", Name: "Nkhotakota Central"}}})
	assert.EqualError(t, err, "database is locked")
}

func TestApply_StampsCreatedAt(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, &Document{Districts: []District{{ID: "d1", Name: "Nkhotakota Central"}}})
	require.NoError(t, err)

	districts, err := s.ListDistricts(ctx)
	require.NoError(t, err)
	require.Len(t, districts, 1)
	assert.Equal(t, "Nkhotakota Central", districts[0].Name)
	assert.True(t, districts[0].CreatedAt.Equal(svc.now()), "created at %s", districts[0].CreatedAt)
}
