// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tally-backend/internal/db"
	"tally-backend/internal/model"
)

var dbSeq atomic.Int64

// NewTestDB opens a private in-memory SQLite database with every table migrated.
// The database is closed when the test finishes.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	// A single connection keeps the shared-cache database serialised and alive.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

// Fixture is a small constituency: one district, two wards, three centers,
// and candidates A and B.
type Fixture struct {
	District   model.District
	Wards      []model.Ward
	Centers    []model.Center
	Candidates []model.Candidate
}

// SeedFixture writes the standard fixture into gormDB.
func SeedFixture(t *testing.T, gormDB *gorm.DB) Fixture {
	t.Helper()

	f := Fixture{
		District: model.District{ID: "d1", Name: "Nkhotakota Central"},
		Wards: []model.Ward{
			{ID: "w1", DistrictID: "d1", Name: "Ward 1 - Mwansambo"},
			{ID: "w2", DistrictID: "d1", Name: "Ward 2 - Linga"},
		},
		Centers: []model.Center{
			{ID: "c1", WardID: "w1", CenterNumber: "C-123", Name: "Mwansambo Primary School", RegisteredVoters: 420},
			{ID: "c2", WardID: "w1", CenterNumber: "C-124", Name: "Chididi Market", RegisteredVoters: 300},
			{ID: "c3", WardID: "w2", CenterNumber: "C-200", Name: "Linga Clinic", RegisteredVoters: 200},
		},
		Candidates: []model.Candidate{
			{ID: "a", Name: "Candidate A", Party: "Independent"},
			{ID: "b", Name: "Candidate B", Party: "MCP"},
		},
	}

	require.NoError(t, gormDB.Create(&f.District).Error)
	require.NoError(t, gormDB.Create(&f.Wards).Error)
	require.NoError(t, gormDB.Create(&f.Centers).Error)
	require.NoError(t, gormDB.Create(&f.Candidates).Error)
	return f
}
