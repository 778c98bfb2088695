package store

import (
	"errors"

	"tally-backend/internal/model"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// SeedBatch is a set of geography and candidate records upserted by ID.
type SeedBatch struct {
	Districts  []model.District
	Wards      []model.Ward
	Centers    []model.Center
	Candidates []model.Candidate
}

// Len returns the number of records in the batch.
func (b SeedBatch) Len() int {
	return len(b.Districts) + len(b.Wards) + len(b.Centers) + len(b.Candidates)
}
