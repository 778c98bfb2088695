package model

import "time"

// Vote is the per-center tally record. It is keyed by center, so a center
// has at most one record.
type Vote struct {
	CenterID    string    `gorm:"primaryKey;size:64" json:"centerId"`
	ID          string    `gorm:"uniqueIndex;size:64;not null" json:"id"`
	SubmittedAt time.Time `gorm:"not null" json:"submittedAt"`
	UpdatedAt   time.Time `gorm:"not null" json:"updatedAt"`

	// Associations
	Counts []VoteCount `gorm:"foreignKey:CenterID;references:CenterID;constraint:OnDelete:CASCADE" json:"-"`
}

// VoteCount holds one candidate's count inside a center's Vote.
type VoteCount struct {
	CenterID    string `gorm:"primaryKey;size:64"`
	CandidateID string `gorm:"primaryKey;size:64"`
	Count       int    `gorm:"not null"`
}

// CountMap returns the candidate ID to count mapping of the record.
func (v Vote) CountMap() map[string]int {
	counts := make(map[string]int, len(v.Counts))
	for _, c := range v.Counts {
		counts[c.CandidateID] += c.Count
	}
	return counts
}

// Total sums every candidate's count.
func (v Vote) Total() int {
	total := 0
	for _, c := range v.Counts {
		total += c.Count
	}
	return total
}
