package model

import "time"

// Candidate is global to the constituency, not scoped to a ward or district.
type Candidate struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Party     string    `gorm:"size:64;not null" json:"party"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}
