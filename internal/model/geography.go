package model

import "time"

// District is the top of the geographic hierarchy.
type District struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}

// Ward groups one or more centers and belongs to a district.
// DistrictID is a plain reference; a missing district is tolerated.
type Ward struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	DistrictID string    `gorm:"index;size:64;not null" json:"districtId"`
	Name       string    `gorm:"size:128;not null" json:"name"`
	CreatedAt  time.Time `gorm:"not null" json:"createdAt"`
}

// Center is a physical polling location.
type Center struct {
	ID               string    `gorm:"primaryKey;size:64" json:"id"`
	WardID           string    `gorm:"index;size:64;not null" json:"wardId"`
	CenterNumber     string    `gorm:"size:32;not null" json:"centerNumber"`
	Name             string    `gorm:"size:256;not null" json:"name"`
	RegisteredVoters int       `gorm:"not null;default:0" json:"registeredVoters"`
	CreatedAt        time.Time `gorm:"not null" json:"createdAt"`
}
