package model

import "time"

// Session is a server-side admin login. The token handed to the client only
// carries the ID; the row decides whether it is still valid.
type Session struct {
	ID        string    `gorm:"primaryKey;size:64"`
	IssuedAt  time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	Revoked   bool      `gorm:"index;not null;default:false"`
	ClientIP  string    `gorm:"size:64"`
}

// Active reports whether the session may still be used at now.
func (s Session) Active(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}
