package models

import "time"

// ApprovalLink grants anonymous access to one offer through an opaque token.
type ApprovalLink struct {
	BaseModel

	OfferID   string    `gorm:"type:uuid;not null;uniqueIndex" json:"offer_id"`
	OwnerID   string    `gorm:"type:uuid;not null;index" json:"owner_id"`
	Token     string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"token"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}

// Expired reports whether the link is past its expiry at now.
func (l *ApprovalLink) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}
