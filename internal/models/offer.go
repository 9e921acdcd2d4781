package models

import "time"

// Offer lifecycle states.
const (
	OfferStatusDraft    = "draft"
	OfferStatusSent     = "sent"
	OfferStatusAccepted = "accepted"
	OfferStatusRejected = "rejected"
)

// FinalizedOfferStatuses lists the statuses counted against the monthly quota.
var FinalizedOfferStatuses = []string{OfferStatusSent, OfferStatusAccepted, OfferStatusRejected}

// Offer is a priced proposal sent to a client.
type Offer struct {
	BaseModel

	OwnerID        string     `gorm:"type:uuid;not null;index:idx_offers_owner_created,priority:1" json:"owner_id"`
	ProjectID      *string    `gorm:"type:uuid;index" json:"project_id,omitempty"`
	Number         string     `gorm:"type:varchar(64);index" json:"number"`
	Title          string     `gorm:"type:varchar(255);not null" json:"title"`
	NetAmountCents int64      `gorm:"not null;default:0" json:"net_amount_cents"`
	Currency       string     `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Status         string     `gorm:"type:varchar(32);not null;default:'draft';index" json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`

	Project *Project `gorm:"constraint:OnDelete:SET NULL" json:"project,omitempty"`
}
