package models

import "time"

// ApprovalStatus is the client-facing state of an offer approval.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalSent     ApprovalStatus = "sent"
	ApprovalViewed   ApprovalStatus = "viewed"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Terminal reports whether no further transitions are permitted.
func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalApproved || s == ApprovalRejected
}

// OfferApproval tracks a client's view and decision on an offer.
type OfferApproval struct {
	BaseModel

	LinkID          string         `gorm:"type:uuid;not null;uniqueIndex" json:"link_id"`
	OfferID         string         `gorm:"type:uuid;not null;index" json:"offer_id"`
	ProjectID       *string        `gorm:"type:uuid;index" json:"project_id,omitempty"`
	OwnerID         string         `gorm:"type:uuid;not null;index" json:"owner_id"`
	Token           string         `gorm:"type:varchar(128);not null;uniqueIndex" json:"-"`
	ClientName      string         `gorm:"type:varchar(255)" json:"client_name"`
	ClientEmail     string         `gorm:"type:varchar(255)" json:"client_email,omitempty"`
	Status          ApprovalStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	SignatureData   string         `gorm:"type:text" json:"signature_data,omitempty"`
	SignatureDigest string         `gorm:"type:varchar(64)" json:"signature_digest,omitempty"`
	Comment         string         `gorm:"type:text" json:"comment,omitempty"`
	ViewedAt        *time.Time     `json:"viewed_at,omitempty"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	RejectedAt      *time.Time     `json:"rejected_at,omitempty"`
	ExpiresAt       time.Time      `gorm:"not null;index" json:"expires_at"`

	Link *ApprovalLink `gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE" json:"-"`
}

// Expired reports whether the approval is past its expiry at now.
func (a *OfferApproval) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
