package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is an in-app message for an owner, usually about client activity on an offer.
type Notification struct {
	BaseModel

	UserID    string         `gorm:"type:uuid;index:idx_notifications_user_read,priority:1" json:"user_id"`
	OfferID   *string        `gorm:"type:uuid;index" json:"offer_id,omitempty"`
	Type      string         `gorm:"type:varchar(64);not null" json:"type"`
	Title     string         `gorm:"type:varchar(255);not null" json:"title"`
	Message   string         `gorm:"type:text" json:"message"`
	Severity  string         `gorm:"type:varchar(32);default:'info'" json:"severity"`
	ActionURL string         `gorm:"type:text" json:"action_url"`
	Metadata  datatypes.JSON `json:"metadata"`

	IsRead bool       `gorm:"default:false;index:idx_notifications_user_read,priority:2" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`
}
