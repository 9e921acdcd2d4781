package models

// Project lifecycle states.
const (
	ProjectStatusDraft     = "draft"
	ProjectStatusOfferSent = "offer_sent"
	ProjectStatusAccepted  = "accepted"
	ProjectStatusRejected  = "rejected"
	ProjectStatusCompleted = "completed"
)

// Project groups the offers issued for one client job.
type Project struct {
	BaseModel

	OwnerID     string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	ClientName  string `gorm:"type:varchar(255)" json:"client_name"`
	ClientEmail string `gorm:"type:varchar(255)" json:"client_email"`
	Status      string `gorm:"type:varchar(32);not null;default:'draft';index" json:"status"`

	Owner *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
