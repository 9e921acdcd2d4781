package models

// User is an account owning projects and offers.
type User struct {
	BaseModel

	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName string `gorm:"type:varchar(255)" json:"display_name"`
	Plan        string `gorm:"type:varchar(32);not null;default:'free'" json:"plan"`
	CompanyName string `gorm:"type:varchar(255)" json:"company_name"`
	Currency    string `gorm:"type:varchar(3);default:'EUR'" json:"currency"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
}
