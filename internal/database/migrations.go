package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/quotedesk/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Offer{},
		&models.ApprovalLink{},
		&models.OfferApproval{},
		&models.Notification{},
		&models.CacheEntry{},
		&models.SystemSetting{},
	); err != nil {
		return err
	}
	return dropLegacyColumns(db)
}

// SeedData records the schema revision so operators can tell which build last migrated.
func SeedData(db *gorm.DB) error {
	return db.Where(models.SystemSetting{Key: SchemaRevisionSetting}).
		Assign(models.SystemSetting{Value: SchemaRevision}).
		FirstOrCreate(&models.SystemSetting{}).Error
}
