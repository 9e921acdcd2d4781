package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/quotedesk/internal/models"
)

// legacyApprovalColumns were written by early builds that hashed tokens and tracked a single decided_at.
var legacyApprovalColumns = []string{"token_hash", "decided_at"}

func dropLegacyColumns(db *gorm.DB) error {
	migrator := db.Migrator()
	for _, column := range legacyApprovalColumns {
		if !migrator.HasColumn(&models.OfferApproval{}, column) {
			continue
		}
		if err := migrator.DropColumn(&models.OfferApproval{}, column); err != nil {
			return err
		}
	}
	return nil
}
