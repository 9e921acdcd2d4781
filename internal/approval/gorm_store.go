package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/quotedesk/internal/database"
	"github.com/charlesng35/quotedesk/internal/models"
)

// GormStore implements LinkStore on top of gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a GormStore.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("approval store: db is required")
	}
	return &GormStore{db: db}, nil
}

// InsertOrGetExisting creates the link and its approval in one transaction. When a link for the offer
// already exists, or a concurrent insert wins the unique index, the stored link is returned instead.
func (s *GormStore) InsertOrGetExisting(ctx context.Context, link *models.ApprovalLink, approval *models.OfferApproval) (*models.ApprovalLink, bool, error) {
	existing, err := s.GetLinkByOffer(ctx, link.OfferID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(link).Error; err != nil {
			return err
		}
		approval.LinkID = link.ID
		return tx.Create(approval).Error
	})
	if err == nil {
		return link, true, nil
	}

	if !database.IsUniqueConstraintError(err) {
		return nil, false, fmt.Errorf("approval store: insert link: %w", err)
	}

	// Re-read outside the failed transaction; postgres refuses statements in an aborted one.
	existing, getErr := s.GetLinkByOffer(ctx, link.OfferID)
	if getErr == nil {
		return existing, false, nil
	}
	return nil, false, fmt.Errorf("%w: offer %s: %v", ErrConflict, link.OfferID, err)
}

// GetLink loads a link by id.
func (s *GormStore) GetLink(ctx context.Context, linkID string) (*models.ApprovalLink, error) {
	var link models.ApprovalLink
	if err := s.db.WithContext(ctx).First(&link, "id = ?", linkID).Error; err != nil {
		return nil, notFound(err, "load link")
	}
	return &link, nil
}

// GetLinkByOffer loads the link for an offer.
func (s *GormStore) GetLinkByOffer(ctx context.Context, offerID string) (*models.ApprovalLink, error) {
	var link models.ApprovalLink
	if err := s.db.WithContext(ctx).First(&link, "offer_id = ?", offerID).Error; err != nil {
		return nil, notFound(err, "load link by offer")
	}
	return &link, nil
}

// SelectApprovalByToken loads the approval addressed by a public token.
func (s *GormStore) SelectApprovalByToken(ctx context.Context, token string) (*models.OfferApproval, error) {
	var approval models.OfferApproval
	if err := s.db.WithContext(ctx).First(&approval, "token = ?", token).Error; err != nil {
		return nil, notFound(err, "load approval")
	}
	return &approval, nil
}

// UpdateApprovalStatus applies patch only while the stored status is in from.
func (s *GormStore) UpdateApprovalStatus(ctx context.Context, approvalID string, from []Status, patch Patch) (int64, error) {
	query := s.db.WithContext(ctx).
		Model(&models.OfferApproval{}).
		Where("id = ? AND status IN ?", approvalID, statusStrings(from))
	if patch.UnviewedOnly {
		query = query.Where("viewed_at IS NULL")
	}
	if patch.ActiveAt != nil {
		query = query.Where("expires_at >= ?", *patch.ActiveAt)
	}

	result := query.Updates(patch.columns())
	if result.Error != nil {
		return 0, fmt.Errorf("approval store: update status: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// UpdateExpiry moves the expiry of a link and its approval together.
func (s *GormStore) UpdateExpiry(ctx context.Context, linkID string, expiresAt time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ApprovalLink{}).Where("id = ?", linkID).Update("expires_at", expiresAt)
		if result.Error != nil {
			return fmt.Errorf("approval store: extend link: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Model(&models.OfferApproval{}).Where("link_id = ?", linkID).Update("expires_at", expiresAt).Error; err != nil {
			return fmt.Errorf("approval store: extend approval: %w", err)
		}
		return nil
	})
}

// DeleteLink removes a link and its approval.
func (s *GormStore) DeleteLink(ctx context.Context, linkID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("link_id = ?", linkID).Delete(&models.OfferApproval{}).Error; err != nil {
			return fmt.Errorf("approval store: delete approval: %w", err)
		}
		result := tx.Where("id = ?", linkID).Delete(&models.ApprovalLink{})
		if result.Error != nil {
			return fmt.Errorf("approval store: delete link: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func notFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("approval store: %s: %w", op, err)
}
