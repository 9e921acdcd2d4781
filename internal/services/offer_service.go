package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/quotedesk/internal/approval"
	"github.com/charlesng35/quotedesk/internal/entitlement"
	"github.com/charlesng35/quotedesk/internal/models"
	apperrors "github.com/charlesng35/quotedesk/pkg/errors"
	"github.com/charlesng35/quotedesk/pkg/logger"
	"github.com/charlesng35/quotedesk/pkg/metrics"
	"github.com/charlesng35/quotedesk/pkg/money"
)

var (
	// ErrOfferNotFound indicates the offer does not exist or belongs to someone else.
	ErrOfferNotFound = apperrors.New("OFFER_NOT_FOUND", "Offer not found", http.StatusNotFound)
	// ErrOfferNotDraft indicates the offer was already sent.
	ErrOfferNotDraft = apperrors.New("OFFER_NOT_DRAFT", "Offer has already been sent", http.StatusConflict)
	// ErrOfferNotAwaitingDecision indicates a decision arrived for an offer that is not in the sent state.
	ErrOfferNotAwaitingDecision = errors.New("offer service: offer is not awaiting a decision")
)

// CreateOfferInput describes a new draft offer.
type CreateOfferInput struct {
	OwnerID        string
	ProjectID      *string
	Title          string
	NetAmountCents int64
	Currency       string
}

// ListOffersInput filters owner offers.
type ListOffersInput struct {
	OwnerID   string
	ProjectID string
	Status    string
	Limit     int
	Offset    int
}

// QuotaStatus summarises the monthly offer allowance of a user. Limit and Remaining are nil when unlimited.
type QuotaStatus struct {
	Plan        string    `json:"plan"`
	Used        int       `json:"used"`
	Limit       *int      `json:"limit"`
	Remaining   *int      `json:"remaining"`
	Unlimited   bool      `json:"unlimited"`
	CanSend     bool      `json:"can_send"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// OfferOption customises OfferService behaviour.
type OfferOption func(*OfferService)

// WithOfferGate overrides the entitlement gate.
func WithOfferGate(gate *entitlement.Gate) OfferOption {
	return func(s *OfferService) {
		if gate != nil {
			s.gate = gate
		}
	}
}

// WithOfferClock injects a custom clock primarily for testing.
func WithOfferClock(clock func() time.Time) OfferOption {
	return func(s *OfferService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// OfferService manages offers and enforces the monthly quota when they are sent.
type OfferService struct {
	db   *gorm.DB
	gate *entitlement.Gate
	now  func() time.Time
	log  *zap.Logger
}

// NewOfferService constructs an OfferService.
func NewOfferService(db *gorm.DB, opts ...OfferOption) (*OfferService, error) {
	if db == nil {
		return nil, errors.New("offer service: db is required")
	}
	svc := &OfferService{
		db:   db,
		gate: entitlement.NewGate(),
		now:  time.Now,
		log:  logger.WithModule("offers"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create stores a draft offer. A referenced project must belong to the owner.
func (s *OfferService) Create(ctx context.Context, input CreateOfferInput) (*models.Offer, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}
	if input.NetAmountCents < 0 {
		return nil, apperrors.NewBadRequest("net amount must not be negative")
	}
	currency := strings.ToUpper(strings.TrimSpace(defaultIfEmpty(input.Currency, "EUR")))
	if _, err := money.ParseCurrency(currency); err != nil {
		return nil, apperrors.NewBadRequest("currency must be an ISO 4217 code")
	}

	projectID := trimmedPtr(input.ProjectID)
	now := s.now().UTC()
	offer := &models.Offer{
		BaseModel:      models.BaseModel{CreatedAt: now},
		OwnerID:        input.OwnerID,
		ProjectID:      projectID,
		Title:          title,
		NetAmountCents: input.NetAmountCents,
		Currency:       currency,
		Status:         models.OfferStatusDraft,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if projectID != nil {
			var count int64
			if err := tx.Model(&models.Project{}).
				Where("id = ? AND owner_id = ?", *projectID, input.OwnerID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrProjectNotFound
			}
		}

		var existing int64
		if err := tx.Model(&models.Offer{}).Where("owner_id = ?", input.OwnerID).Count(&existing).Error; err != nil {
			return err
		}
		offer.Number = fmt.Sprintf("Q-%s-%04d", now.Format("2006"), existing+1)

		return tx.Create(offer).Error
	})
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("offer service: create offer: %w", err)
	}
	return offer, nil
}

// Get loads one of the owner's offers.
func (s *OfferService) Get(ctx context.Context, ownerID, id string) (*models.Offer, error) {
	ctx = ensureContext(ctx)

	var offer models.Offer
	if err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&offer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("offer service: get offer: %w", err)
	}
	return &offer, nil
}

// List returns the owner's offers, newest first.
func (s *OfferService) List(ctx context.Context, input ListOffersInput) ([]models.Offer, int64, error) {
	ctx = ensureContext(ctx)
	limit, offset := pageBounds(input.Limit, input.Offset)

	query := s.db.WithContext(ctx).Model(&models.Offer{}).Where("owner_id = ?", input.OwnerID)
	if projectID := strings.TrimSpace(input.ProjectID); projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if status := strings.TrimSpace(input.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("offer service: count offers: %w", err)
	}

	var offers []models.Offer
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&offers).Error; err != nil {
		return nil, 0, fmt.Errorf("offer service: list offers: %w", err)
	}
	return offers, total, nil
}

// Send finalizes a draft offer if the owner's plan allows another offer this month.
func (s *OfferService) Send(ctx context.Context, ownerID, offerID string) (*models.Offer, error) {
	ctx = ensureContext(ctx)
	now := s.now().UTC()

	var offer models.Offer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND owner_id = ?", offerID, ownerID).First(&offer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOfferNotFound
			}
			return err
		}
		if offer.Status != models.OfferStatusDraft {
			return ErrOfferNotDraft
		}

		var owner models.User
		if err := tx.First(&owner, "id = ?", ownerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		used, err := countFinalized(tx, ownerID, now)
		if err != nil {
			return err
		}
		if !s.gate.CanSendOffer(owner.Plan, used) {
			metrics.OfferGateDecisions.WithLabelValues(owner.Plan, "deny").Inc()
			return apperrors.ErrOfferQuotaExceeded
		}
		metrics.OfferGateDecisions.WithLabelValues(owner.Plan, "allow").Inc()

		result := tx.Model(&models.Offer{}).
			Where("id = ? AND status = ?", offer.ID, models.OfferStatusDraft).
			Updates(map[string]any{"status": models.OfferStatusSent, "sent_at": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrOfferNotDraft
		}
		offer.Status = models.OfferStatusSent
		offer.SentAt = &now

		if offer.ProjectID != nil {
			if err := tx.Model(&models.Project{}).
				Where("id = ? AND status = ?", *offer.ProjectID, models.ProjectStatusDraft).
				Update("status", models.ProjectStatusOfferSent).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("offer service: send offer: %w", err)
	}

	s.log.Info("offer sent", zap.String("offer_id", offer.ID), zap.String("owner_id", ownerID))
	return &offer, nil
}

// CountFinalizedThisMonth counts the owner's sent, accepted or rejected offers created in the current UTC month.
func (s *OfferService) CountFinalizedThisMonth(ctx context.Context, ownerID string) (int, error) {
	ctx = ensureContext(ctx)
	used, err := countFinalized(s.db.WithContext(ctx), ownerID, s.now())
	if err != nil {
		return 0, fmt.Errorf("offer service: count finalized offers: %w", err)
	}
	return used, nil
}

// QuotaStatus reports the owner's plan allowance for the current month.
func (s *OfferService) QuotaStatus(ctx context.Context, ownerID string) (*QuotaStatus, error) {
	ctx = ensureContext(ctx)

	var owner models.User
	if err := s.db.WithContext(ctx).First(&owner, "id = ?", ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("offer service: load user: %w", err)
	}

	used, err := s.CountFinalizedThisMonth(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	start, end := entitlement.MonthWindow(s.now())
	status := &QuotaStatus{
		Plan:        owner.Plan,
		Used:        used,
		CanSend:     s.gate.CanSendOffer(owner.Plan, used),
		PeriodStart: start,
		PeriodEnd:   end,
	}
	remaining := s.gate.RemainingOfferQuota(owner.Plan, used)
	if remaining == entitlement.Unlimited {
		status.Unlimited = true
		return status, nil
	}
	limit := s.gate.FreeOfferLimit()
	status.Limit = &limit
	status.Remaining = &remaining
	return status, nil
}

// RecordDecision moves a sent offer and its project to the state matching a client's decision.
// Offers in any other state are left untouched so drafts never become finalized outside Send.
func (s *OfferService) RecordDecision(ctx context.Context, decided *models.OfferApproval) error {
	ctx = ensureContext(ctx)
	if decided == nil {
		return errors.New("offer service: approval is required")
	}

	offerStatus, projectStatus := models.OfferStatusRejected, models.ProjectStatusRejected
	decidedAt := decided.RejectedAt
	if decided.Status == models.ApprovalApproved {
		offerStatus, projectStatus = models.OfferStatusAccepted, models.ProjectStatusAccepted
		decidedAt = decided.ApprovedAt
	} else if decided.Status != models.ApprovalRejected {
		return fmt.Errorf("offer service: approval %s is not decided", decided.ID)
	}
	if decidedAt == nil {
		now := s.now().UTC()
		decidedAt = &now
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Offer{}).
			Where("id = ? AND status = ?", decided.OfferID, models.OfferStatusSent).
			Updates(map[string]any{"status": offerStatus, "decided_at": *decidedAt})
		if result.Error != nil {
			return fmt.Errorf("offer service: record decision: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrOfferNotAwaitingDecision, decided.OfferID)
		}
		if decided.ProjectID == nil {
			return nil
		}
		if err := tx.Model(&models.Project{}).
			Where("id = ? AND status <> ?", *decided.ProjectID, models.ProjectStatusCompleted).
			Update("status", projectStatus).Error; err != nil {
			return fmt.Errorf("offer service: update project: %w", err)
		}
		return nil
	})
}

// LookupOffer resolves the owner, project and draft state of an offer for the approval flow.
func (s *OfferService) LookupOffer(ctx context.Context, offerID string) (approval.OfferRef, error) {
	ctx = ensureContext(ctx)

	var offer models.Offer
	if err := s.db.WithContext(ctx).Select("id", "owner_id", "project_id", "status").First(&offer, "id = ?", offerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return approval.OfferRef{}, approval.ErrNotFound
		}
		return approval.OfferRef{}, fmt.Errorf("offer service: resolve offer: %w", err)
	}
	return approval.OfferRef{
		OwnerID:   offer.OwnerID,
		ProjectID: offer.ProjectID,
		Draft:     offer.Status == models.OfferStatusDraft,
	}, nil
}

func countFinalized(db *gorm.DB, ownerID string, now time.Time) (int, error) {
	start, end := entitlement.MonthWindow(now)

	var count int64
	if err := db.Model(&models.Offer{}).
		Where("owner_id = ? AND status IN ? AND created_at >= ? AND created_at < ?",
			ownerID, models.FinalizedOfferStatuses, start, end).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}
