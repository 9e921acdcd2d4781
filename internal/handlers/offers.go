package handlers

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quotedesk/internal/models"
	"github.com/charlesng35/quotedesk/internal/services"
	"github.com/charlesng35/quotedesk/pkg/errors"
	"github.com/charlesng35/quotedesk/pkg/response"
)

// OfferHandler exposes owner offer endpoints and the monthly quota.
type OfferHandler struct {
	offers  *services.OfferService
	display MoneyDisplay
}

// NewOfferHandler constructs an OfferHandler.
func NewOfferHandler(offers *services.OfferService, display MoneyDisplay) *OfferHandler {
	return &OfferHandler{offers: offers, display: display}
}

type offerResponse struct {
	ID              string     `json:"id"`
	ProjectID       *string    `json:"project_id,omitempty"`
	Number          string     `json:"number"`
	Title           string     `json:"title"`
	NetAmountCents  int64      `json:"net_amount_cents"`
	Currency        string     `json:"currency"`
	FormattedAmount string     `json:"formatted_amount"`
	Status          string     `json:"status"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (h *OfferHandler) present(offer *models.Offer) offerResponse {
	return offerResponse{
		ID:              offer.ID,
		ProjectID:       offer.ProjectID,
		Number:          offer.Number,
		Title:           offer.Title,
		NetAmountCents:  offer.NetAmountCents,
		Currency:        offer.Currency,
		FormattedAmount: h.display.format(offer),
		Status:          offer.Status,
		SentAt:          offer.SentAt,
		DecidedAt:       offer.DecidedAt,
		CreatedAt:       offer.CreatedAt,
	}
}

type createOfferRequest struct {
	ProjectID      *string `json:"project_id"`
	Title          string  `json:"title" validate:"required,max=255"`
	NetAmountCents int64   `json:"net_amount_cents" validate:"gte=0"`
	Currency       string  `json:"currency" validate:"omitempty,iso4217"`
}

// Create handles POST /api/offers.
func (h *OfferHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createOfferRequest
	if !bindAndValidate(c, &req) {
		return
	}

	offer, err := h.offers.Create(requestContext(c), services.CreateOfferInput{
		OwnerID:        userID,
		ProjectID:      req.ProjectID,
		Title:          req.Title,
		NetAmountCents: req.NetAmountCents,
		Currency:       req.Currency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, h.present(offer))
}

// List handles GET /api/offers.
func (h *OfferHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit := parseIntQuery(c, "limit", 25)
	offset := parseIntQuery(c, "offset", 0)
	offers, total, err := h.offers.List(requestContext(c), services.ListOffersInput{
		OwnerID:   userID,
		ProjectID: c.Query("project_id"),
		Status:    c.Query("status"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]offerResponse, 0, len(offers))
	for i := range offers {
		items = append(items, h.present(&offers[i]))
	}
	response.SuccessWithMeta(c, http.StatusOK, items, pageMeta(limit, offset, total))
}

// Get handles GET /api/offers/:id.
func (h *OfferHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	offer, err := h.offers.Get(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.present(offer))
}

// Send handles POST /api/offers/:id/send. A refused send carries the quota in the error details.
func (h *OfferHandler) Send(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx := requestContext(c)
	offer, err := h.offers.Send(ctx, userID, c.Param("id"))
	if err != nil {
		if stderrors.Is(err, errors.ErrOfferQuotaExceeded) {
			if quota, quotaErr := h.offers.QuotaStatus(ctx, userID); quotaErr == nil {
				response.ErrorWithDetails(c, err, map[string]any{"quota": quota})
				return
			}
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.present(offer))
}

// Quota handles GET /api/me/quota.
func (h *OfferHandler) Quota(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	quota, err := h.offers.QuotaStatus(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, quota)
}
