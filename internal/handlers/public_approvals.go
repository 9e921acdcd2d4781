package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/quotedesk/internal/approval"
	"github.com/charlesng35/quotedesk/internal/models"
	"github.com/charlesng35/quotedesk/internal/services"
	"github.com/charlesng35/quotedesk/pkg/errors"
	"github.com/charlesng35/quotedesk/pkg/logger"
	"github.com/charlesng35/quotedesk/pkg/response"
)

// maxDecisionBody caps the decision payload; signatures arrive as base64 images.
const maxDecisionBody = 1 << 20

// PublicApprovalHandler serves the anonymous client side of approval links.
type PublicApprovalHandler struct {
	approvals *approval.Service
	offers    *services.OfferService
	display   MoneyDisplay
}

// NewPublicApprovalHandler constructs a PublicApprovalHandler.
func NewPublicApprovalHandler(approvals *approval.Service, offers *services.OfferService, display MoneyDisplay) *PublicApprovalHandler {
	return &PublicApprovalHandler{approvals: approvals, offers: offers, display: display}
}

type publicOffer struct {
	Number          string `json:"number"`
	Title           string `json:"title"`
	NetAmountCents  int64  `json:"net_amount_cents"`
	Currency        string `json:"currency"`
	FormattedAmount string `json:"formatted_amount"`
}

type publicApprovalResponse struct {
	Status     approval.Status `json:"status"`
	ClientName string          `json:"client_name,omitempty"`
	Comment    string          `json:"comment,omitempty"`
	ExpiresAt  time.Time       `json:"expires_at"`
	Expired    bool            `json:"expired"`
	ViewedAt   *time.Time      `json:"viewed_at,omitempty"`
	ApprovedAt *time.Time      `json:"approved_at,omitempty"`
	RejectedAt *time.Time      `json:"rejected_at,omitempty"`
	Offer      *publicOffer    `json:"offer,omitempty"`
}

func (h *PublicApprovalHandler) present(ctx context.Context, record *models.OfferApproval) publicApprovalResponse {
	out := publicApprovalResponse{
		Status:     record.Status,
		ClientName: record.ClientName,
		Comment:    record.Comment,
		ExpiresAt:  record.ExpiresAt,
		Expired:    record.Expired(h.approvals.Now()),
		ViewedAt:   record.ViewedAt,
		ApprovedAt: record.ApprovedAt,
		RejectedAt: record.RejectedAt,
	}
	if h.offers == nil {
		return out
	}

	offer, err := h.offers.Get(ctx, record.OwnerID, record.OfferID)
	if err != nil {
		logger.WithModule("handlers").Warn("load offer for approval", zap.String("offer_id", record.OfferID), zap.Error(err))
		return out
	}
	out.Offer = &publicOffer{
		Number:          offer.Number,
		Title:           offer.Title,
		NetAmountCents:  offer.NetAmountCents,
		Currency:        offer.Currency,
		FormattedAmount: h.display.format(offer),
	}
	return out
}

// Fetch handles GET /api/public/approvals/:token. Expired approvals stay readable and are flagged.
// The first successful fetch marks the approval viewed; the response reflects the state before that.
func (h *PublicApprovalHandler) Fetch(c *gin.Context) {
	ctx := requestContext(c)
	token := c.Param("token")

	record, err := h.approvals.FetchApprovalByToken(ctx, token)
	if err != nil {
		response.Error(c, approvalError(err))
		return
	}

	payload := h.present(ctx, record)
	h.approvals.RecordViewed(context.WithoutCancel(ctx), token)
	response.Success(c, http.StatusOK, payload)
}

type decisionRequest struct {
	Action        string `json:"action" validate:"required,oneof=approve reject"`
	SignatureData string `json:"signature_data" validate:"max=1000000"`
	Comment       string `json:"comment" validate:"max=4000"`
	ClientName    string `json:"client_name" validate:"max=255"`
}

// Decide handles POST /api/public/approvals/:token/decision.
func (h *PublicApprovalHandler) Decide(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxDecisionBody)

	var req decisionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	action, ok := approval.ParseAction(req.Action)
	if !ok {
		response.Error(c, errors.NewValidation("action must be one of: approve reject"))
		return
	}

	ctx := requestContext(c)
	record, err := h.approvals.SubmitDecision(ctx, c.Param("token"), action, approval.DecisionPayload{
		SignatureData: req.SignatureData,
		Comment:       req.Comment,
		ClientName:    req.ClientName,
	})
	if err != nil {
		response.Error(c, approvalError(err))
		return
	}
	response.Success(c, http.StatusOK, h.present(ctx, record))
}
