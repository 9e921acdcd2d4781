package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/charlesng35/quotedesk/internal/approval"
	"github.com/charlesng35/quotedesk/internal/models"
	"github.com/charlesng35/quotedesk/pkg/errors"
	"github.com/charlesng35/quotedesk/pkg/response"
)

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// ApprovalLinkHandler exposes the owner side of approval links.
type ApprovalLinkHandler struct {
	approvals *approval.Service
}

// NewApprovalLinkHandler constructs an ApprovalLinkHandler.
func NewApprovalLinkHandler(approvals *approval.Service) *ApprovalLinkHandler {
	return &ApprovalLinkHandler{approvals: approvals}
}

type approvalLinkResponse struct {
	ID        string    `json:"id"`
	OfferID   string    `json:"offer_id"`
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Expired   bool      `json:"expired"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *ApprovalLinkHandler) present(link *models.ApprovalLink) approvalLinkResponse {
	return approvalLinkResponse{
		ID:        link.ID,
		OfferID:   link.OfferID,
		Token:     link.Token,
		URL:       h.approvals.LinkURL(link.Token),
		ExpiresAt: link.ExpiresAt,
		Expired:   link.Expired(h.approvals.Now()),
		CreatedAt: link.CreatedAt,
	}
}

type createApprovalLinkRequest struct {
	ClientName    string `json:"client_name" validate:"max=255"`
	ClientEmail   string `json:"client_email" validate:"omitempty,email"`
	ExpiresInDays int    `json:"expires_in_days" validate:"gte=0,lte=365"`
}

// Create handles POST /api/offers/:id/approval-link. Repeated calls return the existing link.
func (h *ApprovalLinkHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createApprovalLinkRequest
	if !bindOptional(c, &req) {
		return
	}

	link, err := h.approvals.CreateApprovalLink(requestContext(c), userID, c.Param("id"), approval.LinkOptions{
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		ExpiresInDays: req.ExpiresInDays,
	})
	if err != nil {
		response.Error(c, approvalError(err))
		return
	}
	response.Success(c, http.StatusOK, h.present(link))
}

// Get handles GET /api/offers/:id/approval-link.
func (h *ApprovalLinkHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	link, err := h.approvals.GetLinkForOffer(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, approvalError(err))
		return
	}
	response.Success(c, http.StatusOK, h.present(link))
}

// QRCode handles GET /api/offers/:id/approval-link/qr and renders the public URL as a PNG.
func (h *ApprovalLinkHandler) QRCode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	link, err := h.approvals.GetLinkForOffer(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, approvalError(err))
		return
	}

	size := parseIntQuery(c, "size", defaultQRSize)
	if size < minQRSize || size > maxQRSize {
		response.Error(c, errors.NewBadRequest("size must be between 128 and 1024"))
		return
	}

	png, err := qrcode.Encode(h.approvals.LinkURL(link.Token), qrcode.Medium, size)
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

type extendApprovalLinkRequest struct {
	Days int `json:"days" validate:"gte=0,lte=365"`
}

// Extend handles POST /api/approval-links/:id/extend. Zero days uses the default lifetime.
func (h *ApprovalLinkHandler) Extend(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req extendApprovalLinkRequest
	if !bindOptional(c, &req) {
		return
	}

	link, err := h.approvals.ExtendExpiry(requestContext(c), userID, c.Param("id"), req.Days)
	if err != nil {
		response.Error(c, approvalError(err))
		return
	}
	response.Success(c, http.StatusOK, h.present(link))
}

// Delete handles DELETE /api/approval-links/:id.
func (h *ApprovalLinkHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.approvals.DeleteLink(requestContext(c), userID, c.Param("id")); err != nil {
		response.Error(c, approvalError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
