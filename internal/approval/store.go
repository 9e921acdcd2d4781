package approval

import (
	"context"
	"time"

	"github.com/charlesng35/quotedesk/internal/models"
)

// LinkStore persists approval links and their approvals.
//
// UpdateApprovalStatus is a compare-and-swap: it only applies patch while the stored status is one of from,
// and reports the affected row count. Zero rows means another writer got there first.
type LinkStore interface {
	InsertOrGetExisting(ctx context.Context, link *models.ApprovalLink, approval *models.OfferApproval) (*models.ApprovalLink, bool, error)
	GetLink(ctx context.Context, linkID string) (*models.ApprovalLink, error)
	GetLinkByOffer(ctx context.Context, offerID string) (*models.ApprovalLink, error)
	SelectApprovalByToken(ctx context.Context, token string) (*models.OfferApproval, error)
	UpdateApprovalStatus(ctx context.Context, approvalID string, from []Status, patch Patch) (int64, error)
	UpdateExpiry(ctx context.Context, linkID string, expiresAt time.Time) error
	DeleteLink(ctx context.Context, linkID string) error
}

// Patch lists the columns written by a status transition, plus extra guards for the conditional update.
// Empty strings and nil timestamps leave the stored value untouched.
type Patch struct {
	Status          Status
	ViewedAt        *time.Time
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	SignatureData   string
	SignatureDigest string
	Comment         string
	ClientName      string

	// UnviewedOnly additionally requires viewed_at to be unset.
	UnviewedOnly bool
	// ActiveAt additionally requires expires_at >= ActiveAt.
	ActiveAt *time.Time
}

func (p Patch) columns() map[string]any {
	cols := map[string]any{"status": string(p.Status)}
	if p.ViewedAt != nil {
		cols["viewed_at"] = *p.ViewedAt
	}
	if p.ApprovedAt != nil {
		cols["approved_at"] = *p.ApprovedAt
	}
	if p.RejectedAt != nil {
		cols["rejected_at"] = *p.RejectedAt
	}
	if p.SignatureData != "" {
		cols["signature_data"] = p.SignatureData
	}
	if p.SignatureDigest != "" {
		cols["signature_digest"] = p.SignatureDigest
	}
	if p.Comment != "" {
		cols["comment"] = p.Comment
	}
	if p.ClientName != "" {
		cols["client_name"] = p.ClientName
	}
	return cols
}

// apply mirrors columns onto an in-memory record.
func (p Patch) apply(a *models.OfferApproval) {
	a.Status = p.Status
	if p.ViewedAt != nil {
		t := *p.ViewedAt
		a.ViewedAt = &t
	}
	if p.ApprovedAt != nil {
		t := *p.ApprovedAt
		a.ApprovedAt = &t
	}
	if p.RejectedAt != nil {
		t := *p.RejectedAt
		a.RejectedAt = &t
	}
	if p.SignatureData != "" {
		a.SignatureData = p.SignatureData
	}
	if p.SignatureDigest != "" {
		a.SignatureDigest = p.SignatureDigest
	}
	if p.Comment != "" {
		a.Comment = p.Comment
	}
	if p.ClientName != "" {
		a.ClientName = p.ClientName
	}
}

// matches evaluates the extra guards against a stored record.
func (p Patch) matches(a *models.OfferApproval) bool {
	if p.UnviewedOnly && a.ViewedAt != nil {
		return false
	}
	if p.ActiveAt != nil && a.ExpiresAt.Before(*p.ActiveAt) {
		return false
	}
	return true
}

func statusStrings(from []Status) []string {
	out := make([]string, len(from))
	for i, status := range from {
		out[i] = string(status)
	}
	return out
}
