package approval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/charlesng35/quotedesk/internal/models"
)

// MemoryStore is a mutex-guarded LinkStore kept entirely in memory.
type MemoryStore struct {
	mu        sync.Mutex
	links     map[string]*models.ApprovalLink
	approvals map[string]*models.OfferApproval // keyed by link id
	byOffer   map[string]string
	byToken   map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links:     make(map[string]*models.ApprovalLink),
		approvals: make(map[string]*models.OfferApproval),
		byOffer:   make(map[string]string),
		byToken:   make(map[string]string),
	}
}

// InsertOrGetExisting implements LinkStore.
func (s *MemoryStore) InsertOrGetExisting(_ context.Context, link *models.ApprovalLink, approval *models.OfferApproval) (*models.ApprovalLink, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byOffer[link.OfferID]; ok {
		existing := *s.links[id]
		return &existing, false, nil
	}
	if _, ok := s.byToken[link.Token]; ok {
		return nil, false, fmt.Errorf("%w: token already issued", ErrConflict)
	}

	now := time.Now()
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	link.UpdatedAt = link.CreatedAt
	if approval.ID == "" {
		approval.ID = uuid.NewString()
	}
	if approval.CreatedAt.IsZero() {
		approval.CreatedAt = link.CreatedAt
	}
	approval.UpdatedAt = approval.CreatedAt
	approval.LinkID = link.ID

	storedLink := *link
	storedApproval := *approval
	s.links[link.ID] = &storedLink
	s.approvals[link.ID] = &storedApproval
	s.byOffer[link.OfferID] = link.ID
	s.byToken[approval.Token] = link.ID

	return link, true, nil
}

// GetLink implements LinkStore.
func (s *MemoryStore) GetLink(_ context.Context, linkID string) (*models.ApprovalLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[linkID]
	if !ok {
		return nil, ErrNotFound
	}
	cpy := *link
	return &cpy, nil
}

// GetLinkByOffer implements LinkStore.
func (s *MemoryStore) GetLinkByOffer(_ context.Context, offerID string) (*models.ApprovalLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byOffer[offerID]
	if !ok {
		return nil, ErrNotFound
	}
	cpy := *s.links[id]
	return &cpy, nil
}

// SelectApprovalByToken implements LinkStore.
func (s *MemoryStore) SelectApprovalByToken(_ context.Context, token string) (*models.OfferApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	return copyApproval(s.approvals[id]), nil
}

// UpdateApprovalStatus implements LinkStore.
func (s *MemoryStore) UpdateApprovalStatus(_ context.Context, approvalID string, from []Status, patch Patch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, approval := range s.approvals {
		if approval.ID != approvalID {
			continue
		}
		if !statusIn(approval.Status, from) || !patch.matches(approval) {
			return 0, nil
		}
		patch.apply(approval)
		approval.UpdatedAt = time.Now()
		return 1, nil
	}
	return 0, nil
}

// UpdateExpiry implements LinkStore.
func (s *MemoryStore) UpdateExpiry(_ context.Context, linkID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[linkID]
	if !ok {
		return ErrNotFound
	}
	link.ExpiresAt = expiresAt
	if approval, ok := s.approvals[linkID]; ok {
		approval.ExpiresAt = expiresAt
	}
	return nil
}

// DeleteLink implements LinkStore.
func (s *MemoryStore) DeleteLink(_ context.Context, linkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[linkID]
	if !ok {
		return ErrNotFound
	}
	if approval, ok := s.approvals[linkID]; ok {
		delete(s.byToken, approval.Token)
	}
	delete(s.byOffer, link.OfferID)
	delete(s.approvals, linkID)
	delete(s.links, linkID)
	return nil
}

func copyApproval(a *models.OfferApproval) *models.OfferApproval {
	cpy := *a
	for _, field := range []**time.Time{&cpy.ViewedAt, &cpy.ApprovedAt, &cpy.RejectedAt} {
		if *field != nil {
			t := **field
			*field = &t
		}
	}
	if a.ProjectID != nil {
		id := *a.ProjectID
		cpy.ProjectID = &id
	}
	return &cpy
}
