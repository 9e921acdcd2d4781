package approval

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/charlesng35/quotedesk/internal/models"
	"github.com/charlesng35/quotedesk/pkg/crypto"
	"github.com/charlesng35/quotedesk/pkg/logger"
	"github.com/charlesng35/quotedesk/pkg/metrics"
)

const (
	// DefaultLinkLifetimeDays is the lifetime of a new link and the default extension.
	DefaultLinkLifetimeDays = 30

	defaultTokenBytes = 32
	maxCommentRunes   = 2000
	maxNameRunes      = 255
)

// Notification events emitted to offer owners.
const (
	EventViewed   = "offer.viewed"
	EventApproved = "offer.approved"
	EventRejected = "offer.rejected"
)

// OfferRef is the part of an offer the approval flow needs.
type OfferRef struct {
	OwnerID   string
	ProjectID *string
	// Draft is true until the offer has passed the entitlement gate and been sent.
	Draft bool
}

// OfferLookup resolves an offer. Implementations return ErrNotFound when the offer is missing.
type OfferLookup interface {
	LookupOffer(ctx context.Context, offerID string) (OfferRef, error)
}

// DecisionRecorder propagates a final client decision to the offer and its project.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, approval *models.OfferApproval) error
}

// Notifier informs offer owners about client activity.
type Notifier interface {
	NotifyOwner(ctx context.Context, userID, event string, context map[string]any) error
}

// LinkOptions carries optional client details captured when the link is created.
type LinkOptions struct {
	ClientName    string
	ClientEmail   string
	ExpiresInDays int
}

// DecisionPayload is the client-submitted body of a decision.
type DecisionPayload struct {
	SignatureData string
	Comment       string
	ClientName    string
}

// Option customises Service behaviour.
type Option func(*Service)

// WithClock injects a custom clock primarily for testing.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithLinkLifetimeDays overrides the default link lifetime and extension length.
func WithLinkLifetimeDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.lifetimeDays = days
		}
	}
}

// WithTokenSize adjusts the random token length in bytes.
func WithTokenSize(size int) Option {
	return func(s *Service) {
		if size >= defaultTokenBytes {
			s.tokenBytes = size
		}
	}
}

// WithBaseURL configures the origin used to build public approval URLs.
func WithBaseURL(base string) Option {
	return func(s *Service) {
		s.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// WithDecisionRecorder registers the collaborator updating offers after a decision.
func WithDecisionRecorder(recorder DecisionRecorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// WithNotifier registers the owner notifier.
func WithNotifier(notifier Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// Service owns the approval state machine.
type Service struct {
	store        LinkStore
	offers       OfferLookup
	recorder     DecisionRecorder
	notifier     Notifier
	baseURL      string
	lifetimeDays int
	tokenBytes   int
	now          func() time.Time
	sanitizer    *bluemonday.Policy
	log          *zap.Logger
}

// NewService constructs a Service with the provided dependencies.
func NewService(store LinkStore, offers OfferLookup, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("approval service: store is required")
	}
	if offers == nil {
		return nil, errors.New("approval service: offer lookup is required")
	}

	svc := &Service{
		store:        store,
		offers:       offers,
		lifetimeDays: DefaultLinkLifetimeDays,
		tokenBytes:   defaultTokenBytes,
		now:          time.Now,
		sanitizer:    bluemonday.StrictPolicy(),
		log:          logger.WithModule("approval"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateApprovalLink returns the offer's approval link, creating it with a fresh token on first call.
// Drafts are refused: an offer must be sent through the entitlement gate before a client can decide on it.
func (s *Service) CreateApprovalLink(ctx context.Context, ownerID, offerID string, opts LinkOptions) (*models.ApprovalLink, error) {
	offer, err := s.offers.LookupOffer(ctx, offerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("approval service: resolve offer: %w", err)
	}
	if offer.OwnerID != ownerID {
		return nil, ErrUnauthorized
	}
	if offer.Draft {
		return nil, ErrOfferNotSent
	}
	projectID := offer.ProjectID

	token, err := crypto.GenerateToken(s.tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("approval service: generate token: %w", err)
	}

	days := s.lifetimeDays
	if opts.ExpiresInDays > 0 {
		days = opts.ExpiresInDays
	}
	now := s.clock()
	expiresAt := now.Add(time.Duration(days) * 24 * time.Hour)

	link := &models.ApprovalLink{
		BaseModel: models.BaseModel{CreatedAt: now},
		OfferID:   offerID,
		OwnerID:   ownerID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	approval := &models.OfferApproval{
		BaseModel:   models.BaseModel{CreatedAt: now},
		OfferID:     offerID,
		ProjectID:   projectID,
		OwnerID:     ownerID,
		Token:       token,
		ClientName:  s.cleanText(opts.ClientName, maxNameRunes),
		ClientEmail: strings.ToLower(strings.TrimSpace(opts.ClientEmail)),
		Status:      StatusPending,
		ExpiresAt:   expiresAt,
	}

	stored, created, err := s.store.InsertOrGetExisting(ctx, link, approval)
	if err != nil {
		return nil, fmt.Errorf("approval service: create link: %w", err)
	}
	metrics.ApprovalLinksCreated.WithLabelValues(strconv.FormatBool(created)).Inc()
	if created {
		s.log.Info("approval link created", zap.String("offer_id", offerID), zap.Time("expires_at", expiresAt))
	}
	return stored, nil
}

// GetLinkForOffer returns the owner's link for an offer.
func (s *Service) GetLinkForOffer(ctx context.Context, ownerID, offerID string) (*models.ApprovalLink, error) {
	link, err := s.store.GetLinkByOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if link.OwnerID != ownerID {
		return nil, ErrUnauthorized
	}
	return link, nil
}

// FetchApprovalByToken resolves a public token. Expiry is not checked; expired approvals stay readable.
func (s *Service) FetchApprovalByToken(ctx context.Context, token string) (*models.OfferApproval, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotFound
	}
	return s.store.SelectApprovalByToken(ctx, token)
}

// RecordViewed marks the first view of an approval. It never fails the caller; errors are logged and counted.
func (s *Service) RecordViewed(ctx context.Context, token string) {
	approval, err := s.FetchApprovalByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.viewFailed(err)
		}
		return
	}

	now := s.clock()
	if approval.ViewedAt != nil || !statusIn(approval.Status, viewableFrom) || approval.Expired(now) {
		return
	}

	affected, err := s.store.UpdateApprovalStatus(ctx, approval.ID, viewableFrom, Patch{
		Status:       StatusViewed,
		ViewedAt:     &now,
		UnviewedOnly: true,
		ActiveAt:     &now,
	})
	if err != nil {
		s.viewFailed(err)
		return
	}
	if affected == 0 {
		return
	}

	metrics.ApprovalTransitions.WithLabelValues(string(StatusViewed), "ok").Inc()
	approval.Status = StatusViewed
	approval.ViewedAt = &now
	s.notify(ctx, approval, EventViewed)
}

// SubmitDecision records a client's approval or rejection.
func (s *Service) SubmitDecision(ctx context.Context, token string, action Action, payload DecisionPayload) (*models.OfferApproval, error) {
	approval, err := s.FetchApprovalByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	target := action.Target()

	if approval.Status.Terminal() {
		metrics.ApprovalTransitions.WithLabelValues(string(target), "rejected").Inc()
		return nil, ErrAlreadyProcessed
	}

	now := s.clock()
	if approval.Expired(now) {
		metrics.ApprovalTransitions.WithLabelValues(string(target), "rejected").Inc()
		return nil, ErrExpired
	}

	patch, err := s.decisionPatch(action, payload, now)
	if err != nil {
		metrics.ApprovalTransitions.WithLabelValues(string(target), "rejected").Inc()
		return nil, err
	}

	affected, err := s.store.UpdateApprovalStatus(ctx, approval.ID, decidableFrom, patch)
	if err != nil {
		metrics.ApprovalTransitions.WithLabelValues(string(target), "error").Inc()
		return nil, fmt.Errorf("approval service: submit decision: %w", err)
	}
	if affected == 0 {
		metrics.ApprovalTransitions.WithLabelValues(string(target), "rejected").Inc()
		return nil, ErrAlreadyProcessed
	}

	patch.apply(approval)
	metrics.ApprovalTransitions.WithLabelValues(string(target), "ok").Inc()
	s.log.Info("approval decided",
		zap.String("offer_id", approval.OfferID),
		zap.String("status", string(approval.Status)),
	)

	if s.recorder != nil {
		if err := s.recorder.RecordDecision(ctx, approval); err != nil {
			s.log.Error("record decision failed", zap.String("offer_id", approval.OfferID), zap.Error(err))
		}
	}

	event := EventRejected
	if approval.Status == StatusApproved {
		event = EventApproved
	}
	s.notify(ctx, approval, event)

	return approval, nil
}

func (s *Service) decisionPatch(action Action, payload DecisionPayload, now time.Time) (Patch, error) {
	patch := Patch{
		Status:     action.Target(),
		Comment:    s.cleanText(payload.Comment, maxCommentRunes),
		ClientName: s.cleanText(payload.ClientName, maxNameRunes),
		ActiveAt:   &now,
	}

	switch action {
	case ActionApprove:
		signature := strings.TrimSpace(payload.SignatureData)
		if signature == "" {
			return Patch{}, &ValidationError{Field: "signature_data", Reason: "is required to approve"}
		}
		patch.SignatureData = signature
		patch.SignatureDigest = crypto.Fingerprint([]byte(signature))
		patch.ApprovedAt = &now
	case ActionReject:
		patch.RejectedAt = &now
	default:
		return Patch{}, &ValidationError{Field: "action", Reason: "must be approve or reject"}
	}
	return patch, nil
}

// ExtendExpiry moves the link and approval expiry to now + days. days <= 0 uses the default lifetime.
func (s *Service) ExtendExpiry(ctx context.Context, ownerID, linkID string, days int) (*models.ApprovalLink, error) {
	link, err := s.ownedLink(ctx, ownerID, linkID)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = s.lifetimeDays
	}

	expiresAt := s.clock().Add(time.Duration(days) * 24 * time.Hour)
	if err := s.store.UpdateExpiry(ctx, link.ID, expiresAt); err != nil {
		return nil, err
	}
	link.ExpiresAt = expiresAt
	s.log.Info("approval link extended", zap.String("link_id", link.ID), zap.Int("days", days))
	return link, nil
}

// DeleteLink removes an owner's link together with its approval.
func (s *Service) DeleteLink(ctx context.Context, ownerID, linkID string) error {
	link, err := s.ownedLink(ctx, ownerID, linkID)
	if err != nil {
		return err
	}
	return s.store.DeleteLink(ctx, link.ID)
}

// LinkURL builds the public URL for a token.
func (s *Service) LinkURL(token string) string {
	return fmt.Sprintf("%s/a/%s", s.baseURL, url.PathEscape(token))
}

// Now exposes the service clock so callers can evaluate expiry consistently.
func (s *Service) Now() time.Time {
	return s.clock()
}

func (s *Service) ownedLink(ctx context.Context, ownerID, linkID string) (*models.ApprovalLink, error) {
	link, err := s.store.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link.OwnerID != ownerID {
		return nil, ErrUnauthorized
	}
	return link, nil
}

func (s *Service) notify(ctx context.Context, approval *models.OfferApproval, event string) {
	if s.notifier == nil {
		return
	}
	details := map[string]any{
		"offer_id":    approval.OfferID,
		"status":      string(approval.Status),
		"client_name": approval.ClientName,
	}
	if approval.ProjectID != nil {
		details["project_id"] = *approval.ProjectID
	}
	if approval.Comment != "" {
		details["comment"] = approval.Comment
	}
	if approval.ClientEmail != "" {
		details["client_email"] = approval.ClientEmail
	}
	if err := s.notifier.NotifyOwner(ctx, approval.OwnerID, event, details); err != nil {
		s.log.Warn("notify owner failed", zap.String("event", event), zap.String("offer_id", approval.OfferID), zap.Error(err))
	}
}

func (s *Service) viewFailed(err error) {
	metrics.ViewTrackingFailures.Inc()
	s.log.Warn("record view failed", zap.Error(err))
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// cleanText strips markup and truncates to limit runes.
func (s *Service) cleanText(value string, limit int) string {
	cleaned := strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
	runes := []rune(cleaned)
	if len(runes) > limit {
		cleaned = string(runes[:limit])
	}
	return cleaned
}
