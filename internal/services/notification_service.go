package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/quotedesk/internal/approval"
	"github.com/charlesng35/quotedesk/internal/models"
	"github.com/charlesng35/quotedesk/internal/realtime"
	apperrors "github.com/charlesng35/quotedesk/pkg/errors"
	"github.com/charlesng35/quotedesk/pkg/logger"
	"github.com/charlesng35/quotedesk/pkg/mail"
	"github.com/charlesng35/quotedesk/pkg/money"
)

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	OfferID   *string              `json:"offer_id,omitempty"`
	Type      string               `json:"type"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Severity  string               `json:"severity"`
	ActionURL string               `json:"action_url,omitempty"`
	Metadata  map[string]any       `json:"metadata,omitempty"`
	IsRead    bool                 `json:"is_read"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	ReadAt    *time.Time           `json:"read_at,omitempty"`
	Raw       *models.Notification `json:"-"`
}

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	UserID    string
	OfferID   string
	Type      string
	Title     string
	Message   string
	Severity  string
	ActionURL string
	Metadata  map[string]any
	IsRead    bool
}

// ListNotificationsInput defines filters for querying user notifications.
type ListNotificationsInput struct {
	UserID     string
	OfferID    string
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationEventPayload represents data sent to realtime consumers.
type NotificationEventPayload struct {
	Notification   *NotificationDTO `json:"notification,omitempty"`
	NotificationID string           `json:"notification_id,omitempty"`
}

// NotificationOption customises NotificationService behaviour.
type NotificationOption func(*NotificationService)

// WithNotificationMailer enables owner emails for client decisions.
func WithNotificationMailer(mailer mail.Mailer) NotificationOption {
	return func(s *NotificationService) {
		s.mailer = mailer
	}
}

// WithNotificationCurrency renders offer amounts in a secondary currency next to the offer currency.
func WithNotificationCurrency(secondary string, rate float64) NotificationOption {
	return func(s *NotificationService) {
		s.secondaryCurrency = strings.ToUpper(strings.TrimSpace(secondary))
		s.secondaryRate = rate
	}
}

// WithNotificationLocale selects the locale used to format amounts.
func WithNotificationLocale(locale string) NotificationOption {
	return func(s *NotificationService) {
		s.formatter = money.NewFormatter(locale)
	}
}

// WithNotificationBaseURL sets the dashboard origin used for action links.
func WithNotificationBaseURL(base string) NotificationOption {
	return func(s *NotificationService) {
		s.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// NotificationService manages owner in-app notifications and decision emails.
type NotificationService struct {
	db                *gorm.DB
	hub               *realtime.Hub
	mailer            mail.Mailer
	formatter         *money.Formatter
	secondaryCurrency string
	secondaryRate     float64
	baseURL           string
	log               *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, hub *realtime.Hub, opts ...NotificationOption) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	svc := &NotificationService{
		db:        db,
		hub:       hub,
		formatter: money.NewFormatter("en"),
		log:       logger.WithModule("notifications"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

type ownerEvent struct {
	title    string
	verb     string
	severity string
	email    bool
}

var ownerEvents = map[string]ownerEvent{
	approval.EventViewed:   {title: "Offer viewed", verb: "opened", severity: "info"},
	approval.EventApproved: {title: "Offer approved", verb: "approved", severity: "success", email: true},
	approval.EventRejected: {title: "Offer rejected", verb: "rejected", severity: "warning", email: true},
}

// NotifyOwner records an in-app notification for a client event on an offer, pushes it to the owner's
// approvals stream and, for decisions, emails the owner.
func (s *NotificationService) NotifyOwner(ctx context.Context, userID, event string, details map[string]any) error {
	ctx = ensureContext(ctx)
	kind, ok := ownerEvents[event]
	if !ok {
		kind = ownerEvent{title: "Offer update", verb: "updated", severity: "info"}
	}

	offerID, _ := details["offer_id"].(string)
	client, _ := details["client_name"].(string)
	client = defaultIfEmpty(client, "Your client")

	var offer models.Offer
	offerFound := offerID != "" && s.db.WithContext(ctx).First(&offer, "id = ?", offerID).Error == nil

	metadata := make(map[string]any, len(details)+1)
	for key, value := range details {
		metadata[key] = value
	}

	message := fmt.Sprintf("%s %s your offer.", client, kind.verb)
	if offerFound {
		amount := s.formatAmount(offer)
		metadata["amount"] = amount
		message = fmt.Sprintf("%s %s offer %s %q (%s).", client, kind.verb, offer.Number, offer.Title, amount)
	}

	actionURL := ""
	if offerID != "" {
		actionURL = fmt.Sprintf("%s/offers/%s", s.baseURL, offerID)
	}

	if _, err := s.Create(ctx, CreateNotificationInput{
		UserID:    userID,
		OfferID:   offerID,
		Type:      event,
		Title:     kind.title,
		Message:   message,
		Severity:  kind.severity,
		ActionURL: actionURL,
		Metadata:  metadata,
	}); err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.BroadcastToUser(realtime.StreamApprovals, userID, realtime.Message{Event: event, Data: details})
	}

	if !kind.email || s.mailer == nil {
		return nil
	}
	return s.emailOwner(ctx, userID, kind.title, message, details)
}

func (s *NotificationService) emailOwner(ctx context.Context, userID, subject, message string, details map[string]any) error {
	var owner models.User
	if err := s.db.WithContext(ctx).First(&owner, "id = ?", userID).Error; err != nil {
		return fmt.Errorf("notification service: load owner: %w", err)
	}

	body := message
	if comment, _ := details["comment"].(string); comment != "" {
		body += "\n\nComment:\n" + comment
	}
	replyTo, _ := details["client_email"].(string)
	offerID, _ := details["offer_id"].(string)

	err := s.mailer.Send(ctx, mail.Message{
		To:       []string{owner.Email},
		ReplyTo:  replyTo,
		Subject:  subject,
		Body:     body,
		OfferRef: offerID,
	})
	if err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		return fmt.Errorf("notification service: send email: %w", err)
	}
	return nil
}

func (s *NotificationService) formatAmount(offer models.Offer) string {
	formatted, err := s.formatter.FormatDual(offer.NetAmountCents, offer.Currency, s.secondaryCurrency, s.secondaryRate)
	if err != nil {
		s.log.Debug("format amount failed", zap.String("offer_id", offer.ID), zap.Error(err))
		return fmt.Sprintf("%d %s", offer.NetAmountCents, offer.Currency)
	}
	return formatted
}

// ListForUser returns notifications for the supplied user ordered by recency.
func (s *NotificationService) ListForUser(ctx context.Context, input ListNotificationsInput) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}

	limit, offset := pageBounds(input.Limit, input.Offset)

	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if offerID := strings.TrimSpace(input.OfferID); offerID != "" {
		query = query.Where("offer_id = ?", offerID)
	}
	if input.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var rows []models.Notification
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	return mapNotificationRows(rows), nil
}

// Create registers a new notification and optionally broadcasts the event.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}
	notificationType := strings.TrimSpace(input.Type)
	if notificationType == "" {
		return nil, errors.New("notification service: type is required")
	}

	notification := models.Notification{
		UserID:    userID,
		OfferID:   trimmedPtr(&input.OfferID),
		Type:      notificationType,
		Title:     strings.TrimSpace(input.Title),
		Message:   strings.TrimSpace(input.Message),
		Severity:  strings.TrimSpace(defaultIfEmpty(input.Severity, "info")),
		ActionURL: strings.TrimSpace(input.ActionURL),
		IsRead:    input.IsRead,
	}

	if input.Metadata != nil {
		if data, err := json.Marshal(input.Metadata); err == nil {
			notification.Metadata = datatypes.JSON(data)
		} else {
			return nil, fmt.Errorf("notification service: marshal metadata: %w", err)
		}
	}

	if input.IsRead {
		now := time.Now().UTC()
		notification.ReadAt = &now
	}

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("notification service: create notification: %w", err)
	}

	dto := mapNotification(notification)
	s.broadcast(userID, "notification.created", &NotificationEventPayload{
		Notification: &dto,
	})
	return &dto, nil
}

// MarkRead sets the notification read flag for a user.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	now := time.Now().UTC()
	notification.IsRead = true
	notification.ReadAt = &now

	if err := s.db.WithContext(ctx).Model(&notification).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		}).Error; err != nil {
		return nil, fmt.Errorf("notification service: mark read: %w", err)
	}

	dto := mapNotification(notification)
	dto.IsRead = true
	dto.ReadAt = &now

	s.broadcast(userID, "notification.read", &NotificationEventPayload{
		Notification:   &dto,
		NotificationID: notification.ID,
	})

	return &dto, nil
}

// MarkAllRead marks all notifications for the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		}).Error; err != nil {
		return fmt.Errorf("notification service: mark all read: %w", err)
	}

	s.broadcast(userID, "notification.read_all", nil)
	return nil
}

func (s *NotificationService) broadcast(userID, event string, payload *NotificationEventPayload) {
	if s.hub == nil {
		return
	}
	message := realtime.Message{
		Stream: realtime.StreamNotifications,
		Event:  event,
	}
	if payload != nil {
		message.Data = payload
	}
	s.hub.BroadcastToUser(realtime.StreamNotifications, userID, message)
}

func mapNotificationRows(rows []models.Notification) []NotificationDTO {
	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        row.ID,
		UserID:    row.UserID,
		OfferID:   row.OfferID,
		Type:      row.Type,
		Title:     row.Title,
		Message:   row.Message,
		Severity:  defaultIfEmpty(row.Severity, "info"),
		ActionURL: row.ActionURL,
		Metadata:  decodeJSON(row.Metadata),
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		ReadAt:    row.ReadAt,
		Raw:       &row,
	}
}

func decodeJSON(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

