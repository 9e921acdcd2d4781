package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/quotedesk/internal/approval"
	"github.com/charlesng35/quotedesk/internal/database/testutil"
	"github.com/charlesng35/quotedesk/internal/models"
	"github.com/charlesng35/quotedesk/internal/realtime"
	apperrors "github.com/charlesng35/quotedesk/pkg/errors"
	"github.com/charlesng35/quotedesk/pkg/mail"
)

func TestNotificationServiceCreateAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db, "user-123", "free")

	svc, err := NewNotificationService(db, realtime.NewHub())
	require.NoError(t, err)

	ctx := context.Background()
	dto, err := svc.Create(ctx, CreateNotificationInput{
		UserID:   user.ID,
		OfferID:  "offer-1",
		Type:     approval.EventViewed,
		Title:    "Offer viewed",
		Message:  "Ada opened your offer",
		Severity: "info",
		Metadata: map[string]any{"offer_id": "offer-1"},
	})
	require.NoError(t, err)
	require.Equal(t, approval.EventViewed, dto.Type)
	require.NotNil(t, dto.OfferID)

	items, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: user.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, dto.ID, items[0].ID)
	require.False(t, items[0].IsRead)
	require.Equal(t, "offer-1", items[0].Metadata["offer_id"])

	items, err = svc.ListForUser(ctx, ListNotificationsInput{UserID: user.ID, OfferID: "other"})
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestNotificationServiceMarkRead(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db, "user-1", "free")

	svc, err := NewNotificationService(db, realtime.NewHub())
	require.NoError(t, err)

	ctx := context.Background()
	first, err := svc.Create(ctx, CreateNotificationInput{UserID: user.ID, Type: approval.EventApproved, Title: "Offer approved"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateNotificationInput{UserID: user.ID, Type: approval.EventRejected, Title: "Offer rejected"})
	require.NoError(t, err)

	read, err := svc.MarkRead(ctx, user.ID, first.ID)
	require.NoError(t, err)
	require.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	unread, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: user.ID, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)

	_, err = svc.MarkRead(ctx, "someone-else", first.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, svc.MarkAllRead(ctx, user.ID))
	unread, err = svc.ListForUser(ctx, ListNotificationsInput{UserID: user.ID, UnreadOnly: true})
	require.NoError(t, err)
	require.Empty(t, unread)
}

func TestNotificationServiceCreateValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewNotificationService(db, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateNotificationInput{Type: "x"})
	require.Error(t, err)
	_, err = svc.Create(context.Background(), CreateNotificationInput{UserID: "u"})
	require.Error(t, err)

	_, err = NewNotificationService(nil, nil)
	require.Error(t, err)
}

func TestNotifyOwnerDecisionSendsEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	owner := seedUser(t, db, "owner-1", "pro")
	offer := models.Offer{
		BaseModel:      models.BaseModel{ID: "offer-1"},
		OwnerID:        owner.ID,
		Number:         "Q-2024-0001",
		Title:          "Kitchen renovation",
		NetAmountCents: 1250000,
		Currency:       "EUR",
		Status:         models.OfferStatusSent,
	}
	require.NoError(t, db.Create(&offer).Error)

	mailer := &capturingMailer{}
	svc, err := NewNotificationService(db, realtime.NewHub(),
		WithNotificationMailer(mailer),
		WithNotificationCurrency("CHF", 0.95),
		WithNotificationLocale("en"),
		WithNotificationBaseURL("https://app.example.com/"),
	)
	require.NoError(t, err)

	err = svc.NotifyOwner(context.Background(), owner.ID, approval.EventApproved, map[string]any{
		"offer_id":     offer.ID,
		"client_name":  "Ada",
		"client_email": "ada@example.com",
		"comment":      "Please start in May",
	})
	require.NoError(t, err)

	items, err := svc.ListForUser(context.Background(), ListNotificationsInput{UserID: owner.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Offer approved", items[0].Title)
	require.Equal(t, "success", items[0].Severity)
	require.Contains(t, items[0].Message, "Ada approved offer Q-2024-0001")
	require.Contains(t, items[0].Message, "EUR")
	require.Contains(t, items[0].Message, "CHF")
	require.Equal(t, "https://app.example.com/offers/offer-1", items[0].ActionURL)

	require.Len(t, mailer.messages, 1)
	msg := mailer.messages[0]
	require.Equal(t, []string{owner.Email}, msg.To)
	require.Equal(t, "ada@example.com", msg.ReplyTo)
	require.Contains(t, msg.Body, "Please start in May")
	require.Equal(t, offer.ID, msg.OfferRef)
}

func TestNotifyOwnerViewSkipsEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	owner := seedUser(t, db, "owner-2", "free")

	mailer := &capturingMailer{}
	svc, err := NewNotificationService(db, nil, WithNotificationMailer(mailer))
	require.NoError(t, err)

	require.NoError(t, svc.NotifyOwner(context.Background(), owner.ID, approval.EventViewed, map[string]any{"offer_id": "missing"}))
	require.Empty(t, mailer.messages)

	items, err := svc.ListForUser(context.Background(), ListNotificationsInput{UserID: owner.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Your client opened your offer.", items[0].Message)
}

func TestNotifyOwnerMailErrors(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	owner := seedUser(t, db, "owner-3", "free")
	ctx := context.Background()

	disabled, err := NewNotificationService(db, nil, WithNotificationMailer(mail.NoopMailer{}))
	require.NoError(t, err)
	require.NoError(t, disabled.NotifyOwner(ctx, owner.ID, approval.EventRejected, map[string]any{}))

	failing := &capturingMailer{err: errors.New("connection refused")}
	broken, err := NewNotificationService(db, nil, WithNotificationMailer(failing))
	require.NoError(t, err)
	require.Error(t, broken.NotifyOwner(ctx, owner.ID, approval.EventRejected, map[string]any{}))
}
