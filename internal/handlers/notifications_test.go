package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/quotedesk/internal/handlers/testutil"
	"github.com/charlesng35/quotedesk/internal/services"
)

type notificationPayload struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	IsRead bool   `json:"is_read"`
}

func TestNotificationHandlerListAndMarkRead(t *testing.T) {
	env := testutil.NewEnv(t)
	owner, token := env.CreateOwner("pro")
	other, otherToken := env.CreateOwner("pro")

	ctx := context.Background()
	first, err := env.Notifications.Create(ctx, services.CreateNotificationInput{
		UserID:  owner.ID,
		Type:    "offer.viewed",
		Title:   "Offer viewed",
		Message: "Your client opened the offer.",
	})
	require.NoError(t, err)
	_, err = env.Notifications.Create(ctx, services.CreateNotificationInput{
		UserID:  owner.ID,
		Type:    "offer.approved",
		Title:   "Offer approved",
		Message: "Your client approved the offer.",
	})
	require.NoError(t, err)
	_, err = env.Notifications.Create(ctx, services.CreateNotificationInput{
		UserID:  other.ID,
		Type:    "offer.viewed",
		Title:   "Offer viewed",
		Message: "Someone else's client.",
	})
	require.NoError(t, err)

	var items []notificationPayload
	testutil.Data(t, env.Request(http.MethodGet, "/api/notifications", nil, token), http.StatusOK, &items)
	require.Len(t, items, 2)

	code := testutil.ErrorCode(t, env.Request(http.MethodPost, "/api/notifications/"+first.ID+"/read", nil, otherToken), http.StatusNotFound)
	require.Equal(t, "NOT_FOUND", code)

	var read notificationPayload
	testutil.Data(t, env.Request(http.MethodPost, "/api/notifications/"+first.ID+"/read", nil, token), http.StatusOK, &read)
	require.True(t, read.IsRead)

	testutil.Data(t, env.Request(http.MethodGet, "/api/notifications?unread=true", nil, token), http.StatusOK, &items)
	require.Len(t, items, 1)
	require.Equal(t, "offer.approved", items[0].Type)

	var updated map[string]bool
	testutil.Data(t, env.Request(http.MethodPost, "/api/notifications/read-all", nil, token), http.StatusOK, &updated)
	require.True(t, updated["updated"])

	testutil.Data(t, env.Request(http.MethodGet, "/api/notifications?unread=true", nil, token), http.StatusOK, &items)
	require.Empty(t, items)

	testutil.Data(t, env.Request(http.MethodGet, "/api/notifications?unread=true", nil, otherToken), http.StatusOK, &items)
	require.Len(t, items, 1)
}

func TestNotificationHandlerRequiresAuth(t *testing.T) {
	env := testutil.NewEnv(t)

	code := testutil.ErrorCode(t, env.Request(http.MethodGet, "/api/notifications", nil, ""), http.StatusUnauthorized)
	require.Equal(t, "UNAUTHORIZED", code)

	code = testutil.ErrorCode(t, env.Request(http.MethodGet, "/api/notifications", nil, "not-a-token"), http.StatusUnauthorized)
	require.Equal(t, "UNAUTHORIZED", code)
}
