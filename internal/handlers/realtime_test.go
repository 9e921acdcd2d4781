package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/quotedesk/internal/handlers/testutil"
	"github.com/charlesng35/quotedesk/internal/realtime"
)

func TestRealtimeStreamRejectsAnonymous(t *testing.T) {
	env := testutil.NewEnv(t)

	code := testutil.ErrorCode(t, env.Request(http.MethodGet, "/api/notifications/ws", nil, ""), http.StatusUnauthorized)
	require.Equal(t, "UNAUTHORIZED", code)
}

func TestRealtimeStreamRejectsUnknownStream(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.CreateOwner("pro")

	code := testutil.ErrorCode(t, env.Request(http.MethodGet, "/api/notifications/ws?stream=billing", nil, token), http.StatusBadRequest)
	require.Equal(t, "BAD_REQUEST", code)
}

func TestRealtimeStreamDeliversOwnerEvents(t *testing.T) {
	env := testutil.NewEnv(t)
	owner, token := env.CreateOwner("pro")

	server := httptest.NewServer(env.Router)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/notifications/ws?stream=approvals&access_token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return env.Hub.Subscribers(realtime.StreamApprovals, owner.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Zero(t, env.Hub.Subscribers(realtime.StreamNotifications, owner.ID))

	require.NoError(t, env.Notifications.NotifyOwner(context.Background(), owner.ID, "offer.viewed", map[string]any{
		"client_name": "Ada",
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var message realtime.Message
	require.NoError(t, conn.ReadJSON(&message))
	require.Equal(t, realtime.StreamApprovals, message.Stream)
	require.Equal(t, "offer.viewed", message.Event)
}
