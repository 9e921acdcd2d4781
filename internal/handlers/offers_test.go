package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/quotedesk/internal/handlers/testutil"
)

type quotaPayload struct {
	Plan      string `json:"plan"`
	Used      int    `json:"used"`
	Limit     *int   `json:"limit"`
	Remaining *int   `json:"remaining"`
	Unlimited bool   `json:"unlimited"`
	CanSend   bool   `json:"can_send"`
}

func createDraft(t *testing.T, env *testutil.Env, token string) string {
	t.Helper()
	var offer idPayload
	testutil.Data(t, env.Request(http.MethodPost, "/api/offers", map[string]any{
		"title":            "Bathroom",
		"net_amount_cents": 99900,
	}, token), http.StatusCreated, &offer)
	return offer.ID
}

func TestOfferSendQuotaFreePlan(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.CreateOwner("free")

	for i := 0; i < 2; i++ {
		id := createDraft(t, env, token)
		var sent idPayload
		testutil.Data(t, env.Request(http.MethodPost, "/api/offers/"+id+"/send", nil, token), http.StatusOK, &sent)
	}

	var quota quotaPayload
	testutil.Data(t, env.Request(http.MethodGet, "/api/me/quota", nil, token), http.StatusOK, &quota)
	require.Equal(t, "free", quota.Plan)
	require.Equal(t, 2, quota.Used)
	require.True(t, quota.CanSend)
	require.NotNil(t, quota.Remaining)
	require.Equal(t, 1, *quota.Remaining)

	var third idPayload
	testutil.Data(t, env.Request(http.MethodPost, "/api/offers/"+createDraft(t, env, token)+"/send", nil, token), http.StatusOK, &third)

	testutil.Data(t, env.Request(http.MethodGet, "/api/me/quota", nil, token), http.StatusOK, &quota)
	require.False(t, quota.CanSend)
	require.Equal(t, 0, *quota.Remaining)

	w := env.Request(http.MethodPost, "/api/offers/"+createDraft(t, env, token)+"/send", nil, token)
	require.Equal(t, "OFFER_QUOTA_EXCEEDED", testutil.ErrorCode(t, w, http.StatusPaymentRequired))
	resp := testutil.DecodeResponse(t, w)
	require.Contains(t, resp.Error.Details, "quota")
}

func TestOfferSendUnlimitedPlan(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.CreateOwner("business")

	for i := 0; i < 4; i++ {
		var sent idPayload
		testutil.Data(t, env.Request(http.MethodPost, "/api/offers/"+createDraft(t, env, token)+"/send", nil, token), http.StatusOK, &sent)
	}

	var quota quotaPayload
	testutil.Data(t, env.Request(http.MethodGet, "/api/me/quota", nil, token), http.StatusOK, &quota)
	require.True(t, quota.Unlimited)
	require.Nil(t, quota.Remaining)
	require.Equal(t, 4, quota.Used)
}

func TestOfferEndpointsValidationAndScope(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.CreateOwner("free")
	_, otherToken := env.CreateOwner("free")

	code := testutil.ErrorCode(t, env.Request(http.MethodPost, "/api/offers", map[string]any{"net_amount_cents": 10}, token), http.StatusBadRequest)
	require.Equal(t, "VALIDATION_ERROR", code)

	code = testutil.ErrorCode(t, env.Request(http.MethodPost, "/api/offers", map[string]any{"title": "x", "currency": "EURO"}, token), http.StatusBadRequest)
	require.Equal(t, "VALIDATION_ERROR", code)

	id := createDraft(t, env, token)
	code = testutil.ErrorCode(t, env.Request(http.MethodGet, "/api/offers/"+id, nil, otherToken), http.StatusNotFound)
	require.Equal(t, "OFFER_NOT_FOUND", code)

	var sent idPayload
	testutil.Data(t, env.Request(http.MethodPost, "/api/offers/"+id+"/send", nil, token), http.StatusOK, &sent)
	code = testutil.ErrorCode(t, env.Request(http.MethodPost, "/api/offers/"+id+"/send", nil, token), http.StatusConflict)
	require.Equal(t, "OFFER_NOT_DRAFT", code)

	var list []idPayload
	w := env.Request(http.MethodGet, "/api/offers?status=sent", nil, token)
	testutil.Data(t, w, http.StatusOK, &list)
	require.Len(t, list, 1)
	require.Equal(t, 1, testutil.DecodeResponse(t, w).Meta.Total)
}

func TestHealthAndNotFound(t *testing.T) {
	env := testutil.NewEnv(t)

	var health map[string]any
	testutil.Data(t, env.Request(http.MethodGet, "/health", nil, ""), http.StatusOK, &health)
	require.Equal(t, "ok", health["status"])

	code := testutil.ErrorCode(t, env.Request(http.MethodGet, "/api/unknown", nil, ""), http.StatusNotFound)
	require.Equal(t, "NOT_FOUND", code)
}
