package approval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/quotedesk/internal/database/testutil"
	"github.com/charlesng35/quotedesk/internal/models"
)

func newGormStore(t *testing.T) *GormStore {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := NewGormStore(db)
	require.NoError(t, err)
	return store
}

func seedLink(offerID, token string, expiresAt time.Time) (*models.ApprovalLink, *models.OfferApproval) {
	link := &models.ApprovalLink{OfferID: offerID, OwnerID: "owner-1", Token: token, ExpiresAt: expiresAt}
	approval := &models.OfferApproval{OfferID: offerID, OwnerID: "owner-1", Token: token, Status: StatusPending, ExpiresAt: expiresAt}
	return link, approval
}

func TestNewGormStoreRequiresDB(t *testing.T) {
	_, err := NewGormStore(nil)
	require.Error(t, err)
}

func TestGormStoreInsertOrGetExisting(t *testing.T) {
	store := newGormStore(t)
	ctx := context.Background()
	expires := time.Now().UTC().Add(24 * time.Hour)

	link, approval := seedLink("offer-1", "token-1", expires)
	stored, created, err := store.InsertOrGetExisting(ctx, link, approval)
	require.NoError(t, err)
	require.True(t, created)
	require.NotEmpty(t, stored.ID)
	require.Equal(t, stored.ID, approval.LinkID)

	again, approvalAgain := seedLink("offer-1", "token-2", expires)
	existing, created, err := store.InsertOrGetExisting(ctx, again, approvalAgain)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, stored.ID, existing.ID)
	require.Equal(t, "token-1", existing.Token)

	_, err = store.SelectApprovalByToken(ctx, "token-2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGormStoreLookups(t *testing.T) {
	store := newGormStore(t)
	ctx := context.Background()

	link, approval := seedLink("offer-2", "token-lookup", time.Now().UTC().Add(time.Hour))
	_, _, err := store.InsertOrGetExisting(ctx, link, approval)
	require.NoError(t, err)

	byID, err := store.GetLink(ctx, link.ID)
	require.NoError(t, err)
	require.Equal(t, "offer-2", byID.OfferID)

	byOffer, err := store.GetLinkByOffer(ctx, "offer-2")
	require.NoError(t, err)
	require.Equal(t, link.ID, byOffer.ID)

	byToken, err := store.SelectApprovalByToken(ctx, "token-lookup")
	require.NoError(t, err)
	require.Equal(t, link.ID, byToken.LinkID)

	_, err = store.GetLink(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetLinkByOffer(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGormStoreConditionalUpdate(t *testing.T) {
	store := newGormStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	link, approval := seedLink("offer-3", "token-cas", now.Add(time.Hour))
	_, _, err := store.InsertOrGetExisting(ctx, link, approval)
	require.NoError(t, err)

	affected, err := store.UpdateApprovalStatus(ctx, approval.ID, viewableFrom, Patch{
		Status:       StatusViewed,
		ViewedAt:     &now,
		UnviewedOnly: true,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	affected, err = store.UpdateApprovalStatus(ctx, approval.ID, viewableFrom, Patch{
		Status:       StatusViewed,
		ViewedAt:     &now,
		UnviewedOnly: true,
	})
	require.NoError(t, err)
	require.EqualValues(t, 0, affected)

	affected, err = store.UpdateApprovalStatus(ctx, approval.ID, decidableFrom, Patch{
		Status:          StatusApproved,
		ApprovedAt:      &now,
		SignatureData:   signature,
		SignatureDigest: "digest",
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	affected, err = store.UpdateApprovalStatus(ctx, approval.ID, decidableFrom, Patch{Status: StatusRejected, RejectedAt: &now})
	require.NoError(t, err)
	require.EqualValues(t, 0, affected)

	stored, err := store.SelectApprovalByToken(ctx, "token-cas")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, stored.Status)
	require.Equal(t, signature, stored.SignatureData)
	require.NotNil(t, stored.ViewedAt)
	require.NotNil(t, stored.ApprovedAt)
	require.Nil(t, stored.RejectedAt)
}

func TestGormStoreExtendAndDelete(t *testing.T) {
	store := newGormStore(t)
	ctx := context.Background()

	link, approval := seedLink("offer-4", "token-extend", time.Now().UTC().Add(-time.Hour))
	_, _, err := store.InsertOrGetExisting(ctx, link, approval)
	require.NoError(t, err)

	later := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	require.NoError(t, store.UpdateExpiry(ctx, link.ID, later))

	reloaded, err := store.GetLink(ctx, link.ID)
	require.NoError(t, err)
	require.True(t, reloaded.ExpiresAt.Equal(later))

	stored, err := store.SelectApprovalByToken(ctx, "token-extend")
	require.NoError(t, err)
	require.True(t, stored.ExpiresAt.Equal(later))

	require.ErrorIs(t, store.UpdateExpiry(ctx, "missing", later), ErrNotFound)

	require.NoError(t, store.DeleteLink(ctx, link.ID))
	_, err = store.SelectApprovalByToken(ctx, "token-extend")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, store.DeleteLink(ctx, link.ID), ErrNotFound)
}

func TestServiceOverGormStore(t *testing.T) {
	store := newGormStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	svc, err := NewService(store, stubOffers{"O1": "owner-1"}, WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := svc.CreateApprovalLink(ctx, "owner-1", "O1", LinkOptions{})
	require.NoError(t, err)
	second, err := svc.CreateApprovalLink(ctx, "owner-1", "O1", LinkOptions{})
	require.NoError(t, err)
	require.Equal(t, first.Token, second.Token)

	svc.RecordViewed(ctx, first.Token)
	viewed, err := svc.FetchApprovalByToken(ctx, first.Token)
	require.NoError(t, err)
	require.Equal(t, StatusViewed, viewed.Status)

	decided, err := svc.SubmitDecision(ctx, first.Token, ActionApprove, DecisionPayload{SignatureData: signature})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, decided.Status)

	_, err = svc.SubmitDecision(ctx, first.Token, ActionReject, DecisionPayload{})
	require.ErrorIs(t, err, ErrAlreadyProcessed)
}
