package entitlement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNonFreePlansAreUnlimited(t *testing.T) {
	for _, plan := range []string{"starter", "pro", "business", "enterprise", "PRO ", "", "gold"} {
		for _, used := range []int{0, 1, 3, 100, 100000} {
			require.True(t, CanSendOffer(plan, used), "plan %q used %d", plan, used)
			require.Equal(t, Unlimited, RemainingOfferQuota(plan, used), "plan %q used %d", plan, used)
		}
	}
}

func TestFreePlanQuota(t *testing.T) {
	for used := 0; used <= 10; used++ {
		require.Equal(t, used < 3, CanSendOffer("free", used), "used %d", used)

		expected := 3 - used
		if expected < 0 {
			expected = 0
		}
		require.Equal(t, expected, RemainingOfferQuota("free", used), "used %d", used)
	}
}

func TestFreePlanIdentifierIsNormalised(t *testing.T) {
	require.False(t, CanSendOffer("  Free ", 3))
	require.Equal(t, 1, RemainingOfferQuota("FREE", 2))
}

func TestFreeTierScenario(t *testing.T) {
	used := 2
	require.True(t, CanSendOffer("free", used))
	require.Equal(t, 1, RemainingOfferQuota("free", used))

	used++
	require.False(t, CanSendOffer("free", used))
	require.Equal(t, 0, RemainingOfferQuota("free", used))
}

func TestGateWithCustomLimit(t *testing.T) {
	gate := NewGate(WithFreeOfferLimit(5))
	require.Equal(t, 5, gate.FreeOfferLimit())
	require.True(t, gate.CanSendOffer("free", 4))
	require.False(t, gate.CanSendOffer("free", 5))
	require.Equal(t, 2, gate.RemainingOfferQuota("free", 3))

	closed := NewGate(WithFreeOfferLimit(-1))
	require.Equal(t, 0, closed.FreeOfferLimit())
	require.False(t, closed.CanSendOffer("free", 0))
}
