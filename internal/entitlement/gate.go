package entitlement

import "math"

const (
	// DefaultFreeOfferLimit is the number of offers a free account may finalize per UTC month.
	DefaultFreeOfferLimit = 3

	// Unlimited is reported as the remaining quota for plans without an offer cap.
	Unlimited = math.MaxInt
)

// Gate decides whether a user may finalize another offer this month.
type Gate struct {
	freeOfferLimit int
}

// Option configures a Gate.
type Option func(*Gate)

// WithFreeOfferLimit overrides the monthly free-tier limit. Negative values are clamped to zero.
func WithFreeOfferLimit(limit int) Option {
	return func(g *Gate) {
		if limit < 0 {
			limit = 0
		}
		g.freeOfferLimit = limit
	}
}

// NewGate constructs a gate using DefaultFreeOfferLimit unless overridden.
func NewGate(opts ...Option) *Gate {
	g := &Gate{freeOfferLimit: DefaultFreeOfferLimit}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FreeOfferLimit returns the configured monthly limit for the free plan.
func (g *Gate) FreeOfferLimit() int {
	return g.freeOfferLimit
}

// CanSendOffer reports whether another offer may be finalized given the count already used this month.
// Any plan other than free, including unrecognised identifiers, is allowed.
func (g *Gate) CanSendOffer(plan string, monthlyUsed int) bool {
	if !isFree(plan) {
		return true
	}
	return monthlyUsed < g.freeOfferLimit
}

// RemainingOfferQuota returns how many offers may still be finalized this month, or Unlimited.
func (g *Gate) RemainingOfferQuota(plan string, monthlyUsed int) int {
	if !isFree(plan) {
		return Unlimited
	}
	remaining := g.freeOfferLimit - monthlyUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

var defaultGate = NewGate()

// CanSendOffer evaluates the default gate.
func CanSendOffer(plan string, monthlyUsed int) bool {
	return defaultGate.CanSendOffer(plan, monthlyUsed)
}

// RemainingOfferQuota evaluates the default gate.
func RemainingOfferQuota(plan string, monthlyUsed int) int {
	return defaultGate.RemainingOfferQuota(plan, monthlyUsed)
}

func isFree(plan string) bool {
	id, _ := ParsePlanID(plan)
	return id == PlanFree
}
