package entitlement

import "strings"

// PlanID identifies a subscription tier.
type PlanID string

const (
	PlanFree       PlanID = "free"
	PlanStarter    PlanID = "starter"
	PlanPro        PlanID = "pro"
	PlanBusiness   PlanID = "business"
	PlanEnterprise PlanID = "enterprise"
)

// Limits captures per-plan feature limits. Zero means unlimited.
type Limits struct {
	MonthlyOffers int `json:"monthly_offers"`
	Projects      int `json:"projects"`
	TeamMembers   int `json:"team_members"`
}

// Plan is read-only reference data describing a subscription tier.
type Plan struct {
	ID          PlanID `json:"id"`
	DisplayName string `json:"display_name"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
	Limits      Limits `json:"limits"`
}

// Free reports whether the plan is subject to the monthly offer quota.
func (p Plan) Free() bool {
	return p.ID == PlanFree
}

// Catalog lists every plan in ascending price order.
var Catalog = []Plan{
	{ID: PlanFree, DisplayName: "Free", PriceCents: 0, Currency: "EUR", Limits: Limits{MonthlyOffers: DefaultFreeOfferLimit, Projects: 10, TeamMembers: 1}},
	{ID: PlanStarter, DisplayName: "Starter", PriceCents: 1900, Currency: "EUR", Limits: Limits{Projects: 100, TeamMembers: 1}},
	{ID: PlanPro, DisplayName: "Pro", PriceCents: 3900, Currency: "EUR", Limits: Limits{TeamMembers: 3}},
	{ID: PlanBusiness, DisplayName: "Business", PriceCents: 7900, Currency: "EUR", Limits: Limits{TeamMembers: 10}},
	{ID: PlanEnterprise, DisplayName: "Enterprise", PriceCents: 19900, Currency: "EUR"},
}

// ParsePlanID normalises a raw plan identifier. The boolean reports whether it names a catalog plan.
func ParsePlanID(raw string) (PlanID, bool) {
	id := PlanID(strings.ToLower(strings.TrimSpace(raw)))
	for _, plan := range Catalog {
		if plan.ID == id {
			return id, true
		}
	}
	return id, false
}

// LookupPlan returns the catalog entry for id.
func LookupPlan(id string) (Plan, bool) {
	parsed, ok := ParsePlanID(id)
	if !ok {
		return Plan{}, false
	}
	for _, plan := range Catalog {
		if plan.ID == parsed {
			return plan, true
		}
	}
	return Plan{}, false
}
