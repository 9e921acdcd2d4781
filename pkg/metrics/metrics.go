package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ApprovalTransitions counts approval state changes by target status and outcome (ok|rejected|error).
	ApprovalTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotedesk_approval_transitions_total",
			Help: "Approval state transitions attempted by clients",
		},
		[]string{"to", "result"},
	)

	// ApprovalLinksCreated counts link creation calls by whether a new link was inserted.
	ApprovalLinksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotedesk_approval_links_created_total",
			Help: "Approval link creation requests",
		},
		[]string{"created"},
	)

	// ViewTrackingFailures counts swallowed view-tracking errors.
	ViewTrackingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quotedesk_approval_view_tracking_failures_total",
			Help: "Failures while recording that a client opened an approval link",
		},
	)

	// OfferGateDecisions counts entitlement checks by plan and outcome (allow|deny).
	OfferGateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotedesk_offer_gate_decisions_total",
			Help: "Entitlement gate decisions for sending offers",
		},
		[]string{"plan", "result"},
	)

	// ExpiredPendingApprovals tracks approvals still undecided after their link expired.
	ExpiredPendingApprovals = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quotedesk_approvals_expired_pending",
			Help: "Undecided approvals whose link has expired",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quotedesk_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
