package approval

import (
	"strings"

	"github.com/charlesng35/quotedesk/internal/models"
)

// Status is the client-facing state of an approval.
type Status = models.ApprovalStatus

const (
	StatusPending  = models.ApprovalPending
	StatusSent     = models.ApprovalSent
	StatusViewed   = models.ApprovalViewed
	StatusApproved = models.ApprovalApproved
	StatusRejected = models.ApprovalRejected
)

var (
	// viewableFrom lists the states a first view may transition out of. sent is an alias of pending.
	viewableFrom = []Status{StatusPending, StatusSent}
	// decidableFrom lists the states a client decision may transition out of.
	decidableFrom = []Status{StatusPending, StatusSent, StatusViewed}
)

// Action is a client decision on an offer.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseAction normalises a raw action string.
func ParseAction(raw string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionApprove:
		return ActionApprove, true
	case ActionReject:
		return ActionReject, true
	default:
		return "", false
	}
}

// Target returns the terminal status an action moves to.
func (a Action) Target() Status {
	if a == ActionApprove {
		return StatusApproved
	}
	return StatusRejected
}

func statusIn(status Status, set []Status) bool {
	for _, candidate := range set {
		if status == candidate {
			return true
		}
	}
	return false
}
