package approval

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the token, link or offer does not resolve.
	ErrNotFound = errors.New("approval: not found")
	// ErrAlreadyProcessed indicates the approval already reached a terminal state.
	ErrAlreadyProcessed = errors.New("approval: already processed")
	// ErrExpired indicates the link is past its expiry.
	ErrExpired = errors.New("approval: link expired")
	// ErrValidation indicates a decision payload is incomplete.
	ErrValidation = errors.New("approval: validation failed")
	// ErrOfferNotSent indicates a link was requested for an offer that is still a draft.
	ErrOfferNotSent = errors.New("approval: offer has not been sent")
	// ErrUnauthorized indicates the caller does not own the offer or link.
	ErrUnauthorized = errors.New("approval: not the owner")
	// ErrConflict indicates a duplicate insert that could not be resolved to an existing link.
	ErrConflict = errors.New("approval: conflict")
)

// ValidationError describes which field of a decision payload was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("approval: %s %s", e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
