package handlers

import (
	stderrors "errors"

	"github.com/charlesng35/quotedesk/internal/approval"
	"github.com/charlesng35/quotedesk/pkg/errors"
)

// approvalError maps approval domain errors onto API errors. Anything else passes through.
func approvalError(err error) error {
	var validation *approval.ValidationError
	switch {
	case stderrors.As(err, &validation):
		return errors.NewValidation(validation.Field + " " + validation.Reason)
	case stderrors.Is(err, approval.ErrNotFound):
		return errors.ErrApprovalNotFound
	case stderrors.Is(err, approval.ErrAlreadyProcessed):
		return errors.ErrApprovalProcessed
	case stderrors.Is(err, approval.ErrExpired):
		return errors.ErrApprovalExpired
	case stderrors.Is(err, approval.ErrValidation):
		return errors.ErrValidation
	case stderrors.Is(err, approval.ErrOfferNotSent):
		return errors.ErrOfferNotSent
	case stderrors.Is(err, approval.ErrUnauthorized):
		return errors.ErrForbidden
	case stderrors.Is(err, approval.ErrConflict):
		return errors.ErrConflict
	default:
		return err
	}
}
