package service

import (
	"errors"
	"fmt"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/apperror"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
)

// Codes for invalid transitions that callers tell apart
const (
	CodeAlreadyCancelled = "ALREADY_CANCELLED"
	CodeTooLateToCancel  = "TOO_LATE_TO_CANCEL"
	CodeAlreadyDecided   = "ALREADY_DECIDED"
	CodeNotApplicable    = "NOT_APPLICABLE"
)

var (
	ErrRequestNotFound = apperror.NotFound("request not found")
	ErrReceiptNotFound = apperror.NotFound("receipt not found")
	ErrUserNotFound    = apperror.NotFound("user not found")
	ErrFileNotFound    = apperror.NotFound("receipt file not found")

	ErrRoleNotPermitted = apperror.Unauthorized("role is not permitted to perform this action")
	ErrNotOwner         = apperror.Unauthorized("only the request owner may perform this action")
	ErrUserInactive     = apperror.Unauthorized("user is inactive")

	ErrAlreadyCancelled      = apperror.InvalidTransition(CodeAlreadyCancelled, "request is already cancelled")
	ErrTooLateToCancel       = apperror.InvalidTransition(CodeTooLateToCancel, "request can no longer be cancelled")
	ErrReceiptAlreadyDecided = apperror.InvalidTransition(CodeAlreadyDecided, "receipt has already been decided")
	ErrRequestClosed         = apperror.InvalidTransition(apperror.CodeInvalidTransition, "request is closed")
	ErrNotCollectingProof    = apperror.InvalidTransition(apperror.CodeInvalidTransition, "request is not collecting expense proof")

	ErrEmptyBatch = apperror.Validation("receipt batch must not be empty")
)

// transitionError translates a state machine refusal into the caller-facing kind
func transitionError(err error, current workflow.Status, action workflow.Action) error {
	switch {
	case errors.Is(err, workflow.ErrAlreadyCancelled):
		return ErrAlreadyCancelled
	case errors.Is(err, workflow.ErrTooLateToCancel):
		return ErrTooLateToCancel
	case errors.Is(err, workflow.ErrGuardFailed):
		return apperror.Unauthorized(fmt.Sprintf("role may not %s a request in status %s", action, current))
	case errors.Is(err, workflow.ErrInvalidTransition):
		return apperror.InvalidTransition(apperror.CodeInvalidTransition,
			fmt.Sprintf("cannot %s a request in status %s", action, current))
	}
	return apperror.Persistence(err)
}

// persistenceError passes tagged errors through and hides anything else
func persistenceError(err error) error {
	if _, ok := apperror.As(err); ok {
		return err
	}
	return apperror.Persistence(err)
}
