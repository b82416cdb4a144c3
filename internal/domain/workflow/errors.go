package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when an action is not allowed from the current status
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidState is returned when a status code is not defined
	ErrInvalidState = errors.New("invalid status")

	// ErrGuardFailed is returned when the action is configured but no guard admits the actor
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrAlreadyCancelled is returned when cancelling a cancelled request
	ErrAlreadyCancelled = errors.New("request is already cancelled")

	// ErrTooLateToCancel is returned when cancelling after the trip has been booked or closed
	ErrTooLateToCancel = errors.New("request can no longer be cancelled")
)
