package workflow

// Facts carries what guards may inspect when an action is fired
type Facts struct {
	// Role of the acting user, looked up at call time
	Role Role
	// NeedsBooking is true when any leg of the request needs a flight or a hotel
	NeedsBooking bool
}

// StateMachine tracks the current status of one request and validates transitions
type StateMachine interface {
	// Status returns the current status
	Status() Status

	// CanFire returns true if the action is configured from the current status
	CanFire(action Action) bool

	// Fire attempts the action, moving to the new status if a transition admits it
	Fire(facts Facts, action Action) error
}
