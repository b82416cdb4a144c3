package workflow

import "fmt"

// cancellable is the set of statuses a request may be cancelled from
var cancellable = []Status{
	StatusDraft,
	StatusFirstReview,
	StatusSecondReview,
	StatusTripQuote,
	StatusTravelAgency,
}

func roleIs(roles ...Role) GuardFunc {
	return func(f Facts) bool {
		for _, r := range roles {
			if f.Role == r {
				return true
			}
		}
		return false
	}
}

func payablesWithBooking(f Facts) bool {
	return f.Role == RoleAccountsPayable && f.NeedsBooking
}

func payablesWithoutBooking(f Facts) bool {
	return f.Role == RoleAccountsPayable && !f.NeedsBooking
}

// newRequestBuilder declares the complete request status graph
func newRequestBuilder() StateMachineBuilder {
	builder := NewBuilder()

	builder.Configure(StatusDraft).
		PermitIf(ActionSubmit, StatusFirstReview, roleIs(RoleRequester)).
		PermitIf(ActionSubmit, StatusSecondReview, roleIs(RoleAuthorizerL1)).
		PermitIf(ActionSubmit, StatusTripQuote, roleIs(RoleAuthorizerL2))

	builder.Configure(StatusFirstReview).
		PermitIf(ActionAuthorize, StatusSecondReview, roleIs(RoleAuthorizerL1)).
		PermitIf(ActionAuthorize, StatusTripQuote, roleIs(RoleAuthorizerL2))

	builder.Configure(StatusSecondReview).
		PermitIf(ActionAuthorize, StatusTripQuote, roleIs(RoleAuthorizerL2))

	builder.Configure(StatusTripQuote).
		PermitIf(ActionAttendPayables, StatusTravelAgency, payablesWithBooking).
		PermitIf(ActionAttendPayables, StatusExpenseProof, payablesWithoutBooking)

	builder.Configure(StatusTravelAgency).
		PermitIf(ActionAttendAgency, StatusExpenseProof, roleIs(RoleTravelAgency))

	builder.Configure(StatusExpenseProof).
		Permit(ActionSendForValidation, StatusReceiptValidation).
		Permit(ActionReturnForProof, StatusExpenseProof)

	builder.Configure(StatusReceiptValidation).
		Permit(ActionReturnForProof, StatusExpenseProof).
		Permit(ActionFinalize, StatusFinalized)

	for _, s := range cancellable {
		builder.Configure(s).Permit(ActionCancel, StatusCancelled)
	}

	// Authorizers may decline anything still in flight
	for _, s := range AllStatuses {
		if s.IsTerminal() {
			continue
		}
		builder.Configure(s).PermitIf(ActionDecline, StatusDeclined, roleIs(RoleAuthorizerL1, RoleAuthorizerL2))
	}

	return builder
}

var requestGraph = newRequestBuilder()

// NewRequestMachine returns a state machine over the request graph positioned at current
func NewRequestMachine(current Status) StateMachine {
	return requestGraph.Build(current)
}

// Decide returns the status reached by firing action from current with the given facts.
// Cancel failures are reported as ErrAlreadyCancelled or ErrTooLateToCancel.
func Decide(current Status, action Action, facts Facts) (Status, error) {
	if !current.IsValid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidState, int(current))
	}

	machine := NewRequestMachine(current)
	if action == ActionCancel && !machine.CanFire(ActionCancel) {
		if current == StatusCancelled {
			return 0, ErrAlreadyCancelled
		}
		return 0, ErrTooLateToCancel
	}
	if err := machine.Fire(facts, action); err != nil {
		return 0, err
	}

	return machine.Status(), nil
}

// InitialStatus returns the status a new, non-draft request starts in for
// the creating role.
func InitialStatus(role Role) (Status, error) {
	return Decide(StatusDraft, ActionSubmit, Facts{Role: role})
}
