package workflow

// Action is a named request-lifecycle action that may change the status
type Action string

const (
	ActionSubmit            Action = "SUBMIT"
	ActionAuthorize         Action = "AUTHORIZE"
	ActionDecline           Action = "DECLINE"
	ActionAttendPayables    Action = "ATTEND_PAYABLES"
	ActionAttendAgency      Action = "ATTEND_AGENCY"
	ActionCancel            Action = "CANCEL"
	ActionSendForValidation Action = "SEND_FOR_VALIDATION"
	ActionReturnForProof    Action = "RETURN_FOR_PROOF"
	ActionFinalize          Action = "FINALIZE"
)

// AllActions lists every action the transition table understands
var AllActions = []Action{
	ActionSubmit,
	ActionAuthorize,
	ActionDecline,
	ActionAttendPayables,
	ActionAttendAgency,
	ActionCancel,
	ActionSendForValidation,
	ActionReturnForProof,
	ActionFinalize,
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}
