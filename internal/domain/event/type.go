package event

// Type identifies the type of domain event
type Type string

const (
	// TypeRequestSubmitted fires once when a request leaves draft on creation
	TypeRequestSubmitted Type = "request.submitted"
	// TypeStatusChanged fires after every committed status transition
	TypeStatusChanged Type = "request.status_changed"
)

func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestSubmitted, TypeStatusChanged:
		return true
	default:
		return false
	}
}
