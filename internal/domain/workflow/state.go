package workflow

import "fmt"

// Status is the lifecycle status of a travel request. The numeric codes are
// persisted as-is and must never be renumbered.
type Status int

const (
	StatusDraft             Status = 1
	StatusFirstReview       Status = 2
	StatusSecondReview      Status = 3
	StatusTripQuote         Status = 4
	StatusTravelAgency      Status = 5
	StatusExpenseProof      Status = 6
	StatusReceiptValidation Status = 7
	StatusFinalized         Status = 8
	StatusCancelled         Status = 9
	StatusDeclined          Status = 10
)

// AllStatuses lists every defined status in code order
var AllStatuses = []Status{
	StatusDraft,
	StatusFirstReview,
	StatusSecondReview,
	StatusTripQuote,
	StatusTravelAgency,
	StatusExpenseProof,
	StatusReceiptValidation,
	StatusFinalized,
	StatusCancelled,
	StatusDeclined,
}

var statusNames = map[Status]string{
	StatusDraft:             "DRAFT",
	StatusFirstReview:       "FIRST_REVIEW",
	StatusSecondReview:      "SECOND_REVIEW",
	StatusTripQuote:         "TRIP_QUOTE",
	StatusTravelAgency:      "TRAVEL_AGENCY",
	StatusExpenseProof:      "EXPENSE_PROOF",
	StatusReceiptValidation: "RECEIPT_VALIDATION",
	StatusFinalized:         "FINALIZED",
	StatusCancelled:         "CANCELLED",
	StatusDeclined:          "DECLINED",
}

// statusLabels are the human-readable labels sent to notification recipients
var statusLabels = map[Status]string{
	StatusDraft:             "Draft",
	StatusFirstReview:       "First review",
	StatusSecondReview:      "Second review",
	StatusTripQuote:         "Trip quote",
	StatusTravelAgency:      "Travel agency",
	StatusExpenseProof:      "Expense proof",
	StatusReceiptValidation: "Receipt validation",
	StatusFinalized:         "Finalized",
	StatusCancelled:         "Cancelled",
	StatusDeclined:          "Declined",
}

var terminalStatuses = map[Status]bool{
	StatusFinalized: true,
	StatusCancelled: true,
	StatusDeclined:  true,
}

// IsTerminal returns true if no further transitions leave the status
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsValid returns true if the status is one of the defined codes
func (s Status) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

// String returns the stable name of the status
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(%d)", int(s))
}

// Label returns the display label used in notifications and reports
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return s.String()
}

// ParseStatus converts a persisted code into a Status
func ParseStatus(code int) (Status, error) {
	s := Status(code)
	if !s.IsValid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidState, code)
	}
	return s, nil
}
