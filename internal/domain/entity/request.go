package entity

import (
	"time"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// Request represents a travel expense request
type Request struct {
	ID          int64           `json:"id"`
	OwnerID     int64           `json:"owner_id"`
	Status      workflow.Status `json:"status"`
	Notes       string          `json:"notes"`
	ProposedFee decimal.Decimal `json:"proposed_fee"`
	ImposedFee  decimal.Decimal `json:"imposed_fee"`
	TripDays    int             `json:"trip_days"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RequestDetail is a request together with its ordered legs
type RequestDetail struct {
	*Request
	StatusLabel string   `json:"status_label"`
	Routes      []*Route `json:"routes"`
}

// StatusUpdate is the single write a transition performs on a request
type StatusUpdate struct {
	RequestID  int64
	Status     workflow.Status
	// ImposedFee is written only when set
	ImposedFee *decimal.Decimal
	UpdatedAt  time.Time
}
