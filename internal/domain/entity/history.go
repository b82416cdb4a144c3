package entity

import (
	"time"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
)

// StatusChange is one entry of a request's status audit trail
type StatusChange struct {
	ID         int64           `json:"id"`
	RequestID  int64           `json:"request_id"`
	FromStatus workflow.Status `json:"from_status"`
	ToStatus   workflow.Status `json:"to_status"`
	Action     workflow.Action `json:"action"`
	ActorID    int64           `json:"actor_id"`
	CreatedAt  time.Time       `json:"created_at"`
}
