package event

import (
	"time"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
	"github.com/google/uuid"
)

// Payload keys set by NewTransition
const (
	KeyFromStatus = "from_status"
	KeyToStatus   = "to_status"
	KeyAction     = "action"
)

// Event represents a domain event about one request
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	RequestID     int64                  `json:"request_id"`
	ActorID       int64                  `json:"actor_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with a generated ID and timestamp
func NewEvent(eventType Type, requestID, actorID int64, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	return &Event{
		ID:            id,
		Type:          eventType,
		RequestID:     requestID,
		ActorID:       actorID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: id,
	}
}

// NewTransition creates the event published after a request moves from one
// status to another.
func NewTransition(eventType Type, requestID, actorID int64, from, to workflow.Status, action workflow.Action) *Event {
	return NewEvent(eventType, requestID, actorID, map[string]interface{}{
		KeyFromStatus: int(from),
		KeyToStatus:   int(to),
		KeyAction:     string(action),
	})
}

// WithCorrelation returns a copy of the event joined to an existing correlation chain
func (e *Event) WithCorrelation(correlationID string) *Event {
	clone := *e
	clone.CorrelationID = correlationID
	return &clone
}

// ToStatus returns the status the request reached, or 0 when the payload has none
func (e *Event) ToStatus() workflow.Status {
	return workflow.Status(e.GetPayloadInt(KeyToStatus))
}

// FromStatus returns the status the request left, or 0 when the payload has none
func (e *Event) FromStatus() workflow.Status {
	return workflow.Status(e.GetPayloadInt(KeyFromStatus))
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an integer value from the payload. JSON-decoded
// numbers arrive as float64 and are truncated.
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}
