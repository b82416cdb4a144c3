package dispatcher

import (
	"context"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler
type HandlerInfo struct {
	Name      string
	EventType event.Type
}

type registration struct {
	HandlerInfo
	handler Handler
}
