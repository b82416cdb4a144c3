package service

import (
	"context"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/event"
)

// EventPublisher is the part of the dispatcher the services publish through.
// Events are published only after the transaction that caused them commits.
type EventPublisher interface {
	DispatchAsync(ctx context.Context, evt *event.Event)
}

type nopPublisher struct{}

func (nopPublisher) DispatchAsync(context.Context, *event.Event) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
