package infrastructure

import (
	"context"

	"dkpauction/domain/events"
)

// NoopEventPublisher forwards events to the local bus only.
// Used when NATS is disabled and for admin commands.
type NoopEventPublisher struct {
	localBus *events.Bus
}

// NewNoopEventPublisher creates a new no-op event publisher. localBus may be nil.
func NewNoopEventPublisher(localBus *events.Bus) *NoopEventPublisher {
	return &NoopEventPublisher{localBus: localBus}
}

// Publish delivers to the local bus, if any
func (n *NoopEventPublisher) Publish(event events.Event) error {
	if n.localBus != nil {
		n.localBus.Emit(context.Background(), event)
	}
	return nil
}
