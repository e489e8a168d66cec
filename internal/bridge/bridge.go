// Package bridge connects the durable event stream to the projector: it
// replays one chain's events in publish order and applies each to the store
// before acknowledging.
package bridge

import (
	"context"
	"fmt"

	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/messaging"
	"github.com/credit-markets/subgraphs/internal/projector"
)

// Bridge defines the interface for the event bridge
type Bridge interface {
	// Run starts the event bridge and blocks until ctx is cancelled or the
	// pipeline fails
	Run(ctx context.Context) error
	// Close closes the bridge and cleans up resources
	Close()
}

type bridge struct {
	subscriber messaging.Subscriber
	projector  *projector.Projector
}

// NewBridge creates a new event bridge
func NewBridge(sub messaging.Subscriber, p *projector.Projector) Bridge {
	return &bridge{
		subscriber: sub,
		projector:  p,
	}
}

// Run consumes events sequentially. Event order is load-bearing for the
// projection, so one event is in flight at a time and an event is
// acknowledged only after its effects are persisted.
func (b *bridge) Run(ctx context.Context) error {
	err := b.subscriber.Subscribe(ctx, func(ctx context.Context, event *domain.Event) error {
		return b.projector.Handle(ctx, event)
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("event subscription failed: %w", err)
	}
	return err
}

// Close closes the bridge and cleans up resources
func (b *bridge) Close() {
	_ = b.subscriber.Close()
}
