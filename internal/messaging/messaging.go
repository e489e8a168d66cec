package messaging

import (
	"context"

	"github.com/credit-markets/subgraphs/internal/domain"
)

// Publisher delivers chain events to the durable event stream
type Publisher interface {
	Publish(ctx context.Context, event *domain.Event) error
	Close() error
}

// HandlerFunc processes a single event. Returning an error means the event
// was not consumed and delivery should be retried.
type HandlerFunc func(ctx context.Context, event *domain.Event) error

// Subscriber replays the event stream to a handler in publish order
type Subscriber interface {
	// Subscribe blocks delivering events until ctx is cancelled or the
	// handler returns an unrecoverable error
	Subscribe(ctx context.Context, handler HandlerFunc) error
	Close() error
}
