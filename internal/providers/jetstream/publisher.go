package jetstream

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/credit-markets/subgraphs/internal/adapter"
	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/messaging"
)

const (
	// StreamName is the durable stream holding every normalized chain event
	StreamName = "EVENTS"

	// SubjectWildcard matches all event subjects across chains and types
	SubjectWildcard = "events.>"
)

// publisher writes normalized events to the EVENTS stream. Publishes carry a
// message id derived from the event coordinates so JetStream deduplicates
// redelivered logs.
type publisher struct {
	conn adapter.NatsConn
	js   adapter.JetStream
	json adapter.JSON
}

// NewPublisher connects to NATS, ensures the EVENTS stream exists and
// returns a Publisher over it
func NewPublisher(ctx context.Context, njs adapter.NatsJetStream, url string, json adapter.JSON, opts ...nats.Option) (messaging.Publisher, error) {
	conn, js, err := njs.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	if err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectWildcard},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create event stream: %w", err)
	}

	return &publisher{
		conn: conn,
		js:   js,
		json: json,
	}, nil
}

func (p *publisher) Publish(ctx context.Context, event *domain.Event) error {
	if !event.Valid() {
		return fmt.Errorf("refusing to publish invalid event: %+v", event)
	}

	data, err := p.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msgID := fmt.Sprintf("%s:%s:%d", event.Chain, event.TxHash, event.LogIndex)
	if _, err := p.js.Publish(ctx, event.Subject(), data, jetstream.WithMsgID(msgID)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *publisher) Close() error {
	p.conn.Close()
	return nil
}
