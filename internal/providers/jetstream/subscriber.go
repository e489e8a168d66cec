package jetstream

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/credit-markets/subgraphs/internal/adapter"
	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/logger"
	"github.com/credit-markets/subgraphs/internal/messaging"
)

// subscriber replays a single chain's events through a durable pull consumer.
// Messages are delivered one at a time with MaxAckPending=1, which preserves
// the (block, txIndex, logIndex) publish order the projector depends on.
type subscriber struct {
	conn     adapter.NatsConn
	js       adapter.JetStream
	json     adapter.JSON
	chain    domain.Chain
	consumer string
}

// NewSubscriber connects to NATS and returns a Subscriber over the chain's
// slice of the EVENTS stream. consumerName must be stable across restarts so
// redelivery resumes from the last acknowledged event.
func NewSubscriber(njs adapter.NatsJetStream, url string, json adapter.JSON, chain domain.Chain, consumerName string, opts ...nats.Option) (messaging.Subscriber, error) {
	conn, js, err := njs.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &subscriber{
		conn:     conn,
		js:       js,
		json:     json,
		chain:    chain,
		consumer: consumerName,
	}, nil
}

// chainSubject returns the subject filter covering every event type of a chain
func chainSubject(chain domain.Chain) string {
	return fmt.Sprintf("events.%s.>", strings.ReplaceAll(string(chain), ":", "_"))
}

func (s *subscriber) Subscribe(ctx context.Context, handler messaging.HandlerFunc) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       s.consumer,
		FilterSubject: chainSubject(s.chain),
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxAckPending: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	iter, err := consumer.Messages()
	if err != nil {
		return fmt.Errorf("failed to open message iterator: %w", err)
	}
	defer iter.Stop()

	go func() {
		<-ctx.Done()
		iter.Stop()
	}()

	for {
		msg, err := iter.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, jetstream.ErrMsgIteratorClosed) {
				return ctx.Err()
			}
			return fmt.Errorf("failed to fetch next message: %w", err)
		}

		if err := s.dispatch(ctx, msg, handler); err != nil {
			return err
		}
	}
}

// dispatch decodes one message and routes the handler outcome to an ack
// decision. Undecodable payloads are terminated so they never wedge the
// stream; handler failures are NAKed and the subscriber halts, leaving the
// event to be redelivered after restart.
func (s *subscriber) dispatch(ctx context.Context, msg adapter.Message, handler messaging.HandlerFunc) error {
	var event domain.Event
	if err := s.json.Unmarshal(msg.Data(), &event); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("dropping undecodable event payload: %w", err))
		if termErr := msg.Term(); termErr != nil {
			return fmt.Errorf("failed to terminate bad message: %w", termErr)
		}
		return nil
	}

	if err := handler(ctx, &event); err != nil {
		if nakErr := msg.Nak(); nakErr != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to nak message: %w", nakErr))
		}
		return fmt.Errorf("failed to handle event %s %s: %w", event.Type, event.TxHash, err)
	}

	if err := msg.Ack(); err != nil {
		return fmt.Errorf("failed to ack message: %w", err)
	}
	return nil
}

func (s *subscriber) Close() error {
	s.conn.Close()
	return nil
}
