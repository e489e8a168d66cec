// Package emitter runs the chain side of the pipeline: it streams decoded
// protocol events from a node and publishes them to the durable event stream,
// checkpointing its block position so restarts resume where they left off.
package emitter

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/credit-markets/subgraphs/internal/adapter"
	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/logger"
	"github.com/credit-markets/subgraphs/internal/messaging"
	"github.com/credit-markets/subgraphs/internal/store"
)

// EventHandler processes one decoded chain event
type EventHandler func(event *domain.Event) error

// ChainSource streams decoded protocol events from a blockchain node
type ChainSource interface {
	// SubscribeEvents delivers events from fromBlock until ctx is cancelled
	// or the stream fails
	SubscribeEvents(ctx context.Context, fromBlock uint64, handler EventHandler) error
	// GetLatestBlock returns the current chain head number
	GetLatestBlock(ctx context.Context) (uint64, error)
	// Close releases the node connection
	Close()
}

// Config holds the configuration for the event emitter
type Config struct {
	ChainID         domain.Chain
	StartBlock      uint64        // 0 resumes from the stored cursor, or the chain head
	CursorSaveFreq  uint64        // Save cursor every N blocks
	CursorSaveDelay time.Duration // Or save cursor every N seconds
	MaxRetryBackoff time.Duration // Cap on the reconnect backoff interval
}

// Emitter defines the interface for the event emitter
type Emitter interface {
	// Run starts the event emitter and blocks until ctx is cancelled
	Run(ctx context.Context) error
	// Close closes the emitter and cleans up resources
	Close()
}

type emitter struct {
	source    ChainSource
	publisher messaging.Publisher
	store     store.Store
	config    Config
	clock     adapter.Clock
}

// NewEmitter creates a new event emitter
func NewEmitter(
	source ChainSource,
	pub messaging.Publisher,
	st store.Store,
	cfg Config,
	clock adapter.Clock,
) Emitter {
	return &emitter{
		source:    source,
		publisher: pub,
		store:     st,
		config:    cfg,
		clock:     clock,
	}
}

// Run streams events to the publisher, reconnecting with exponential backoff
// when the node subscription drops. The cursor restarts each attempt from the
// last checkpoint, so a reconnect may republish events; stream-side
// deduplication absorbs the overlap.
func (e *emitter) Run(ctx context.Context) error {
	startBlock, err := e.resolveStartBlock(ctx)
	if err != nil {
		return err
	}

	lastSavedBlock := uint64(0)
	lastSaveTime := e.clock.Now()

	handler := func(event *domain.Event) error {
		if err := e.publisher.Publish(ctx, event); err != nil {
			return fmt.Errorf("failed to publish event %s: %w", event.TxHash, err)
		}

		shouldSave := event.BlockNumber-lastSavedBlock >= e.config.CursorSaveFreq ||
			e.clock.Since(lastSaveTime) >= e.config.CursorSaveDelay

		if shouldSave {
			if err := e.store.SetBlockCursor(ctx, string(e.config.ChainID), event.BlockNumber); err != nil {
				logger.ErrorCtx(ctx, fmt.Errorf("failed to save block cursor: %w", err))
			} else {
				lastSavedBlock = event.BlockNumber
				lastSaveTime = e.clock.Now()
			}
		}

		return nil
	}

	policy := backoff.NewExponentialBackOff()
	if e.config.MaxRetryBackoff > 0 {
		policy.MaxInterval = e.config.MaxRetryBackoff
	}
	policy.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		fromBlock := startBlock
		if cursor, err := e.store.GetBlockCursor(ctx, string(e.config.ChainID)); err == nil && cursor >= startBlock {
			fromBlock = cursor + 1
		}

		logger.InfoCtx(ctx, "starting event subscription",
			zap.String("chain", string(e.config.ChainID)),
			zap.Uint64("from_block", fromBlock))

		err := e.source.SubscribeEvents(ctx, fromBlock, handler)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		logger.WarnCtx(ctx, "event subscription dropped, reconnecting", zap.Error(err))
		return err
	}, backoff.WithContext(policy, ctx))
}

// resolveStartBlock picks the first block to stream: the configured override,
// the block after the stored cursor, or the chain head for a fresh deploy
func (e *emitter) resolveStartBlock(ctx context.Context) (uint64, error) {
	if e.config.StartBlock > 0 {
		logger.InfoCtx(ctx, "starting from configured block",
			zap.String("chain", string(e.config.ChainID)),
			zap.Uint64("block", e.config.StartBlock))
		return e.config.StartBlock, nil
	}

	lastBlock, err := e.store.GetBlockCursor(ctx, string(e.config.ChainID))
	if err != nil {
		return 0, fmt.Errorf("failed to get block cursor: %w", err)
	}
	if lastBlock > 0 {
		logger.InfoCtx(ctx, "resuming from last processed block",
			zap.String("chain", string(e.config.ChainID)),
			zap.Uint64("block", lastBlock+1))
		return lastBlock + 1, nil
	}

	latestBlock, err := e.source.GetLatestBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block number: %w", err)
	}
	logger.InfoCtx(ctx, "starting from latest block",
		zap.String("chain", string(e.config.ChainID)),
		zap.Uint64("block", latestBlock))
	return latestBlock, nil
}

// Close closes the emitter and cleans up resources
func (e *emitter) Close() {
	e.source.Close()
}
