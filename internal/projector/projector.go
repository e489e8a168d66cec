// Package projector folds normalized chain events into the entity store.
// Handlers are deterministic and idempotent: redelivering an event produces
// the same end state, and a missing referenced entity is a silent no-op
// rather than an error. Only persistence failures propagate.
package projector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/logger"
	"github.com/credit-markets/subgraphs/internal/providers/ethereum"
	"github.com/credit-markets/subgraphs/internal/registrar"
	"github.com/credit-markets/subgraphs/internal/store"
)

// Projector consumes the ordered event stream of one chain and maintains the
// projected entities
type Projector struct {
	chain     domain.Chain
	store     store.Store
	reader    ethereum.ChainReader
	registrar registrar.Registrar

	// registryAddress is the protocol registry contract, the source of role
	// identifiers for facilitator grants
	registryAddress string
}

// New creates a Projector for one chain
func New(chain domain.Chain, s store.Store, reader ethereum.ChainReader, reg registrar.Registrar, registryAddress string) *Projector {
	return &Projector{
		chain:           chain,
		store:           s,
		reader:          reader,
		registrar:       reg,
		registryAddress: domain.NormalizeAddress(registryAddress),
	}
}

// Handle applies one event to the store. Events must arrive in
// (block, txIndex, logIndex) order; the caller is responsible for sequencing.
func (p *Projector) Handle(ctx context.Context, event *domain.Event) error {
	if !event.Valid() {
		logger.WarnCtx(ctx, "skipping invalid event", zap.Any("event", event))
		return nil
	}
	if event.Chain != p.chain {
		return nil
	}

	switch event.Type {
	case domain.EventTypeFactoryAdded:
		return p.handleFactoryAdded(ctx, event)
	case domain.EventTypeFactoryRemoved:
		return p.handleFactoryRemoved(ctx, event)
	case domain.EventTypeTokenAdded:
		return p.handleTokenAdded(ctx, event)
	case domain.EventTypeTokenRemoved:
		return p.handleTokenRemoved(ctx, event)
	case domain.EventTypePoolAdded:
		return p.handlePoolAdded(ctx, event)
	case domain.EventTypePoolRemoved:
		return p.handlePoolRemoved(ctx, event)
	case domain.EventTypeAccountCreated:
		return p.handleAccountCreated(ctx, event)
	case domain.EventTypeOwnersUpdated:
		return p.handleOwnersUpdated(ctx, event)
	case domain.EventTypeKYCAttested:
		return p.handleKYCAttested(ctx, event)
	case domain.EventTypeKYCRevoked:
		return p.handleKYCRevoked(ctx, event)
	case domain.EventTypeRoleGranted:
		return p.handleRoleGranted(ctx, event)
	case domain.EventTypeRoleRevoked:
		return p.handleRoleRevoked(ctx, event)
	case domain.EventTypeTransfer:
		return p.handleTransfer(ctx, event)
	case domain.EventTypeShareTransfer:
		return p.handleShareTransfer(ctx, event)
	case domain.EventTypeFundsTaken:
		return p.handleFundsTaken(ctx, event)
	case domain.EventTypeRepaid:
		return p.handleRepaid(ctx, event)
	case domain.EventTypeRefunded:
		return p.handleRefunded(ctx, event)
	case domain.EventTypeAnswerUpdated:
		return p.handleAnswerUpdated(ctx, event)
	default:
		logger.WarnCtx(ctx, "skipping unknown event type", zap.String("type", string(event.Type)))
		return nil
	}
}

func (p *Projector) register(ctx context.Context, kind domain.WatchKind, address string) error {
	if err := p.registrar.Register(ctx, kind, address); err != nil {
		return fmt.Errorf("failed to register %s %s: %w", kind, address, err)
	}
	return nil
}
