package registrar

import (
	"context"
	"fmt"

	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/logger"
	"github.com/credit-markets/subgraphs/internal/store"

	"go.uber.org/zap"
)

// Registrar records addresses discovered during projection so the emitter
// starts watching their logs. Registration is idempotent.
type Registrar interface {
	Register(ctx context.Context, kind domain.WatchKind, address string) error
}

type storeRegistrar struct {
	chain domain.Chain
	store store.Store
}

// New creates a Registrar persisting watch requests for the given chain
func New(chain domain.Chain, s store.Store) Registrar {
	return &storeRegistrar{
		chain: chain,
		store: s,
	}
}

func (r *storeRegistrar) Register(ctx context.Context, kind domain.WatchKind, address string) error {
	address = domain.NormalizeAddress(address)
	if err := r.store.AddWatchedAddress(ctx, r.chain, address, kind); err != nil {
		return fmt.Errorf("failed to register watched address: %w", err)
	}

	logger.InfoCtx(ctx, "registered watched address",
		zap.String("chain", string(r.chain)),
		zap.String("kind", string(kind)),
		zap.String("address", address))
	return nil
}
