package projector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/logger"
	"github.com/credit-markets/subgraphs/internal/numeric"
	"github.com/credit-markets/subgraphs/internal/store/schema"
)

func (p *Projector) handleFactoryAdded(ctx context.Context, event *domain.Event) error {
	for _, address := range event.Addresses {
		address = domain.NormalizeAddress(address)

		if err := p.store.SaveFactory(ctx, &schema.Factory{ID: address}); err != nil {
			return fmt.Errorf("failed to save factory: %w", err)
		}
		if err := p.register(ctx, domain.WatchKindFactory, address); err != nil {
			return err
		}
	}
	return nil
}

func (p *Projector) handleFactoryRemoved(ctx context.Context, event *domain.Event) error {
	for _, address := range event.Addresses {
		if err := p.store.DeleteFactory(ctx, domain.NormalizeAddress(address)); err != nil {
			return fmt.Errorf("failed to delete factory: %w", err)
		}
	}
	return nil
}

// handleTokenAdded registers asset tokens together with their price feeds.
// ERC20 metadata reads that revert degrade to placeholder values; a feed read
// failure leaves the price at zero so downstream valuations stay zero until
// the first round update. Re-adding an address overwrites the previous row.
func (p *Projector) handleTokenAdded(ctx context.Context, event *domain.Event) error {
	for i, address := range event.Addresses {
		address = domain.NormalizeAddress(address)
		feed := ""
		if i < len(event.PriceFeeds) {
			feed = domain.NormalizeAddress(event.PriceFeeds[i])
		}

		token := &schema.Token{
			ID:               address,
			Name:             "Unknown",
			Symbol:           "UNKNOWN",
			Decimals:         18,
			PriceFeedAddress: feed,
			LastPrice:        "0",
			LastUpdate:       0,
		}

		if name, err := p.reader.ERC20Name(ctx, address); err == nil {
			token.Name = name
		} else {
			logger.WarnCtx(ctx, "token name read failed", zap.String("token", address), zap.Error(err))
		}
		if symbol, err := p.reader.ERC20Symbol(ctx, address); err == nil {
			token.Symbol = symbol
		} else {
			logger.WarnCtx(ctx, "token symbol read failed", zap.String("token", address), zap.Error(err))
		}
		if decimals, err := p.reader.ERC20Decimals(ctx, address); err == nil {
			token.Decimals = decimals
		} else {
			logger.WarnCtx(ctx, "token decimals read failed", zap.String("token", address), zap.Error(err))
		}

		if feed != "" {
			if price, updatedAt, err := p.reader.LatestRoundData(ctx, feed); err == nil {
				token.LastPrice = price.String()
				token.LastUpdate = updatedAt
			} else {
				logger.WarnCtx(ctx, "price feed read failed", zap.String("feed", feed), zap.Error(err))
			}
		}

		if err := p.store.SaveToken(ctx, token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		if err := p.register(ctx, domain.WatchKindToken, address); err != nil {
			return err
		}
		if feed != "" {
			if err := p.register(ctx, domain.WatchKindPriceFeed, feed); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Projector) handleTokenRemoved(ctx context.Context, event *domain.Event) error {
	for _, address := range event.Addresses {
		if err := p.store.DeleteToken(ctx, domain.NormalizeAddress(address)); err != nil {
			return fmt.Errorf("failed to delete token: %w", err)
		}
	}
	return nil
}

// handlePoolAdded snapshots pool metadata via contract reads. A pool whose
// asset cannot be resolved to a registered token is skipped entirely, leaving
// no partial state. Already-known pools are skipped so replays cannot reset
// accumulated investment totals.
func (p *Projector) handlePoolAdded(ctx context.Context, event *domain.Event) error {
	for _, address := range event.Addresses {
		address = domain.NormalizeAddress(address)

		existing, err := p.store.GetPool(ctx, address)
		if err != nil {
			return fmt.Errorf("failed to load pool: %w", err)
		}
		if existing != nil {
			continue
		}

		asset, err := p.reader.PoolAsset(ctx, address)
		if err != nil {
			logger.WarnCtx(ctx, "pool asset read failed, skipping pool", zap.String("pool", address), zap.Error(err))
			continue
		}
		token, err := p.store.GetToken(ctx, asset)
		if err != nil {
			return fmt.Errorf("failed to load asset token: %w", err)
		}
		if token == nil {
			logger.WarnCtx(ctx, "pool asset is not a registered token, skipping pool",
				zap.String("pool", address), zap.String("asset", asset))
			continue
		}

		pool := &schema.Pool{
			ID:            address,
			Asset:         asset,
			Threshold:     "0",
			AmountToRaise: "0",
			TotalInvested: "0",
		}

		if name, err := p.reader.PoolName(ctx, address); err == nil {
			pool.Name = name
		}
		if symbol, err := p.reader.PoolSymbol(ctx, address); err == nil {
			pool.Symbol = symbol
		}
		if startTime, err := p.reader.PoolStartTime(ctx, address); err == nil {
			pool.StartTime = startTime
		}
		if endTime, err := p.reader.PoolEndTime(ctx, address); err == nil {
			pool.EndTime = endTime
		}
		if threshold, err := p.reader.PoolThreshold(ctx, address); err == nil {
			pool.Threshold = threshold.String()
		}
		if amountToRaise, err := p.reader.PoolAmountToRaise(ctx, address); err == nil {
			pool.AmountToRaise = amountToRaise.String()
		}
		if fee, err := p.reader.PoolFeeBasisPoints(ctx, address); err == nil {
			pool.FeeBasisPoints = fee
		}
		if estimatedReturn, err := p.reader.PoolEstimatedReturnBasisPoints(ctx, address); err == nil {
			pool.EstimatedReturnBasisPoints = estimatedReturn
		}
		if facilitator, err := p.reader.PoolCreditFacilitator(ctx, address); err == nil {
			pool.CreditFacilitator = facilitator
		}
		if kycLevel, err := p.reader.PoolKYCLevel(ctx, address); err == nil {
			pool.KYCLevel = kycLevel
		}
		if term, err := p.reader.PoolTerm(ctx, address); err == nil {
			pool.Term = term
		}

		if err := p.store.SavePool(ctx, pool); err != nil {
			return fmt.Errorf("failed to save pool: %w", err)
		}
		if err := p.addPoolCount(ctx, 1); err != nil {
			return err
		}
		if err := p.register(ctx, domain.WatchKindPool, address); err != nil {
			return err
		}
	}
	return nil
}

// handlePoolRemoved deletes the pool. If the pool still carried investments
// that were never refunded, their normalized value leaves TVL here.
func (p *Projector) handlePoolRemoved(ctx context.Context, event *domain.Event) error {
	for _, address := range event.Addresses {
		address = domain.NormalizeAddress(address)

		pool, err := p.store.GetPool(ctx, address)
		if err != nil {
			return fmt.Errorf("failed to load pool: %w", err)
		}
		if pool == nil {
			continue
		}

		totalInvested := domain.ParseAmount(pool.TotalInvested)
		if !pool.Refunded && totalInvested.Sign() > 0 {
			decimals, err := p.assetDecimals(ctx, pool.Asset)
			if err != nil {
				return err
			}
			delta := numeric.Normalize(totalInvested, decimals)
			if err := p.updateTVL(ctx, delta.Neg(delta), event.Timestamp); err != nil {
				return err
			}
		}

		if err := p.store.DeletePool(ctx, address); err != nil {
			return fmt.Errorf("failed to delete pool: %w", err)
		}
		if err := p.addPoolCount(ctx, -1); err != nil {
			return err
		}
	}
	return nil
}

func (p *Projector) handleKYCAttested(ctx context.Context, event *domain.Event) error {
	account, err := p.store.GetAccount(ctx, domain.NormalizeAddress(event.Account))
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil
	}

	account.KYCAttestationUID = event.AttestationUID
	account.KYCLevel = event.KYCLevel
	if err := p.store.SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// handleKYCRevoked clears the attestation unconditionally; the revoked UID is
// not compared against the stored one since at most one attestation is active
// per account.
func (p *Projector) handleKYCRevoked(ctx context.Context, event *domain.Event) error {
	account, err := p.store.GetAccount(ctx, domain.NormalizeAddress(event.Account))
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil
	}

	account.KYCAttestationUID = domain.ZeroAttestationUID
	account.KYCLevel = 0
	if err := p.store.SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// facilitatorRoleMatches compares an event's role hash against the registry's
// facilitator role constant. A failed read is reported as no match so that an
// RPC outage degrades to skipping the grant rather than halting the stream.
func (p *Projector) facilitatorRoleMatches(ctx context.Context, role string) bool {
	expected, err := p.reader.CreditFacilitatorRole(ctx, p.registryAddress)
	if err != nil {
		logger.WarnCtx(ctx, "facilitator role read failed, ignoring role event", zap.Error(err))
		return false
	}
	return domain.NormalizeAddress(role) == domain.NormalizeAddress(expected)
}

func (p *Projector) handleRoleGranted(ctx context.Context, event *domain.Event) error {
	if !p.facilitatorRoleMatches(ctx, event.Role) {
		return nil
	}

	address := domain.NormalizeAddress(event.Account)
	account, err := p.store.GetAccount(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil
	}

	cf, err := p.store.GetCreditFacilitator(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to load credit facilitator: %w", err)
	}
	if cf == nil {
		cf = &schema.CreditFacilitator{
			ID:        address,
			AccountID: address,
		}
	}
	cf.Active = true

	if err := p.store.SaveCreditFacilitator(ctx, cf); err != nil {
		return fmt.Errorf("failed to save credit facilitator: %w", err)
	}
	return nil
}

func (p *Projector) handleRoleRevoked(ctx context.Context, event *domain.Event) error {
	if !p.facilitatorRoleMatches(ctx, event.Role) {
		return nil
	}

	cf, err := p.store.GetCreditFacilitator(ctx, domain.NormalizeAddress(event.Account))
	if err != nil {
		return fmt.Errorf("failed to load credit facilitator: %w", err)
	}
	if cf == nil {
		return nil
	}

	cf.Active = false
	if err := p.store.SaveCreditFacilitator(ctx, cf); err != nil {
		return fmt.Errorf("failed to save credit facilitator: %w", err)
	}
	return nil
}
