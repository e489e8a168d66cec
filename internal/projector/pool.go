package projector

import (
	"context"
	"fmt"
	"math/big"

	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/numeric"
	"github.com/credit-markets/subgraphs/internal/store/schema"
)

// handleShareTransfer tracks pool share movements. Mints grow the holder's
// investment, the pool's raised total and TVL; burns shrink the holder's
// investment only, since refunds and repayments adjust TVL through their own
// events. Peer transfers move shares between investments without touching
// pool totals.
func (p *Projector) handleShareTransfer(ctx context.Context, event *domain.Event) error {
	pool, err := p.store.GetPool(ctx, domain.NormalizeAddress(event.Address))
	if err != nil {
		return fmt.Errorf("failed to load pool: %w", err)
	}
	if pool == nil {
		return nil
	}

	amount := event.AmountBig()
	from := domain.NormalizeAddress(event.From)
	to := domain.NormalizeAddress(event.To)

	switch {
	case domain.IsZeroAddress(from):
		if err := p.addShares(ctx, pool, to, amount); err != nil {
			return err
		}

		pool.TotalInvested = addAmount(pool.TotalInvested, amount)
		if err := p.store.SavePool(ctx, pool); err != nil {
			return fmt.Errorf("failed to save pool: %w", err)
		}

		decimals, err := p.assetDecimals(ctx, pool.Asset)
		if err != nil {
			return err
		}
		return p.updateTVL(ctx, numeric.Normalize(amount, decimals), event.Timestamp)

	case domain.IsZeroAddress(to):
		return p.removeShares(ctx, pool, from, amount)

	default:
		if err := p.removeShares(ctx, pool, from, amount); err != nil {
			return err
		}
		return p.addShares(ctx, pool, to, amount)
	}
}

// addShares credits shares to an investor. The row is created, and the
// investor counted, only on the first non-zero credit; a balance that ends up
// non-positive is deleted rather than stored.
func (p *Projector) addShares(ctx context.Context, pool *schema.Pool, investor string, amount *big.Int) error {
	id := domain.CompositeID(investor, pool.ID)

	investment, err := p.store.GetInvestment(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load investment: %w", err)
	}
	if investment == nil {
		if amount.Sign() <= 0 {
			return nil
		}
		investment = &schema.Investment{
			ID:        id,
			AccountID: investor,
			PoolID:    pool.ID,
			Shares:    "0",
		}
		if err := p.addInvestorCount(ctx, 1); err != nil {
			return err
		}
	}

	shares := new(big.Int).Add(domain.ParseAmount(investment.Shares), amount)
	if shares.Sign() <= 0 {
		if err := p.store.DeleteInvestment(ctx, id); err != nil {
			return fmt.Errorf("failed to delete investment: %w", err)
		}
		return nil
	}

	investment.Shares = shares.String()
	if err := p.store.SaveInvestment(ctx, investment); err != nil {
		return fmt.Errorf("failed to save investment: %w", err)
	}
	return nil
}

// removeShares debits shares from an investor; the row is deleted once its
// balance is no longer positive
func (p *Projector) removeShares(ctx context.Context, pool *schema.Pool, investor string, amount *big.Int) error {
	id := domain.CompositeID(investor, pool.ID)

	investment, err := p.store.GetInvestment(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load investment: %w", err)
	}
	if investment == nil {
		return nil
	}

	remaining := new(big.Int).Sub(domain.ParseAmount(investment.Shares), amount)
	if remaining.Sign() <= 0 {
		if err := p.store.DeleteInvestment(ctx, id); err != nil {
			return fmt.Errorf("failed to delete investment: %w", err)
		}
		return nil
	}

	investment.Shares = remaining.String()
	if err := p.store.SaveInvestment(ctx, investment); err != nil {
		return fmt.Errorf("failed to save investment: %w", err)
	}
	return nil
}

func (p *Projector) handleFundsTaken(ctx context.Context, event *domain.Event) error {
	pool, err := p.store.GetPool(ctx, domain.NormalizeAddress(event.Address))
	if err != nil {
		return fmt.Errorf("failed to load pool: %w", err)
	}
	if pool == nil {
		return nil
	}

	pool.FundsTaken = true
	if err := p.store.SavePool(ctx, pool); err != nil {
		return fmt.Errorf("failed to save pool: %w", err)
	}

	return p.addCFMonthly(ctx, pool.CreditFacilitator, event.Timestamp, event.AmountBig(), nil)
}

// handleRepaid marks the pool repaid and releases its raised total from TVL.
// The TVL release happens once; replays and duplicate events only accumulate
// into the facilitator's monthly rollup via their distinct log coordinates.
func (p *Projector) handleRepaid(ctx context.Context, event *domain.Event) error {
	pool, err := p.store.GetPool(ctx, domain.NormalizeAddress(event.Address))
	if err != nil {
		return fmt.Errorf("failed to load pool: %w", err)
	}
	if pool == nil {
		return nil
	}

	if !pool.Repaid {
		pool.Repaid = true
		if err := p.store.SavePool(ctx, pool); err != nil {
			return fmt.Errorf("failed to save pool: %w", err)
		}

		totalInvested := domain.ParseAmount(pool.TotalInvested)
		if totalInvested.Sign() > 0 {
			decimals, err := p.assetDecimals(ctx, pool.Asset)
			if err != nil {
				return err
			}
			delta := numeric.Normalize(totalInvested, decimals)
			if err := p.updateTVL(ctx, delta.Neg(delta), event.Timestamp); err != nil {
				return err
			}
		}
	}

	return p.addCFMonthly(ctx, pool.CreditFacilitator, event.Timestamp, nil, event.AmountBig())
}

// handleRefunded removes the investor's position from a pool that failed to
// fund. The refunded amount leaves TVL only while the position still exists,
// which keeps the handler idempotent under redelivery.
func (p *Projector) handleRefunded(ctx context.Context, event *domain.Event) error {
	pool, err := p.store.GetPool(ctx, domain.NormalizeAddress(event.Address))
	if err != nil {
		return fmt.Errorf("failed to load pool: %w", err)
	}
	if pool == nil {
		return nil
	}

	investor := domain.NormalizeAddress(event.Investor)
	id := domain.CompositeID(investor, pool.ID)

	investment, err := p.store.GetInvestment(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load investment: %w", err)
	}
	if investment != nil && domain.ParseAmount(investment.Shares).Sign() > 0 {
		if err := p.store.DeleteInvestment(ctx, id); err != nil {
			return fmt.Errorf("failed to delete investment: %w", err)
		}

		decimals, err := p.assetDecimals(ctx, pool.Asset)
		if err != nil {
			return err
		}
		delta := numeric.Normalize(event.AmountBig(), decimals)
		if err := p.updateTVL(ctx, delta.Neg(delta), event.Timestamp); err != nil {
			return err
		}
	}

	if !pool.Refunded {
		pool.Refunded = true
		if err := p.store.SavePool(ctx, pool); err != nil {
			return fmt.Errorf("failed to save pool: %w", err)
		}
	}
	return nil
}
