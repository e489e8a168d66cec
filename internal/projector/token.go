package projector

import (
	"context"
	"fmt"
	"math/big"

	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/numeric"
	"github.com/credit-markets/subgraphs/internal/store/schema"
)

// transactionID builds the ledger row key. The actor suffix keeps both legs
// of an account-to-account transfer as distinct rows under one log.
func transactionID(event *domain.Event, actor string) string {
	return fmt.Sprintf("%s-%d-%s", event.TxHash, event.LogIndex, actor)
}

// handleTransfer folds an asset token transfer into holdings and the
// classified transaction ledger.
//
// Holdings move whenever either side is a known account, regardless of how
// the transfer classifies. Ledger rows are written only for transfers with a
// recognized shape; a pool leg outside its valid window produces no row.
func (p *Projector) handleTransfer(ctx context.Context, event *domain.Event) error {
	token, err := p.store.GetToken(ctx, domain.NormalizeAddress(event.Address))
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}
	if token == nil {
		return nil
	}

	from := domain.NormalizeAddress(event.From)
	to := domain.NormalizeAddress(event.To)
	amount := event.AmountBig()

	fromAccount, err := p.store.GetAccount(ctx, from)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	toAccount, err := p.store.GetAccount(ctx, to)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	if fromAccount != nil {
		if err := p.adjustHolding(ctx, from, token.ID, new(big.Int).Neg(amount)); err != nil {
			return err
		}
	}
	if toAccount != nil {
		if err := p.adjustHolding(ctx, to, token.ID, amount); err != nil {
			return err
		}
	}

	value := numeric.USDValue(amount, token.Decimals, domain.ParseAmount(token.LastPrice), domain.PriceFeedDecimals)

	fromPool, err := p.store.GetPool(ctx, from)
	if err != nil {
		return fmt.Errorf("failed to load pool: %w", err)
	}
	toPool, err := p.store.GetPool(ctx, to)
	if err != nil {
		return fmt.Errorf("failed to load pool: %w", err)
	}

	switch {
	case fromPool != nil:
		if to == fromPool.CreditFacilitator {
			return p.saveTransaction(ctx, event, to, token.ID, amount, domain.TagBorrow, value)
		}
		if toAccount != nil && event.Timestamp >= fromPool.EndTime+fromPool.Term {
			return p.recordRepayment(ctx, event, fromPool, toAccount, token.ID, amount, value)
		}
		return nil

	case toPool != nil:
		if from == toPool.CreditFacilitator {
			return p.saveTransaction(ctx, event, from, token.ID, amount, domain.TagRepayment, value)
		}
		if fromAccount != nil && event.Timestamp >= toPool.StartTime && event.Timestamp <= toPool.EndTime {
			return p.saveTransaction(ctx, event, from, token.ID, amount, domain.TagInvest, value)
		}
		return nil

	default:
		if fromAccount != nil {
			if err := p.saveTransaction(ctx, event, from, token.ID, amount, domain.TagWithdraw, value); err != nil {
				return err
			}
		}
		if toAccount != nil {
			if err := p.saveTransaction(ctx, event, to, token.ID, amount, domain.TagDeposit, value); err != nil {
				return err
			}
		}
		return nil
	}
}

// recordRepayment splits a matured pool payout into principal and interest
// using the pool's estimated return rate, then accumulates the split into the
// account's lifetime interest and monthly rollup. The accumulation is guarded
// by the ledger row so a redelivered event cannot double-count.
func (p *Projector) recordRepayment(ctx context.Context, event *domain.Event, pool *schema.Pool, account *schema.Account, tokenID string, amount *big.Int, value *big.Int) error {
	id := transactionID(event, account.ID)
	existing, err := p.store.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}
	if existing != nil {
		return nil
	}

	// principal = amount * 10000 / (10000 + returnBps), interest is the rest
	divisor := big.NewInt(domain.BasisPointsDivisor + pool.EstimatedReturnBasisPoints)
	principal := new(big.Int).Mul(amount, big.NewInt(domain.BasisPointsDivisor))
	principal.Quo(principal, divisor)
	interest := new(big.Int).Sub(amount, principal)

	account.TotalInterestEarned = addAmount(account.TotalInterestEarned, interest)
	if err := p.store.SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	if err := p.addUserMonthly(ctx, account.ID, event.Timestamp, principal, interest); err != nil {
		return err
	}

	return p.saveTransaction(ctx, event, account.ID, tokenID, amount, domain.TagRepay, value)
}

func (p *Projector) saveTransaction(ctx context.Context, event *domain.Event, actor, tokenID string, amount *big.Int, tag domain.TransactionTag, value *big.Int) error {
	tx := &schema.Transaction{
		ID:          transactionID(event, actor),
		AccountID:   actor,
		FromAddress: domain.NormalizeAddress(event.From),
		ToAddress:   domain.NormalizeAddress(event.To),
		TokenID:     tokenID,
		Timestamp:   event.Timestamp,
		Amount:      amount.String(),
		Tag:         string(tag),
		Value:       value.String(),
	}
	if err := p.store.SaveTransaction(ctx, tx); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

// adjustHolding applies a signed delta to an account's token balance.
// Balances are persisted even when transiently negative, since the stream
// order guarantees the offsetting leg arrives.
func (p *Projector) adjustHolding(ctx context.Context, account, tokenID string, delta *big.Int) error {
	id := domain.CompositeID(account, tokenID)

	holding, err := p.store.GetHolding(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load holding: %w", err)
	}
	if holding == nil {
		holding = &schema.Holding{
			ID:        id,
			AccountID: account,
			TokenID:   tokenID,
			Amount:    "0",
		}
	}

	holding.Amount = addAmount(holding.Amount, delta)
	if err := p.store.SaveHolding(ctx, holding); err != nil {
		return fmt.Errorf("failed to save holding: %w", err)
	}
	return nil
}

// handleAnswerUpdated refreshes the linked token's price from a feed round
func (p *Projector) handleAnswerUpdated(ctx context.Context, event *domain.Event) error {
	token, err := p.store.GetTokenByPriceFeed(ctx, domain.NormalizeAddress(event.Address))
	if err != nil {
		return fmt.Errorf("failed to load token by price feed: %w", err)
	}
	if token == nil {
		return nil
	}

	token.LastPrice = event.AmountBig().String()
	token.LastUpdate = event.Timestamp
	if err := p.store.SaveToken(ctx, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}
