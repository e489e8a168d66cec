package projector

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/numeric"
	"github.com/credit-markets/subgraphs/internal/store/schema"
)

// addAmount adds a signed delta to a numeric(78,0) string column
func addAmount(current string, delta *big.Int) string {
	sum := new(big.Int).Add(domain.ParseAmount(current), delta)
	return sum.String()
}

func (p *Projector) getOrCreateAnalytics(ctx context.Context) (*schema.Analytics, error) {
	analytics, err := p.store.GetAnalytics(ctx, domain.AnalyticsID)
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics: %w", err)
	}
	if analytics == nil {
		analytics = &schema.Analytics{
			ID:  domain.AnalyticsID,
			TVL: "0",
		}
	}
	return analytics, nil
}

// updateTVL applies a signed 18-decimal delta to the running TVL and
// snapshots the new total into the event's day bucket. Repeated snapshots in
// one day overwrite each other, so the bucket always holds the day's last
// observed value.
func (p *Projector) updateTVL(ctx context.Context, delta *big.Int, timestamp int64) error {
	if delta.Sign() == 0 {
		return nil
	}

	analytics, err := p.getOrCreateAnalytics(ctx)
	if err != nil {
		return err
	}
	analytics.TVL = addAmount(analytics.TVL, delta)
	if err := p.store.SaveAnalytics(ctx, analytics); err != nil {
		return fmt.Errorf("failed to save analytics: %w", err)
	}

	day := numeric.DayBucket(timestamp)
	if err := p.store.SaveTVLDayData(ctx, &schema.TVLDayData{
		ID:        strconv.FormatInt(day, 10),
		Timestamp: day,
		TVL:       analytics.TVL,
	}); err != nil {
		return fmt.Errorf("failed to save tvl day data: %w", err)
	}
	return nil
}

// addPoolCount adjusts the registered pool counter
func (p *Projector) addPoolCount(ctx context.Context, delta int64) error {
	analytics, err := p.getOrCreateAnalytics(ctx)
	if err != nil {
		return err
	}
	analytics.TotalPools += delta
	if err := p.store.SaveAnalytics(ctx, analytics); err != nil {
		return fmt.Errorf("failed to save analytics: %w", err)
	}
	return nil
}

// addInvestorCount adjusts the investor counter
func (p *Projector) addInvestorCount(ctx context.Context, delta int64) error {
	analytics, err := p.getOrCreateAnalytics(ctx)
	if err != nil {
		return err
	}
	analytics.TotalInvestors += delta
	if err := p.store.SaveAnalytics(ctx, analytics); err != nil {
		return fmt.Errorf("failed to save analytics: %w", err)
	}
	return nil
}

// addCFMonthly accumulates a borrow or repay amount into the facilitator's
// month bucket. Pools whose facilitator reference is empty or points at no
// known facilitator accumulate nothing.
func (p *Projector) addCFMonthly(ctx context.Context, facilitator string, timestamp int64, borrowed, repaid *big.Int) error {
	if facilitator == "" {
		return nil
	}
	cf, err := p.store.GetCreditFacilitator(ctx, facilitator)
	if err != nil {
		return fmt.Errorf("failed to load credit facilitator: %w", err)
	}
	if cf == nil {
		return nil
	}

	month := numeric.MonthBucket(timestamp)
	id := domain.CompositeID(facilitator, strconv.FormatInt(month, 10))

	data, err := p.store.GetCFMonthlyData(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load cf monthly data: %w", err)
	}
	if data == nil {
		data = &schema.CFMonthlyData{
			ID:                  id,
			CreditFacilitatorID: facilitator,
			Timestamp:           month,
			BorrowedAmount:      "0",
			RepaidAmount:        "0",
		}
	}

	if borrowed != nil {
		data.BorrowedAmount = addAmount(data.BorrowedAmount, borrowed)
	}
	if repaid != nil {
		data.RepaidAmount = addAmount(data.RepaidAmount, repaid)
	}

	if err := p.store.SaveCFMonthlyData(ctx, data); err != nil {
		return fmt.Errorf("failed to save cf monthly data: %w", err)
	}
	return nil
}

// addUserMonthly accumulates a repayment split into the account's month bucket
func (p *Projector) addUserMonthly(ctx context.Context, account string, timestamp int64, principal, interest *big.Int) error {
	month := numeric.MonthBucket(timestamp)
	id := domain.CompositeID(account, strconv.FormatInt(month, 10))

	data, err := p.store.GetUserMonthlyData(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load user monthly data: %w", err)
	}
	if data == nil {
		data = &schema.UserMonthlyData{
			ID:        id,
			AccountID: account,
			Timestamp: month,
			Principal: "0",
			Interest:  "0",
		}
	}

	data.Principal = addAmount(data.Principal, principal)
	data.Interest = addAmount(data.Interest, interest)

	if err := p.store.SaveUserMonthlyData(ctx, data); err != nil {
		return fmt.Errorf("failed to save user monthly data: %w", err)
	}
	return nil
}

// assetDecimals resolves the decimal precision of a pool's underlying asset,
// defaulting to 18 when the token is not registered
func (p *Projector) assetDecimals(ctx context.Context, asset string) (uint8, error) {
	token, err := p.store.GetToken(ctx, asset)
	if err != nil {
		return 0, fmt.Errorf("failed to load asset token: %w", err)
	}
	if token == nil {
		return 18, nil
	}
	return token.Decimals, nil
}
