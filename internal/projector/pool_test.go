package projector

import (
	"context"
	"math/big"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/numeric"
)

func (f *fixture) analyticsTVL(t *testing.T) string {
	t.Helper()
	analytics, err := f.store.GetAnalytics(context.Background(), domain.AnalyticsID)
	require.NoError(t, err)
	if analytics == nil {
		return "0"
	}
	return analytics.TVL
}

func (f *fixture) mintShares(t *testing.T, investor string, amount int64, timestamp int64) {
	t.Helper()
	e := f.event(domain.EventTypeShareTransfer, timestamp)
	e.Address = testPool
	e.From = domain.ZeroAddress
	e.To = investor
	e.Amount = strconv.FormatInt(amount, 10)
	require.NoError(t, f.projector.Handle(context.Background(), e))
}

func TestPoolAddedSnapshotsMetadata(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedToken(t)
	f.seedPool(t, poolMeta{
		name:          "Harvest Q3",
		symbol:        "HQ3",
		startTime:     1000,
		endTime:       2000,
		threshold:     big.NewInt(500),
		amountToRaise: big.NewInt(1000),
		feeBps:        100,
		returnBps:     800,
		facilitator:   testCF,
		kycLevel:      2,
		term:          86400,
	})

	pool, err := f.store.GetPool(ctx, testPool)
	require.NoError(t, err)
	require.NotNil(t, pool)
	assert.Equal(t, testToken, pool.Asset)
	assert.Equal(t, "Harvest Q3", pool.Name)
	assert.Equal(t, int64(2000), pool.EndTime)
	assert.Equal(t, "500", pool.Threshold)
	assert.Equal(t, int64(800), pool.EstimatedReturnBasisPoints)
	assert.Equal(t, testCF, pool.CreditFacilitator)
	assert.Equal(t, int64(86400), pool.Term)
	assert.Equal(t, "0", pool.TotalInvested)

	analytics, err := f.store.GetAnalytics(ctx, domain.AnalyticsID)
	require.NoError(t, err)
	require.NotNil(t, analytics)
	assert.Equal(t, int64(1), analytics.TotalPools)
	assert.Equal(t, domain.WatchKindPool, f.registrar.registered[testPool])
}

func TestPoolAddedUnknownAssetSkipped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	// asset points at a token that was never registered
	f.reader.pools[testPool] = poolMeta{asset: testToken, threshold: big.NewInt(0), amountToRaise: big.NewInt(0)}

	e := f.event(domain.EventTypePoolAdded, 1000)
	e.Addresses = []string{testPool}
	require.NoError(t, f.projector.Handle(ctx, e))

	pool, err := f.store.GetPool(ctx, testPool)
	require.NoError(t, err)
	assert.Nil(t, pool)

	analytics, err := f.store.GetAnalytics(ctx, domain.AnalyticsID)
	require.NoError(t, err)
	assert.Nil(t, analytics)
	assert.NotContains(t, f.registrar.registered, testPool)
}

func TestPoolAddedAssetReadFailureSkipped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedToken(t)

	e := f.event(domain.EventTypePoolAdded, 1000)
	e.Addresses = []string{testPool} // no reader fixture: asset() reverts
	require.NoError(t, f.projector.Handle(ctx, e))

	pool, err := f.store.GetPool(ctx, testPool)
	require.NoError(t, err)
	assert.Nil(t, pool)
}

func TestPoolAddedReplayPreservesTotals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedToken(t)
	f.seedPool(t, poolMeta{startTime: 1000, endTime: 2000, facilitator: testCF})

	f.mintShares(t, testAccount, 1_000_000, 1500)

	e := f.event(domain.EventTypePoolAdded, 1600)
	e.Addresses = []string{testPool}
	require.NoError(t, f.projector.Handle(ctx, e))

	pool, err := f.store.GetPool(ctx, testPool)
	require.NoError(t, err)
	require.NotNil(t, pool)
	assert.Equal(t, "1000000", pool.TotalInvested)

	analytics, err := f.store.GetAnalytics(ctx, domain.AnalyticsID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), analytics.TotalPools)
}

func TestShareMintTracksInvestmentAndTVL(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedToken(t)
	f.seedPool(t, poolMeta{startTime: 1000, endTime: 2000, facilitator: testCF})

	f.mintShares(t, testAccount, 1_000_000, 1500) // 1 USDC at 6 decimals

	investment, err := f.store.GetInvestment(ctx, domain.CompositeID(testAccount, testPool))
	require.NoError(t, err)
	require.NotNil(t, investment)
	assert.Equal(t, "1000000", investment.Shares)

	pool, err := f.store.GetPool(ctx, testPool)
	require.NoError(t, err)
	assert.Equal(t, "1000000", pool.TotalInvested)

	// TVL is normalized to 18 decimals
	assert.Equal(t, "1000000000000000000", f.analyticsTVL(t))

	analytics, err := f.store.GetAnalytics(ctx, domain.AnalyticsID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), analytics.TotalInvestors)

	// second mint by the same investor does not count a new investor
	f.mintShares(t, testAccount, 500_000, 1600)
	analytics, err = f.store.GetAnalytics(ctx, domain.AnalyticsID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), analytics.TotalInvestors)
	assert.Equal(t, "1500000000000000000", f.analyticsTVL(t))
}

func TestShareMintZeroAmountNoInvestment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedToken(t)
	f.seedPool(t, poolMeta{startTime: 1000, endTime: 2000, facilitator: testCF})

	f.mintShares(t, testAccount, 0, 1500)

	// a zero mint neither creates a position nor counts an investor
	investment, err := f.store.GetInvestment(ctx, domain.CompositeID(testAccount, testPool))
	require.NoError(t, err)
	assert.Nil(t, investment)

	analytics, err := f.store.GetAnalytics(ctx, domain.AnalyticsID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), analytics.TotalInvestors)
}

func TestShareBurnShrinksInvestment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedToken(t)
	f.seedPool(t, poolMeta{startTime: 1000, endTime: 2000, facilitator: testCF})
	f.mintShares(t, testAccount, 1_000_000, 1500)

	e := f.event(domain.EventTypeShareTransfer, 1700)
	e.Address = testPool
	e.From = testAccount
	e.To = domain.ZeroAddress
	e.Amount = "400000"
	require.NoError(t, f.projector.Handle(ctx, e))

	investment, err := f.store.GetInvestment(ctx, domain.CompositeID(testAccount, testPool))
	require.NoError(t, err)
	require.NotNil(t, investment)
	assert.Equal(t, "600000", investment.Shares)

	// burning the rest deletes the row
	e2 := f.event(domain.EventTypeShareTransfer, 1710)
	e2.Address = testPool
	e2.From = testAccount
	e2.To = domain.ZeroAddress
	e2.Amount = "600000"
	require.NoError(t, f.projector.Handle(ctx, e2))

	investment, err = f.store.GetInvestment(ctx, domain.CompositeID(testAccount, testPool))
	require.NoError(t, err)
	assert.Nil(t, investment)
}

func TestShareTransferBetweenInvestors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedToken(t)
	f.seedPool(t, poolMeta{startTime: 1000, endTime: 2000, facilitator: testCF})
	f.mintShares(t, testAccount, 1_000_000, 1500)

	e := f.event(domain.EventTypeShareTransfer, 1800)
	e.Address = testPool
	e.From = testAccount
	e.To = testAccount2
	e.Amount = "1000000"
	require.NoError(t, f.projector.Handle(ctx, e))

	fromInv, err := f.store.GetInvestment(ctx, domain.CompositeID(testAccount, testPool))
	require.NoError(t, err)
	assert.Nil(t, fromInv)

	toInv, err := f.store.GetInvestment(ctx, domain.CompositeID(testAccount2, testPool))
	require.NoError(t, err)
	require.NotNil(t, toInv)
	assert.Equal(t, "1000000", toInv.Shares)

	// pool totals and TVL are untouched by a peer transfer
	pool, err := f.store.GetPool(ctx, testPool)
	require.NoError(t, err)
	assert.Equal(t, "1000000", pool.TotalInvested)
	assert.Equal(t, "1000000000000000000", f.analyticsTVL(t))
}

func TestShareTransferUnknownPoolNoop(t *testing.T) {
	f := newFixture()
	e := f.event(domain.EventTypeShareTransfer, 1500)
	e.Address = testPool
	e.From = domain.ZeroAddress
	e.To = testAccount
	e.Amount = "1000000"
	assert.NoError(t, f.projector.Handle(context.Background(), e))
}

// seedFacilitator creates an account at the address and grants it the
// facilitator role
func (f *fixture) seedFacilitator(t *testing.T, address string) {
	t.Helper()
	f.seedAccount(t, address)

	g := f.event(domain.EventTypeRoleGranted, 900)
	g.Role = cfRole
	g.Account = address
	require.NoError(t, f.projector.Handle(context.Background(), g))
}

func TestFundsTaken(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedToken(t)
	f.seedFacilitator(t, testCF)
	f.seedPool(t, poolMeta{startTime: 1000, endTime: 2000, facilitator: testCF})

	ts := int64(40 * 86400) // second month bucket
	e := f.event(domain.EventTypeFundsTaken, ts)
	e.Address = testPool
	e.Amount = "750000"
	require.NoError(t, f.projector.Handle(ctx, e))

	pool, err := f.store.GetPool(ctx, testPool)
	require.NoError(t, err)
	assert.True(t, pool.FundsTaken)

	month := numeric.MonthBucket(ts)
	data, err := f.store.GetCFMonthlyData(ctx, domain.CompositeID(testCF, strconv.FormatInt(month, 10)))
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "750000", data.BorrowedAmount)
	assert.Equal(t, "0", data.RepaidAmount)
	assert.Equal(t, month, data.Timestamp)
}

func TestFundsTakenWithoutFacilitatorNoRollup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedToken(t)
	// facilitator read fell back to empty at pool creation
	f.seedPool(t, poolMeta{startTime: 1000, endTime: 2000})

	ts := int64(40 * 86400)
	e := f.event(domain.EventTypeFundsTaken, ts)
	e.Address = testPool
	e.Amount = "750000"
	require.NoError(t, f.projector.Handle(ctx, e))

	pool, err := f.store.GetPool(ctx, testPool)
	require.NoError(t, err)
	assert.True(t, pool.FundsTaken)

	month := strconv.FormatInt(numeric.MonthBucket(ts), 10)
	data, err := f.store.GetCFMonthlyData(ctx, domain.CompositeID("", month))
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestFundsTakenUnknownFacilitatorNoRollup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedToken(t)
	// the pool references a facilitator that was never granted the role
	f.seedPool(t, poolMeta{startTime: 1000, endTime: 2000, facilitator: testCF})

	ts := int64(40 * 86400)
	e := f.event(domain.EventTypeFundsTaken, ts)
	e.Address = testPool
	e.Amount = "750000"
	require.NoError(t, f.projector.Handle(ctx, e))

	month := strconv.FormatInt(numeric.MonthBucket(ts), 10)
	data, err := f.store.GetCFMonthlyData(ctx, domain.CompositeID(testCF, month))
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRepaidReleasesTVLOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedToken(t)
	f.seedFacilitator(t, testCF)
	f.seedPool(t, poolMeta{startTime: 1000, endTime: 2000, facilitator: testCF})
	f.mintShares(t, testAccount, 1_000_000, 1500)

	e := f.event(domain.EventTypeRepaid, 3000)
	e.Address = testPool
	e.Amount = "1080000"
	require.NoError(t, f.projector.Handle(ctx, e))

	pool, err := f.store.GetPool(ctx, testPool)
	require.NoError(t, err)
	assert.True(t, pool.Repaid)
	assert.Equal(t, "0", f.analyticsTVL(t))

	// a second Repaid accumulates the monthly rollup but not the TVL release
	e2 := f.event(domain.EventTypeRepaid, 3100)
	e2.Address = testPool
	e2.Amount = "20000"
	require.NoError(t, f.projector.Handle(ctx, e2))
	assert.Equal(t, "0", f.analyticsTVL(t))

	month := numeric.MonthBucket(3000)
	data, err := f.store.GetCFMonthlyData(ctx, domain.CompositeID(testCF, strconv.FormatInt(month, 10)))
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "1100000", data.RepaidAmount)
}

func TestRefundedRemovesInvestmentAndTVL(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedToken(t)
	f.seedPool(t, poolMeta{startTime: 1000, endTime: 2000, facilitator: testCF})
	f.mintShares(t, testAccount, 1_000_000, 1500)

	e := f.event(domain.EventTypeRefunded, 2500)
	e.Address = testPool
	e.Investor = testAccount
	e.Amount = "1000000"
	require.NoError(t, f.projector.Handle(ctx, e))

	investment, err := f.store.GetInvestment(ctx, domain.CompositeID(testAccount, testPool))
	require.NoError(t, err)
	assert.Nil(t, investment)
	assert.Equal(t, "0", f.analyticsTVL(t))

	pool, err := f.store.GetPool(ctx, testPool)
	require.NoError(t, err)
	assert.True(t, pool.Refunded)

	// redelivery is a no-op once the position is gone
	require.NoError(t, f.projector.Handle(ctx, e))
	assert.Equal(t, "0", f.analyticsTVL(t))
}

func TestPoolRemovedReleasesUnrefundedTVL(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedToken(t)
	f.seedPool(t, poolMeta{startTime: 1000, endTime: 2000, facilitator: testCF})
	f.mintShares(t, testAccount, 1_000_000, 1500)

	e := f.event(domain.EventTypePoolRemoved, 4000)
	e.Addresses = []string{testPool}
	require.NoError(t, f.projector.Handle(ctx, e))

	pool, err := f.store.GetPool(ctx, testPool)
	require.NoError(t, err)
	assert.Nil(t, pool)
	assert.Equal(t, "0", f.analyticsTVL(t))

	analytics, err := f.store.GetAnalytics(ctx, domain.AnalyticsID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), analytics.TotalPools)
}

func TestPoolRemovedRefundedPoolKeepsTVL(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedToken(t)
	f.seedPool(t, poolMeta{startTime: 1000, endTime: 2000, facilitator: testCF})
	f.mintShares(t, testAccount, 1_000_000, 1500)

	r := f.event(domain.EventTypeRefunded, 2500)
	r.Address = testPool
	r.Investor = testAccount
	r.Amount = "1000000"
	require.NoError(t, f.projector.Handle(ctx, r))

	e := f.event(domain.EventTypePoolRemoved, 4000)
	e.Addresses = []string{testPool}
	require.NoError(t, f.projector.Handle(ctx, e))

	// the refund already released the value; removal must not double-subtract
	assert.Equal(t, "0", f.analyticsTVL(t))
}

func TestTVLDayDataLastWriteWins(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedToken(t)
	f.seedPool(t, poolMeta{startTime: 1000, endTime: 200000, facilitator: testCF})

	day := int64(86400)
	f.mintShares(t, testAccount, 1_000_000, day+100)
	f.mintShares(t, testAccount, 2_000_000, day+200)

	data, err := f.store.GetTVLDayData(ctx, strconv.FormatInt(day, 10))
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "3000000000000000000", data.TVL)
	assert.Equal(t, day, data.Timestamp)

	// a next-day mutation lands in its own bucket
	f.mintShares(t, testAccount, 1_000_000, 2*day+50)
	next, err := f.store.GetTVLDayData(ctx, strconv.FormatInt(2*day, 10))
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "4000000000000000000", next.TVL)

	// the earlier bucket still holds its last value
	data, err = f.store.GetTVLDayData(ctx, strconv.FormatInt(day, 10))
	require.NoError(t, err)
	assert.Equal(t, "3000000000000000000", data.TVL)
}
