package projector

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/numeric"
	"github.com/credit-markets/subgraphs/internal/store/schema"
)

// transfer emits an asset token transfer event
func (f *fixture) transfer(t *testing.T, from, to, amount string, timestamp int64) *domain.Event {
	t.Helper()
	e := f.event(domain.EventTypeTransfer, timestamp)
	e.Address = testToken
	e.From = from
	e.To = to
	e.Amount = amount
	require.NoError(t, f.projector.Handle(context.Background(), e))
	return e
}

func (f *fixture) getTx(t *testing.T, e *domain.Event, actor string) *schema.Transaction {
	t.Helper()
	id := fmt.Sprintf("%s-%d-%s", e.TxHash, e.LogIndex, actor)
	tx, err := f.store.GetTransaction(context.Background(), id)
	require.NoError(t, err)
	return tx
}

func (f *fixture) holdingAmount(t *testing.T, account string) string {
	t.Helper()
	holding, err := f.store.GetHolding(context.Background(), domain.CompositeID(account, testToken))
	require.NoError(t, err)
	if holding == nil {
		return ""
	}
	return holding.Amount
}

// lendingFixture seeds token, facilitator account with role, investor
// account and a pool with an investment window of [1000, 2000], an 8% return
// and a one-day term
func lendingFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture()
	f.seedToken(t)
	f.seedAccount(t, testAccount)
	f.seedAccount(t, testCF)

	g := f.event(domain.EventTypeRoleGranted, 900)
	g.Role = cfRole
	g.Account = testCF
	require.NoError(t, f.projector.Handle(context.Background(), g))

	f.seedPool(t, poolMeta{
		startTime:   1000,
		endTime:     2000,
		returnBps:   800,
		facilitator: testCF,
		term:        86400,
	})
	return f
}

func TestTransferUnknownTokenNoop(t *testing.T) {
	f := newFixture()
	f.seedAccount(t, testAccount)

	e := f.event(domain.EventTypeTransfer, 1500)
	e.Address = testToken
	e.From = testAccount
	e.To = testOutsider
	e.Amount = "1000000"
	require.NoError(t, f.projector.Handle(context.Background(), e))

	assert.Empty(t, f.holdingAmount(t, testAccount))
}

func TestInvestTransfer(t *testing.T) {
	f := lendingFixture(t)

	e := f.transfer(t, testAccount, testPool, "2000000", 1500)

	tx := f.getTx(t, e, testAccount)
	require.NotNil(t, tx)
	assert.Equal(t, string(domain.TagInvest), tx.Tag)
	assert.Equal(t, testAccount, tx.AccountID)
	assert.Equal(t, "2000000", tx.Amount)
	// 2 USDC at $1.00 in 18-decimal fixed point
	assert.Equal(t, "2000000000000000000", tx.Value)

	assert.Equal(t, "-2000000", f.holdingAmount(t, testAccount))
}

func TestInvestOutsideWindowNoLedgerRow(t *testing.T) {
	f := lendingFixture(t)

	e := f.transfer(t, testAccount, testPool, "2000000", 2500)

	assert.Nil(t, f.getTx(t, e, testAccount))
	// holdings still move
	assert.Equal(t, "-2000000", f.holdingAmount(t, testAccount))
}

func TestBorrowTransfer(t *testing.T) {
	f := lendingFixture(t)

	e := f.transfer(t, testPool, testCF, "2000000", 2100)

	tx := f.getTx(t, e, testCF)
	require.NotNil(t, tx)
	assert.Equal(t, string(domain.TagBorrow), tx.Tag)
	assert.Equal(t, testCF, tx.AccountID)
	assert.Equal(t, "2000000", f.holdingAmount(t, testCF))
}

func TestRepaymentTransfer(t *testing.T) {
	f := lendingFixture(t)

	e := f.transfer(t, testCF, testPool, "2160000", 80000)

	tx := f.getTx(t, e, testCF)
	require.NotNil(t, tx)
	assert.Equal(t, string(domain.TagRepayment), tx.Tag)
	assert.Equal(t, testCF, tx.AccountID)
	assert.Equal(t, "-2160000", f.holdingAmount(t, testCF))
}

func TestRepayTransferSplitsPrincipalAndInterest(t *testing.T) {
	f := lendingFixture(t)

	// matured: endTime 2000 + term 86400
	ts := int64(90000)
	e := f.transfer(t, testPool, testAccount, "2160000", ts)

	tx := f.getTx(t, e, testAccount)
	require.NotNil(t, tx)
	assert.Equal(t, string(domain.TagRepay), tx.Tag)

	// 2.16 USDC at 8% estimated return: principal 2.0, interest 0.16
	account, err := f.store.GetAccount(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, "160000", account.TotalInterestEarned)

	month := numeric.MonthBucket(ts)
	data, err := f.store.GetUserMonthlyData(context.Background(),
		domain.CompositeID(testAccount, strconv.FormatInt(month, 10)))
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "2000000", data.Principal)
	assert.Equal(t, "160000", data.Interest)

	assert.Equal(t, "2160000", f.holdingAmount(t, testAccount))
}

func TestRepayBeforeMaturityNoLedgerRow(t *testing.T) {
	f := lendingFixture(t)

	e := f.transfer(t, testPool, testAccount, "2160000", 50000) // before endTime+term

	assert.Nil(t, f.getTx(t, e, testAccount))

	account, err := f.store.GetAccount(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, "0", account.TotalInterestEarned)
}

func TestRepayRedeliveryDoesNotDoubleCount(t *testing.T) {
	f := lendingFixture(t)
	ctx := context.Background()

	ts := int64(90000)
	e := f.event(domain.EventTypeTransfer, ts)
	e.Address = testToken
	e.From = testPool
	e.To = testAccount
	e.Amount = "2160000"
	require.NoError(t, f.projector.Handle(ctx, e))
	require.NoError(t, f.projector.Handle(ctx, e)) // same log coordinates

	account, err := f.store.GetAccount(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, "160000", account.TotalInterestEarned)
}

func TestAccountToAccountTransferKeepsBothLegs(t *testing.T) {
	f := lendingFixture(t)
	f.seedAccount(t, testAccount2)

	e := f.transfer(t, testAccount, testAccount2, "500000", 1500)

	withdraw := f.getTx(t, e, testAccount)
	require.NotNil(t, withdraw)
	assert.Equal(t, string(domain.TagWithdraw), withdraw.Tag)

	deposit := f.getTx(t, e, testAccount2)
	require.NotNil(t, deposit)
	assert.Equal(t, string(domain.TagDeposit), deposit.Tag)

	assert.Equal(t, "-500000", f.holdingAmount(t, testAccount))
	assert.Equal(t, "500000", f.holdingAmount(t, testAccount2))
}

func TestWithdrawToOutsider(t *testing.T) {
	f := lendingFixture(t)

	e := f.transfer(t, testAccount, testOutsider, "300000", 1500)

	tx := f.getTx(t, e, testAccount)
	require.NotNil(t, tx)
	assert.Equal(t, string(domain.TagWithdraw), tx.Tag)
	assert.Equal(t, "-300000", f.holdingAmount(t, testAccount))
}

func TestDepositFromOutsider(t *testing.T) {
	f := lendingFixture(t)

	e := f.transfer(t, testOutsider, testAccount, "300000", 1500)

	tx := f.getTx(t, e, testAccount)
	require.NotNil(t, tx)
	assert.Equal(t, string(domain.TagDeposit), tx.Tag)
	assert.Equal(t, "300000", f.holdingAmount(t, testAccount))
}

func TestTransferToFacilitatorBooksBothLegs(t *testing.T) {
	f := lendingFixture(t)

	e := f.transfer(t, testAccount, testCF, "300000", 1500)

	// the facilitator role only matters on pool legs; between plain accounts
	// both sides book
	withdraw := f.getTx(t, e, testAccount)
	require.NotNil(t, withdraw)
	assert.Equal(t, string(domain.TagWithdraw), withdraw.Tag)

	deposit := f.getTx(t, e, testCF)
	require.NotNil(t, deposit)
	assert.Equal(t, string(domain.TagDeposit), deposit.Tag)
}

func TestTransactionValueUsesLatestPrice(t *testing.T) {
	f := lendingFixture(t)

	// price moves to $2.00
	pe := f.event(domain.EventTypeAnswerUpdated, 1400)
	pe.Address = testFeed
	pe.Amount = "200000000"
	require.NoError(t, f.projector.Handle(context.Background(), pe))

	e := f.transfer(t, testAccount, testPool, "1000000", 1500)
	tx := f.getTx(t, e, testAccount)
	require.NotNil(t, tx)
	assert.Equal(t, "2000000000000000000", tx.Value)
}

func TestAnswerUpdated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedToken(t)

	e := f.event(domain.EventTypeAnswerUpdated, 5000)
	e.Address = testFeed
	e.Amount = "123450000"
	require.NoError(t, f.projector.Handle(ctx, e))

	token, err := f.store.GetToken(ctx, testToken)
	require.NoError(t, err)
	assert.Equal(t, "123450000", token.LastPrice)
	assert.Equal(t, int64(5000), token.LastUpdate)
}

func TestAnswerUpdatedUnknownFeedNoop(t *testing.T) {
	f := newFixture()
	e := f.event(domain.EventTypeAnswerUpdated, 5000)
	e.Address = testFeed
	e.Amount = "123450000"
	assert.NoError(t, f.projector.Handle(context.Background(), e))
}
