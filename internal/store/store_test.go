package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/store/schema"
)

func TestMemoryStoreMissingLookupsReturnNil(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	factory, err := s.GetFactory(ctx, "0xmissing")
	require.NoError(t, err)
	assert.Nil(t, factory)

	token, err := s.GetTokenByPriceFeed(ctx, "0xmissing")
	require.NoError(t, err)
	assert.Nil(t, token)

	tx, err := s.GetTransaction(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestMemoryStoreSaveIsUpsert(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SaveToken(ctx, &schema.Token{ID: "0xt", Symbol: "AAA", Decimals: 6, LastPrice: "1"}))
	require.NoError(t, s.SaveToken(ctx, &schema.Token{ID: "0xt", Symbol: "BBB", Decimals: 6, LastPrice: "2"}))

	token, err := s.GetToken(ctx, "0xt")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "BBB", token.Symbol)
	assert.Equal(t, "2", token.LastPrice)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SavePool(ctx, &schema.Pool{ID: "0xp", TotalInvested: "10"}))

	first, err := s.GetPool(ctx, "0xp")
	require.NoError(t, err)
	first.TotalInvested = "999"

	second, err := s.GetPool(ctx, "0xp")
	require.NoError(t, err)
	assert.Equal(t, "10", second.TotalInvested)
}

func TestMemoryStoreGetTokenByPriceFeed(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SaveToken(ctx, &schema.Token{ID: "0xa", PriceFeedAddress: "0xfeed1"}))
	require.NoError(t, s.SaveToken(ctx, &schema.Token{ID: "0xb", PriceFeedAddress: "0xfeed2"}))

	token, err := s.GetTokenByPriceFeed(ctx, "0xfeed2")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "0xb", token.ID)
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SaveInvestment(ctx, &schema.Investment{ID: "a-p", Shares: "5"}))
	require.NoError(t, s.DeleteInvestment(ctx, "a-p"))

	investment, err := s.GetInvestment(ctx, "a-p")
	require.NoError(t, err)
	assert.Nil(t, investment)

	// deleting a missing row is not an error
	assert.NoError(t, s.DeleteInvestment(ctx, "a-p"))
}

func TestMemoryStoreWatchedAddresses(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	chain := domain.ChainEthereumSepolia

	require.NoError(t, s.AddWatchedAddress(ctx, chain, "0xpool", domain.WatchKindPool))
	require.NoError(t, s.AddWatchedAddress(ctx, chain, "0xtoken", domain.WatchKindToken))

	// re-adding keeps the original kind
	require.NoError(t, s.AddWatchedAddress(ctx, chain, "0xpool", domain.WatchKindToken))

	watched, err := s.GetWatchedAddress(ctx, chain, "0xpool")
	require.NoError(t, err)
	require.NotNil(t, watched)
	assert.Equal(t, domain.WatchKindPool, watched.Kind)
	assert.True(t, watched.Watching)

	all, err := s.ListWatchedAddresses(ctx, chain)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	other, err := s.ListWatchedAddresses(ctx, domain.ChainBaseMainnet)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryStoreBlockCursor(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	cursor, err := s.GetBlockCursor(ctx, "eip155:11155111")
	require.NoError(t, err)
	assert.Zero(t, cursor)

	require.NoError(t, s.SetBlockCursor(ctx, "eip155:11155111", 42))
	cursor, err = s.GetBlockCursor(ctx, "eip155:11155111")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cursor)

	// cursors are chain scoped
	cursor, err = s.GetBlockCursor(ctx, "eip155:8453")
	require.NoError(t, err)
	assert.Zero(t, cursor)
}
