package store

import (
	"context"

	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/store/schema"
)

// Store defines the interface for database operations.
//
// Lookups return (nil, nil) when the record does not exist; handlers treat a
// missing reference as a silent no-op. Save methods upsert by primary key. A
// returned error means the persistence layer itself failed, which is fatal to
// the pipeline.
type Store interface {
	// GetFactory retrieves a factory by address
	GetFactory(ctx context.Context, id string) (*schema.Factory, error)
	// SaveFactory upserts a factory
	SaveFactory(ctx context.Context, factory *schema.Factory) error
	// DeleteFactory removes a factory by address
	DeleteFactory(ctx context.Context, id string) error

	// GetAccount retrieves an account by address
	GetAccount(ctx context.Context, id string) (*schema.Account, error)
	// SaveAccount upserts an account
	SaveAccount(ctx context.Context, account *schema.Account) error

	// GetToken retrieves a token by address
	GetToken(ctx context.Context, id string) (*schema.Token, error)
	// GetTokenByPriceFeed retrieves the token linked to a price feed address
	GetTokenByPriceFeed(ctx context.Context, priceFeedAddress string) (*schema.Token, error)
	// SaveToken upserts a token
	SaveToken(ctx context.Context, token *schema.Token) error
	// DeleteToken removes a token by address
	DeleteToken(ctx context.Context, id string) error

	// GetPool retrieves a pool by address
	GetPool(ctx context.Context, id string) (*schema.Pool, error)
	// SavePool upserts a pool
	SavePool(ctx context.Context, pool *schema.Pool) error
	// DeletePool removes a pool by address
	DeletePool(ctx context.Context, id string) error

	// GetInvestment retrieves an investment by its composite id
	GetInvestment(ctx context.Context, id string) (*schema.Investment, error)
	// SaveInvestment upserts an investment
	SaveInvestment(ctx context.Context, investment *schema.Investment) error
	// DeleteInvestment removes an investment by its composite id
	DeleteInvestment(ctx context.Context, id string) error

	// GetCreditFacilitator retrieves a facilitator by account address
	GetCreditFacilitator(ctx context.Context, id string) (*schema.CreditFacilitator, error)
	// SaveCreditFacilitator upserts a facilitator
	SaveCreditFacilitator(ctx context.Context, cf *schema.CreditFacilitator) error

	// GetHolding retrieves a holding by its composite id
	GetHolding(ctx context.Context, id string) (*schema.Holding, error)
	// SaveHolding upserts a holding
	SaveHolding(ctx context.Context, holding *schema.Holding) error

	// SaveTransaction appends a ledger row
	SaveTransaction(ctx context.Context, tx *schema.Transaction) error
	// GetTransaction retrieves a ledger row by its composite id
	GetTransaction(ctx context.Context, id string) (*schema.Transaction, error)

	// GetAnalytics retrieves the analytics singleton
	GetAnalytics(ctx context.Context, id string) (*schema.Analytics, error)
	// SaveAnalytics upserts the analytics singleton
	SaveAnalytics(ctx context.Context, analytics *schema.Analytics) error

	// GetTVLDayData retrieves a day bucket snapshot
	GetTVLDayData(ctx context.Context, id string) (*schema.TVLDayData, error)
	// SaveTVLDayData upserts a day bucket snapshot
	SaveTVLDayData(ctx context.Context, data *schema.TVLDayData) error

	// GetCFMonthlyData retrieves a facilitator month bucket
	GetCFMonthlyData(ctx context.Context, id string) (*schema.CFMonthlyData, error)
	// SaveCFMonthlyData upserts a facilitator month bucket
	SaveCFMonthlyData(ctx context.Context, data *schema.CFMonthlyData) error

	// GetUserMonthlyData retrieves an account month bucket
	GetUserMonthlyData(ctx context.Context, id string) (*schema.UserMonthlyData, error)
	// SaveUserMonthlyData upserts an account month bucket
	SaveUserMonthlyData(ctx context.Context, data *schema.UserMonthlyData) error

	// AddWatchedAddress registers an address for log subscription
	AddWatchedAddress(ctx context.Context, chain domain.Chain, address string, kind domain.WatchKind) error
	// GetWatchedAddress retrieves a watch entry
	GetWatchedAddress(ctx context.Context, chain domain.Chain, address string) (*schema.WatchedAddress, error)
	// ListWatchedAddresses lists all watch entries for a chain
	ListWatchedAddresses(ctx context.Context, chain domain.Chain) ([]schema.WatchedAddress, error)

	// GetBlockCursor retrieves the last processed block number for a chain
	GetBlockCursor(ctx context.Context, chain string) (uint64, error)
	// SetBlockCursor stores the last processed block number for a chain
	SetBlockCursor(ctx context.Context, chain string, blockNumber uint64) error
}
