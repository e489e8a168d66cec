package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the database schema for all projected tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.Factory{},
		&schema.Account{},
		&schema.Token{},
		&schema.Pool{},
		&schema.Investment{},
		&schema.CreditFacilitator{},
		&schema.Holding{},
		&schema.Transaction{},
		&schema.Analytics{},
		&schema.TVLDayData{},
		&schema.CFMonthlyData{},
		&schema.UserMonthlyData{},
		&schema.KeyValueStore{},
		&schema.WatchedAddress{},
	)
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults: 20 open, 5 idle,
// 5m lifetime, 10m idle time.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// getByID loads a record by primary key, mapping gorm's not-found to (nil, nil)
func getByID[T any](ctx context.Context, db *gorm.DB, id string, what string) (*T, error) {
	var record T
	err := db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	return &record, nil
}

// upsert saves a record, replacing all columns on primary key conflict
func upsert[T any](ctx context.Context, db *gorm.DB, record *T, what string) error {
	err := db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", what, err)
	}
	return nil
}

func deleteByID[T any](ctx context.Context, db *gorm.DB, id string, what string) error {
	var record T
	err := db.WithContext(ctx).Where("id = ?", id).Delete(&record).Error
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", what, err)
	}
	return nil
}

func (s *pgStore) GetFactory(ctx context.Context, id string) (*schema.Factory, error) {
	return getByID[schema.Factory](ctx, s.db, id, "factory")
}

func (s *pgStore) SaveFactory(ctx context.Context, factory *schema.Factory) error {
	return upsert(ctx, s.db, factory, "factory")
}

func (s *pgStore) DeleteFactory(ctx context.Context, id string) error {
	return deleteByID[schema.Factory](ctx, s.db, id, "factory")
}

func (s *pgStore) GetAccount(ctx context.Context, id string) (*schema.Account, error) {
	return getByID[schema.Account](ctx, s.db, id, "account")
}

func (s *pgStore) SaveAccount(ctx context.Context, account *schema.Account) error {
	return upsert(ctx, s.db, account, "account")
}

func (s *pgStore) GetToken(ctx context.Context, id string) (*schema.Token, error) {
	return getByID[schema.Token](ctx, s.db, id, "token")
}

// GetTokenByPriceFeed retrieves the token linked to a price feed address
func (s *pgStore) GetTokenByPriceFeed(ctx context.Context, priceFeedAddress string) (*schema.Token, error) {
	var token schema.Token
	err := s.db.WithContext(ctx).Where("price_feed_address = ?", priceFeedAddress).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token by price feed: %w", err)
	}
	return &token, nil
}

func (s *pgStore) SaveToken(ctx context.Context, token *schema.Token) error {
	return upsert(ctx, s.db, token, "token")
}

func (s *pgStore) DeleteToken(ctx context.Context, id string) error {
	return deleteByID[schema.Token](ctx, s.db, id, "token")
}

func (s *pgStore) GetPool(ctx context.Context, id string) (*schema.Pool, error) {
	return getByID[schema.Pool](ctx, s.db, id, "pool")
}

func (s *pgStore) SavePool(ctx context.Context, pool *schema.Pool) error {
	return upsert(ctx, s.db, pool, "pool")
}

func (s *pgStore) DeletePool(ctx context.Context, id string) error {
	return deleteByID[schema.Pool](ctx, s.db, id, "pool")
}

func (s *pgStore) GetInvestment(ctx context.Context, id string) (*schema.Investment, error) {
	return getByID[schema.Investment](ctx, s.db, id, "investment")
}

func (s *pgStore) SaveInvestment(ctx context.Context, investment *schema.Investment) error {
	return upsert(ctx, s.db, investment, "investment")
}

func (s *pgStore) DeleteInvestment(ctx context.Context, id string) error {
	return deleteByID[schema.Investment](ctx, s.db, id, "investment")
}

func (s *pgStore) GetCreditFacilitator(ctx context.Context, id string) (*schema.CreditFacilitator, error) {
	return getByID[schema.CreditFacilitator](ctx, s.db, id, "credit facilitator")
}

func (s *pgStore) SaveCreditFacilitator(ctx context.Context, cf *schema.CreditFacilitator) error {
	return upsert(ctx, s.db, cf, "credit facilitator")
}

func (s *pgStore) GetHolding(ctx context.Context, id string) (*schema.Holding, error) {
	return getByID[schema.Holding](ctx, s.db, id, "holding")
}

func (s *pgStore) SaveHolding(ctx context.Context, holding *schema.Holding) error {
	return upsert(ctx, s.db, holding, "holding")
}

func (s *pgStore) SaveTransaction(ctx context.Context, tx *schema.Transaction) error {
	return upsert(ctx, s.db, tx, "transaction")
}

func (s *pgStore) GetTransaction(ctx context.Context, id string) (*schema.Transaction, error) {
	return getByID[schema.Transaction](ctx, s.db, id, "transaction")
}

func (s *pgStore) GetAnalytics(ctx context.Context, id string) (*schema.Analytics, error) {
	return getByID[schema.Analytics](ctx, s.db, id, "analytics")
}

func (s *pgStore) SaveAnalytics(ctx context.Context, analytics *schema.Analytics) error {
	return upsert(ctx, s.db, analytics, "analytics")
}

func (s *pgStore) GetTVLDayData(ctx context.Context, id string) (*schema.TVLDayData, error) {
	return getByID[schema.TVLDayData](ctx, s.db, id, "tvl day data")
}

func (s *pgStore) SaveTVLDayData(ctx context.Context, data *schema.TVLDayData) error {
	return upsert(ctx, s.db, data, "tvl day data")
}

func (s *pgStore) GetCFMonthlyData(ctx context.Context, id string) (*schema.CFMonthlyData, error) {
	return getByID[schema.CFMonthlyData](ctx, s.db, id, "cf monthly data")
}

func (s *pgStore) SaveCFMonthlyData(ctx context.Context, data *schema.CFMonthlyData) error {
	return upsert(ctx, s.db, data, "cf monthly data")
}

func (s *pgStore) GetUserMonthlyData(ctx context.Context, id string) (*schema.UserMonthlyData, error) {
	return getByID[schema.UserMonthlyData](ctx, s.db, id, "user monthly data")
}

func (s *pgStore) SaveUserMonthlyData(ctx context.Context, data *schema.UserMonthlyData) error {
	return upsert(ctx, s.db, data, "user monthly data")
}

// AddWatchedAddress registers an address for log subscription.
// Re-registering an existing address is a no-op.
func (s *pgStore) AddWatchedAddress(ctx context.Context, chain domain.Chain, address string, kind domain.WatchKind) error {
	entry := schema.WatchedAddress{
		Chain:    chain,
		Address:  address,
		Kind:     kind,
		Watching: true,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to add watched address: %w", err)
	}
	return nil
}

func (s *pgStore) GetWatchedAddress(ctx context.Context, chain domain.Chain, address string) (*schema.WatchedAddress, error) {
	var entry schema.WatchedAddress
	err := s.db.WithContext(ctx).Where("chain = ? AND address = ?", chain, address).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get watched address: %w", err)
	}
	return &entry, nil
}

func (s *pgStore) ListWatchedAddresses(ctx context.Context, chain domain.Chain) ([]schema.WatchedAddress, error) {
	var entries []schema.WatchedAddress
	err := s.db.WithContext(ctx).Where("chain = ? AND watching = ?", chain, true).Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list watched addresses: %w", err)
	}
	return entries, nil
}

// GetBlockCursor retrieves the last processed block number for a chain
func (s *pgStore) GetBlockCursor(ctx context.Context, chain string) (uint64, error) {
	key := fmt.Sprintf("block_cursor:%s", chain)

	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get block cursor: %w", err)
	}

	blockNumber, err := strconv.ParseUint(kv.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse block cursor: %w", err)
	}

	return blockNumber, nil
}

// SetBlockCursor stores the last processed block number for a chain
func (s *pgStore) SetBlockCursor(ctx context.Context, chain string, blockNumber uint64) error {
	key := fmt.Sprintf("block_cursor:%s", chain)

	kv := schema.KeyValueStore{
		Key:   key,
		Value: strconv.FormatUint(blockNumber, 10),
	}

	err := s.db.WithContext(ctx).Save(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set block cursor: %w", err)
	}

	return nil
}
