package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/store/schema"
)

// memoryStore is an in-memory Store implementation. It backs the projector
// unit tests and local development runs; the Postgres store is the production
// implementation. All records are copied on the way in and out so callers
// never share memory with the store.
type memoryStore struct {
	mu sync.RWMutex

	factories       map[string]schema.Factory
	accounts        map[string]schema.Account
	tokens          map[string]schema.Token
	pools           map[string]schema.Pool
	investments     map[string]schema.Investment
	facilitators    map[string]schema.CreditFacilitator
	holdings        map[string]schema.Holding
	transactions    map[string]schema.Transaction
	analytics       map[string]schema.Analytics
	tvlDayData      map[string]schema.TVLDayData
	cfMonthlyData   map[string]schema.CFMonthlyData
	userMonthlyData map[string]schema.UserMonthlyData
	watched         map[string]schema.WatchedAddress
	cursors         map[string]string
}

// NewMemoryStore creates a new in-memory store instance
func NewMemoryStore() Store {
	return &memoryStore{
		factories:       make(map[string]schema.Factory),
		accounts:        make(map[string]schema.Account),
		tokens:          make(map[string]schema.Token),
		pools:           make(map[string]schema.Pool),
		investments:     make(map[string]schema.Investment),
		facilitators:    make(map[string]schema.CreditFacilitator),
		holdings:        make(map[string]schema.Holding),
		transactions:    make(map[string]schema.Transaction),
		analytics:       make(map[string]schema.Analytics),
		tvlDayData:      make(map[string]schema.TVLDayData),
		cfMonthlyData:   make(map[string]schema.CFMonthlyData),
		userMonthlyData: make(map[string]schema.UserMonthlyData),
		watched:         make(map[string]schema.WatchedAddress),
		cursors:         make(map[string]string),
	}
}

func get[T any](s *memoryStore, m map[string]T, id string) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := m[id]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func put[T any](s *memoryStore, m map[string]T, id string, record *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m[id] = *record
	return nil
}

func del[T any](s *memoryStore, m map[string]T, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(m, id)
	return nil
}

func (s *memoryStore) GetFactory(_ context.Context, id string) (*schema.Factory, error) {
	return get(s, s.factories, id)
}

func (s *memoryStore) SaveFactory(_ context.Context, factory *schema.Factory) error {
	return put(s, s.factories, factory.ID, factory)
}

func (s *memoryStore) DeleteFactory(_ context.Context, id string) error {
	return del(s, s.factories, id)
}

func (s *memoryStore) GetAccount(_ context.Context, id string) (*schema.Account, error) {
	return get(s, s.accounts, id)
}

func (s *memoryStore) SaveAccount(_ context.Context, account *schema.Account) error {
	return put(s, s.accounts, account.ID, account)
}

func (s *memoryStore) GetToken(_ context.Context, id string) (*schema.Token, error) {
	return get(s, s.tokens, id)
}

func (s *memoryStore) GetTokenByPriceFeed(_ context.Context, priceFeedAddress string) (*schema.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, token := range s.tokens {
		if token.PriceFeedAddress == priceFeedAddress {
			t := token
			return &t, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) SaveToken(_ context.Context, token *schema.Token) error {
	return put(s, s.tokens, token.ID, token)
}

func (s *memoryStore) DeleteToken(_ context.Context, id string) error {
	return del(s, s.tokens, id)
}

func (s *memoryStore) GetPool(_ context.Context, id string) (*schema.Pool, error) {
	return get(s, s.pools, id)
}

func (s *memoryStore) SavePool(_ context.Context, pool *schema.Pool) error {
	return put(s, s.pools, pool.ID, pool)
}

func (s *memoryStore) DeletePool(_ context.Context, id string) error {
	return del(s, s.pools, id)
}

func (s *memoryStore) GetInvestment(_ context.Context, id string) (*schema.Investment, error) {
	return get(s, s.investments, id)
}

func (s *memoryStore) SaveInvestment(_ context.Context, investment *schema.Investment) error {
	return put(s, s.investments, investment.ID, investment)
}

func (s *memoryStore) DeleteInvestment(_ context.Context, id string) error {
	return del(s, s.investments, id)
}

func (s *memoryStore) GetCreditFacilitator(_ context.Context, id string) (*schema.CreditFacilitator, error) {
	return get(s, s.facilitators, id)
}

func (s *memoryStore) SaveCreditFacilitator(_ context.Context, cf *schema.CreditFacilitator) error {
	return put(s, s.facilitators, cf.ID, cf)
}

func (s *memoryStore) GetHolding(_ context.Context, id string) (*schema.Holding, error) {
	return get(s, s.holdings, id)
}

func (s *memoryStore) SaveHolding(_ context.Context, holding *schema.Holding) error {
	return put(s, s.holdings, holding.ID, holding)
}

func (s *memoryStore) SaveTransaction(_ context.Context, tx *schema.Transaction) error {
	return put(s, s.transactions, tx.ID, tx)
}

func (s *memoryStore) GetTransaction(_ context.Context, id string) (*schema.Transaction, error) {
	return get(s, s.transactions, id)
}

func (s *memoryStore) GetAnalytics(_ context.Context, id string) (*schema.Analytics, error) {
	return get(s, s.analytics, id)
}

func (s *memoryStore) SaveAnalytics(_ context.Context, analytics *schema.Analytics) error {
	return put(s, s.analytics, analytics.ID, analytics)
}

func (s *memoryStore) GetTVLDayData(_ context.Context, id string) (*schema.TVLDayData, error) {
	return get(s, s.tvlDayData, id)
}

func (s *memoryStore) SaveTVLDayData(_ context.Context, data *schema.TVLDayData) error {
	return put(s, s.tvlDayData, data.ID, data)
}

func (s *memoryStore) GetCFMonthlyData(_ context.Context, id string) (*schema.CFMonthlyData, error) {
	return get(s, s.cfMonthlyData, id)
}

func (s *memoryStore) SaveCFMonthlyData(_ context.Context, data *schema.CFMonthlyData) error {
	return put(s, s.cfMonthlyData, data.ID, data)
}

func (s *memoryStore) GetUserMonthlyData(_ context.Context, id string) (*schema.UserMonthlyData, error) {
	return get(s, s.userMonthlyData, id)
}

func (s *memoryStore) SaveUserMonthlyData(_ context.Context, data *schema.UserMonthlyData) error {
	return put(s, s.userMonthlyData, data.ID, data)
}

func watchKey(chain domain.Chain, address string) string {
	return fmt.Sprintf("%s|%s", chain, address)
}

func (s *memoryStore) AddWatchedAddress(_ context.Context, chain domain.Chain, address string, kind domain.WatchKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := watchKey(chain, address)
	if _, ok := s.watched[key]; ok {
		return nil
	}
	s.watched[key] = schema.WatchedAddress{
		Chain:    chain,
		Address:  address,
		Kind:     kind,
		Watching: true,
	}
	return nil
}

func (s *memoryStore) GetWatchedAddress(_ context.Context, chain domain.Chain, address string) (*schema.WatchedAddress, error) {
	return get(s, s.watched, watchKey(chain, address))
}

func (s *memoryStore) ListWatchedAddresses(_ context.Context, chain domain.Chain) ([]schema.WatchedAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []schema.WatchedAddress
	for _, entry := range s.watched {
		if entry.Chain == chain && entry.Watching {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (s *memoryStore) GetBlockCursor(_ context.Context, chain string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.cursors[chain]
	if !ok {
		return 0, nil
	}
	blockNumber, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse block cursor: %w", err)
	}
	return blockNumber, nil
}

func (s *memoryStore) SetBlockCursor(_ context.Context, chain string, blockNumber uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[chain] = strconv.FormatUint(blockNumber, 10)
	return nil
}
