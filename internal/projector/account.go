package projector

import (
	"context"
	"fmt"

	"gorm.io/datatypes"

	"github.com/credit-markets/subgraphs/internal/domain"
	"github.com/credit-markets/subgraphs/internal/store/schema"
)

// handleAccountCreated materializes a smart wallet emitted by a registered
// factory. Existing accounts are left untouched so a replay cannot reset
// KYC or interest state.
func (p *Projector) handleAccountCreated(ctx context.Context, event *domain.Event) error {
	address := domain.NormalizeAddress(event.Account)

	existing, err := p.store.GetAccount(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if existing != nil {
		return nil
	}

	account := &schema.Account{
		ID:                  address,
		KYCAttestationUID:   domain.ZeroAttestationUID,
		TotalInterestEarned: "0",
	}

	factoryAddress := domain.NormalizeAddress(event.Address)
	factory, err := p.store.GetFactory(ctx, factoryAddress)
	if err != nil {
		return fmt.Errorf("failed to load factory: %w", err)
	}
	if factory != nil {
		account.FactoryID = &factory.ID
	}

	owners := make([]string, 0, len(event.Owners))
	for _, owner := range event.Owners {
		owners = append(owners, domain.NormalizeAddress(owner))
	}
	account.Owners = datatypes.NewJSONSlice(owners)

	if err := p.store.SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return p.register(ctx, domain.WatchKindAccount, address)
}

// handleOwnersUpdated applies the owner delta emitted by the wallet itself:
// removed owners drop out, added owners append in event order, duplicates
// collapse.
func (p *Projector) handleOwnersUpdated(ctx context.Context, event *domain.Event) error {
	account, err := p.store.GetAccount(ctx, domain.NormalizeAddress(event.Address))
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil
	}

	removed := make(map[string]bool, len(event.RemovedOwners))
	for _, owner := range event.RemovedOwners {
		removed[domain.NormalizeAddress(owner)] = true
	}

	owners := make([]string, 0, len(account.Owners)+len(event.AddedOwners))
	present := make(map[string]bool)
	for _, owner := range account.Owners {
		owner = domain.NormalizeAddress(owner)
		if removed[owner] || present[owner] {
			continue
		}
		owners = append(owners, owner)
		present[owner] = true
	}
	for _, owner := range event.AddedOwners {
		owner = domain.NormalizeAddress(owner)
		if removed[owner] || present[owner] {
			continue
		}
		owners = append(owners, owner)
		present[owner] = true
	}

	account.Owners = datatypes.NewJSONSlice(owners)
	if err := p.store.SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}
