package schema

import (
	"time"

	"github.com/credit-markets/subgraphs/internal/domain"
)

// WatchedAddress represents the watched_addresses table - the set of
// dynamically registered listener addresses. The emitter widens its log
// filter with these; the registrar writes them when the projectors discover
// new factories, accounts, pools, tokens and price feeds.
type WatchedAddress struct {
	// Chain identifies the blockchain network
	Chain domain.Chain `gorm:"column:chain;not null;primaryKey;type:text"`
	// Address is the contract address being watched (lowercase hex)
	Address string `gorm:"column:address;not null;primaryKey;type:text"`
	// Kind classifies how logs from this address are decoded
	Kind domain.WatchKind `gorm:"column:kind;not null;type:text;index"`
	// Watching indicates whether this address is currently monitored
	Watching bool `gorm:"column:watching;not null;default:true"`
	// CreatedAt is when this watch entry was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is when this watch entry was last modified
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the WatchedAddress model
func (WatchedAddress) TableName() string {
	return "watched_addresses"
}
