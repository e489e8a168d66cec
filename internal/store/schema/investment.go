package schema

import "time"

// Investment represents the investments table - an account's current share
// balance in a pool. A row whose shares drop to zero or below is deleted
// rather than stored.
type Investment struct {
	// ID is the composite key account-pool
	ID string `gorm:"column:id;primaryKey;type:text"`
	// AccountID references the investing account
	AccountID string `gorm:"column:account_id;not null;type:text;index"`
	// PoolID references the pool
	PoolID string `gorm:"column:pool_id;not null;type:text;index"`
	// Shares is the current share balance
	Shares string `gorm:"column:shares;not null;default:0;type:numeric(78,0)"`
	// CreatedAt is when this investment was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is when this investment was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Investment model
func (Investment) TableName() string {
	return "investments"
}
