package schema

import "time"

// Holding represents the holdings table - an account's balance of a registered
// asset token. Balances are always persisted, including transiently negative
// ones, since upstream event order guarantees eventual consistency.
type Holding struct {
	// ID is the composite key account-token
	ID string `gorm:"column:id;primaryKey;type:text"`
	// AccountID references the holding account
	AccountID string `gorm:"column:account_id;not null;type:text;index"`
	// TokenID references the held token
	TokenID string `gorm:"column:token_id;not null;type:text;index"`
	// Amount is the current balance in token-native units
	Amount string `gorm:"column:amount;not null;default:0;type:numeric(78,0)"`
	// CreatedAt is when this holding was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is when this holding was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Holding model
func (Holding) TableName() string {
	return "holdings"
}
