package schema

// Transaction represents the transactions table - an append-only ledger row
// recording one classified leg of a token transfer. The id carries the actor
// so that an account-to-account transfer keeps both its legs.
type Transaction struct {
	// ID is the composite key txHash-logIndex-actor
	ID string `gorm:"column:id;primaryKey;type:text"`
	// AccountID is the actor account this leg belongs to
	AccountID string `gorm:"column:account_id;not null;type:text;index"`
	// FromAddress is the raw transfer sender
	FromAddress string `gorm:"column:from_address;not null;type:text"`
	// ToAddress is the raw transfer recipient
	ToAddress string `gorm:"column:to_address;not null;type:text"`
	// TokenID references the transferred token
	TokenID string `gorm:"column:token_id;not null;type:text;index"`
	// Timestamp is the block timestamp (unix seconds)
	Timestamp int64 `gorm:"column:timestamp;not null;index"`
	// Amount is the raw transfer amount in token-native units
	Amount string `gorm:"column:amount;not null;type:numeric(78,0)"`
	// Tag is the semantic classification (WITHDRAW, DEPOSIT, INVEST, REPAY, BORROW, REPAYMENT)
	Tag string `gorm:"column:tag;not null;type:text;index"`
	// Value is the fiat value at the last observed price, 18-decimal fixed point
	Value string `gorm:"column:value;not null;default:0;type:numeric(78,0)"`
}

// TableName specifies the table name for the Transaction model
func (Transaction) TableName() string {
	return "transactions"
}
