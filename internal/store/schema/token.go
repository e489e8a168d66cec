package schema

import "time"

// Token represents the tokens table - a registered ERC20 asset token.
// Name, symbol and decimals are captured once at registration; only the
// price fields are refreshed afterwards, by price feed updates.
type Token struct {
	// ID is the token contract address (lowercase hex)
	ID string `gorm:"column:id;primaryKey;type:text"`
	// Name is the ERC20 name, "Unknown" when the read reverted
	Name string `gorm:"column:name;not null;type:text"`
	// Symbol is the ERC20 symbol, "UNKNOWN" when the read reverted
	Symbol string `gorm:"column:symbol;not null;type:text"`
	// Decimals is the ERC20 decimal precision, 18 when the read reverted
	Decimals uint8 `gorm:"column:decimals;not null"`
	// PriceFeedAddress is the linked price feed contract (lowercase hex)
	PriceFeedAddress string `gorm:"column:price_feed_address;not null;type:text;index"`
	// LastPrice is the most recent feed answer in feed-native decimals
	LastPrice string `gorm:"column:last_price;not null;default:0;type:numeric(78,0)"`
	// LastUpdate is the unix timestamp of the most recent price observation
	LastUpdate int64 `gorm:"column:last_update;not null;default:0"`
	// CreatedAt is when this token was first indexed
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is when this token was last modified
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Token model
func (Token) TableName() string {
	return "tokens"
}
