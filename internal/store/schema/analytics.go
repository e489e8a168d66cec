package schema

// Analytics represents the analytics table - a singleton row of running
// protocol totals. TVL is a signed accumulator normalized to 18 decimals
// regardless of source token decimals.
type Analytics struct {
	// ID is the fixed singleton id
	ID string `gorm:"column:id;primaryKey;type:text"`
	// TVL is the running total value locked, 18-decimal fixed point, signed
	TVL string `gorm:"column:tvl;not null;default:0;type:numeric(78,0)"`
	// TotalInvestors counts accounts with at least one investment
	TotalInvestors int64 `gorm:"column:total_investors;not null;default:0"`
	// TotalPools counts currently registered pools
	TotalPools int64 `gorm:"column:total_pools;not null;default:0"`
}

// TableName specifies the table name for the Analytics model
func (Analytics) TableName() string {
	return "analytics"
}
