package schema

// TVLDayData represents the tvl_day_data table - one row per UTC day holding
// the running TVL as of the day's most recent mutation. Writes within a day
// overwrite, they do not accumulate.
type TVLDayData struct {
	// ID is the day bucket start timestamp rendered as a decimal string
	ID string `gorm:"column:id;primaryKey;type:text"`
	// Timestamp is the day bucket start (unix seconds)
	Timestamp int64 `gorm:"column:timestamp;not null;index"`
	// TVL is the running total as of the latest mutation that day
	TVL string `gorm:"column:tvl;not null;default:0;type:numeric(78,0)"`
}

// TableName specifies the table name for the TVLDayData model
func (TVLDayData) TableName() string {
	return "tvl_day_data"
}
