package schema

// CFMonthlyData represents the cf_monthly_data table - per-facilitator
// borrow/repay rollups keyed by epoch-anchored month bucket.
type CFMonthlyData struct {
	// ID is the composite key facilitator-monthBucket
	ID string `gorm:"column:id;primaryKey;type:text"`
	// CreditFacilitatorID references the facilitator
	CreditFacilitatorID string `gorm:"column:credit_facilitator_id;not null;type:text;index"`
	// Timestamp is the month bucket start (unix seconds)
	Timestamp int64 `gorm:"column:timestamp;not null;index"`
	// BorrowedAmount accumulates funds drawn during the month
	BorrowedAmount string `gorm:"column:borrowed_amount;not null;default:0;type:numeric(78,0)"`
	// RepaidAmount accumulates repayments made during the month
	RepaidAmount string `gorm:"column:repaid_amount;not null;default:0;type:numeric(78,0)"`
}

// TableName specifies the table name for the CFMonthlyData model
func (CFMonthlyData) TableName() string {
	return "cf_monthly_data"
}
