package schema

// UserMonthlyData represents the user_monthly_data table - per-account
// principal/interest rollups keyed by epoch-anchored month bucket.
type UserMonthlyData struct {
	// ID is the composite key account-monthBucket
	ID string `gorm:"column:id;primaryKey;type:text"`
	// AccountID references the account
	AccountID string `gorm:"column:account_id;not null;type:text;index"`
	// Timestamp is the month bucket start (unix seconds)
	Timestamp int64 `gorm:"column:timestamp;not null;index"`
	// Principal accumulates the principal portion of repayments received
	Principal string `gorm:"column:principal;not null;default:0;type:numeric(78,0)"`
	// Interest accumulates the interest portion of repayments received
	Interest string `gorm:"column:interest;not null;default:0;type:numeric(78,0)"`
}

// TableName specifies the table name for the UserMonthlyData model
func (UserMonthlyData) TableName() string {
	return "user_monthly_data"
}
