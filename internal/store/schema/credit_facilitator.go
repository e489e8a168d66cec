package schema

import "time"

// CreditFacilitator represents the credit_facilitators table - an account
// holding the facilitator role. Rows are soft-deactivated on role revoke,
// never deleted.
type CreditFacilitator struct {
	// ID is the facilitator account address (lowercase hex)
	ID string `gorm:"column:id;primaryKey;type:text"`
	// AccountID back-references the underlying account
	AccountID string `gorm:"column:account_id;not null;type:text;index"`
	// Active reports whether the role is currently granted
	Active bool `gorm:"column:active;not null;default:true"`
	// CreatedAt is when the role was first granted
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is when the role state last changed
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the CreditFacilitator model
func (CreditFacilitator) TableName() string {
	return "credit_facilitators"
}
