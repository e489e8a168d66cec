package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Account represents the accounts table - a smart wallet created by a
// registered factory. Accounts are never deleted.
type Account struct {
	// ID is the smart wallet address (lowercase hex)
	ID string `gorm:"column:id;primaryKey;type:text"`
	// FactoryID references the factory that created this account, when the
	// factory was known at creation time
	FactoryID *string `gorm:"column:factory_id;type:text;index"`
	// Owners is the current owner address set, insertion order preserved
	Owners datatypes.JSONSlice[string] `gorm:"column:owners;type:jsonb"`
	// KYCAttestationUID is the active attestation identifier, zeroed when none
	KYCAttestationUID string `gorm:"column:kyc_attestation_uid;not null;type:text"`
	// KYCLevel is the attested KYC level, 0 when unattested
	KYCLevel uint8 `gorm:"column:kyc_level;not null;default:0"`
	// TotalInterestEarned accumulates interest from repayment splits
	// (stored as string to support up to 78 digits for blockchain compatibility)
	TotalInterestEarned string `gorm:"column:total_interest_earned;not null;default:0;type:numeric(78,0)"`
	// CreatedAt is when this account was first indexed
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is when this account was last modified
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Account model
func (Account) TableName() string {
	return "accounts"
}
