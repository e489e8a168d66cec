package schema

import "time"

// Pool represents the pools table - a lending pool with metadata captured by
// contract reads at registration time.
type Pool struct {
	// ID is the pool contract address (lowercase hex)
	ID string `gorm:"column:id;primaryKey;type:text"`
	// Asset references the pool's underlying asset token
	Asset string `gorm:"column:asset;not null;type:text;index"`
	// Name is the share token name
	Name string `gorm:"column:name;not null;type:text"`
	// Symbol is the share token symbol
	Symbol string `gorm:"column:symbol;not null;type:text"`
	// StartTime is when the investment window opens (unix seconds)
	StartTime int64 `gorm:"column:start_time;not null;default:0"`
	// EndTime is when the investment window closes (unix seconds)
	EndTime int64 `gorm:"column:end_time;not null;default:0"`
	// Threshold is the minimum raise for the pool to fund
	Threshold string `gorm:"column:threshold;not null;default:0;type:numeric(78,0)"`
	// AmountToRaise is the target raise amount
	AmountToRaise string `gorm:"column:amount_to_raise;not null;default:0;type:numeric(78,0)"`
	// FeeBasisPoints is the pool fee in basis points
	FeeBasisPoints int64 `gorm:"column:fee_basis_points;not null;default:0"`
	// EstimatedReturnBasisPoints is the projected return in basis points
	EstimatedReturnBasisPoints int64 `gorm:"column:estimated_return_basis_points;not null;default:0"`
	// CreditFacilitator is the address of the pool's linked facilitator account
	CreditFacilitator string `gorm:"column:credit_facilitator;not null;type:text;index"`
	// KYCLevel is the minimum attestation level required to invest
	KYCLevel uint8 `gorm:"column:kyc_level;not null;default:0"`
	// Term is the loan term duration in seconds
	Term int64 `gorm:"column:term;not null;default:0"`
	// TotalInvested accumulates minted share amounts in asset units
	TotalInvested string `gorm:"column:total_invested;not null;default:0;type:numeric(78,0)"`
	// FundsTaken is set once the facilitator has drawn the raised funds
	FundsTaken bool `gorm:"column:funds_taken;not null;default:false"`
	// Repaid is set once the pool has been fully repaid
	Repaid bool `gorm:"column:repaid;not null;default:false"`
	// Refunded is set on the first investor refund
	Refunded bool `gorm:"column:refunded;not null;default:false"`
	// CreatedAt is when this pool was first indexed
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is when this pool was last modified
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Pool model
func (Pool) TableName() string {
	return "pools"
}
