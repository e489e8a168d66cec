package schema

import "time"

// Factory represents the factories table - a registered smart-wallet factory.
// Existence is the only state: a row is created on FactoryAdded and removed
// on FactoryRemoved.
type Factory struct {
	// ID is the factory contract address (lowercase hex)
	ID string `gorm:"column:id;primaryKey;type:text"`
	// CreatedAt is when this factory was first indexed
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Factory model
func (Factory) TableName() string {
	return "factories"
}
