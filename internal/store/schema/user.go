package schema

import (
	"time"
)

// User represents the users table - a wallet's position in one pool
type User struct {
	// ID is "<pool>-<user>"
	ID string `gorm:"column:id;primaryKey;type:text"`
	// PoolID references the pool
	PoolID string `gorm:"column:pool_id;not null;type:text;index"`
	// Address is the wallet address
	Address string `gorm:"column:address;not null;type:text;index"`
	// Amount is the staked quantity (token units, or number of NFTs)
	Amount Uint256 `gorm:"column:amount;not null"`
	// RewardDebt is amount × accRewardPerShare at the last settlement
	RewardDebt Uint256 `gorm:"column:reward_debt;not null"`
	// Pending is the reward accrued but not yet claimed
	Pending Uint256 `gorm:"column:pending;not null"`
	// Claimed is the lifetime total paid out
	Claimed Uint256 `gorm:"column:claimed;not null"`
	// CreatedAt is the timestamp when this record was first indexed
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	// UpdatedAt is the timestamp when this record was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
