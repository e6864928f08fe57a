package schema

import (
	"time"
)

// Token represents the tokens table - fungible token metadata fetched once per contract
type Token struct {
	// ID is the checksummed contract address
	ID string `gorm:"column:id;primaryKey;type:text"`
	// Name is the ERC20 name() result, empty when the call reverted
	Name string `gorm:"column:name;not null;type:text"`
	// Symbol is the ERC20 symbol() result, empty when the call reverted
	Symbol string `gorm:"column:symbol;not null;type:text"`
	// Decimals is the ERC20 decimals() result, zero when the call reverted
	Decimals uint8 `gorm:"column:decimals;not null"`
	// CreatedAt is the timestamp when this record was first indexed
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for the Token model
func (Token) TableName() string {
	return "tokens"
}

// NFToken represents the nf_tokens table - a single ERC721 token id that has been staked
type NFToken struct {
	// ID is "<contract>-<tokenId>"
	ID string `gorm:"column:id;primaryKey;type:text"`
	// ContractAddress is the ERC721 contract address
	ContractAddress string `gorm:"column:contract_address;not null;type:text;index"`
	// TokenID is the token id as a decimal string
	TokenID string `gorm:"column:token_id;not null;type:text"`
	// Owner is the staker while the token is staked, empty once unstaked
	Owner string `gorm:"column:owner;not null;type:text;index"`
	// PoolID references the pool the token was staked into
	PoolID string `gorm:"column:pool_id;not null;type:text;index"`
	// CreatedAt is the timestamp when this record was first indexed
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	// UpdatedAt is the timestamp when this record was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for the NFToken model
func (NFToken) TableName() string {
	return "nf_tokens"
}
