package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/feral-file/staking-indexer/internal/domain"
)

// Factory represents the factories table - pools deployed by a factory contract
type Factory struct {
	// ID is the checksummed factory address
	ID string `gorm:"column:id;primaryKey;type:text"`
	// Kind is the asset model of pools deployed by this factory
	Kind domain.PoolKind `gorm:"column:kind;not null;type:text"`
	// TotalPools is the number of pools created
	TotalPools uint64 `gorm:"column:total_pools;not null"`
	// TotalRequests is the number of requests submitted
	TotalRequests uint64 `gorm:"column:total_requests;not null"`
	// PoolAddresses lists the deployed pool addresses in creation order
	PoolAddresses datatypes.JSONSlice[string] `gorm:"column:pool_addresses"`
	// CreatedAt is the timestamp when this record was first indexed
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	// UpdatedAt is the timestamp when this record was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for the Factory model
func (Factory) TableName() string {
	return "factories"
}

// Request represents the requests table - a pending pool configuration awaiting deployment
type Request struct {
	// ID is "<factory>-<requestId>"
	ID string `gorm:"column:id;primaryKey;type:text"`
	// FactoryID references the factory
	FactoryID string `gorm:"column:factory_id;not null;type:text;index"`
	// RequestNumber is the on-chain request id
	RequestNumber string `gorm:"column:request_number;not null;type:text"`
	// Kind is the asset model of the pool to deploy
	Kind domain.PoolKind `gorm:"column:kind;not null;type:text"`
	// Deployer is the address that submitted the request
	Deployer string `gorm:"column:deployer;not null;type:text"`
	// Status is the request lifecycle status
	Status domain.RequestStatus `gorm:"column:status;not null;type:text"`

	StakeToken        string  `gorm:"column:stake_token;not null;type:text"`
	RewardToken       string  `gorm:"column:reward_token;not null;type:text"`
	RewardPerSecond   Uint256 `gorm:"column:reward_per_second;not null"`
	PoolStartTime     uint64  `gorm:"column:pool_start_time;not null"`
	PoolEndTime       uint64  `gorm:"column:pool_end_time;not null"`
	UnstakeLockUpTime uint64  `gorm:"column:unstake_lock_up_time;not null"`
	ClaimLockUpTime   uint64  `gorm:"column:claim_lock_up_time;not null"`
	PenaltyPeriod     uint64  `gorm:"column:penalty_period;not null"`

	// PoolAddress is set once the request is deployed
	PoolAddress *string `gorm:"column:pool_address;type:text"`
	// CreatedTxHash is the transaction that submitted the request
	CreatedTxHash string `gorm:"column:created_tx_hash;type:text"`
	// CreatedAt is the timestamp when this record was first indexed
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	// UpdatedAt is the timestamp when this record was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for the Request model
func (Request) TableName() string {
	return "requests"
}
