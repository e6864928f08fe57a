package schema

import (
	"time"

	"github.com/feral-file/staking-indexer/internal/domain"
)

// Pool represents the pools table - configuration and live accumulator state of a staking pool
type Pool struct {
	// ID is the checksummed pool contract address
	ID string `gorm:"column:id;primaryKey;type:text"`
	// Kind is the asset model of the pool (erc20, erc721)
	Kind domain.PoolKind `gorm:"column:kind;not null;type:text"`
	// FactoryID is the factory that deployed the pool
	FactoryID string `gorm:"column:factory_id;not null;type:text;index"`
	// RequestID is the factory request the pool was deployed from
	RequestID string `gorm:"column:request_id;not null;type:text"`
	// StakeToken is the staked asset (Token id for erc20, NFT contract for erc721)
	StakeToken string `gorm:"column:stake_token;not null;type:text"`
	// RewardToken references the Token paid out as reward
	RewardToken string `gorm:"column:reward_token;not null;type:text"`
	// Owner is the deployer of the pool
	Owner string `gorm:"column:owner;not null;type:text;index"`

	// Configuration, immutable after creation
	StartTime            uint64  `gorm:"column:start_time;not null"`
	EndTime              uint64  `gorm:"column:end_time;not null"`
	UnstakeLockUpTime    uint64  `gorm:"column:unstake_lock_up_time;not null"`
	ClaimLockUpTime      uint64  `gorm:"column:claim_lock_up_time;not null"`
	PenaltyPeriod        uint64  `gorm:"column:penalty_period;not null"`
	RewardTokenPerSecond Uint256 `gorm:"column:reward_token_per_second;not null"`

	// Running aggregates
	TotalStaked    Uint256 `gorm:"column:total_staked;not null"`
	TotalClaimed   Uint256 `gorm:"column:total_claimed;not null"`
	TotalPenalties Uint256 `gorm:"column:total_penalties;not null"`

	// AccRewardPerShare is the accumulated reward per staked unit, never decreasing
	AccRewardPerShare Uint256 `gorm:"column:acc_reward_per_share;not null"`
	// LastRewardTimestamp is the timestamp of the last accumulator update
	LastRewardTimestamp uint64 `gorm:"column:last_reward_timestamp;not null"`
	// IsPoolActive is set once the pool emits its activation event
	IsPoolActive bool `gorm:"column:is_pool_active;not null;default:false"`

	// CreatedTxHash is the transaction that deployed the pool
	CreatedTxHash string `gorm:"column:created_tx_hash;type:text"`
	// CreatedAt is the timestamp when this record was first indexed
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	// UpdatedAt is the timestamp when this record was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for the Pool model
func (Pool) TableName() string {
	return "pools"
}

// PoolConfig is the immutable part of a pool, used to detect illegal mutations
type PoolConfig struct {
	Kind                 domain.PoolKind
	FactoryID            string
	RequestID            string
	StakeToken           string
	RewardToken          string
	Owner                string
	StartTime            uint64
	EndTime              uint64
	UnstakeLockUpTime    uint64
	ClaimLockUpTime      uint64
	PenaltyPeriod        uint64
	RewardTokenPerSecond string
}

// Config returns the immutable configuration of the pool
func (p *Pool) Config() PoolConfig {
	return PoolConfig{
		Kind:                 p.Kind,
		FactoryID:            p.FactoryID,
		RequestID:            p.RequestID,
		StakeToken:           p.StakeToken,
		RewardToken:          p.RewardToken,
		Owner:                p.Owner,
		StartTime:            p.StartTime,
		EndTime:              p.EndTime,
		UnstakeLockUpTime:    p.UnstakeLockUpTime,
		ClaimLockUpTime:      p.ClaimLockUpTime,
		PenaltyPeriod:        p.PenaltyPeriod,
		RewardTokenPerSecond: p.RewardTokenPerSecond.String(),
	}
}
