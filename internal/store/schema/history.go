package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/feral-file/staking-indexer/internal/domain"
)

// History represents the histories table - append-only journal of balance-changing events
type History struct {
	// ID is "<txHash>-<logIndex>"
	ID string `gorm:"column:id;primaryKey;type:text"`
	// UserID references the per-pool user record
	UserID string `gorm:"column:user_id;not null;type:text;index"`
	// UserAddress is the wallet address, kept for cross-pool queries
	UserAddress string `gorm:"column:user_address;not null;type:text;index"`
	// PoolID references the pool
	PoolID string `gorm:"column:pool_id;not null;type:text;index"`
	// Amount is the staked/unstaked quantity or the claimed reward
	Amount Uint256 `gorm:"column:amount;not null"`
	// PenaltyAmount is the early-exit penalty reported by a claim
	PenaltyAmount Uint256 `gorm:"column:penalty_amount;not null"`
	// EventType identifies the event (Stake, Unstake, Claim, NFTStake, NFTUnstake)
	EventType domain.HistoryEventType `gorm:"column:event_type;not null;type:text"`
	// TokenIDs lists the staked token ids for NFT events
	TokenIDs datatypes.JSONSlice[string] `gorm:"column:token_ids"`
	// TxHash is the transaction hash
	TxHash string `gorm:"column:tx_hash;not null;type:text"`
	// LogIndex is the log index within the block
	LogIndex uint64 `gorm:"column:log_index;not null"`
	// BlockNumber is the block the event was emitted in
	BlockNumber uint64 `gorm:"column:block_number;not null;index"`
	// Timestamp is the block timestamp
	Timestamp time.Time `gorm:"column:timestamp;not null;index"`
	// CreatedAt is the timestamp when this record was indexed
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for the History model
func (History) TableName() string {
	return "histories"
}
