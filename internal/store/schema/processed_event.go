package schema

import (
	"time"

	"github.com/feral-file/staking-indexer/internal/domain"
)

// ProcessedEvent represents the processed_events table - idempotency ledger keyed by tx hash and log index
type ProcessedEvent struct {
	// ID is "<txHash>-<logIndex>"
	ID string `gorm:"column:id;primaryKey;type:text"`
	// Chain identifies the blockchain network
	Chain domain.Chain `gorm:"column:chain;not null;type:text"`
	// Kind is the event kind that was applied
	Kind domain.EventKind `gorm:"column:kind;not null;type:text"`
	// Contract is the emitting contract
	Contract string `gorm:"column:contract;not null;type:text"`
	// BlockNumber is the block the event was emitted in
	BlockNumber uint64 `gorm:"column:block_number;not null"`
	// CreatedAt is the timestamp when the event was applied
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for the ProcessedEvent model
func (ProcessedEvent) TableName() string {
	return "processed_events"
}

// All returns every model managed by the store, in migration order
func All() []interface{} {
	return []interface{}{
		&Token{},
		&NFToken{},
		&Pool{},
		&User{},
		&History{},
		&Factory{},
		&Request{},
		&ProcessedEvent{},
		&KeyValueStore{},
	}
}
