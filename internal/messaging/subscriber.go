package messaging

import (
	"context"

	"github.com/feral-file/staking-indexer/internal/domain"
)

// EventHandler is called for every decoded event, in (block, log index) order
type EventHandler func(event *domain.Event) error

// CheckpointHandler is called once every event up to and including block was handled
type CheckpointHandler func(block uint64) error

// Subscriber defines the interface for following staking contract logs
//
//go:generate mockgen -source=subscriber.go -destination=../mocks/subscriber.go -package=mocks -mock_names=Subscriber=MockSubscriber
type Subscriber interface {
	// SubscribeEvents follows the chain from fromBlock until ctx is done or a handler fails
	SubscribeEvents(ctx context.Context, fromBlock uint64, handler EventHandler, checkpoint CheckpointHandler) error

	// GetLatestBlock returns the latest block number
	GetLatestBlock(ctx context.Context) (uint64, error)

	// Close closes the connection and cleans up resources
	Close()
}
