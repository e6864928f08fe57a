package emitter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/staking-indexer/internal/adapter"
	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/logger"
	"github.com/feral-file/staking-indexer/internal/messaging"
	"github.com/feral-file/staking-indexer/internal/store"
)

// Config holds the configuration for the event emitter
type Config struct {
	ChainID         domain.Chain
	StartBlock      uint64
	CursorSaveFreq  uint64        // Save cursor every N blocks
	CursorSaveDelay time.Duration // Or save cursor every N seconds
	Factories       []string      // factory contracts whose events are published
	Pools           []string      // pools followed in addition to those deployed by factories
}

// Emitter defines the interface for the event emitter
//
//go:generate mockgen -source=emitter.go -destination=../mocks/emitter.go -package=mocks -mock_names=Emitter=MockEmitter
type Emitter interface {
	// Run starts the event emitter
	Run(ctx context.Context) error
	// Close closes the emitter and cleans up resources
	Close()
}

// emitter follows staking logs and publishes those of known contracts to NATS
type emitter struct {
	subscriber messaging.Subscriber
	publisher  messaging.Publisher
	store      store.CursorStore
	config     Config
	clock      adapter.Clock

	factories map[string]struct{}
	pools     map[string]struct{}
}

// NewEmitter creates a new event emitter
func NewEmitter(
	sub messaging.Subscriber,
	pub messaging.Publisher,
	st store.CursorStore,
	cfg Config,
	clock adapter.Clock,
) Emitter {
	e := &emitter{
		subscriber: sub,
		publisher:  pub,
		store:      st,
		config:     cfg,
		clock:      clock,
		factories:  make(map[string]struct{}),
		pools:      make(map[string]struct{}),
	}
	for _, f := range cfg.Factories {
		e.factories[strings.ToLower(f)] = struct{}{}
	}
	for _, p := range cfg.Pools {
		e.pools[strings.ToLower(p)] = struct{}{}
	}
	return e
}

// Run starts the event emitter
func (e *emitter) Run(ctx context.Context) error {
	chain := string(e.config.ChainID)

	watched, err := e.store.GetWatchedPools(ctx, chain)
	if err != nil {
		return fmt.Errorf("failed to load watched pools: %w", err)
	}
	for _, p := range watched {
		e.pools[strings.ToLower(p)] = struct{}{}
	}
	logger.Info("Loaded watched contracts",
		zap.String("chain", chain),
		zap.Int("factories", len(e.factories)),
		zap.Int("pools", len(e.pools)))

	startBlock, err := e.startBlock(ctx)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("Starting event subscription", zap.String("chain", chain))

		lastSavedBlock := startBlock
		lastSaveTime := e.clock.Now()

		handler := func(event *domain.Event) error {
			if !e.follows(event) {
				return nil
			}

			if err := e.trackDeployedPool(ctx, event); err != nil {
				return err
			}

			if err := e.publisher.PublishEvent(ctx, event); err != nil {
				return fmt.Errorf("failed to publish event %s: %w", event.Meta.EventKey(), err)
			}

			return nil
		}

		// Save cursor periodically (every N blocks or N seconds)
		checkpoint := func(block uint64) error {
			shouldSave := block-lastSavedBlock >= e.config.CursorSaveFreq ||
				e.clock.Since(lastSaveTime) >= e.config.CursorSaveDelay
			if !shouldSave {
				return nil
			}

			if err := e.store.SetBlockCursor(ctx, chain, block); err != nil {
				logger.Error(err, zap.String("message", "Failed to save block cursor"), zap.Uint64("block", block))
				return nil
			}
			lastSavedBlock = block
			lastSaveTime = e.clock.Now()
			return nil
		}

		if err := e.subscriber.SubscribeEvents(ctx, startBlock, handler, checkpoint); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *emitter) startBlock(ctx context.Context) (uint64, error) {
	chain := string(e.config.ChainID)

	lastBlock, err := e.store.GetBlockCursor(ctx, chain)
	if err != nil {
		return 0, fmt.Errorf("failed to get block cursor: %w", err)
	}

	if lastBlock > 0 {
		logger.Info("Resuming from last processed block", zap.String("chain", chain), zap.Uint64("block", lastBlock+1))
		return lastBlock + 1, nil
	}

	if e.config.StartBlock > 0 {
		logger.Info("Starting from configured block", zap.String("chain", chain), zap.Uint64("block", e.config.StartBlock))
		return e.config.StartBlock, nil
	}

	latestBlock, err := e.subscriber.GetLatestBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block number: %w", err)
	}
	logger.Info("Starting from latest block", zap.String("chain", chain), zap.Uint64("block", latestBlock))
	return latestBlock, nil
}

// follows reports whether the event was emitted by a configured factory or a known pool
func (e *emitter) follows(event *domain.Event) bool {
	contract := strings.ToLower(event.Meta.Contract)
	switch event.Kind {
	case domain.EventKindRequestSubmitted,
		domain.EventKindRequestStatusChanged,
		domain.EventKindPoolDeployed,
		domain.EventKindFactoryPoolCreated:
		_, ok := e.factories[contract]
		return ok
	default:
		_, ok := e.pools[contract]
		return ok
	}
}

// trackDeployedPool starts following a pool as soon as its factory announces it
func (e *emitter) trackDeployedPool(ctx context.Context, event *domain.Event) error {
	var address string
	switch {
	case event.Kind == domain.EventKindPoolDeployed && event.PoolDeployed != nil:
		address = event.PoolDeployed.StakingAddress
	case event.Kind == domain.EventKindFactoryPoolCreated && event.FactoryPoolCreated != nil:
		address = event.FactoryPoolCreated.StakingAddress
	default:
		return nil
	}

	key := strings.ToLower(address)
	if _, ok := e.pools[key]; ok {
		return nil
	}

	if err := e.store.AddWatchedPool(ctx, string(e.config.ChainID), address); err != nil {
		return fmt.Errorf("failed to watch pool %s: %w", address, err)
	}
	e.pools[key] = struct{}{}

	logger.InfoCtx(ctx, "Watching new pool", zap.String("pool", address), zap.String("factory", event.Meta.Contract))
	return nil
}

// Close closes the emitter and cleans up resources
func (e *emitter) Close() {
	e.subscriber.Close()
	e.publisher.Close()
}
