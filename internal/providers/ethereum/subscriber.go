package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/feral-file/staking-indexer/internal/adapter"
	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/logger"
	"github.com/feral-file/staking-indexer/internal/messaging"
)

// Config holds the configuration for Ethereum subscription
type Config struct {
	ChainID       domain.Chain  // e.g., "eip155:1" for Ethereum mainnet
	PollInterval  time.Duration // wait between polls once the head is reached
	Confirmations uint64        // blocks behind the head considered final
	BatchSize     uint64        // blocks fetched per poll
	Workers       int           // concurrent block timestamp lookups
}

type ethSubscriber struct {
	client EthereumClient
	config Config
	clock  adapter.Clock
	pool   pond.Pool
}

// NewSubscriber creates a polling subscriber over the staking and factory event signatures
func NewSubscriber(cfg Config, ethereumClient EthereumClient, clock adapter.Clock) messaging.Subscriber {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 12 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 500
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	return &ethSubscriber{
		client: ethereumClient,
		config: cfg,
		clock:  clock,
		pool:   pond.NewPool(cfg.Workers),
	}
}

// SubscribeEvents polls logs in block ranges. The checkpoint runs after every range is fully handled.
func (s *ethSubscriber) SubscribeEvents(ctx context.Context, fromBlock uint64, handler messaging.EventHandler, checkpoint messaging.CheckpointHandler) error {
	next := fromBlock

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		head, err := s.safeHead(ctx)
		if err != nil {
			return err
		}

		if next > head {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.clock.After(s.config.PollInterval):
			}
			continue
		}

		to := next + s.config.BatchSize - 1
		if to > head {
			to = head
		}

		if err := s.processRange(ctx, next, to, handler); err != nil {
			return err
		}

		if checkpoint != nil {
			if err := checkpoint(to); err != nil {
				return fmt.Errorf("failed to checkpoint block %d: %w", to, err)
			}
		}

		next = to + 1
	}
}

func (s *ethSubscriber) safeHead(ctx context.Context) (uint64, error) {
	latest, err := s.GetLatestBlock(ctx)
	if err != nil {
		return 0, err
	}
	if latest < s.config.Confirmations {
		return 0, nil
	}
	return latest - s.config.Confirmations, nil
}

func (s *ethSubscriber) processRange(ctx context.Context, from, to uint64, handler messaging.EventHandler) error {
	logs, err := s.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Topics:    [][]common.Hash{EventSignatures},
	})
	if err != nil {
		return fmt.Errorf("failed to filter logs: %w", err)
	}

	if len(logs) == 0 {
		return nil
	}

	logger.DebugCtx(ctx, "Fetched logs", zap.Uint64("from", from), zap.Uint64("to", to), zap.Int("count", len(logs)))

	if err := s.prefetchTimestamps(ctx, logs); err != nil {
		return err
	}

	for _, vLog := range logs {
		if vLog.Removed {
			continue
		}

		event, err := s.client.ParseEventLog(ctx, vLog)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			logger.ErrorCtx(ctx, err,
				zap.String("message", "Error parsing log"),
				zap.String("txHash", vLog.TxHash.Hex()),
				zap.Uint("logIndex", vLog.Index))
			continue
		}

		if event == nil {
			continue
		}

		if err := handler(event); err != nil {
			return fmt.Errorf("failed to handle event %s: %w", event.Meta.EventKey(), err)
		}
	}

	return nil
}

// prefetchTimestamps warms the client's block timestamp cache concurrently.
// Failed lookups are retried by ParseEventLog.
func (s *ethSubscriber) prefetchTimestamps(ctx context.Context, logs []types.Log) error {
	group := s.pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	seen := make(map[uint64]struct{})
	for _, vLog := range logs {
		if _, ok := seen[vLog.BlockNumber]; ok {
			continue
		}
		seen[vLog.BlockNumber] = struct{}{}

		number := vLog.BlockNumber
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				return
			}
			if _, err := s.client.BlockTimestamp(groupCtx, number); err != nil {
				logger.WarnCtx(groupCtx, "Failed to prefetch block timestamp", zap.Uint64("block", number), zap.Error(err))
			}
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return fmt.Errorf("failed to fetch block timestamps: %w", err)
	}
	return ctx.Err()
}

// GetLatestBlock returns the latest block number
func (s *ethSubscriber) GetLatestBlock(ctx context.Context) (uint64, error) {
	header, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}

// Close closes the connection
func (s *ethSubscriber) Close() {
	s.pool.StopAndWait()

	if s.client == nil {
		return
	}

	s.client.Close()
	logger.Info("Ethereum RPC connection closed")
}
