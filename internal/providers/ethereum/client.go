package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/feral-file/staking-indexer/internal/adapter"
	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/logger"
)

const (
	// defaultTimestampCacheSize bounds the block timestamp cache
	defaultTimestampCacheSize = 4096
	// maxFilterRetryElapsed bounds the retries of a single FilterLogs call
	maxFilterRetryElapsed = 2 * time.Minute
)

//go:generate mockgen -source=client.go -destination=../../mocks/ethereum_client.go -package=mocks -mock_names=EthereumClient=MockEthereumClient
type EthereumClient interface {
	// FilterLogs returns the logs matching the query, ordered by (block, log index).
	// Block ranges are split when the node rejects them as too large.
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)

	// ParseEventLog decodes a staking or factory log. Unknown logs return (nil, nil).
	ParseEventLog(ctx context.Context, vLog types.Log) (*domain.Event, error)

	// BlockTimestamp returns the timestamp of a block
	BlockTimestamp(ctx context.Context, number uint64) (time.Time, error)

	// HeaderByNumber returns a header by number
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)

	// Close closes the connection
	Close()
}

type ethereumClient struct {
	chainID    domain.Chain
	client     adapter.EthClient
	clock      adapter.Clock
	timestamps *lru.Cache
	stepSize   uint64
}

// NewClient creates a new client. stepSize is the initial FilterLogs block range.
func NewClient(chainID domain.Chain, client adapter.EthClient, clock adapter.Clock, stepSize uint64) (EthereumClient, error) {
	cache, err := lru.New(defaultTimestampCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create timestamp cache: %w", err)
	}
	if stepSize == 0 {
		stepSize = 2000
	}

	return &ethereumClient{
		chainID:    chainID,
		client:     client,
		clock:      clock,
		timestamps: cache,
		stepSize:   stepSize,
	}, nil
}

// FilterLogs fetches the logs of the query range in chunks of the configured step size
func (c *ethereumClient) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if query.BlockHash != nil {
		return c.filterLogsWithBackoff(ctx, query)
	}
	if query.FromBlock == nil || query.ToBlock == nil {
		return nil, fmt.Errorf("filter query requires both from and to block")
	}

	logs, err := c.getLogsWithRetry(ctx, query, c.stepSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs for range %d-%d: %w", query.FromBlock.Uint64(), query.ToBlock.Uint64(), err)
	}

	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})

	return logs, nil
}

// getLogsWithRetry processes the entire range from query.FromBlock to query.ToBlock in chunks,
// halving the chunk whenever the node reports too many results
func (c *ethereumClient) getLogsWithRetry(ctx context.Context, query ethereum.FilterQuery, stepSize uint64) ([]types.Log, error) {
	currentStepSize := stepSize

	var allLogs []types.Log
	currentFrom := new(big.Int).Set(query.FromBlock)

	for currentFrom.Cmp(query.ToBlock) <= 0 {
		currentTo := new(big.Int).Add(currentFrom, new(big.Int).SetUint64(currentStepSize-1))
		if currentTo.Cmp(query.ToBlock) > 0 {
			currentTo.Set(query.ToBlock)
		}

		queryCopy := query
		queryCopy.FromBlock = new(big.Int).Set(currentFrom)
		queryCopy.ToBlock = new(big.Int).Set(currentTo)

		logs, err := c.filterLogsWithBackoff(ctx, queryCopy)
		if err == nil {
			allLogs = append(allLogs, logs...)
			currentFrom.SetUint64(currentTo.Uint64() + 1)
			continue
		}

		if !isTooManyResultsError(err) || currentStepSize == 1 {
			return nil, err
		}

		currentStepSize = currentStepSize / 2

		logger.WarnCtx(ctx, "Too many results, reducing step size",
			zap.Uint64("oldStepSize", currentStepSize*2),
			zap.Uint64("newStepSize", currentStepSize),
			zap.Uint64("fromBlock", currentFrom.Uint64()),
			zap.Uint64("toBlock", currentTo.Uint64()))
	}

	return allLogs, nil
}

// filterLogsWithBackoff retries transient node failures with exponential backoff.
// Too-many-results errors are returned at once so the caller can shrink the range.
func (c *ethereumClient) filterLogsWithBackoff(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	operation := func() error {
		var err error
		logs, err = c.client.FilterLogs(ctx, query)
		if err != nil && isTooManyResultsError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxFilterRetryElapsed
	notify := func(err error, d time.Duration) {
		logger.WarnCtx(ctx, "FilterLogs failed, retrying", zap.Error(err), zap.Duration("backoff", d))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, err
	}
	return logs, nil
}

// isTooManyResultsError checks if the error is related to too many results
func isTooManyResultsError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "query returned more than 10000 results") ||
		strings.Contains(errStr, "query timeout exceeded") ||
		strings.Contains(errStr, "too many results") ||
		strings.Contains(errStr, "exceeded maximum") ||
		strings.Contains(errStr, "block range")
}

// HeaderByNumber returns a header by number
func (c *ethereumClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.client.HeaderByNumber(ctx, number)
}

// BlockTimestamp returns the timestamp of a block, caching recent lookups
func (c *ethereumClient) BlockTimestamp(ctx context.Context, number uint64) (time.Time, error) {
	if v, ok := c.timestamps.Get(number); ok {
		return v.(time.Time), nil
	}

	header, err := c.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get block header %d: %w", number, err)
	}

	ts := c.clock.Unix(int64(header.Time), 0).UTC() //nolint:gosec,G115 // header.Time is a unix timestamp in seconds
	c.timestamps.Add(number, ts)
	return ts, nil
}

// ParseEventLog decodes a staking or factory log and attaches its block metadata
func (c *ethereumClient) ParseEventLog(ctx context.Context, vLog types.Log) (*domain.Event, error) {
	event, err := decodeLog(vLog)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, nil
	}

	timestamp, err := c.BlockTimestamp(ctx, vLog.BlockNumber)
	if err != nil {
		return nil, err
	}

	blockHash := vLog.BlockHash.Hex()
	event.Meta = domain.EventMeta{
		Chain:       c.chainID,
		Contract:    vLog.Address.Hex(),
		TxHash:      vLog.TxHash.Hex(),
		LogIndex:    uint64(vLog.Index),
		BlockNumber: vLog.BlockNumber,
		BlockHash:   &blockHash,
		Timestamp:   timestamp,
	}

	return event, nil
}

// Close closes the connection
func (c *ethereumClient) Close() {
	c.client.Close()
}
