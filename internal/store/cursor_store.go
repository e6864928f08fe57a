package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/feral-file/staking-indexer/internal/store/schema"
)

// CursorStore defines the interface for storing and retrieving block cursors
type CursorStore interface {
	// GetBlockCursor retrieves the last processed block number for a chain
	GetBlockCursor(ctx context.Context, chain string) (uint64, error)
	// SetBlockCursor stores the last processed block number for a chain
	SetBlockCursor(ctx context.Context, chain string, blockNumber uint64) error
	// AddWatchedPool records a pool address the emitter should follow on a chain
	AddWatchedPool(ctx context.Context, chain string, address string) error
	// GetWatchedPools lists the recorded pool addresses of a chain
	GetWatchedPools(ctx context.Context, chain string) ([]string, error)
}

type cursorStore struct {
	db *gorm.DB
}

// NewCursorStore creates a new cursor store
func NewCursorStore(db *gorm.DB) CursorStore {
	return &cursorStore{db: db}
}

func blockCursorKey(chain string) string {
	return fmt.Sprintf("block_cursor:%s", chain)
}

func watchedPoolPrefix(chain string) string {
	return fmt.Sprintf("watched_pool:%s:", chain)
}

// GetBlockCursor retrieves the last processed block number for a chain
func (s *cursorStore) GetBlockCursor(ctx context.Context, chain string) (uint64, error) {
	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", blockCursorKey(chain)).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil // Return 0 if no cursor exists
		}
		return 0, fmt.Errorf("failed to get block cursor: %w", err)
	}

	blockNumber, err := strconv.ParseUint(kv.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse block cursor: %w", err)
	}

	return blockNumber, nil
}

// SetBlockCursor stores the last processed block number for a chain
func (s *cursorStore) SetBlockCursor(ctx context.Context, chain string, blockNumber uint64) error {
	kv := schema.KeyValueStore{
		Key:   blockCursorKey(chain),
		Value: strconv.FormatUint(blockNumber, 10),
	}

	err := s.db.WithContext(ctx).Save(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set block cursor: %w", err)
	}

	return nil
}

// AddWatchedPool records a pool address the emitter should follow on a chain
func (s *cursorStore) AddWatchedPool(ctx context.Context, chain string, address string) error {
	kv := schema.KeyValueStore{
		Key:   watchedPoolPrefix(chain) + strings.ToLower(address),
		Value: address,
	}

	err := s.db.WithContext(ctx).Save(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to add watched pool: %w", err)
	}

	return nil
}

// GetWatchedPools lists the recorded pool addresses of a chain
func (s *cursorStore) GetWatchedPools(ctx context.Context, chain string) ([]string, error) {
	var kvs []schema.KeyValueStore
	err := s.db.WithContext(ctx).
		Where("key LIKE ?", watchedPoolPrefix(chain)+"%").
		Find(&kvs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get watched pools: %w", err)
	}

	pools := make([]string, 0, len(kvs))
	for _, kv := range kvs {
		pools = append(pools, kv.Value)
	}
	sort.Strings(pools)

	return pools, nil
}
