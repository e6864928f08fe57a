package history_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/history"
	"github.com/feral-file/staking-indexer/internal/store/schema"
	"github.com/feral-file/staking-indexer/internal/store/storetest"
)

const (
	poolA = "0x00000000000000000000000000000000000000a1"
	poolB = "0x00000000000000000000000000000000000000a2"
	alice = "0x00000000000000000000000000000000000000b1"
	bob   = "0x00000000000000000000000000000000000000b2"
)

func meta(block uint64, index uint64) domain.EventMeta {
	return domain.EventMeta{
		Chain:       domain.ChainEthereumMainnet,
		TxHash:      fmt.Sprintf("0x%064x", block),
		LogIndex:    index,
		BlockNumber: block,
		Timestamp:   time.Unix(int64(1700000000+block), 0),
	}
}

func TestNewEntry(t *testing.T) {
	m := meta(10, 3)
	entry := history.NewEntry(m, poolA, alice, domain.HistoryEventStake)

	assert.Equal(t, m.EventKey(), entry.ID)
	assert.Equal(t, domain.UserID(poolA, alice), entry.UserID)
	assert.Equal(t, domain.NormalizeAddress(alice), entry.UserAddress)
	assert.Equal(t, domain.NormalizeAddress(poolA), entry.PoolID)
	assert.Equal(t, domain.HistoryEventStake, entry.EventType)
	assert.Equal(t, uint64(10), entry.BlockNumber)
	assert.Equal(t, uint64(3), entry.LogIndex)
	assert.Equal(t, time.UTC, entry.Timestamp.Location())
}

func TestJournal_AppendRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	st := storetest.NewSQLite(t)
	j := history.NewJournal()

	entry := history.NewEntry(meta(1, 0), poolA, alice, domain.HistoryEventStake)
	entry.Amount = schema.Uint256FromUint64(100)
	require.NoError(t, j.Append(ctx, st, entry))

	dup := history.NewEntry(meta(1, 0), poolA, alice, domain.HistoryEventStake)
	assert.ErrorIs(t, j.Append(ctx, st, dup), domain.ErrHistoryExists)
}

func TestJournal_List(t *testing.T) {
	ctx := context.Background()
	st := storetest.NewSQLite(t)
	j := history.NewJournal()

	require.NoError(t, j.Append(ctx, st, history.NewEntry(meta(1, 0), poolA, alice, domain.HistoryEventStake)))
	require.NoError(t, j.Append(ctx, st, history.NewEntry(meta(2, 0), poolB, alice, domain.HistoryEventStake)))
	require.NoError(t, j.Append(ctx, st, history.NewEntry(meta(2, 1), poolA, bob, domain.HistoryEventStake)))
	require.NoError(t, j.Append(ctx, st, history.NewEntry(meta(3, 0), poolA, alice, domain.HistoryEventClaim)))

	entries, total, err := j.ListByUser(ctx, st, alice, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	require.Len(t, entries, 3)
	assert.Equal(t, uint64(3), entries[0].BlockNumber)
	assert.Equal(t, domain.HistoryEventClaim, entries[0].EventType)
	assert.Equal(t, uint64(1), entries[2].BlockNumber)

	entries, total, err = j.ListByPool(ctx, st, poolA, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(3), entries[0].BlockNumber)
	assert.Equal(t, domain.NormalizeAddress(bob), entries[1].UserAddress)

	entries, _, err = j.ListByPool(ctx, st, poolA, 2, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(1), entries[0].BlockNumber)
}
