package history

import (
	"context"

	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/store"
	"github.com/feral-file/staking-indexer/internal/store/schema"
)

// DefaultPageSize is used when a list call does not set a limit
const DefaultPageSize = 50

// MaxPageSize caps the number of entries returned by one list call
const MaxPageSize = 500

// Journal is the append-only record of balance-changing events
//
//go:generate mockgen -source=history.go -destination=../mocks/history.go -package=mocks -mock_names=Journal=MockJournal
type Journal interface {
	// Append inserts an entry. A duplicate id returns domain.ErrHistoryExists.
	Append(ctx context.Context, tx store.Store, entry *schema.History) error
	// ListByUser lists a wallet's entries across every pool, newest first
	ListByUser(ctx context.Context, st store.Store, user string, limit int, offset uint64) ([]schema.History, uint64, error)
	// ListByPool lists a pool's entries, newest first
	ListByPool(ctx context.Context, st store.Store, pool string, limit int, offset uint64) ([]schema.History, uint64, error)
}

type journal struct{}

// NewJournal creates a new history journal
func NewJournal() Journal {
	return &journal{}
}

// NewEntry builds a history entry keyed by the event's transaction hash and log index
func NewEntry(meta domain.EventMeta, pool, user string, eventType domain.HistoryEventType) *schema.History {
	return &schema.History{
		ID:          meta.EventKey(),
		UserID:      domain.UserID(pool, user),
		UserAddress: domain.NormalizeAddress(user),
		PoolID:      domain.NormalizeAddress(pool),
		EventType:   eventType,
		TxHash:      meta.TxHash,
		LogIndex:    meta.LogIndex,
		BlockNumber: meta.BlockNumber,
		Timestamp:   meta.Timestamp.UTC(),
	}
}

func (j *journal) Append(ctx context.Context, tx store.Store, entry *schema.History) error {
	return tx.CreateHistory(ctx, entry)
}

func (j *journal) ListByUser(ctx context.Context, st store.Store, user string, limit int, offset uint64) ([]schema.History, uint64, error) {
	return st.ListHistory(ctx, store.HistoryFilter{
		UserAddress: domain.NormalizeAddress(user),
		Limit:       pageSize(limit),
		Offset:      offset,
	})
}

func (j *journal) ListByPool(ctx context.Context, st store.Store, pool string, limit int, offset uint64) ([]schema.History, uint64, error) {
	return st.ListHistory(ctx, store.HistoryFilter{
		PoolID: domain.NormalizeAddress(pool),
		Limit:  pageSize(limit),
		Offset: offset,
	})
}

func pageSize(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	return min(limit, MaxPageSize)
}
