package ledger

import (
	"context"
	"fmt"

	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/store"
	"github.com/feral-file/staking-indexer/internal/store/schema"
)

// Ledger manages per-(pool, user) positions.
// The same wallet in two pools owns two independent records.
//
//go:generate mockgen -source=ledger.go -destination=../mocks/ledger.go -package=mocks -mock_names=Ledger=MockLedger
type Ledger interface {
	// GetOrCreate returns the stored position or creates it with every counter zeroed.
	// An existing record is never reset.
	GetOrCreate(ctx context.Context, tx store.Store, pool, user string) (*schema.User, error)
	// Load returns the stored position or domain.ErrUserNotFound
	Load(ctx context.Context, tx store.Store, pool, user string) (*schema.User, error)
	// Save persists the position
	Save(ctx context.Context, tx store.Store, user *schema.User) error
}

type ledger struct{}

// New creates a new user ledger
func New() Ledger {
	return &ledger{}
}

func (l *ledger) GetOrCreate(ctx context.Context, tx store.Store, pool, user string) (*schema.User, error) {
	return tx.FirstOrCreateUser(ctx, &schema.User{
		ID:      domain.UserID(pool, user),
		PoolID:  domain.NormalizeAddress(pool),
		Address: domain.NormalizeAddress(user),
	})
}

func (l *ledger) Load(ctx context.Context, tx store.Store, pool, user string) (*schema.User, error) {
	id := domain.UserID(pool, user)
	u, err := tx.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, id)
	}
	return u, nil
}

func (l *ledger) Save(ctx context.Context, tx store.Store, user *schema.User) error {
	return tx.SaveUser(ctx, user)
}
