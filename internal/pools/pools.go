package pools

import (
	"context"
	"fmt"

	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/store"
	"github.com/feral-file/staking-indexer/internal/store/schema"
)

// Registry manages pool records.
//
//go:generate mockgen -source=pools.go -destination=../mocks/pools.go -package=mocks -mock_names=Registry=MockPoolRegistry
type Registry interface {
	// Create stores a new pool with every aggregate counter zeroed.
	// Returns domain.ErrPoolAlreadyExists when the address is taken.
	Create(ctx context.Context, tx store.Store, pool *schema.Pool) error
	// Load returns the pool or domain.ErrPoolNotFound
	Load(ctx context.Context, tx store.Store, address string) (*schema.Pool, error)
	// Update loads the pool, applies mutate and persists the result.
	// A mutation touching any configuration field is rejected with domain.ErrPoolConfigImmutable.
	Update(ctx context.Context, tx store.Store, address string, mutate func(pool *schema.Pool) error) (*schema.Pool, error)
	// Activate marks the pool active. Activating an active pool is a no-op.
	Activate(ctx context.Context, tx store.Store, address string) error
}

type registry struct{}

// NewRegistry creates a new pool registry
func NewRegistry() Registry {
	return &registry{}
}

func (r *registry) Create(ctx context.Context, tx store.Store, pool *schema.Pool) error {
	pool.ID = domain.NormalizeAddress(pool.ID)
	if !pool.Kind.Valid() {
		return fmt.Errorf("invalid pool kind %q for pool %s", pool.Kind, pool.ID)
	}

	pool.TotalStaked = schema.Uint256{}
	pool.TotalClaimed = schema.Uint256{}
	pool.TotalPenalties = schema.Uint256{}
	pool.AccRewardPerShare = schema.Uint256{}

	return tx.CreatePool(ctx, pool)
}

func (r *registry) Load(ctx context.Context, tx store.Store, address string) (*schema.Pool, error) {
	address = domain.NormalizeAddress(address)
	pool, err := tx.GetPool(ctx, address)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPoolNotFound, address)
	}
	return pool, nil
}

func (r *registry) Update(ctx context.Context, tx store.Store, address string, mutate func(pool *schema.Pool) error) (*schema.Pool, error) {
	pool, err := r.Load(ctx, tx, address)
	if err != nil {
		return nil, err
	}

	before := pool.Config()
	if err := mutate(pool); err != nil {
		return nil, err
	}
	if pool.Config() != before || pool.ID != domain.NormalizeAddress(address) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPoolConfigImmutable, pool.ID)
	}

	if err := tx.SavePool(ctx, pool); err != nil {
		return nil, err
	}
	return pool, nil
}

func (r *registry) Activate(ctx context.Context, tx store.Store, address string) error {
	_, err := r.Update(ctx, tx, address, func(pool *schema.Pool) error {
		pool.IsPoolActive = true
		return nil
	})
	return err
}
