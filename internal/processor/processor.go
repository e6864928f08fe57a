// Package processor folds on-chain staking events into the stored pool, user and history state.
package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/feral-file/staking-indexer/internal/accounting"
	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/factory"
	"github.com/feral-file/staking-indexer/internal/history"
	"github.com/feral-file/staking-indexer/internal/ledger"
	"github.com/feral-file/staking-indexer/internal/logger"
	"github.com/feral-file/staking-indexer/internal/pools"
	"github.com/feral-file/staking-indexer/internal/store"
	"github.com/feral-file/staking-indexer/internal/store/schema"
	"github.com/feral-file/staking-indexer/internal/tokens"
)

// Processor applies one event at a time.
// All writes of an event are committed in a single transaction together with its idempotency key.
//
//go:generate mockgen -source=processor.go -destination=../mocks/processor.go -package=mocks -mock_names=Processor=MockProcessor
type Processor interface {
	// Process validates and applies an event. A replayed event returns domain.ErrEventAlreadyProcessed
	// and leaves state untouched.
	Process(ctx context.Context, event *domain.Event) error
}

// Deps bundles the components the processor dispatches to
type Deps struct {
	Store   store.Store
	Engine  accounting.Engine
	Pools   pools.Registry
	Ledger  ledger.Ledger
	Tokens  tokens.Registry
	History history.Journal
	Factory factory.Workflow
}

type processor struct {
	Deps
}

// New creates a new event processor
func New(deps Deps) Processor {
	return &processor{Deps: deps}
}

func (p *processor) Process(ctx context.Context, event *domain.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	fields := logger.EventFields(event.Meta, event.Kind)
	err := p.Store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.MarkEventProcessed(ctx, &schema.ProcessedEvent{
			ID:          event.Meta.EventKey(),
			Chain:       event.Meta.Chain,
			Kind:        event.Kind,
			Contract:    domain.NormalizeAddress(event.Meta.Contract),
			BlockNumber: event.Meta.BlockNumber,
		}); err != nil {
			return err
		}
		return p.dispatch(ctx, tx, event)
	})
	if err != nil {
		if errors.Is(err, domain.ErrEventAlreadyProcessed) {
			logger.InfoCtx(ctx, "Event already processed, skipping", fields...)
		}
		return err
	}

	logger.DebugCtx(ctx, "Event processed", fields...)
	return nil
}

func (p *processor) dispatch(ctx context.Context, tx store.Store, event *domain.Event) error {
	meta := event.Meta
	switch event.Kind {
	case domain.EventKindStake:
		return p.handleStake(ctx, tx, meta, event.Stake)
	case domain.EventKindUnstake:
		return p.handleUnstake(ctx, tx, meta, event.Unstake)
	case domain.EventKindClaim:
		return p.handleClaim(ctx, tx, meta, event.Claim)
	case domain.EventKindPoolUpdate:
		return p.handlePoolUpdate(ctx, tx, meta, event.PoolUpdate)
	case domain.EventKindPoolActivate:
		return p.Pools.Activate(ctx, tx, meta.Contract)
	case domain.EventKindRequestSubmitted:
		_, err := p.Factory.SubmitRequest(ctx, tx, meta, event.RequestSubmitted)
		return err
	case domain.EventKindRequestStatusChanged:
		return p.Factory.ChangeStatus(ctx, tx, meta, event.RequestStatusChanged)
	case domain.EventKindPoolDeployed:
		_, err := p.Factory.Deploy(ctx, tx, meta, event.PoolDeployed)
		return err
	case domain.EventKindFactoryPoolCreated:
		_, err := p.Factory.RegisterPool(ctx, tx, meta, event.FactoryPoolCreated)
		return err
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownEventKind, event.Kind)
	}
}

// balanceDelta returns the quantity moved by a stake or unstake in the pool's asset model
func balanceDelta(pool *schema.Pool, ev *domain.StakeEvent) (*uint256.Int, domain.HistoryEventType, error) {
	if pool.Kind == domain.PoolKindNonFungible {
		if len(ev.TokenIDs) == 0 {
			return nil, "", fmt.Errorf("%w: nft pool %s event without token ids", domain.ErrInvalidEvent, pool.ID)
		}
		return uint256.NewInt(uint64(len(ev.TokenIDs))), domain.HistoryEventNFTStake, nil
	}

	if len(ev.TokenIDs) > 0 {
		return nil, "", fmt.Errorf("%w: fungible pool %s event with token ids", domain.ErrInvalidEvent, pool.ID)
	}
	amount, err := domain.ParseAmount(ev.Amount)
	if err != nil {
		return nil, "", err
	}
	return amount, domain.HistoryEventStake, nil
}

func (p *processor) handleStake(ctx context.Context, tx store.Store, meta domain.EventMeta, ev *domain.StakeEvent) error {
	var user *schema.User
	var delta *uint256.Int
	var eventType domain.HistoryEventType

	pool, err := p.Pools.Update(ctx, tx, meta.Contract, func(pool *schema.Pool) error {
		var err error
		if delta, eventType, err = balanceDelta(pool, ev); err != nil {
			return err
		}
		if user, err = p.Ledger.GetOrCreate(ctx, tx, pool.ID, ev.User); err != nil {
			return err
		}

		ps, us := accounting.PoolStateOf(pool), accounting.UserStateOf(user)
		if err := p.Engine.Stake(ps, us, delta); err != nil {
			return fmt.Errorf("failed to stake for %s: %w", user.ID, err)
		}
		ps.ApplyToPool(pool)
		us.ApplyToUser(user)
		return nil
	})
	if err != nil {
		return err
	}

	if err := p.Ledger.Save(ctx, tx, user); err != nil {
		return err
	}

	for _, id := range ev.TokenIDs {
		if err := p.Tokens.UpdateNFTokenOwner(ctx, tx, pool.StakeToken, id, pool.ID, user.Address); err != nil {
			return err
		}
	}

	entry := history.NewEntry(meta, pool.ID, user.Address, eventType)
	entry.Amount = schema.NewUint256(delta)
	entry.TokenIDs = ev.TokenIDs
	return p.History.Append(ctx, tx, entry)
}

func (p *processor) handleUnstake(ctx context.Context, tx store.Store, meta domain.EventMeta, ev *domain.UnstakeEvent) error {
	var user *schema.User
	var delta *uint256.Int
	var eventType domain.HistoryEventType

	pool, err := p.Pools.Update(ctx, tx, meta.Contract, func(pool *schema.Pool) error {
		var err error
		if delta, eventType, err = balanceDelta(pool, ev); err != nil {
			return err
		}
		if user, err = p.Ledger.Load(ctx, tx, pool.ID, ev.User); err != nil {
			return err
		}

		ps, us := accounting.PoolStateOf(pool), accounting.UserStateOf(user)
		if err := p.Engine.Unstake(ps, us, delta); err != nil {
			return fmt.Errorf("failed to unstake for %s: %w", user.ID, err)
		}
		ps.ApplyToPool(pool)
		us.ApplyToUser(user)
		return nil
	})
	if err != nil {
		return err
	}

	if err := p.Ledger.Save(ctx, tx, user); err != nil {
		return err
	}

	for _, id := range ev.TokenIDs {
		if err := p.Tokens.UpdateNFTokenOwner(ctx, tx, pool.StakeToken, id, pool.ID, ""); err != nil {
			return err
		}
	}

	if eventType == domain.HistoryEventNFTStake {
		eventType = domain.HistoryEventNFTUnstake
	} else {
		eventType = domain.HistoryEventUnstake
	}
	entry := history.NewEntry(meta, pool.ID, user.Address, eventType)
	entry.Amount = schema.NewUint256(delta)
	entry.TokenIDs = ev.TokenIDs
	return p.History.Append(ctx, tx, entry)
}

func (p *processor) handleClaim(ctx context.Context, tx store.Store, meta domain.EventMeta, ev *domain.ClaimEvent) error {
	penalty, err := domain.ParseAmount(ev.PenaltyAmount)
	if err != nil {
		return err
	}

	var user *schema.User
	var paid *uint256.Int

	pool, err := p.Pools.Update(ctx, tx, meta.Contract, func(pool *schema.Pool) error {
		var err error
		if user, err = p.Ledger.Load(ctx, tx, pool.ID, ev.User); err != nil {
			return err
		}

		ps, us := accounting.PoolStateOf(pool), accounting.UserStateOf(user)
		if paid, err = p.Engine.Claim(ps, us, penalty); err != nil {
			return fmt.Errorf("failed to claim for %s: %w", user.ID, err)
		}
		ps.ApplyToPool(pool)
		us.ApplyToUser(user)
		return nil
	})
	if err != nil {
		return err
	}

	if err := p.Ledger.Save(ctx, tx, user); err != nil {
		return err
	}

	if paid.Dec() != ev.Amount {
		logger.WarnCtx(ctx, "Claimed amount differs from settled pending",
			zap.String("user", user.ID),
			zap.String("eventAmount", ev.Amount),
			zap.String("paid", paid.Dec()),
			zap.String("txHash", meta.TxHash))
	}

	entry := history.NewEntry(meta, pool.ID, user.Address, domain.HistoryEventClaim)
	entry.Amount = schema.NewUint256(paid)
	entry.PenaltyAmount = schema.NewUint256(penalty)
	return p.History.Append(ctx, tx, entry)
}

func (p *processor) handlePoolUpdate(ctx context.Context, tx store.Store, meta domain.EventMeta, ev *domain.PoolUpdateEvent) error {
	acc, err := domain.ParseAmount(ev.AccRewardPerShare)
	if err != nil {
		return err
	}
	totalStaked, err := domain.ParseAmount(ev.TotalStaked)
	if err != nil {
		return err
	}

	_, err = p.Pools.Update(ctx, tx, meta.Contract, func(pool *schema.Pool) error {
		ps := accounting.PoolStateOf(pool)
		if err := p.Engine.SyncPool(ps, acc, totalStaked, ev.LastRewardTimestamp); err != nil {
			return fmt.Errorf("failed to update pool %s: %w", pool.ID, err)
		}
		ps.ApplyToPool(pool)
		return nil
	})
	return err
}
