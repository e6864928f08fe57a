// Package factory tracks pool creation requests submitted to factory contracts
// and turns deployed requests into pools.
package factory

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/logger"
	"github.com/feral-file/staking-indexer/internal/pools"
	"github.com/feral-file/staking-indexer/internal/store"
	"github.com/feral-file/staking-indexer/internal/store/schema"
	"github.com/feral-file/staking-indexer/internal/tokens"
)

// Kinds maps a factory address to the kind of pool it deploys
type Kinds map[string]domain.PoolKind

// NewKinds normalizes the addresses of a factory kind mapping
func NewKinds(m map[string]domain.PoolKind) Kinds {
	k := make(Kinds, len(m))
	for address, kind := range m {
		k[domain.NormalizeAddress(address)] = kind
	}
	return k
}

// Resolve returns the pool kind for a factory. A valid discriminant carried by the event wins.
func (k Kinds) Resolve(factory string, discriminant domain.PoolKind) (domain.PoolKind, error) {
	if discriminant.Valid() {
		return discriminant, nil
	}
	if kind, ok := k[domain.NormalizeAddress(factory)]; ok && kind.Valid() {
		return kind, nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnknownFactory, factory)
}

// Workflow handles factory events
//
//go:generate mockgen -source=factory.go -destination=../mocks/factory.go -package=mocks -mock_names=Workflow=MockFactoryWorkflow
type Workflow interface {
	// SubmitRequest records a new request with status CREATED
	SubmitRequest(ctx context.Context, tx store.Store, meta domain.EventMeta, ev *domain.RequestSubmittedEvent) (*schema.Request, error)
	// ChangeStatus copies a status change onto a request.
	// Unknown and already deployed requests are reported and left untouched.
	ChangeStatus(ctx context.Context, tx store.Store, meta domain.EventMeta, ev *domain.RequestStatusChangedEvent) error
	// Deploy finalizes a request and creates its pool
	Deploy(ctx context.Context, tx store.Store, meta domain.EventMeta, ev *domain.PoolDeployedEvent) (*schema.Pool, error)
	// RegisterPool adds a pool address to the factory. Registering the same address twice is a no-op.
	RegisterPool(ctx context.Context, tx store.Store, meta domain.EventMeta, ev *domain.FactoryPoolCreatedEvent) (*schema.Factory, error)
}

type workflow struct {
	kinds  Kinds
	pools  pools.Registry
	tokens tokens.Registry
}

// NewWorkflow creates a new factory workflow
func NewWorkflow(kinds Kinds, poolRegistry pools.Registry, tokenRegistry tokens.Registry) Workflow {
	return &workflow{
		kinds:  kinds,
		pools:  poolRegistry,
		tokens: tokenRegistry,
	}
}

// getOrCreateFactory loads a factory or returns a new zeroed one (not yet saved)
func (w *workflow) getOrCreateFactory(ctx context.Context, tx store.Store, address string, kind domain.PoolKind) (*schema.Factory, error) {
	address = domain.NormalizeAddress(address)
	f, err := tx.GetFactory(ctx, address)
	if err != nil {
		return nil, err
	}
	if f == nil {
		f = &schema.Factory{ID: address, Kind: kind}
	}
	if f.Kind == "" {
		f.Kind = kind
	}
	return f, nil
}

func (w *workflow) SubmitRequest(ctx context.Context, tx store.Store, meta domain.EventMeta, ev *domain.RequestSubmittedEvent) (*schema.Request, error) {
	kind, err := w.kinds.Resolve(meta.Contract, ev.PoolKind)
	if err != nil {
		return nil, err
	}

	rewardPerSecond, err := domain.ParseAmount(ev.Data.RewardPerSecond)
	if err != nil {
		return nil, err
	}

	f, err := w.getOrCreateFactory(ctx, tx, meta.Contract, kind)
	if err != nil {
		return nil, err
	}

	request := &schema.Request{
		ID:                domain.RequestID(meta.Contract, ev.ID),
		FactoryID:         f.ID,
		RequestNumber:     ev.ID,
		Kind:              kind,
		Deployer:          domain.NormalizeAddress(ev.Deployer),
		Status:            domain.RequestStatusCreated,
		StakeToken:        domain.NormalizeAddress(ev.Data.StakeToken),
		RewardToken:       domain.NormalizeAddress(ev.Data.RewardToken),
		RewardPerSecond:   schema.NewUint256(rewardPerSecond),
		PoolStartTime:     ev.Data.PoolStartTime,
		PoolEndTime:       ev.Data.PoolEndTime,
		UnstakeLockUpTime: ev.Data.UnstakeLockUpTime,
		ClaimLockUpTime:   ev.Data.ClaimLockUpTime,
		PenaltyPeriod:     ev.Data.PenaltyPeriod,
		CreatedTxHash:     meta.TxHash,
	}
	if err := tx.CreateRequest(ctx, request); err != nil {
		return nil, err
	}

	f.TotalRequests++
	if err := tx.SaveFactory(ctx, f); err != nil {
		return nil, err
	}

	return request, nil
}

func (w *workflow) ChangeStatus(ctx context.Context, tx store.Store, meta domain.EventMeta, ev *domain.RequestStatusChangedEvent) error {
	status, err := domain.ParseRequestStatus(ev.Status)
	if err != nil {
		return err
	}

	id := domain.RequestID(meta.Contract, ev.ID)
	request, err := tx.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if request == nil {
		logger.WarnCtx(ctx, "Status change for unknown request ignored",
			zap.String("request", id),
			zap.String("status", string(status)),
			zap.String("txHash", meta.TxHash))
		return nil
	}
	if request.PoolAddress != nil || request.Status.Terminal() {
		logger.WarnCtx(ctx, "Status change for deployed request ignored",
			zap.String("request", id),
			zap.String("status", string(status)),
			zap.Error(domain.ErrRequestFrozen))
		return nil
	}

	request.Status = status
	return tx.SaveRequest(ctx, request)
}

func (w *workflow) Deploy(ctx context.Context, tx store.Store, meta domain.EventMeta, ev *domain.PoolDeployedEvent) (*schema.Pool, error) {
	id := domain.RequestID(meta.Contract, ev.ID)
	request, err := tx.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRequestNotFound, id)
	}
	if request.PoolAddress != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRequestFrozen, id)
	}

	// NFT pools stake an ERC721 collection which has no ERC20 metadata
	if request.Kind == domain.PoolKindFungible {
		if _, err := w.tokens.FetchOrCreate(ctx, tx, request.StakeToken); err != nil {
			return nil, fmt.Errorf("failed to register stake token: %w", err)
		}
	}
	if _, err := w.tokens.FetchOrCreate(ctx, tx, request.RewardToken); err != nil {
		return nil, fmt.Errorf("failed to register reward token: %w", err)
	}

	address := domain.NormalizeAddress(ev.StakingAddress)
	pool := &schema.Pool{
		ID:                   address,
		Kind:                 request.Kind,
		FactoryID:            request.FactoryID,
		RequestID:            request.ID,
		StakeToken:           request.StakeToken,
		RewardToken:          request.RewardToken,
		Owner:                request.Deployer,
		StartTime:            request.PoolStartTime,
		EndTime:              request.PoolEndTime,
		UnstakeLockUpTime:    request.UnstakeLockUpTime,
		ClaimLockUpTime:      request.ClaimLockUpTime,
		PenaltyPeriod:        request.PenaltyPeriod,
		RewardTokenPerSecond: request.RewardPerSecond,
		LastRewardTimestamp:  request.PoolStartTime,
		CreatedTxHash:        meta.TxHash,
	}
	if err := w.pools.Create(ctx, tx, pool); err != nil {
		return nil, err
	}

	request.Status = domain.RequestStatusDeployed
	request.PoolAddress = &address
	if err := tx.SaveRequest(ctx, request); err != nil {
		return nil, err
	}

	if _, err := w.register(ctx, tx, request.FactoryID, request.Kind, address); err != nil {
		return nil, err
	}

	return pool, nil
}

func (w *workflow) RegisterPool(ctx context.Context, tx store.Store, meta domain.EventMeta, ev *domain.FactoryPoolCreatedEvent) (*schema.Factory, error) {
	kind, err := w.kinds.Resolve(meta.Contract, ev.PoolKind)
	if err != nil {
		// a factory first seen through a deployment already knows its kind
		existing, getErr := tx.GetFactory(ctx, domain.NormalizeAddress(meta.Contract))
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil || !existing.Kind.Valid() || !errors.Is(err, domain.ErrUnknownFactory) {
			return nil, err
		}
		kind = existing.Kind
	}

	return w.register(ctx, tx, meta.Contract, kind, ev.StakingAddress)
}

func (w *workflow) register(ctx context.Context, tx store.Store, factory string, kind domain.PoolKind, pool string) (*schema.Factory, error) {
	f, err := w.getOrCreateFactory(ctx, tx, factory, kind)
	if err != nil {
		return nil, err
	}

	pool = domain.NormalizeAddress(pool)
	if slices.Contains(f.PoolAddresses, pool) {
		return f, nil
	}

	f.PoolAddresses = append(f.PoolAddresses, pool)
	f.TotalPools++
	if err := tx.SaveFactory(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}
