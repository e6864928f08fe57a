package executor

import (
	"context"

	"github.com/feral-file/staking-indexer/internal/accounting"
	"github.com/feral-file/staking-indexer/internal/adapter"
	"github.com/feral-file/staking-indexer/internal/api/shared/constants"
	"github.com/feral-file/staking-indexer/internal/api/shared/dto"
	apierrors "github.com/feral-file/staking-indexer/internal/api/shared/errors"
	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/history"
	"github.com/feral-file/staking-indexer/internal/store"
	"github.com/feral-file/staking-indexer/internal/store/schema"
)

// Executor is the interface for the API executor
// Getters return (nil, nil) when the record does not exist.
//
//go:generate mockgen -source=executor.go -destination=../../../mocks/api_executor.go -package=mocks -mock_names=Executor=MockAPIExecutor
type Executor interface {
	// GetPool retrieves a pool by address
	GetPool(ctx context.Context, address string) (*dto.PoolResponse, error)

	// GetPoolUser retrieves a user's position in a pool with the reward pending at the given
	// unix timestamp. A nil timestamp means now.
	GetPoolUser(ctx context.Context, pool, user string, at *uint64) (*dto.PoolUserResponse, error)

	// ListPoolUsers lists the users of a pool ordered by address
	ListPoolUsers(ctx context.Context, pool string, limit *int, offset *uint64) (*dto.PoolUserListResponse, error)

	// ListPoolHistory lists the history of a pool, newest first
	ListPoolHistory(ctx context.Context, pool string, limit *int, offset *uint64) (*dto.HistoryListResponse, error)

	// ListUserHistory lists the history of a user across pools, newest first
	ListUserHistory(ctx context.Context, user string, limit *int, offset *uint64) (*dto.HistoryListResponse, error)

	// GetToken retrieves an ERC20 token by address
	GetToken(ctx context.Context, address string) (*dto.TokenResponse, error)

	// GetNFToken retrieves a staked ERC721 token
	GetNFToken(ctx context.Context, contract, tokenID string) (*dto.NFTokenResponse, error)

	// GetFactory retrieves a factory by address
	GetFactory(ctx context.Context, address string) (*dto.FactoryResponse, error)

	// GetRequest retrieves a pool creation request by factory and request id
	GetRequest(ctx context.Context, factory, id string) (*dto.RequestResponse, error)
}

type executor struct {
	store   store.Store
	journal history.Journal
	engine  accounting.Engine
	clock   adapter.Clock
}

func NewExecutor(st store.Store, journal history.Journal, engine accounting.Engine, clock adapter.Clock) Executor {
	return &executor{store: st, journal: journal, engine: engine, clock: clock}
}

func (e *executor) GetPool(ctx context.Context, address string) (*dto.PoolResponse, error) {
	pool, err := e.store.GetPool(ctx, domain.NormalizeAddress(address))
	if err != nil {
		return nil, apierrors.NewDatabaseError("get pool", err)
	}
	if pool == nil {
		return nil, nil
	}
	return dto.MapPoolToDTO(pool), nil
}

func (e *executor) GetPoolUser(ctx context.Context, poolAddress, userAddress string, at *uint64) (*dto.PoolUserResponse, error) {
	pool, err := e.store.GetPool(ctx, domain.NormalizeAddress(poolAddress))
	if err != nil {
		return nil, apierrors.NewDatabaseError("get pool", err)
	}
	if pool == nil {
		return nil, nil
	}

	user, err := e.store.GetUser(ctx, domain.UserID(poolAddress, userAddress))
	if err != nil {
		return nil, apierrors.NewDatabaseError("get user", err)
	}
	if user == nil {
		return nil, nil
	}

	var now uint64
	if at != nil {
		now = *at
	} else {
		now = uint64(e.clock.Now().Unix()) //nolint:gosec,G115
	}

	pending, err := e.engine.PendingAt(accounting.PoolStateOf(pool), accounting.UserStateOf(user), now)
	if err != nil {
		return nil, apierrors.NewAccountingError("project pending reward", err)
	}

	resp := dto.MapUserToDTO(user)
	resp.PendingAt = pending.Dec()
	resp.At = now
	return &resp, nil
}

func (e *executor) ListPoolUsers(ctx context.Context, pool string, limit *int, offset *uint64) (*dto.PoolUserListResponse, error) {
	l, o := page(limit, offset, constants.DEFAULT_USERS_LIMIT)

	users, total, err := e.store.ListUsersByPool(ctx, domain.NormalizeAddress(pool), l, o)
	if err != nil {
		return nil, apierrors.NewDatabaseError("list users", err)
	}

	resp := &dto.PoolUserListResponse{
		Users:  make([]dto.PoolUserResponse, len(users)),
		Total:  total,
		Offset: o,
	}
	for i := range users {
		resp.Users[i] = dto.MapUserToDTO(&users[i])
	}
	return resp, nil
}

func (e *executor) ListPoolHistory(ctx context.Context, pool string, limit *int, offset *uint64) (*dto.HistoryListResponse, error) {
	l, o := page(limit, offset, constants.DEFAULT_HISTORY_LIMIT)

	entries, total, err := e.journal.ListByPool(ctx, e.store, pool, l, o)
	if err != nil {
		return nil, apierrors.NewDatabaseError("list history", err)
	}
	return historyPage(entries, total, o), nil
}

func (e *executor) ListUserHistory(ctx context.Context, user string, limit *int, offset *uint64) (*dto.HistoryListResponse, error) {
	l, o := page(limit, offset, constants.DEFAULT_HISTORY_LIMIT)

	entries, total, err := e.journal.ListByUser(ctx, e.store, user, l, o)
	if err != nil {
		return nil, apierrors.NewDatabaseError("list history", err)
	}
	return historyPage(entries, total, o), nil
}

func (e *executor) GetToken(ctx context.Context, address string) (*dto.TokenResponse, error) {
	token, err := e.store.GetToken(ctx, domain.NormalizeAddress(address))
	if err != nil {
		return nil, apierrors.NewDatabaseError("get token", err)
	}
	if token == nil {
		return nil, nil
	}
	return dto.MapTokenToDTO(token), nil
}

func (e *executor) GetNFToken(ctx context.Context, contract, tokenID string) (*dto.NFTokenResponse, error) {
	token, err := e.store.GetNFToken(ctx, domain.NFTokenID(contract, tokenID))
	if err != nil {
		return nil, apierrors.NewDatabaseError("get token", err)
	}
	if token == nil {
		return nil, nil
	}
	return dto.MapNFTokenToDTO(token), nil
}

func (e *executor) GetFactory(ctx context.Context, address string) (*dto.FactoryResponse, error) {
	f, err := e.store.GetFactory(ctx, domain.NormalizeAddress(address))
	if err != nil {
		return nil, apierrors.NewDatabaseError("get factory", err)
	}
	if f == nil {
		return nil, nil
	}
	return dto.MapFactoryToDTO(f), nil
}

func (e *executor) GetRequest(ctx context.Context, factory, id string) (*dto.RequestResponse, error) {
	request, err := e.store.GetRequest(ctx, domain.RequestID(factory, id))
	if err != nil {
		return nil, apierrors.NewDatabaseError("get request", err)
	}
	if request == nil {
		return nil, nil
	}
	return dto.MapRequestToDTO(request), nil
}

// page applies the defaults and the page size cap
func page(limit *int, offset *uint64, defaultLimit int) (int, uint64) {
	l := defaultLimit
	if limit != nil && *limit > 0 {
		l = min(*limit, constants.MAX_PAGE_SIZE)
	}
	o := constants.DEFAULT_OFFSET
	if offset != nil {
		o = *offset
	}
	return l, o
}

func historyPage(entries []schema.History, total, offset uint64) *dto.HistoryListResponse {
	resp := &dto.HistoryListResponse{
		Items:  make([]dto.HistoryResponse, len(entries)),
		Total:  total,
		Offset: offset,
	}
	for i := range entries {
		resp.Items[i] = dto.MapHistoryToDTO(&entries[i])
	}
	return resp
}
