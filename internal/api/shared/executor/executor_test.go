package executor_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/staking-indexer/internal/accounting"
	"github.com/feral-file/staking-indexer/internal/api/shared/executor"
	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/history"
	"github.com/feral-file/staking-indexer/internal/mocks"
	"github.com/feral-file/staking-indexer/internal/store"
	"github.com/feral-file/staking-indexer/internal/store/schema"
	"github.com/feral-file/staking-indexer/internal/store/storetest"
)

const (
	poolAddress    = "0x00000000000000000000000000000000000000a1"
	userAddress    = "0x00000000000000000000000000000000000000b1"
	factoryAddress = "0x00000000000000000000000000000000000000f1"
	tokenAddress   = "0x00000000000000000000000000000000000000d5"
	nftContract    = "0x00000000000000000000000000000000000000e5"
)

func seed(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, st.CreatePool(ctx, &schema.Pool{
		ID:                   domain.NormalizeAddress(poolAddress),
		Kind:                 domain.PoolKindFungible,
		FactoryID:            domain.NormalizeAddress(factoryAddress),
		RequestID:            domain.RequestID(factoryAddress, "1"),
		StakeToken:           domain.NormalizeAddress(tokenAddress),
		RewardToken:          domain.NormalizeAddress(tokenAddress),
		StartTime:            1000,
		EndTime:              2000,
		RewardTokenPerSecond: schema.Uint256FromUint64(10),
		TotalStaked:          schema.Uint256FromUint64(100),
		LastRewardTimestamp:  1000,
	}))

	_, err := st.FirstOrCreateUser(ctx, &schema.User{
		ID:      domain.UserID(poolAddress, userAddress),
		PoolID:  domain.NormalizeAddress(poolAddress),
		Address: domain.NormalizeAddress(userAddress),
		Amount:  schema.Uint256FromUint64(100),
	})
	require.NoError(t, err)

	for i, eventType := range []domain.HistoryEventType{domain.HistoryEventStake, domain.HistoryEventClaim} {
		meta := domain.EventMeta{
			Chain:       domain.ChainEthereumMainnet,
			Contract:    poolAddress,
			TxHash:      "0xabc",
			LogIndex:    uint64(i),
			BlockNumber: uint64(100 + i),
			Timestamp:   time.Unix(int64(1000+i), 0).UTC(),
		}
		entry := history.NewEntry(meta, poolAddress, userAddress, eventType)
		entry.Amount = schema.Uint256FromUint64(uint64(10 * (i + 1)))
		require.NoError(t, st.CreateHistory(ctx, entry))
	}

	require.NoError(t, st.CreateToken(ctx, &schema.Token{
		ID:       domain.NormalizeAddress(tokenAddress),
		Name:     "Feral",
		Symbol:   "FF",
		Decimals: 18,
	}))
	require.NoError(t, st.SaveNFToken(ctx, &schema.NFToken{
		ID:              domain.NFTokenID(nftContract, "7"),
		ContractAddress: domain.NormalizeAddress(nftContract),
		TokenID:         "7",
		Owner:           domain.NormalizeAddress(userAddress),
		PoolID:          domain.NormalizeAddress(poolAddress),
	}))

	address := domain.NormalizeAddress(poolAddress)
	require.NoError(t, st.SaveFactory(ctx, &schema.Factory{
		ID:            domain.NormalizeAddress(factoryAddress),
		Kind:          domain.PoolKindFungible,
		TotalPools:    1,
		TotalRequests: 1,
		PoolAddresses: []string{address},
	}))
	require.NoError(t, st.CreateRequest(ctx, &schema.Request{
		ID:              domain.RequestID(factoryAddress, "1"),
		FactoryID:       domain.NormalizeAddress(factoryAddress),
		RequestNumber:   "1",
		Kind:            domain.PoolKindFungible,
		Status:          domain.RequestStatusDeployed,
		RewardPerSecond: schema.Uint256FromUint64(10),
		PoolAddress:     &address,
	}))
}

func newExecutor(t *testing.T) (executor.Executor, *mocks.MockClock) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	st := storetest.NewSQLite(t)
	seed(t, st)

	clock := mocks.NewMockClock(ctrl)
	return executor.NewExecutor(st, history.NewJournal(), accounting.NewEngine(1), clock), clock
}

func TestExecutor_GetPool(t *testing.T) {
	exec, _ := newExecutor(t)
	ctx := context.Background()

	pool, err := exec.GetPool(ctx, poolAddress)
	require.NoError(t, err)
	require.NotNil(t, pool)
	assert.Equal(t, domain.NormalizeAddress(poolAddress), pool.Address)
	assert.Equal(t, "100", pool.TotalStaked)

	missing, err := exec.GetPool(ctx, "0x00000000000000000000000000000000000000a9")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestExecutor_GetPoolUser(t *testing.T) {
	tests := []struct {
		name    string
		at      *uint64
		now     int64
		pending string
		wantAt  uint64
	}{
		{
			name:    "now",
			now:     1020,
			pending: "200",
			wantAt:  1020,
		},
		{
			name:    "explicit timestamp",
			at:      func() *uint64 { v := uint64(1010); return &v }(),
			pending: "100",
			wantAt:  1010,
		},
		{
			name:    "capped at pool end",
			at:      func() *uint64 { v := uint64(5000); return &v }(),
			pending: "10000",
			wantAt:  5000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, clock := newExecutor(t)
			if tt.at == nil {
				clock.EXPECT().Now().Return(time.Unix(tt.now, 0))
			}

			user, err := exec.GetPoolUser(context.Background(), poolAddress, userAddress, tt.at)
			require.NoError(t, err)
			require.NotNil(t, user)
			assert.Equal(t, "100", user.Amount)
			assert.Equal(t, "0", user.Pending)
			assert.Equal(t, tt.pending, user.PendingAt)
			assert.Equal(t, tt.wantAt, user.At)
		})
	}
}

func TestExecutor_GetPoolUserMissing(t *testing.T) {
	exec, _ := newExecutor(t)

	user, err := exec.GetPoolUser(context.Background(), poolAddress, "0x00000000000000000000000000000000000000b9", nil)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestExecutor_ListPoolUsers(t *testing.T) {
	exec, _ := newExecutor(t)

	users, err := exec.ListPoolUsers(context.Background(), poolAddress, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), users.Total)
	require.Len(t, users.Users, 1)
	assert.Equal(t, domain.NormalizeAddress(userAddress), users.Users[0].Address)
}

func TestExecutor_ListHistory(t *testing.T) {
	exec, _ := newExecutor(t)
	ctx := context.Background()

	byPool, err := exec.ListPoolHistory(ctx, poolAddress, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), byPool.Total)
	require.Len(t, byPool.Items, 2)
	assert.Equal(t, domain.HistoryEventClaim, byPool.Items[0].EventType)
	assert.Equal(t, "20", byPool.Items[0].Amount)

	limit, offset := 1, uint64(1)
	byUser, err := exec.ListUserHistory(ctx, userAddress, &limit, &offset)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), byUser.Total)
	assert.Equal(t, uint64(1), byUser.Offset)
	require.Len(t, byUser.Items, 1)
	assert.Equal(t, domain.HistoryEventStake, byUser.Items[0].EventType)
}

func TestExecutor_Tokens(t *testing.T) {
	exec, _ := newExecutor(t)
	ctx := context.Background()

	token, err := exec.GetToken(ctx, tokenAddress)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "FF", token.Symbol)

	nft, err := exec.GetNFToken(ctx, nftContract, "7")
	require.NoError(t, err)
	require.NotNil(t, nft)
	assert.True(t, nft.Staked)
	assert.Equal(t, domain.NormalizeAddress(userAddress), nft.Owner)

	nft, err = exec.GetNFToken(ctx, nftContract, "8")
	require.NoError(t, err)
	assert.Nil(t, nft)
}

func TestExecutor_Factory(t *testing.T) {
	exec, _ := newExecutor(t)
	ctx := context.Background()

	f, err := exec.GetFactory(ctx, factoryAddress)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, uint64(1), f.TotalPools)
	assert.Equal(t, []string{domain.NormalizeAddress(poolAddress)}, f.PoolAddresses)

	request, err := exec.GetRequest(ctx, factoryAddress, "1")
	require.NoError(t, err)
	require.NotNil(t, request)
	assert.Equal(t, domain.RequestStatusDeployed, request.Status)
	require.NotNil(t, request.PoolAddress)

	request, err = exec.GetRequest(ctx, factoryAddress, "2")
	require.NoError(t, err)
	assert.Nil(t, request)
}
