package processor_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/staking-indexer/internal/accounting"
	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/factory"
	"github.com/feral-file/staking-indexer/internal/history"
	"github.com/feral-file/staking-indexer/internal/ledger"
	"github.com/feral-file/staking-indexer/internal/mocks"
	"github.com/feral-file/staking-indexer/internal/pools"
	"github.com/feral-file/staking-indexer/internal/processor"
	"github.com/feral-file/staking-indexer/internal/store"
	"github.com/feral-file/staking-indexer/internal/store/schema"
	"github.com/feral-file/staking-indexer/internal/store/storetest"
	"github.com/feral-file/staking-indexer/internal/tokens"
)

const (
	erc20Factory = "0x00000000000000000000000000000000000000f1"
	nftFactory   = "0x00000000000000000000000000000000000000f2"
	deployer     = "0x00000000000000000000000000000000000000b9"
	alice        = "0x00000000000000000000000000000000000000b1"
	bob          = "0x00000000000000000000000000000000000000b2"
	stakeToken   = "0x00000000000000000000000000000000000000d4"
	rewardToken  = "0x00000000000000000000000000000000000000d5"
	nftContract  = "0x00000000000000000000000000000000000000e5"
	poolAddress  = "0x00000000000000000000000000000000000000a1"
	nftPool      = "0x00000000000000000000000000000000000000a2"
)

type harness struct {
	t        *testing.T
	ctx      context.Context
	st       store.Store
	journal  history.Journal
	proc     processor.Processor
	logIndex uint64
}

func newHarness(t *testing.T) *harness {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	fetcher := mocks.NewMockMetadataFetcher(ctrl)
	fetcher.EXPECT().FetchMetadata(gomock.Any(), gomock.Any()).Return(tokens.Metadata{Decimals: 18}).AnyTimes()

	st := storetest.NewSQLite(t)
	poolRegistry := pools.NewRegistry()
	tokenRegistry := tokens.NewRegistry(fetcher)
	journal := history.NewJournal()
	kinds := factory.NewKinds(map[string]domain.PoolKind{
		erc20Factory: domain.PoolKindFungible,
		nftFactory:   domain.PoolKindNonFungible,
	})

	return &harness{
		t:       t,
		ctx:     context.Background(),
		st:      st,
		journal: journal,
		proc: processor.New(processor.Deps{
			Store:   st,
			Engine:  accounting.NewEngine(1),
			Pools:   poolRegistry,
			Ledger:  ledger.New(),
			Tokens:  tokenRegistry,
			History: journal,
			Factory: factory.NewWorkflow(kinds, poolRegistry, tokenRegistry),
		}),
	}
}

// event builds an envelope with a fresh idempotency key
func (h *harness) event(contract string, kind domain.EventKind) *domain.Event {
	h.logIndex++
	return &domain.Event{
		Meta: domain.EventMeta{
			Chain:       domain.ChainEthereumMainnet,
			Contract:    contract,
			TxHash:      fmt.Sprintf("0x%064x", h.logIndex),
			LogIndex:    h.logIndex,
			BlockNumber: 100 + h.logIndex,
			Timestamp:   time.Unix(int64(1000+h.logIndex), 0).UTC(),
		},
		Kind: kind,
	}
}

func (h *harness) process(ev *domain.Event) {
	h.t.Helper()
	require.NoError(h.t, h.proc.Process(h.ctx, ev))
}

func (h *harness) deployPool(fac, pool, stake string, requestID string) {
	h.t.Helper()

	ev := h.event(fac, domain.EventKindRequestSubmitted)
	ev.RequestSubmitted = &domain.RequestSubmittedEvent{
		ID:       requestID,
		Deployer: deployer,
		Data: domain.RequestData{
			StakeToken:      stake,
			RewardToken:     rewardToken,
			RewardPerSecond: "10",
			PoolStartTime:   1000,
			PoolEndTime:     2000,
		},
	}
	h.process(ev)

	ev = h.event(fac, domain.EventKindRequestStatusChanged)
	ev.RequestStatusChanged = &domain.RequestStatusChangedEvent{ID: requestID, Status: "3"}
	h.process(ev)

	ev = h.event(fac, domain.EventKindPoolDeployed)
	ev.PoolDeployed = &domain.PoolDeployedEvent{ID: requestID, StakingAddress: pool}
	h.process(ev)
}

func (h *harness) stake(pool, user, amount string) *domain.Event {
	ev := h.event(pool, domain.EventKindStake)
	ev.Stake = &domain.StakeEvent{User: user, Amount: amount}
	return ev
}

func (h *harness) unstake(pool, user, amount string) *domain.Event {
	ev := h.event(pool, domain.EventKindUnstake)
	ev.Unstake = &domain.UnstakeEvent{User: user, Amount: amount}
	return ev
}

func (h *harness) update(pool, acc, total string, ts uint64) *domain.Event {
	ev := h.event(pool, domain.EventKindPoolUpdate)
	ev.PoolUpdate = &domain.PoolUpdateEvent{AccRewardPerShare: acc, TotalStaked: total, LastRewardTimestamp: ts}
	return ev
}

func (h *harness) claim(pool, user, amount, penalty string) *domain.Event {
	ev := h.event(pool, domain.EventKindClaim)
	ev.Claim = &domain.ClaimEvent{User: user, Amount: amount, PenaltyAmount: penalty}
	return ev
}

func (h *harness) pool(address string) *schema.Pool {
	h.t.Helper()
	pool, err := h.st.GetPool(h.ctx, domain.NormalizeAddress(address))
	require.NoError(h.t, err)
	require.NotNil(h.t, pool)
	return pool
}

func (h *harness) user(pool, address string) *schema.User {
	h.t.Helper()
	user, err := h.st.GetUser(h.ctx, domain.UserID(pool, address))
	require.NoError(h.t, err)
	require.NotNil(h.t, user)
	return user
}

func TestProcessor_FungibleScenario(t *testing.T) {
	h := newHarness(t)
	h.deployPool(erc20Factory, poolAddress, stakeToken, "1")

	h.process(h.stake(poolAddress, alice, "100"))
	h.process(h.update(poolAddress, "5", "100", 1050))
	h.process(h.stake(poolAddress, bob, "100"))

	b := h.user(poolAddress, bob)
	assert.Equal(t, "100", b.Amount.String())
	assert.Equal(t, "500", b.RewardDebt.String())
	assert.Equal(t, "200", h.pool(poolAddress).TotalStaked.String())

	h.process(h.update(poolAddress, "7", "200", 1090))
	h.process(h.claim(poolAddress, alice, "700", "10"))

	a := h.user(poolAddress, alice)
	assert.Equal(t, "700", a.Claimed.String())
	assert.Equal(t, "700", a.RewardDebt.String())
	assert.True(t, a.Pending.IsZero())

	p := h.pool(poolAddress)
	assert.Equal(t, "700", p.TotalClaimed.String())
	assert.Equal(t, "10", p.TotalPenalties.String())
	assert.Equal(t, uint64(1090), p.LastRewardTimestamp)

	h.process(h.unstake(poolAddress, bob, "50"))

	b = h.user(poolAddress, bob)
	assert.Equal(t, "50", b.Amount.String())
	assert.Equal(t, "200", b.Pending.String())
	assert.Equal(t, "350", b.RewardDebt.String())
	assert.Equal(t, "150", h.pool(poolAddress).TotalStaked.String())

	entries, total, err := h.journal.ListByPool(h.ctx, h.st, poolAddress, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), total)
	require.Len(t, entries, 4)

	counts := map[domain.HistoryEventType]int{}
	for _, e := range entries {
		counts[e.EventType]++
	}
	assert.Equal(t, 2, counts[domain.HistoryEventStake])
	assert.Equal(t, 1, counts[domain.HistoryEventClaim])
	assert.Equal(t, 1, counts[domain.HistoryEventUnstake])
}

func TestProcessor_ReplayLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	h.deployPool(erc20Factory, poolAddress, stakeToken, "1")

	ev := h.stake(poolAddress, alice, "100")
	h.process(ev)

	err := h.proc.Process(h.ctx, ev)
	assert.ErrorIs(t, err, domain.ErrEventAlreadyProcessed)

	assert.Equal(t, "100", h.user(poolAddress, alice).Amount.String())
	assert.Equal(t, "100", h.pool(poolAddress).TotalStaked.String())

	_, total, err := h.journal.ListByUser(h.ctx, h.st, alice, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
}

func TestProcessor_UnstakeBeyondBalance(t *testing.T) {
	h := newHarness(t)
	h.deployPool(erc20Factory, poolAddress, stakeToken, "1")
	h.process(h.stake(poolAddress, alice, "100"))
	h.process(h.update(poolAddress, "3", "100", 1020))

	ev := h.unstake(poolAddress, alice, "101")
	err := h.proc.Process(h.ctx, ev)
	assert.ErrorIs(t, err, domain.ErrArithmeticUnderflow)

	a := h.user(poolAddress, alice)
	assert.Equal(t, "100", a.Amount.String())
	assert.True(t, a.Pending.IsZero())
	assert.Equal(t, "100", h.pool(poolAddress).TotalStaked.String())

	// the failed event was rolled back together with its idempotency key
	ev.Unstake.Amount = "100"
	h.process(ev)
	assert.True(t, h.user(poolAddress, alice).Amount.IsZero())
	assert.Equal(t, "300", h.user(poolAddress, alice).Pending.String())
}

func TestProcessor_UnstakeUnknownUser(t *testing.T) {
	h := newHarness(t)
	h.deployPool(erc20Factory, poolAddress, stakeToken, "1")

	err := h.proc.Process(h.ctx, h.unstake(poolAddress, alice, "1"))
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestProcessor_UnknownPool(t *testing.T) {
	h := newHarness(t)

	err := h.proc.Process(h.ctx, h.stake(poolAddress, alice, "1"))
	assert.ErrorIs(t, err, domain.ErrPoolNotFound)
}

func TestProcessor_FungiblePoolRejectsTokenIDs(t *testing.T) {
	h := newHarness(t)
	h.deployPool(erc20Factory, poolAddress, stakeToken, "1")

	ev := h.event(poolAddress, domain.EventKindStake)
	ev.Stake = &domain.StakeEvent{User: alice, TokenIDs: []string{"1"}}

	err := h.proc.Process(h.ctx, ev)
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
}

func TestProcessor_AccumulatorCannotDecrease(t *testing.T) {
	h := newHarness(t)
	h.deployPool(erc20Factory, poolAddress, stakeToken, "1")
	h.process(h.update(poolAddress, "9", "0", 1010))

	err := h.proc.Process(h.ctx, h.update(poolAddress, "8", "0", 1020))
	assert.ErrorIs(t, err, domain.ErrAccumulatorDecreased)
	assert.Equal(t, "9", h.pool(poolAddress).AccRewardPerShare.String())
}

func TestProcessor_ClaimWithoutStake(t *testing.T) {
	h := newHarness(t)
	h.deployPool(erc20Factory, poolAddress, stakeToken, "1")
	h.process(h.stake(poolAddress, alice, "10"))
	h.process(h.update(poolAddress, "4", "10", 1010))
	h.process(h.unstake(poolAddress, alice, "10"))

	// a user with nothing staked claims exactly the pending carried over
	h.process(h.claim(poolAddress, alice, "40", ""))

	a := h.user(poolAddress, alice)
	assert.Equal(t, "40", a.Claimed.String())
	assert.True(t, a.Pending.IsZero())
	assert.True(t, h.pool(poolAddress).TotalPenalties.IsZero())
}

func TestProcessor_ClaimAmountMismatch(t *testing.T) {
	h := newHarness(t)
	h.deployPool(erc20Factory, poolAddress, stakeToken, "1")
	h.process(h.stake(poolAddress, alice, "10"))
	h.process(h.update(poolAddress, "2", "10", 1010))

	// the settled pending wins over the reported amount
	h.process(h.claim(poolAddress, alice, "999", "0"))
	assert.Equal(t, "20", h.user(poolAddress, alice).Claimed.String())

	entries, _, err := h.journal.ListByUser(h.ctx, h.st, alice, 1, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.HistoryEventClaim, entries[0].EventType)
	assert.Equal(t, "20", entries[0].Amount.String())
}

func TestProcessor_NFTScenario(t *testing.T) {
	h := newHarness(t)
	h.deployPool(nftFactory, nftPool, nftContract, "1")

	ev := h.event(nftPool, domain.EventKindStake)
	ev.Stake = &domain.StakeEvent{User: alice, TokenIDs: []string{"11", "12", "13"}}
	h.process(ev)

	assert.Equal(t, "3", h.user(nftPool, alice).Amount.String())
	assert.Equal(t, "3", h.pool(nftPool).TotalStaked.String())

	for _, id := range []string{"11", "12", "13"} {
		token, err := h.st.GetNFToken(h.ctx, domain.NFTokenID(nftContract, id))
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, domain.NormalizeAddress(alice), token.Owner)
		assert.Equal(t, domain.NormalizeAddress(nftPool), token.PoolID)
	}

	ev = h.event(nftPool, domain.EventKindUnstake)
	ev.Unstake = &domain.UnstakeEvent{User: alice, TokenIDs: []string{"12"}}
	h.process(ev)

	assert.Equal(t, "2", h.user(nftPool, alice).Amount.String())
	token, err := h.st.GetNFToken(h.ctx, domain.NFTokenID(nftContract, "12"))
	require.NoError(t, err)
	assert.Empty(t, token.Owner)

	entries, total, err := h.journal.ListByPool(h.ctx, h.st, nftPool, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.HistoryEventNFTUnstake, entries[0].EventType)
	assert.Equal(t, []string{"12"}, []string(entries[0].TokenIDs))
	assert.Equal(t, domain.HistoryEventNFTStake, entries[1].EventType)
	assert.Equal(t, "3", entries[1].Amount.String())
}

func TestProcessor_NFTPoolRejectsAmount(t *testing.T) {
	h := newHarness(t)
	h.deployPool(nftFactory, nftPool, nftContract, "1")

	err := h.proc.Process(h.ctx, h.stake(nftPool, alice, "5"))
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
}

func TestProcessor_PoolActivate(t *testing.T) {
	h := newHarness(t)
	h.deployPool(erc20Factory, poolAddress, stakeToken, "1")
	assert.False(t, h.pool(poolAddress).IsPoolActive)

	h.process(h.event(poolAddress, domain.EventKindPoolActivate))
	assert.True(t, h.pool(poolAddress).IsPoolActive)
}

func TestProcessor_UnknownRequestStatusTolerated(t *testing.T) {
	h := newHarness(t)

	ev := h.event(erc20Factory, domain.EventKindRequestStatusChanged)
	ev.RequestStatusChanged = &domain.RequestStatusChangedEvent{ID: "77", Status: "2"}
	h.process(ev)

	// the event is still consumed
	assert.ErrorIs(t, h.proc.Process(h.ctx, ev), domain.ErrEventAlreadyProcessed)
}

func TestProcessor_FactoryPoolCreated(t *testing.T) {
	h := newHarness(t)
	h.deployPool(erc20Factory, poolAddress, stakeToken, "1")

	ev := h.event(erc20Factory, domain.EventKindFactoryPoolCreated)
	ev.FactoryPoolCreated = &domain.FactoryPoolCreatedEvent{StakingAddress: poolAddress, StakeToken: stakeToken}
	h.process(ev)

	fac, err := h.st.GetFactory(h.ctx, domain.NormalizeAddress(erc20Factory))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), fac.TotalPools)
	assert.Equal(t, uint64(1), fac.TotalRequests)
}

func TestProcessor_InvalidEvent(t *testing.T) {
	h := newHarness(t)

	ev := h.stake(poolAddress, "not-an-address", "1")
	assert.ErrorIs(t, h.proc.Process(h.ctx, ev), domain.ErrInvalidEvent)

	ev = h.event(poolAddress, "mint")
	assert.ErrorIs(t, h.proc.Process(h.ctx, ev), domain.ErrUnknownEventKind)
}
