package accounting

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/staking-indexer/internal/domain"
)

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func TestSettleSkipsEmptyBalance(t *testing.T) {
	e := NewEngine(1)
	pool := NewPoolState(u(10), 0, 0)
	pool.AccRewardPerShare = u(5)
	user := NewUserState()

	require.NoError(t, e.Settle(pool, user))
	assert.True(t, user.Pending.IsZero())
}

func TestSettleUnconditionalRequiresConsistentDebt(t *testing.T) {
	e := NewEngine(1)
	pool := NewPoolState(u(10), 0, 0)
	user := NewUserState()
	user.RewardDebt = u(1)

	err := e.SettleUnconditional(pool, user)
	assert.ErrorIs(t, err, domain.ErrArithmeticUnderflow)
	assert.Equal(t, uint64(0), user.Pending.Uint64())
}

// Stake 100, UpdatePool to acc=1, claim 100.
func TestClaimScenario(t *testing.T) {
	e := NewEngine(1)
	pool := NewPoolState(u(10), 0, 0)
	user := NewUserState()

	require.NoError(t, e.Stake(pool, user, u(100)))
	assert.Equal(t, uint64(100), user.Amount.Uint64())
	assert.True(t, user.RewardDebt.IsZero())
	assert.True(t, user.Pending.IsZero())
	assert.Equal(t, uint64(100), pool.TotalStaked.Uint64())

	require.NoError(t, e.SyncPool(pool, u(1), u(100), 10))

	paid, err := e.Claim(pool, user, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), paid.Uint64())
	assert.Equal(t, uint64(100), user.Claimed.Uint64())
	assert.True(t, user.Pending.IsZero())
	assert.Equal(t, uint64(100), user.RewardDebt.Uint64())
	assert.Equal(t, uint64(100), pool.TotalClaimed.Uint64())
}

func TestRefreshMatchesUpdateEvent(t *testing.T) {
	e := NewEngine(1)
	pool := NewPoolState(u(10), 0, 0)
	user := NewUserState()
	require.NoError(t, e.Stake(pool, user, u(100)))

	require.NoError(t, e.Refresh(pool, 10))
	assert.Equal(t, uint64(1), pool.AccRewardPerShare.Uint64())
	assert.Equal(t, uint64(10), pool.LastRewardTimestamp)
}

func TestRefreshWithoutStakeOnlyAdvancesTimestamp(t *testing.T) {
	e := NewEngine(1)
	pool := NewPoolState(u(10), 5, 0)

	require.NoError(t, e.Refresh(pool, 50))
	assert.True(t, pool.AccRewardPerShare.IsZero())
	assert.Equal(t, uint64(50), pool.LastRewardTimestamp)

	// time never moves backwards
	require.NoError(t, e.Refresh(pool, 20))
	assert.Equal(t, uint64(50), pool.LastRewardTimestamp)
}

func TestRefreshStopsAtEndTime(t *testing.T) {
	e := NewEngine(1_000_000)
	pool := NewPoolState(u(10), 0, 100)
	user := NewUserState()
	require.NoError(t, e.Stake(pool, user, u(10)))

	require.NoError(t, e.Refresh(pool, 500))
	// 10/s for 100s over 10 staked, scaled by 1e6
	assert.Equal(t, uint64(100_000_000), pool.AccRewardPerShare.Uint64())
	assert.Equal(t, uint64(500), pool.LastRewardTimestamp)

	require.NoError(t, e.Refresh(pool, 900))
	assert.Equal(t, uint64(100_000_000), pool.AccRewardPerShare.Uint64())

	pending, err := e.PendingAt(pool, user, 900)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), pending.Uint64())
}

func TestSyncPoolRejectsDecreasingAccumulator(t *testing.T) {
	e := NewEngine(1)
	pool := NewPoolState(u(10), 0, 0)
	require.NoError(t, e.SyncPool(pool, u(5), u(10), 10))

	err := e.SyncPool(pool, u(4), u(10), 20)
	assert.ErrorIs(t, err, domain.ErrAccumulatorDecreased)
	assert.Equal(t, uint64(5), pool.AccRewardPerShare.Uint64())
	assert.Equal(t, uint64(10), pool.LastRewardTimestamp)
}

func TestUnstakeBeyondBalanceLeavesStateUntouched(t *testing.T) {
	e := NewEngine(1)
	pool := NewPoolState(u(10), 0, 0)
	user := NewUserState()
	require.NoError(t, e.Stake(pool, user, u(10)))
	require.NoError(t, e.SyncPool(pool, u(2), u(10), 10))

	err := e.Unstake(pool, user, u(11))
	assert.ErrorIs(t, err, domain.ErrArithmeticUnderflow)
	assert.Equal(t, uint64(10), user.Amount.Uint64())
	assert.True(t, user.Pending.IsZero())
	assert.True(t, user.RewardDebt.IsZero())
	assert.Equal(t, uint64(10), pool.TotalStaked.Uint64())
}

func TestUnstakeSettlesBeforeDecrement(t *testing.T) {
	e := NewEngine(1)
	pool := NewPoolState(u(10), 0, 0)
	user := NewUserState()
	require.NoError(t, e.Stake(pool, user, u(10)))
	require.NoError(t, e.SyncPool(pool, u(3), u(10), 10))

	require.NoError(t, e.Unstake(pool, user, u(10)))
	assert.True(t, user.Amount.IsZero())
	assert.Equal(t, uint64(30), user.Pending.Uint64())
	assert.True(t, user.RewardDebt.IsZero())
	assert.True(t, pool.TotalStaked.IsZero())

	// pending survives a zero balance and is paid on claim
	paid, err := e.Claim(pool, user, u(4))
	require.NoError(t, err)
	assert.Equal(t, uint64(30), paid.Uint64())
	assert.Equal(t, uint64(4), pool.TotalPenalties.Uint64())
}

func TestClaimWithNothingPending(t *testing.T) {
	e := NewEngine(1)
	pool := NewPoolState(u(10), 0, 0)
	user := NewUserState()

	paid, err := e.Claim(pool, user, u(0))
	require.NoError(t, err)
	assert.True(t, paid.IsZero())
	assert.True(t, user.Claimed.IsZero())
	assert.True(t, pool.TotalClaimed.IsZero())
}

func TestNoDoubleCounting(t *testing.T) {
	run := func(stakes []uint64) uint64 {
		e := NewEngine(1)
		pool := NewPoolState(u(10), 0, 0)
		user := NewUserState()

		var total uint64
		for _, s := range stakes {
			require.NoError(t, e.Stake(pool, user, u(s)))
			total += s
		}
		require.NoError(t, e.SyncPool(pool, u(7), u(total), 10))
		require.NoError(t, e.Unstake(pool, user, u(total)))
		paid, err := e.Claim(pool, user, nil)
		require.NoError(t, err)
		return paid.Uint64()
	}

	assert.Equal(t, run([]uint64{60}), run([]uint64{20, 40}))
	assert.Equal(t, uint64(420), run([]uint64{20, 40}))
}

func TestConservationAndMonotonicity(t *testing.T) {
	e := NewEngine(1_000_000_000_000)
	pool := NewPoolState(u(1_000), 0, 0)
	users := []*UserState{NewUserState(), NewUserState(), NewUserState()}

	type step struct {
		user   int
		stake  bool
		amount uint64
		at     uint64
	}
	steps := []step{
		{0, true, 100, 1},
		{1, true, 50, 3},
		{0, true, 25, 7},
		{2, true, 10, 8},
		{1, false, 20, 12},
		{0, false, 125, 20},
		{2, true, 5, 21},
		{1, false, 30, 40},
	}

	prevAcc := new(uint256.Int)
	for _, s := range steps {
		require.NoError(t, e.Refresh(pool, s.at))
		if s.stake {
			require.NoError(t, e.Stake(pool, users[s.user], u(s.amount)))
		} else {
			require.NoError(t, e.Unstake(pool, users[s.user], u(s.amount)))
		}

		assert.False(t, pool.AccRewardPerShare.Lt(prevAcc), "accumulator decreased at t=%d", s.at)
		prevAcc = new(uint256.Int).Set(pool.AccRewardPerShare)

		sum := new(uint256.Int)
		for _, usr := range users {
			sum.Add(sum, usr.Amount)
		}
		assert.Equal(t, pool.TotalStaked.Dec(), sum.Dec(), "conservation at t=%d", s.at)

		debt, err := e.(*engine).debt(users[s.user].Amount, pool.AccRewardPerShare)
		require.NoError(t, err)
		assert.Equal(t, debt.Dec(), users[s.user].RewardDebt.Dec())
	}
}

func TestSettlementCorrectness(t *testing.T) {
	e := NewEngine(1)
	pool := NewPoolState(u(0), 0, 0)
	user := NewUserState()
	require.NoError(t, e.Stake(pool, user, u(42)))
	require.NoError(t, e.SyncPool(pool, u(9), u(42), 100))

	paid, err := e.Claim(pool, user, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(42*9), paid.Uint64())
	assert.Equal(t, uint64(42*9), user.RewardDebt.Uint64())
}

func TestStakeOverflow(t *testing.T) {
	e := NewEngine(1)
	pool := NewPoolState(u(0), 0, 0)
	user := NewUserState()
	maxAmount := new(uint256.Int).SetAllOne()

	require.NoError(t, e.Stake(pool, user, maxAmount))
	err := e.Stake(pool, user, u(1))
	assert.ErrorIs(t, err, domain.ErrArithmeticOverflow)
	assert.Equal(t, maxAmount.Dec(), user.Amount.Dec())
}

func TestPendingAtDoesNotMutate(t *testing.T) {
	e := NewEngine(1)
	pool := NewPoolState(u(10), 0, 0)
	user := NewUserState()
	require.NoError(t, e.Stake(pool, user, u(100)))

	pending, err := e.PendingAt(pool, user, 30)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), pending.Uint64())
	assert.True(t, pool.AccRewardPerShare.IsZero())
	assert.Equal(t, uint64(0), pool.LastRewardTimestamp)
	assert.True(t, user.Pending.IsZero())
}

func TestNewEngineDefaultPrecision(t *testing.T) {
	assert.Equal(t, uint64(domain.DEFAULT_ACC_REWARD_PRECISION), NewEngine(0).Precision().Uint64())
}
