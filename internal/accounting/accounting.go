// Package accounting implements the accumulator-per-share reward model shared by
// fungible and non-fungible staking pools.
//
// Every operation either fully applies to the given states or, on error, leaves
// them untouched.
package accounting

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/feral-file/staking-indexer/internal/domain"
)

// PoolState is the accounting view of a pool
type PoolState struct {
	RewardTokenPerSecond *uint256.Int
	TotalStaked          *uint256.Int
	TotalClaimed         *uint256.Int
	TotalPenalties       *uint256.Int
	AccRewardPerShare    *uint256.Int
	LastRewardTimestamp  uint64
	// EndTime stops accrual when non-zero
	EndTime uint64
}

// UserState is the accounting view of a user position in one pool
type UserState struct {
	Amount     *uint256.Int
	RewardDebt *uint256.Int
	Pending    *uint256.Int
	Claimed    *uint256.Int
}

// Engine applies balance-changing events to pool and user states.
//
//go:generate mockgen -source=accounting.go -destination=../mocks/accounting.go -package=mocks -mock_names=Engine=MockEngine
type Engine interface {
	// Precision returns the scaling factor of accRewardPerShare
	Precision() *uint256.Int
	// Settle credits the reward owed since the last settlement when the user has a balance
	Settle(pool *PoolState, user *UserState) error
	// SettleUnconditional credits the owed reward without the balance gate
	SettleUnconditional(pool *PoolState, user *UserState) error
	// Stake settles, adds delta to the user and pool balances and re-baselines the reward debt
	Stake(pool *PoolState, user *UserState, delta *uint256.Int) error
	// Unstake settles, subtracts delta from the user and pool balances and re-baselines the reward debt
	Unstake(pool *PoolState, user *UserState, delta *uint256.Int) error
	// Claim settles and pays out the whole pending reward, returning the paid amount.
	// penalty is added to the pool's total penalties as reported by the event.
	Claim(pool *PoolState, user *UserState, penalty *uint256.Int) (*uint256.Int, error)
	// Refresh advances the accumulator up to now
	Refresh(pool *PoolState, now uint64) error
	// SyncPool applies accumulator values reported by the pool contract
	SyncPool(pool *PoolState, acc, totalStaked *uint256.Int, timestamp uint64) error
	// PendingAt projects the claimable reward of user at the given timestamp without mutating state
	PendingAt(pool *PoolState, user *UserState, now uint64) (*uint256.Int, error)
}

type engine struct {
	precision *uint256.Int
}

// NewEngine creates an accounting engine. A zero precision falls back to domain.DEFAULT_ACC_REWARD_PRECISION.
func NewEngine(precision uint64) Engine {
	if precision == 0 {
		precision = domain.DEFAULT_ACC_REWARD_PRECISION
	}
	return &engine{precision: uint256.NewInt(precision)}
}

func (e *engine) Precision() *uint256.Int {
	return new(uint256.Int).Set(e.precision)
}

// NewPoolState returns a pool state with every counter zeroed
func NewPoolState(rewardTokenPerSecond *uint256.Int, lastRewardTimestamp, endTime uint64) *PoolState {
	return &PoolState{
		RewardTokenPerSecond: orZero(rewardTokenPerSecond),
		TotalStaked:          new(uint256.Int),
		TotalClaimed:         new(uint256.Int),
		TotalPenalties:       new(uint256.Int),
		AccRewardPerShare:    new(uint256.Int),
		LastRewardTimestamp:  lastRewardTimestamp,
		EndTime:              endTime,
	}
}

// NewUserState returns a user state with every counter zeroed
func NewUserState() *UserState {
	return &UserState{
		Amount:     new(uint256.Int),
		RewardDebt: new(uint256.Int),
		Pending:    new(uint256.Int),
		Claimed:    new(uint256.Int),
	}
}

// debt computes amount × acc / precision
func (e *engine) debt(amount, acc *uint256.Int) (*uint256.Int, error) {
	v, overflow := new(uint256.Int).MulDivOverflow(amount, acc, e.precision)
	if overflow {
		return nil, fmt.Errorf("%w: %s × %s", domain.ErrArithmeticOverflow, amount.Dec(), acc.Dec())
	}
	return v, nil
}

// owed computes the pending reward after settling user against pool
func (e *engine) owed(pool *PoolState, user *UserState) (*uint256.Int, error) {
	accrued, err := e.debt(user.Amount, pool.AccRewardPerShare)
	if err != nil {
		return nil, err
	}
	diff, err := sub(accrued, user.RewardDebt, "reward debt")
	if err != nil {
		return nil, err
	}
	return add(user.Pending, diff, "pending")
}

func (e *engine) Settle(pool *PoolState, user *UserState) error {
	if user.Amount.IsZero() {
		return nil
	}
	return e.SettleUnconditional(pool, user)
}

func (e *engine) SettleUnconditional(pool *PoolState, user *UserState) error {
	pending, err := e.owed(pool, user)
	if err != nil {
		return err
	}
	user.Pending = pending
	return nil
}

func (e *engine) Stake(pool *PoolState, user *UserState, delta *uint256.Int) error {
	pending := user.Pending
	if !user.Amount.IsZero() {
		var err error
		if pending, err = e.owed(pool, user); err != nil {
			return err
		}
	}

	amount, err := add(user.Amount, delta, "user amount")
	if err != nil {
		return err
	}
	total, err := add(pool.TotalStaked, delta, "total staked")
	if err != nil {
		return err
	}
	debt, err := e.debt(amount, pool.AccRewardPerShare)
	if err != nil {
		return err
	}

	user.Pending = pending
	user.Amount = amount
	user.RewardDebt = debt
	pool.TotalStaked = total
	return nil
}

func (e *engine) Unstake(pool *PoolState, user *UserState, delta *uint256.Int) error {
	pending, err := e.owed(pool, user)
	if err != nil {
		return err
	}

	amount, err := sub(user.Amount, delta, "user amount")
	if err != nil {
		return err
	}
	total, err := sub(pool.TotalStaked, delta, "total staked")
	if err != nil {
		return err
	}
	debt, err := e.debt(amount, pool.AccRewardPerShare)
	if err != nil {
		return err
	}

	user.Pending = pending
	user.Amount = amount
	user.RewardDebt = debt
	pool.TotalStaked = total
	return nil
}

func (e *engine) Claim(pool *PoolState, user *UserState, penalty *uint256.Int) (*uint256.Int, error) {
	pending := user.Pending
	debt := user.RewardDebt
	if !user.Amount.IsZero() {
		var err error
		if pending, err = e.owed(pool, user); err != nil {
			return nil, err
		}
		if debt, err = e.debt(user.Amount, pool.AccRewardPerShare); err != nil {
			return nil, err
		}
	}

	claimed, err := add(user.Claimed, pending, "user claimed")
	if err != nil {
		return nil, err
	}
	totalClaimed, err := add(pool.TotalClaimed, pending, "total claimed")
	if err != nil {
		return nil, err
	}
	totalPenalties, err := add(pool.TotalPenalties, orZero(penalty), "total penalties")
	if err != nil {
		return nil, err
	}

	paid := new(uint256.Int).Set(pending)
	user.RewardDebt = debt
	user.Pending = new(uint256.Int)
	user.Claimed = claimed
	pool.TotalClaimed = totalClaimed
	pool.TotalPenalties = totalPenalties
	return paid, nil
}

func (e *engine) Refresh(pool *PoolState, now uint64) error {
	if now <= pool.LastRewardTimestamp {
		return nil
	}

	end := now
	if pool.EndTime > 0 && end > pool.EndTime {
		end = pool.EndTime
	}

	acc := pool.AccRewardPerShare
	if !pool.TotalStaked.IsZero() && end > pool.LastRewardTimestamp {
		elapsed := uint256.NewInt(end - pool.LastRewardTimestamp)
		reward, overflow := new(uint256.Int).MulOverflow(pool.RewardTokenPerSecond, elapsed)
		if overflow {
			return fmt.Errorf("%w: reward per second × elapsed", domain.ErrArithmeticOverflow)
		}
		perShare, overflow := new(uint256.Int).MulDivOverflow(reward, e.precision, pool.TotalStaked)
		if overflow {
			return fmt.Errorf("%w: reward per share", domain.ErrArithmeticOverflow)
		}
		var err error
		if acc, err = add(acc, perShare, "accumulator"); err != nil {
			return err
		}
	}

	pool.AccRewardPerShare = acc
	pool.LastRewardTimestamp = now
	return nil
}

func (e *engine) SyncPool(pool *PoolState, acc, totalStaked *uint256.Int, timestamp uint64) error {
	if acc.Lt(pool.AccRewardPerShare) {
		return fmt.Errorf("%w: %s < %s", domain.ErrAccumulatorDecreased, acc.Dec(), pool.AccRewardPerShare.Dec())
	}

	pool.AccRewardPerShare = new(uint256.Int).Set(acc)
	pool.TotalStaked = new(uint256.Int).Set(totalStaked)
	pool.LastRewardTimestamp = timestamp
	return nil
}

func (e *engine) PendingAt(pool *PoolState, user *UserState, now uint64) (*uint256.Int, error) {
	projected := pool.Clone()
	if err := e.Refresh(projected, now); err != nil {
		return nil, err
	}
	if user.Amount.IsZero() {
		return new(uint256.Int).Set(user.Pending), nil
	}
	return e.owed(projected, user)
}

// Clone returns a deep copy of the pool state
func (p *PoolState) Clone() *PoolState {
	return &PoolState{
		RewardTokenPerSecond: clone(p.RewardTokenPerSecond),
		TotalStaked:          clone(p.TotalStaked),
		TotalClaimed:         clone(p.TotalClaimed),
		TotalPenalties:       clone(p.TotalPenalties),
		AccRewardPerShare:    clone(p.AccRewardPerShare),
		LastRewardTimestamp:  p.LastRewardTimestamp,
		EndTime:              p.EndTime,
	}
}

func add(a, b *uint256.Int, what string) (*uint256.Int, error) {
	v, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: %s %s + %s", domain.ErrArithmeticOverflow, what, a.Dec(), b.Dec())
	}
	return v, nil
}

func sub(a, b *uint256.Int, what string) (*uint256.Int, error) {
	v, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, fmt.Errorf("%w: %s %s - %s", domain.ErrArithmeticUnderflow, what, a.Dec(), b.Dec())
	}
	return v, nil
}

func clone(v *uint256.Int) *uint256.Int {
	return new(uint256.Int).Set(orZero(v))
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
