package accounting

import (
	"github.com/feral-file/staking-indexer/internal/store/schema"
)

// PoolStateOf extracts the accounting view of a stored pool
func PoolStateOf(p *schema.Pool) *PoolState {
	return &PoolState{
		RewardTokenPerSecond: p.RewardTokenPerSecond.Int(),
		TotalStaked:          p.TotalStaked.Int(),
		TotalClaimed:         p.TotalClaimed.Int(),
		TotalPenalties:       p.TotalPenalties.Int(),
		AccRewardPerShare:    p.AccRewardPerShare.Int(),
		LastRewardTimestamp:  p.LastRewardTimestamp,
		EndTime:              p.EndTime,
	}
}

// ApplyToPool writes the mutable accounting fields back to the stored pool
func (s *PoolState) ApplyToPool(p *schema.Pool) {
	p.TotalStaked = schema.NewUint256(s.TotalStaked)
	p.TotalClaimed = schema.NewUint256(s.TotalClaimed)
	p.TotalPenalties = schema.NewUint256(s.TotalPenalties)
	p.AccRewardPerShare = schema.NewUint256(s.AccRewardPerShare)
	p.LastRewardTimestamp = s.LastRewardTimestamp
}

// UserStateOf extracts the accounting view of a stored user
func UserStateOf(u *schema.User) *UserState {
	return &UserState{
		Amount:     u.Amount.Int(),
		RewardDebt: u.RewardDebt.Int(),
		Pending:    u.Pending.Int(),
		Claimed:    u.Claimed.Int(),
	}
}

// ApplyToUser writes the accounting fields back to the stored user
func (s *UserState) ApplyToUser(u *schema.User) {
	u.Amount = schema.NewUint256(s.Amount)
	u.RewardDebt = schema.NewUint256(s.RewardDebt)
	u.Pending = schema.NewUint256(s.Pending)
	u.Claimed = schema.NewUint256(s.Claimed)
}
