package dto

import (
	"time"

	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/store/schema"
)

// PoolResponse represents a staking pool with its live accounting state
type PoolResponse struct {
	Address              string          `json:"address"`
	Kind                 domain.PoolKind `json:"kind"`
	FactoryAddress       string          `json:"factory_address"`
	RequestID            string          `json:"request_id"`
	StakeToken           string          `json:"stake_token"`
	RewardToken          string          `json:"reward_token"`
	Owner                string          `json:"owner"`
	StartTime            uint64          `json:"start_time"`
	EndTime              uint64          `json:"end_time"`
	UnstakeLockUpTime    uint64          `json:"unstake_lock_up_time"`
	ClaimLockUpTime      uint64          `json:"claim_lock_up_time"`
	PenaltyPeriod        uint64          `json:"penalty_period"`
	RewardTokenPerSecond string          `json:"reward_token_per_second"`
	TotalStaked          string          `json:"total_staked"`
	TotalClaimed         string          `json:"total_claimed"`
	TotalPenalties       string          `json:"total_penalties"`
	AccRewardPerShare    string          `json:"acc_reward_per_share"`
	LastRewardTimestamp  uint64          `json:"last_reward_timestamp"`
	IsPoolActive         bool            `json:"is_pool_active"`
	CreatedTxHash        string          `json:"created_tx_hash,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// MapPoolToDTO maps a stored pool to its response
func MapPoolToDTO(p *schema.Pool) *PoolResponse {
	return &PoolResponse{
		Address:              p.ID,
		Kind:                 p.Kind,
		FactoryAddress:       p.FactoryID,
		RequestID:            p.RequestID,
		StakeToken:           p.StakeToken,
		RewardToken:          p.RewardToken,
		Owner:                p.Owner,
		StartTime:            p.StartTime,
		EndTime:              p.EndTime,
		UnstakeLockUpTime:    p.UnstakeLockUpTime,
		ClaimLockUpTime:      p.ClaimLockUpTime,
		PenaltyPeriod:        p.PenaltyPeriod,
		RewardTokenPerSecond: p.RewardTokenPerSecond.String(),
		TotalStaked:          p.TotalStaked.String(),
		TotalClaimed:         p.TotalClaimed.String(),
		TotalPenalties:       p.TotalPenalties.String(),
		AccRewardPerShare:    p.AccRewardPerShare.String(),
		LastRewardTimestamp:  p.LastRewardTimestamp,
		IsPoolActive:         p.IsPoolActive,
		CreatedTxHash:        p.CreatedTxHash,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}
