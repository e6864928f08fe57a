package dto

import (
	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/store/schema"
)

// FactoryResponse represents a pool factory
type FactoryResponse struct {
	Address       string          `json:"address"`
	Kind          domain.PoolKind `json:"kind"`
	TotalPools    uint64          `json:"total_pools"`
	TotalRequests uint64          `json:"total_requests"`
	PoolAddresses []string        `json:"pool_addresses"`
}

// RequestResponse represents a pool creation request
type RequestResponse struct {
	ID                string               `json:"id"`
	Factory           string               `json:"factory"`
	Kind              domain.PoolKind      `json:"kind"`
	Deployer          string               `json:"deployer"`
	Status            domain.RequestStatus `json:"status"`
	StakeToken        string               `json:"stake_token"`
	RewardToken       string               `json:"reward_token"`
	RewardPerSecond   string               `json:"reward_per_second"`
	PoolStartTime     uint64               `json:"pool_start_time"`
	PoolEndTime       uint64               `json:"pool_end_time"`
	UnstakeLockUpTime uint64               `json:"unstake_lock_up_time"`
	ClaimLockUpTime   uint64               `json:"claim_lock_up_time"`
	PenaltyPeriod     uint64               `json:"penalty_period"`
	PoolAddress       *string              `json:"pool_address,omitempty"`
}

func MapFactoryToDTO(f *schema.Factory) *FactoryResponse {
	addresses := []string(f.PoolAddresses)
	if addresses == nil {
		addresses = []string{}
	}
	return &FactoryResponse{
		Address:       f.ID,
		Kind:          f.Kind,
		TotalPools:    f.TotalPools,
		TotalRequests: f.TotalRequests,
		PoolAddresses: addresses,
	}
}

func MapRequestToDTO(r *schema.Request) *RequestResponse {
	return &RequestResponse{
		ID:                r.RequestNumber,
		Factory:           r.FactoryID,
		Kind:              r.Kind,
		Deployer:          r.Deployer,
		Status:            r.Status,
		StakeToken:        r.StakeToken,
		RewardToken:       r.RewardToken,
		RewardPerSecond:   r.RewardPerSecond.String(),
		PoolStartTime:     r.PoolStartTime,
		PoolEndTime:       r.PoolEndTime,
		UnstakeLockUpTime: r.UnstakeLockUpTime,
		ClaimLockUpTime:   r.ClaimLockUpTime,
		PenaltyPeriod:     r.PenaltyPeriod,
		PoolAddress:       r.PoolAddress,
	}
}
