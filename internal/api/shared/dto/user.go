package dto

import (
	"github.com/feral-file/staking-indexer/internal/store/schema"
)

// PoolUserResponse represents a user's position in one pool
type PoolUserResponse struct {
	Pool       string `json:"pool"`
	Address    string `json:"address"`
	Amount     string `json:"amount"`
	RewardDebt string `json:"reward_debt"`
	Pending    string `json:"pending"`
	Claimed    string `json:"claimed"`
	// PendingAt is the reward the user could claim at At, projected from the stored pool state
	PendingAt string `json:"pending_at"`
	At        uint64 `json:"at"`
}

// PoolUserListResponse represents a page of pool users
type PoolUserListResponse struct {
	Users  []PoolUserResponse `json:"users"`
	Total  uint64             `json:"total"`
	Offset uint64             `json:"offset"`
}

// MapUserToDTO maps a stored user to its response, without projection
func MapUserToDTO(u *schema.User) PoolUserResponse {
	return PoolUserResponse{
		Pool:       u.PoolID,
		Address:    u.Address,
		Amount:     u.Amount.String(),
		RewardDebt: u.RewardDebt.String(),
		Pending:    u.Pending.String(),
		Claimed:    u.Claimed.String(),
	}
}
