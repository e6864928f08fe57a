package dto

import (
	"github.com/feral-file/staking-indexer/internal/store/schema"
)

// TokenResponse represents an ERC20 token known to the indexer
type TokenResponse struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// NFTokenResponse represents a staked ERC721 token
type NFTokenResponse struct {
	Contract string `json:"contract"`
	TokenID  string `json:"token_id"`
	Owner    string `json:"owner"`
	Pool     string `json:"pool"`
	Staked   bool   `json:"staked"`
}

func MapTokenToDTO(t *schema.Token) *TokenResponse {
	return &TokenResponse{
		Address:  t.ID,
		Name:     t.Name,
		Symbol:   t.Symbol,
		Decimals: t.Decimals,
	}
}

func MapNFTokenToDTO(t *schema.NFToken) *NFTokenResponse {
	return &NFTokenResponse{
		Contract: t.ContractAddress,
		TokenID:  t.TokenID,
		Owner:    t.Owner,
		Pool:     t.PoolID,
		Staked:   t.Owner != "",
	}
}
