package dto

import (
	"time"

	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/store/schema"
)

// HistoryResponse represents one history journal entry
type HistoryResponse struct {
	ID            string                  `json:"id"`
	Pool          string                  `json:"pool"`
	User          string                  `json:"user"`
	EventType     domain.HistoryEventType `json:"event_type"`
	Amount        string                  `json:"amount"`
	PenaltyAmount string                  `json:"penalty_amount"`
	TokenIDs      []string                `json:"token_ids,omitempty"`
	TxHash        string                  `json:"tx_hash"`
	LogIndex      uint64                  `json:"log_index"`
	BlockNumber   uint64                  `json:"block_number"`
	Timestamp     time.Time               `json:"timestamp"`
}

// HistoryListResponse represents a page of history entries, newest first
type HistoryListResponse struct {
	Items  []HistoryResponse `json:"items"`
	Total  uint64            `json:"total"`
	Offset uint64            `json:"offset"`
}

// MapHistoryToDTO maps a stored history entry to its response
func MapHistoryToDTO(h *schema.History) HistoryResponse {
	return HistoryResponse{
		ID:            h.ID,
		Pool:          h.PoolID,
		User:          h.UserAddress,
		EventType:     h.EventType,
		Amount:        h.Amount.String(),
		PenaltyAmount: h.PenaltyAmount.String(),
		TokenIDs:      h.TokenIDs,
		TxHash:        h.TxHash,
		LogIndex:      h.LogIndex,
		BlockNumber:   h.BlockNumber,
		Timestamp:     h.Timestamp,
	}
}
