package logger

import (
	"go.uber.org/zap"

	"github.com/feral-file/staking-indexer/internal/domain"
)

// EventFields returns the structured fields identifying an on-chain event
func EventFields(meta domain.EventMeta, kind domain.EventKind) []zap.Field {
	return []zap.Field{
		zap.String("chain", string(meta.Chain)),
		zap.String("kind", string(kind)),
		zap.String("contract", meta.Contract),
		zap.String("txHash", meta.TxHash),
		zap.Uint64("logIndex", meta.LogIndex),
		zap.Uint64("block", meta.BlockNumber),
	}
}
