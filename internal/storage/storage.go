package storage

import "swapEngine/internal/model"

// Storage defines a sink for the transaction activity log.
type Storage interface {
	PutTxBatch(txs []model.PendingTx) error
}
