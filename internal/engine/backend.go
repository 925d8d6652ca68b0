// Package engine drives the multi-step settlement sequence for swap,
// add-liquidity and remove-liquidity: quote from current reserves, gate the
// user action, approve when needed, submit, await confirmation and
// reconcile. Each orchestrator instance serves one operation at a time;
// write sequencing is enforced by the action gate, not by a lock.
package engine

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/model"
)

// Backend is the chain surface the orchestrators depend on. Writes return a
// transaction hash without blocking on confirmation.
type Backend interface {
	ReadContract(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error)
	WriteContract(ctx context.Context, to common.Address, parsed abi.ABI, method string, value *big.Int, args ...interface{}) (common.Hash, error)
	WaitForReceipt(ctx context.Context, hash common.Hash) (uint64, error)
}

// Activity receives submitted and settled transactions.
type Activity interface {
	PutTxBatch(txs []model.PendingTx) error
}

// Contracts holds the protocol's deployed addresses.
type Contracts struct {
	Factory       common.Address
	Router        common.Address
	WrappedNative common.Address
}

// Settings is injected per orchestrator; the engine never reads ambient
// global state for these.
type Settings struct {
	SlippageBps     int64
	DeadlineMinutes int64
	MaxRetries      int
	RetryBackoff    time.Duration
}

// Deadline returns the absolute unix deadline for a transaction submitted
// now.
func (s Settings) Deadline() *big.Int {
	minutes := s.DeadlineMinutes
	if minutes <= 0 {
		minutes = 20
	}
	return big.NewInt(time.Now().Unix() + minutes*60)
}

func newPendingTx(hash common.Hash, kind, summary string) *model.PendingTx {
	return &model.PendingTx{
		Hash:        hash.Hex(),
		Kind:        kind,
		Status:      model.TxStatusSubmitted,
		Summary:     summary,
		SubmittedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

func recordTx(activity Activity, tx *model.PendingTx) {
	if activity == nil || tx == nil {
		return
	}
	// activity logging is best effort; settlement does not depend on it
	_ = activity.PutTxBatch([]model.PendingTx{*tx})
}

func settleTx(activity Activity, tx *model.PendingTx, confirmed bool) {
	if tx == nil {
		return
	}
	if confirmed {
		tx.Status = model.TxStatusConfirmed
	} else {
		tx.Status = model.TxStatusFailed
	}
	tx.SettledAt = time.Now().UTC().Format(time.RFC3339Nano)
	recordTx(activity, tx)
}
