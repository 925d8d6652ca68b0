package model

import "encoding/json"

// Transaction kinds.
const (
	TxKindApprove         = "approve"
	TxKindSwap            = "swap"
	TxKindAddLiquidity    = "add-liquidity"
	TxKindRemoveLiquidity = "remove-liquidity"
)

// Transaction statuses. A transaction is created as submitted and becomes
// terminal on its receipt; it is never retried automatically.
const (
	TxStatusSubmitted = "submitted"
	TxStatusConfirmed = "confirmed"
	TxStatusFailed    = "failed"
)

// PendingTx is one in-flight or settled on-chain transaction.
type PendingTx struct {
	Hash        string `json:"hash"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
	Summary     string `json:"summary"`
	SubmittedAt string `json:"submitted_at"`
	SettledAt   string `json:"settled_at,omitempty"`
}

// MarshalJSON ensures PendingTx is encoded with stable field names.
func (tx PendingTx) MarshalJSON() ([]byte, error) {
	type Alias PendingTx
	return json.Marshal(Alias(tx))
}

// UnmarshalJSON decodes a PendingTx from JSON.
func (tx *PendingTx) UnmarshalJSON(data []byte) error {
	type Alias PendingTx
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*tx = PendingTx(a)
	return nil
}
