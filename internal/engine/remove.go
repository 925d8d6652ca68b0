package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapEngine/internal/amm"
	"swapEngine/internal/dex"
	"swapEngine/internal/model"
)

// Refresher re-reads a derived view after settlement changed its inputs.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RemoveLiquidity orchestrates withdrawing a percentage of a held LP
// position. The LP token needs router approval like any ERC20.
type RemoveLiquidity struct {
	backend   Backend
	oracle    *dex.Oracle
	tracker   *dex.Tracker
	activity  Activity
	logger    *zap.Logger
	contracts Contracts
	settings  Settings
	account   common.Address

	position   *model.UserPosition
	percentage int64

	quote  *model.RemoveLiquidityQuote
	phase  Phase
	errMsg string

	positions Refresher
}

// NewRemoveLiquidity builds a RemoveLiquidity orchestrator. positions may be
// nil; when set it is refreshed after a confirmed withdrawal so the consumed
// position does not linger at its pre-transaction balance.
func NewRemoveLiquidity(backend Backend, oracle *dex.Oracle, tracker *dex.Tracker, activity Activity, contracts Contracts, settings Settings, account common.Address, positions Refresher, logger *zap.Logger) *RemoveLiquidity {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoveLiquidity{
		backend:   backend,
		oracle:    oracle,
		tracker:   tracker,
		activity:  activity,
		logger:    logger,
		contracts: contracts,
		settings:  settings,
		account:   account,
		phase:     PhaseIdle,
		positions: positions,
	}
}

// SetPosition selects the LP position to withdraw from.
func (r *RemoveLiquidity) SetPosition(position *model.UserPosition) {
	r.position = position
	r.quote = nil
	r.errMsg = ""
	r.deriveQuote()
	r.derivePhase()
}

// SetPercentage records the share of the held balance to withdraw, clamped
// to 0–100.
func (r *RemoveLiquidity) SetPercentage(percentage int64) {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}
	r.percentage = percentage
	r.deriveQuote()
	r.derivePhase()
}

// lpToken wraps the pair contract as an approvable ERC20 descriptor.
func (r *RemoveLiquidity) lpToken() model.Token {
	return model.Token{
		Address:  r.position.Pool.Address,
		Symbol:   r.position.Pool.Token0.Symbol + "-" + r.position.Pool.Token1.Symbol,
		Decimals: 18,
	}
}

// Recompute refreshes the LP allowance for the router.
func (r *RemoveLiquidity) Recompute(ctx context.Context) error {
	if r.position == nil {
		r.phase = PhaseIdle
		return nil
	}
	if r.account != (common.Address{}) && r.quote != nil {
		if _, err := r.tracker.Refresh(ctx, r.lpToken(), r.account, r.contracts.Router); err != nil {
			r.logger.Debug("lp allowance read failed", zap.Error(err))
		}
	}
	r.derivePhase()
	return nil
}

func (r *RemoveLiquidity) deriveQuote() {
	r.quote = nil
	if r.position == nil || r.percentage <= 0 {
		return
	}
	pool := r.position.Pool

	liquidity := amm.PercentOf(r.position.Liquidity, r.percentage)
	if liquidity.Sign() <= 0 {
		return
	}

	amount0, amount1 := amm.BurnAmounts(liquidity, pool.Reserve0, pool.Reserve1, pool.TotalSupply)
	r.quote = &model.RemoveLiquidityQuote{
		Liquidity:  liquidity,
		Amount0:    amount0,
		Amount1:    amount1,
		MinAmount0: amm.MinimumReceived(amount0, r.settings.SlippageBps),
		MinAmount1: amm.MinimumReceived(amount1, r.settings.SlippageBps),
	}
}

func (r *RemoveLiquidity) derivePhase() {
	if r.quote == nil {
		r.phase = PhaseQuoting
		return
	}
	if r.needsApproval() {
		r.phase = PhaseNeedsApproval
		return
	}
	r.phase = PhaseReady
}

func (r *RemoveLiquidity) needsApproval() bool {
	if r.position == nil || r.quote == nil {
		return false
	}
	return r.tracker.NeedsApproval(r.lpToken(), r.account, r.contracts.Router, r.quote.Liquidity)
}

// Quote returns the current withdrawal quote, nil when none is available.
func (r *RemoveLiquidity) Quote() *model.RemoveLiquidityQuote {
	return r.quote
}

// Phase returns the orchestrator's current phase.
func (r *RemoveLiquidity) Phase() Phase {
	return r.phase
}

// Err returns the last user-visible error, empty when none.
func (r *RemoveLiquidity) Err() string {
	return r.errMsg
}

// check validates the quote against the held balance before submission. A
// zero minimum marks a degenerate quote that must not reach the chain.
func (r *RemoveLiquidity) check() error {
	if r.position == nil {
		return ErrMissingPosition
	}
	if r.quote == nil {
		return ErrNoQuote
	}
	if r.quote.Liquidity.Cmp(r.position.Liquidity) > 0 {
		return ErrExceedsBalance
	}
	if r.quote.MinAmount0.Sign() == 0 || r.quote.MinAmount1.Sign() == 0 {
		return ErrDegenerateQuote
	}
	return nil
}

// Action derives the button state.
func (r *RemoveLiquidity) Action() Action {
	if r.account == (common.Address{}) {
		return Action{Label: "Connect wallet", Enabled: true, Kind: ActionConnect}
	}
	if r.position == nil {
		return disabled("Select position")
	}
	if r.percentage <= 0 {
		return disabled("Enter amount")
	}
	if r.quote == nil || r.check() != nil {
		return disabled("Insufficient liquidity")
	}
	switch r.phase {
	case PhaseApproving:
		return disabled("Approving")
	case PhaseSubmitting, PhaseConfirming:
		return disabled("Removing")
	}
	if r.needsApproval() {
		return Action{Label: "Approve LP", Enabled: true, Kind: ActionApprove}
	}
	return Action{Label: "Remove liquidity", Enabled: true, Kind: ActionSubmit}
}

// Approve submits an LP-token approval for the router covering the burn
// amount.
func (r *RemoveLiquidity) Approve(ctx context.Context) (*model.PendingTx, error) {
	action := r.Action()
	if action.Kind != ActionApprove || !action.Enabled {
		return nil, ErrNotReady
	}

	parsed, err := dex.ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	r.phase = PhaseApproving
	r.errMsg = ""

	hash, err := r.backend.WriteContract(ctx, r.position.Pool.Address, parsed, "approve", nil, r.contracts.Router, r.quote.Liquidity)
	if err != nil {
		r.failWrite("approve", err)
		return nil, err
	}

	tx := newPendingTx(hash, model.TxKindApprove, "Approve "+r.lpToken().Symbol+" LP")
	recordTx(r.activity, tx)
	r.logger.Info("lp approval submitted", zap.String("hash", tx.Hash))
	return tx, nil
}

// Execute submits the withdrawal after the safety checks pass.
func (r *RemoveLiquidity) Execute(ctx context.Context) (*model.PendingTx, error) {
	action := r.Action()
	if action.Kind != ActionSubmit || !action.Enabled {
		if r.phase == PhaseApproving || r.phase == PhaseSubmitting || r.phase == PhaseConfirming {
			return nil, ErrWriteInFlight
		}
		if action.Kind == ActionApprove {
			return nil, ErrApprovalRequired
		}
		return nil, ErrNotReady
	}
	if err := r.check(); err != nil {
		return nil, err
	}

	parsed, err := dex.RouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}

	pool := r.position.Pool
	deadline := r.settings.Deadline()
	r.phase = PhaseSubmitting
	r.errMsg = ""

	hash, err := r.backend.WriteContract(ctx, r.contracts.Router, parsed, "removeLiquidity",
		nil,
		pool.Token0.Address, pool.Token1.Address, r.quote.Liquidity,
		r.quote.MinAmount0, r.quote.MinAmount1, r.account, deadline)
	if err != nil {
		r.failWrite("remove liquidity", err)
		return nil, err
	}

	summary := fmt.Sprintf("Remove %d%% of %s-%s liquidity", r.percentage, pool.Token0.Symbol, pool.Token1.Symbol)
	tx := newPendingTx(hash, model.TxKindRemoveLiquidity, summary)
	recordTx(r.activity, tx)
	r.phase = PhaseConfirming
	r.logger.Info("remove liquidity submitted", zap.String("hash", tx.Hash), zap.String("summary", summary))
	return tx, nil
}

// Await blocks until the transaction settles. A confirmed withdrawal
// triggers a position refresh so the consumed balance is re-read rather
// than left at its stale pre-transaction value.
func (r *RemoveLiquidity) Await(ctx context.Context, tx *model.PendingTx) error {
	if tx == nil {
		return ErrNotReady
	}

	status, err := r.backend.WaitForReceipt(ctx, common.HexToHash(tx.Hash))
	if err != nil {
		settleTx(r.activity, tx, false)
		r.failWrite(tx.Kind, err)
		return err
	}

	confirmed := status == 1
	settleTx(r.activity, tx, confirmed)
	if !confirmed {
		r.failWrite(tx.Kind, fmt.Errorf("transaction %s reverted", tx.Hash))
		return fmt.Errorf("transaction %s reverted", tx.Hash)
	}

	switch tx.Kind {
	case model.TxKindApprove:
		r.tracker.AwaitApproval(ctx, r.lpToken(), r.account, r.contracts.Router, r.quote.Liquidity)
		r.derivePhase()
	case model.TxKindRemoveLiquidity:
		r.phase = PhaseDone
		if balance, err := r.oracle.LPBalance(ctx, r.position.Pool.Address, r.account); err == nil {
			r.position.Liquidity = balance
		}
		if r.positions != nil {
			if err := r.positions.Refresh(ctx); err != nil {
				r.logger.Warn("position refresh failed", zap.Error(err))
			}
		}
	}
	return nil
}

func (r *RemoveLiquidity) failWrite(kind string, err error) {
	r.errMsg = err.Error()
	r.phase = PhaseFailed
	r.logger.Warn("write failed", zap.String("kind", kind), zap.Error(err))
}
