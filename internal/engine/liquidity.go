package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapEngine/internal/amm"
	"swapEngine/internal/dex"
	"swapEngine/internal/model"
)

// LiquidityField identifies which deposit amount the user is editing; the
// other side is derived from it while the pool exists.
type LiquidityField int

const (
	FieldA LiquidityField = iota
	FieldB
)

// AddLiquidity orchestrates a two-sided deposit with per-token approval
// gates. Against an existing pool the inactive amount follows the reserve
// ratio; for a new pool both amounts are independent and the entered ratio
// becomes the initial price.
type AddLiquidity struct {
	backend   Backend
	oracle    *dex.Oracle
	tracker   *dex.Tracker
	activity  Activity
	logger    *zap.Logger
	contracts Contracts
	settings  Settings
	account   common.Address

	tokenA model.Token
	tokenB model.Token

	activeField LiquidityField
	amountA     *big.Int
	amountB     *big.Int

	pair       model.PairState
	pairLoaded bool
	quote      *model.AddLiquidityQuote
	phase      Phase
	errMsg     string

	approving       model.Token
	approvingAmount *big.Int
}

// NewAddLiquidity builds an AddLiquidity orchestrator.
func NewAddLiquidity(backend Backend, oracle *dex.Oracle, tracker *dex.Tracker, activity Activity, contracts Contracts, settings Settings, account common.Address, logger *zap.Logger) *AddLiquidity {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AddLiquidity{
		backend:   backend,
		oracle:    oracle,
		tracker:   tracker,
		activity:  activity,
		logger:    logger,
		contracts: contracts,
		settings:  settings,
		account:   account,
		amountA:   new(big.Int),
		amountB:   new(big.Int),
		pair:      model.EmptyPairState(),
		phase:     PhaseIdle,
	}
}

// SetTokens selects the pair and invalidates derived state.
func (a *AddLiquidity) SetTokens(tokenA, tokenB model.Token) {
	a.tokenA = tokenA
	a.tokenB = tokenB
	a.amountA = new(big.Int)
	a.amountB = new(big.Int)
	a.invalidate()
}

// SetAmount records an entered amount and marks its field active. While the
// pool exists the counterpart amount is re-derived from the reserve ratio;
// the active field itself is never overwritten by its own derivation.
func (a *AddLiquidity) SetAmount(field LiquidityField, raw string) {
	a.activeField = field

	token := a.tokenA
	if field == FieldB {
		token = a.tokenB
	}
	amount := new(big.Int)
	if !token.IsZero() {
		if parsed, err := model.ParseAmount(raw, token.Decimals); err == nil {
			amount = parsed
		}
	}

	if field == FieldA {
		a.amountA = amount
	} else {
		a.amountB = amount
	}

	a.deriveCounterpart()
	a.deriveQuote()
	a.derivePhase()
}

func (a *AddLiquidity) invalidate() {
	a.pair = model.EmptyPairState()
	a.pairLoaded = false
	a.quote = nil
	a.errMsg = ""
	if a.phase != PhaseIdle {
		a.phase = PhaseQuoting
	}
}

// NewPool reports whether the deposit would create the pool, pricing it at
// the entered ratio. Callers must surface this explicitly.
func (a *AddLiquidity) NewPool() bool {
	return a.pairLoaded && !a.pair.Exists
}

// Recompute re-reads pair state and allowances and re-derives amounts and
// the quote.
func (a *AddLiquidity) Recompute(ctx context.Context) error {
	if a.tokenA.IsZero() || a.tokenB.IsZero() {
		a.phase = PhaseIdle
		return nil
	}
	a.phase = PhaseQuoting

	err := withRetry(ctx, a.settings.MaxRetries, a.settings.RetryBackoff, func(ctx context.Context) error {
		pair, err := a.oracle.Resolve(ctx, a.tokenA, a.tokenB)
		if err != nil {
			return err
		}
		a.pair = pair
		return nil
	})
	if err != nil {
		return fmt.Errorf("resolve pair: %w", err)
	}
	a.pairLoaded = true

	if a.account != (common.Address{}) {
		if !a.tokenA.IsNative() && a.amountA.Sign() > 0 {
			if _, err := a.tracker.Refresh(ctx, a.tokenA, a.account, a.contracts.Router); err != nil {
				a.logger.Debug("allowance read failed", zap.String("token", a.tokenA.Symbol), zap.Error(err))
			}
		}
		if !a.tokenB.IsNative() && a.amountB.Sign() > 0 {
			if _, err := a.tracker.Refresh(ctx, a.tokenB, a.account, a.contracts.Router); err != nil {
				a.logger.Debug("allowance read failed", zap.String("token", a.tokenB.Symbol), zap.Error(err))
			}
		}
	}

	a.deriveCounterpart()
	a.deriveQuote()
	a.derivePhase()
	return nil
}

// deriveCounterpart recomputes the inactive amount from the active one
// while the pool exists. For a new pool both sides stay independent.
func (a *AddLiquidity) deriveCounterpart() {
	if !a.pairLoaded || !a.pair.Exists {
		return
	}
	if a.activeField == FieldA {
		if a.amountA.Sign() > 0 {
			a.amountB = amm.Quote(a.amountA, a.pair.ReserveA, a.pair.ReserveB)
		} else {
			a.amountB = new(big.Int)
		}
		return
	}
	if a.amountB.Sign() > 0 {
		a.amountA = amm.Quote(a.amountB, a.pair.ReserveB, a.pair.ReserveA)
	} else {
		a.amountA = new(big.Int)
	}
}

func (a *AddLiquidity) deriveQuote() {
	a.quote = nil
	if !a.pairLoaded || a.amountA.Sign() <= 0 || a.amountB.Sign() <= 0 {
		return
	}

	liquidity := amm.MintLiquidity(a.amountA, a.amountB, a.pair.ReserveA, a.pair.ReserveB, a.pair.TotalSupply)
	if liquidity.Sign() <= 0 {
		return
	}

	supplyAfter := new(big.Int).Add(a.pair.TotalSupply, liquidity)
	share := amm.PoolShare(liquidity, supplyAfter)
	if a.NewPool() {
		share = 100
	}

	a.quote = &model.AddLiquidityQuote{
		AmountA:     new(big.Int).Set(a.amountA),
		AmountB:     new(big.Int).Set(a.amountB),
		MinAmountA:  amm.MinimumReceived(a.amountA, a.settings.SlippageBps),
		MinAmountB:  amm.MinimumReceived(a.amountB, a.settings.SlippageBps),
		Liquidity:   liquidity,
		ShareOfPool: share,
		NewPool:     a.NewPool(),
	}
}

func (a *AddLiquidity) derivePhase() {
	if a.quote == nil {
		a.phase = PhaseQuoting
		return
	}
	if a.NeedsApprovalA() || a.NeedsApprovalB() {
		a.phase = PhaseNeedsApproval
		return
	}
	a.phase = PhaseReady
}

// NeedsApprovalA reports the approval gate for token A.
func (a *AddLiquidity) NeedsApprovalA() bool {
	return a.tracker.NeedsApproval(a.tokenA, a.account, a.contracts.Router, a.amountA)
}

// NeedsApprovalB reports the approval gate for token B.
func (a *AddLiquidity) NeedsApprovalB() bool {
	return a.tracker.NeedsApproval(a.tokenB, a.account, a.contracts.Router, a.amountB)
}

// Quote returns the current deposit quote, nil when none is available.
func (a *AddLiquidity) Quote() *model.AddLiquidityQuote {
	return a.quote
}

// Amounts returns the current (possibly derived) deposit amounts.
func (a *AddLiquidity) Amounts() (*big.Int, *big.Int) {
	return new(big.Int).Set(a.amountA), new(big.Int).Set(a.amountB)
}

// Phase returns the orchestrator's current phase.
func (a *AddLiquidity) Phase() Phase {
	return a.phase
}

// Err returns the last user-visible error, empty when none.
func (a *AddLiquidity) Err() string {
	return a.errMsg
}

// Action derives the button state. Each token's approval is gated
// separately; token A's gate is surfaced first.
func (a *AddLiquidity) Action() Action {
	if a.account == (common.Address{}) {
		return Action{Label: "Connect wallet", Enabled: true, Kind: ActionConnect}
	}
	if a.tokenA.IsZero() || a.tokenB.IsZero() {
		return disabled("Select tokens")
	}
	if a.amountA.Sign() <= 0 && a.amountB.Sign() <= 0 {
		return disabled("Enter amount")
	}
	if !a.pairLoaded {
		return disabled("Loading")
	}
	if a.quote == nil {
		return disabled("Insufficient liquidity")
	}
	switch a.phase {
	case PhaseApproving:
		return disabled("Approving")
	case PhaseSubmitting, PhaseConfirming:
		return disabled("Adding")
	}
	if a.NeedsApprovalA() {
		return Action{Label: "Approve " + a.tokenA.Symbol, Enabled: true, Kind: ActionApprove}
	}
	if a.NeedsApprovalB() {
		return Action{Label: "Approve " + a.tokenB.Symbol, Enabled: true, Kind: ActionApprove}
	}
	return Action{Label: "Add liquidity", Enabled: true, Kind: ActionSubmit}
}

// Approve submits an exact-amount approval for whichever token's gate is
// open, A first.
func (a *AddLiquidity) Approve(ctx context.Context) (*model.PendingTx, error) {
	action := a.Action()
	if action.Kind != ActionApprove || !action.Enabled {
		return nil, ErrNotReady
	}

	token, amount := a.tokenA, a.amountA
	if !a.NeedsApprovalA() {
		token, amount = a.tokenB, a.amountB
	}

	parsed, err := dex.ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	a.phase = PhaseApproving
	a.errMsg = ""
	a.approving = token
	a.approvingAmount = new(big.Int).Set(amount)

	hash, err := a.backend.WriteContract(ctx, token.Address, parsed, "approve", nil, a.contracts.Router, amount)
	if err != nil {
		a.failWrite("approve", err)
		return nil, err
	}

	tx := newPendingTx(hash, model.TxKindApprove, "Approve "+token.Symbol)
	recordTx(a.activity, tx)
	a.logger.Info("approval submitted", zap.String("hash", tx.Hash), zap.String("token", token.Symbol))
	return tx, nil
}

// Execute submits the deposit, using the native-coin router entrypoint and
// sending value when either side is the native coin.
func (a *AddLiquidity) Execute(ctx context.Context) (*model.PendingTx, error) {
	action := a.Action()
	if action.Kind != ActionSubmit || !action.Enabled {
		if a.phase == PhaseApproving || a.phase == PhaseSubmitting || a.phase == PhaseConfirming {
			return nil, ErrWriteInFlight
		}
		if action.Kind == ActionApprove {
			return nil, ErrApprovalRequired
		}
		return nil, ErrNotReady
	}
	if a.quote == nil {
		return nil, ErrNoQuote
	}

	parsed, err := dex.RouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}

	deadline := a.settings.Deadline()
	a.phase = PhaseSubmitting
	a.errMsg = ""

	var hash common.Hash
	switch {
	case a.tokenA.IsNative():
		hash, err = a.backend.WriteContract(ctx, a.contracts.Router, parsed, "addLiquidityETH",
			a.quote.AmountA,
			a.tokenB.Address, a.quote.AmountB, a.quote.MinAmountB, a.quote.MinAmountA, a.account, deadline)
	case a.tokenB.IsNative():
		hash, err = a.backend.WriteContract(ctx, a.contracts.Router, parsed, "addLiquidityETH",
			a.quote.AmountB,
			a.tokenA.Address, a.quote.AmountA, a.quote.MinAmountA, a.quote.MinAmountB, a.account, deadline)
	default:
		hash, err = a.backend.WriteContract(ctx, a.contracts.Router, parsed, "addLiquidity",
			nil,
			a.tokenA.Address, a.tokenB.Address, a.quote.AmountA, a.quote.AmountB,
			a.quote.MinAmountA, a.quote.MinAmountB, a.account, deadline)
	}
	if err != nil {
		a.failWrite("add liquidity", err)
		return nil, err
	}

	summary := fmt.Sprintf("Add %s %s + %s %s",
		model.FormatAmount(a.quote.AmountA, a.tokenA.Decimals), a.tokenA.Symbol,
		model.FormatAmount(a.quote.AmountB, a.tokenB.Decimals), a.tokenB.Symbol)
	tx := newPendingTx(hash, model.TxKindAddLiquidity, summary)
	recordTx(a.activity, tx)
	a.phase = PhaseConfirming
	a.logger.Info("add liquidity submitted", zap.String("hash", tx.Hash), zap.String("summary", summary))
	return tx, nil
}

// Await blocks until the transaction settles and updates the orchestrator.
// Confirmed approvals re-read the allowance with bounded retry before the
// gate advances.
func (a *AddLiquidity) Await(ctx context.Context, tx *model.PendingTx) error {
	if tx == nil {
		return ErrNotReady
	}

	status, err := a.backend.WaitForReceipt(ctx, common.HexToHash(tx.Hash))
	if err != nil {
		settleTx(a.activity, tx, false)
		a.failWrite(tx.Kind, err)
		return err
	}

	confirmed := status == 1
	settleTx(a.activity, tx, confirmed)
	if !confirmed {
		a.failWrite(tx.Kind, fmt.Errorf("transaction %s reverted", tx.Hash))
		return fmt.Errorf("transaction %s reverted", tx.Hash)
	}

	switch tx.Kind {
	case model.TxKindApprove:
		if !a.approving.IsZero() && !a.approving.IsNative() {
			a.tracker.AwaitApproval(ctx, a.approving, a.account, a.contracts.Router, a.approvingAmount)
		}
		a.approving = model.Token{}
		a.approvingAmount = nil
		a.derivePhase()
	case model.TxKindAddLiquidity:
		a.phase = PhaseDone
	}
	return nil
}

func (a *AddLiquidity) failWrite(kind string, err error) {
	a.errMsg = err.Error()
	a.phase = PhaseFailed
	a.logger.Warn("write failed", zap.String("kind", kind), zap.Error(err))
}
