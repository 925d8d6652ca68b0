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

// Swap orchestrates an exact-input swap: live quote from ordered reserves,
// approval gating on the input token, router entrypoint selection and
// settlement. Not safe for concurrent use; one instance per operation.
type Swap struct {
	backend   Backend
	oracle    *dex.Oracle
	tracker   *dex.Tracker
	activity  Activity
	logger    *zap.Logger
	contracts Contracts
	settings  Settings
	account   common.Address

	inputToken  model.Token
	outputToken model.Token
	rawAmount   string
	amountIn    *big.Int

	pair       model.PairState
	pairLoaded bool
	quote      *model.SwapQuote
	phase      Phase
	errMsg     string
}

// NewSwap builds a Swap orchestrator. A zero account means no wallet is
// connected.
func NewSwap(backend Backend, oracle *dex.Oracle, tracker *dex.Tracker, activity Activity, contracts Contracts, settings Settings, account common.Address, logger *zap.Logger) *Swap {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Swap{
		backend:   backend,
		oracle:    oracle,
		tracker:   tracker,
		activity:  activity,
		logger:    logger,
		contracts: contracts,
		settings:  settings,
		account:   account,
		amountIn:  new(big.Int),
		pair:      model.EmptyPairState(),
		phase:     PhaseIdle,
	}
}

// SetTokens selects the input and output tokens and invalidates the quote.
func (s *Swap) SetTokens(input, output model.Token) {
	s.inputToken = input
	s.outputToken = output
	s.invalidate()
}

// SetAmount records the exact input amount as entered. Unparseable input is
// treated as zero and simply disables the action.
func (s *Swap) SetAmount(raw string) {
	s.rawAmount = raw
	s.amountIn = new(big.Int)
	if !s.inputToken.IsZero() {
		if parsed, err := model.ParseAmount(raw, s.inputToken.Decimals); err == nil {
			s.amountIn = parsed
		}
	}
	s.invalidate()
}

func (s *Swap) invalidate() {
	s.pair = model.EmptyPairState()
	s.pairLoaded = false
	s.quote = nil
	s.errMsg = ""
	if s.phase != PhaseIdle {
		s.phase = PhaseQuoting
	}
}

// Recompute re-reads reserves and allowance and re-derives the quote. It is
// called after every input change and after settlement.
func (s *Swap) Recompute(ctx context.Context) error {
	if s.inputToken.IsZero() || s.outputToken.IsZero() {
		s.phase = PhaseIdle
		return nil
	}
	s.phase = PhaseQuoting

	err := withRetry(ctx, s.settings.MaxRetries, s.settings.RetryBackoff, func(ctx context.Context) error {
		pair, err := s.oracle.Resolve(ctx, s.inputToken, s.outputToken)
		if err != nil {
			return err
		}
		s.pair = pair
		return nil
	})
	if err != nil {
		return fmt.Errorf("resolve pair: %w", err)
	}
	s.pairLoaded = true

	if s.account != (common.Address{}) && !s.inputToken.IsNative() && s.amountIn.Sign() > 0 {
		if _, err := s.tracker.Refresh(ctx, s.inputToken, s.account, s.contracts.Router); err != nil {
			// allowance stays unknown; the gate reports no approval needed
			// until a read lands
			s.logger.Debug("allowance read failed", zap.Error(err))
		}
	}

	s.deriveQuote()
	s.derivePhase()
	return nil
}

func (s *Swap) deriveQuote() {
	s.quote = nil
	if s.amountIn.Sign() <= 0 || !s.pair.Exists {
		return
	}

	amountOut := amm.GetAmountOut(s.amountIn, s.pair.ReserveA, s.pair.ReserveB)
	if amountOut.Sign() == 0 {
		return
	}

	s.quote = &model.SwapQuote{
		AmountIn:        new(big.Int).Set(s.amountIn),
		AmountOut:       amountOut,
		PriceImpact:     amm.PriceImpact(s.amountIn, amountOut, s.pair.ReserveA, s.pair.ReserveB),
		MinimumReceived: amm.MinimumReceived(amountOut, s.settings.SlippageBps),
		Fee:             amm.SwapFee(s.amountIn),
	}
}

func (s *Swap) derivePhase() {
	if s.quote == nil {
		s.phase = PhaseQuoting
		return
	}
	if s.needsApproval() {
		s.phase = PhaseNeedsApproval
		return
	}
	s.phase = PhaseReady
}

func (s *Swap) needsApproval() bool {
	return s.tracker.NeedsApproval(s.inputToken, s.account, s.contracts.Router, s.amountIn)
}

// Quote returns the current quote, nil when none is available.
func (s *Swap) Quote() *model.SwapQuote {
	return s.quote
}

// Phase returns the orchestrator's current phase.
func (s *Swap) Phase() Phase {
	return s.phase
}

// Err returns the last user-visible error, empty when none.
func (s *Swap) Err() string {
	return s.errMsg
}

// Loading reports whether required reads are still outstanding.
func (s *Swap) Loading() bool {
	return !s.inputToken.IsZero() && !s.outputToken.IsZero() && !s.pairLoaded
}

// Action derives the button state from current inputs and phase.
func (s *Swap) Action() Action {
	if s.account == (common.Address{}) {
		return Action{Label: "Connect wallet", Enabled: true, Kind: ActionConnect}
	}
	if s.inputToken.IsZero() || s.outputToken.IsZero() {
		return disabled("Select tokens")
	}
	if s.amountIn.Sign() <= 0 {
		return disabled("Enter amount")
	}
	if !s.pairLoaded {
		return disabled("Loading")
	}
	if s.quote == nil {
		return disabled("Insufficient liquidity")
	}
	switch s.phase {
	case PhaseApproving:
		return disabled("Approving")
	case PhaseSubmitting, PhaseConfirming:
		return disabled("Swapping")
	}
	if s.needsApproval() {
		return Action{Label: "Approve " + s.inputToken.Symbol, Enabled: true, Kind: ActionApprove}
	}
	return Action{Label: "Swap", Enabled: true, Kind: ActionSubmit}
}

// Approve submits an exact-amount approval of the input token for the
// router and returns the transaction handle without waiting for
// confirmation. Raising the amount later re-triggers the approval gate.
func (s *Swap) Approve(ctx context.Context) (*model.PendingTx, error) {
	action := s.Action()
	if action.Kind != ActionApprove || !action.Enabled {
		return nil, ErrNotReady
	}

	parsed, err := dex.ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	s.phase = PhaseApproving
	s.errMsg = ""

	hash, err := s.backend.WriteContract(ctx, s.inputToken.Address, parsed, "approve", nil, s.contracts.Router, s.amountIn)
	if err != nil {
		s.failWrite("approve", err)
		return nil, err
	}

	tx := newPendingTx(hash, model.TxKindApprove, "Approve "+s.inputToken.Symbol)
	recordTx(s.activity, tx)
	s.logger.Info("approval submitted", zap.String("hash", tx.Hash), zap.String("token", s.inputToken.Symbol))
	return tx, nil
}

// Execute submits the swap through the router entrypoint matching the
// native ends of the trade and returns the transaction handle without
// waiting for confirmation.
func (s *Swap) Execute(ctx context.Context) (*model.PendingTx, error) {
	action := s.Action()
	if action.Kind != ActionSubmit || !action.Enabled {
		if s.phase == PhaseApproving || s.phase == PhaseSubmitting || s.phase == PhaseConfirming {
			return nil, ErrWriteInFlight
		}
		if action.Kind == ActionApprove {
			return nil, ErrApprovalRequired
		}
		return nil, ErrNotReady
	}
	if s.quote == nil {
		return nil, ErrNoQuote
	}

	parsed, err := dex.RouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}

	deadline := s.settings.Deadline()
	inputAddr := s.oracle.EffectiveAddress(s.inputToken)
	outputAddr := s.oracle.EffectiveAddress(s.outputToken)

	s.phase = PhaseSubmitting
	s.errMsg = ""

	var hash common.Hash
	switch {
	case s.inputToken.IsNative():
		hash, err = s.backend.WriteContract(ctx, s.contracts.Router, parsed, "swapExactETHForTokens",
			s.quote.AmountIn,
			s.quote.MinimumReceived, []common.Address{inputAddr, outputAddr}, s.account, deadline)
	case s.outputToken.IsNative():
		hash, err = s.backend.WriteContract(ctx, s.contracts.Router, parsed, "swapExactTokensForETH",
			nil,
			s.quote.AmountIn, s.quote.MinimumReceived, []common.Address{inputAddr, outputAddr}, s.account, deadline)
	default:
		hash, err = s.backend.WriteContract(ctx, s.contracts.Router, parsed, "swapExactTokensForTokens",
			nil,
			s.quote.AmountIn, s.quote.MinimumReceived, []common.Address{inputAddr, outputAddr}, s.account, deadline)
	}
	if err != nil {
		s.failWrite("swap", err)
		return nil, err
	}

	summary := fmt.Sprintf("Swap %s %s for %s",
		model.FormatAmount(s.quote.AmountIn, s.inputToken.Decimals), s.inputToken.Symbol, s.outputToken.Symbol)
	tx := newPendingTx(hash, model.TxKindSwap, summary)
	recordTx(s.activity, tx)
	s.phase = PhaseConfirming
	s.logger.Info("swap submitted", zap.String("hash", tx.Hash), zap.String("summary", summary))
	return tx, nil
}

// Await blocks until the transaction settles, updates the orchestrator and
// the activity log. For approvals the allowance is re-read with bounded
// retry before the gate transitions away from approve.
func (s *Swap) Await(ctx context.Context, tx *model.PendingTx) error {
	if tx == nil {
		return ErrNotReady
	}

	status, err := s.backend.WaitForReceipt(ctx, common.HexToHash(tx.Hash))
	if err != nil {
		settleTx(s.activity, tx, false)
		s.failWrite(tx.Kind, err)
		return err
	}

	confirmed := status == 1
	settleTx(s.activity, tx, confirmed)
	if !confirmed {
		// a deadline-expired revert lands here like any other failure
		s.failWrite(tx.Kind, fmt.Errorf("transaction %s reverted", tx.Hash))
		return fmt.Errorf("transaction %s reverted", tx.Hash)
	}

	switch tx.Kind {
	case model.TxKindApprove:
		s.tracker.AwaitApproval(ctx, s.inputToken, s.account, s.contracts.Router, s.amountIn)
		s.derivePhase()
	case model.TxKindSwap:
		s.phase = PhaseDone
	}
	return nil
}

func (s *Swap) failWrite(kind string, err error) {
	s.errMsg = err.Error()
	s.phase = PhaseFailed
	s.logger.Warn("write failed", zap.String("kind", kind), zap.Error(err))
}
