package engine

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/model"
)

func newTestSwap(chain *fakeChain, activity Activity, account common.Address) *Swap {
	return NewSwap(chain, testOracle(chain), testTracker(chain), activity, testContracts(), testSettings(), account, nil)
}

func TestSwapActionGatingOrder(t *testing.T) {
	chain := newFakeChain()
	seedPool(chain, 1_000_000, 2_000_000, 500_000)
	chain.allowances[tokenA.Address] = new(big.Int)

	s := newTestSwap(chain, nil, common.Address{})
	if action := s.Action(); action.Label != "Connect wallet" || !action.Enabled {
		t.Fatalf("no wallet must gate first: %+v", action)
	}

	s = newTestSwap(chain, nil, testAccount)
	if action := s.Action(); action.Label != "Select tokens" || action.Enabled {
		t.Fatalf("missing tokens must gate: %+v", action)
	}

	s.SetTokens(tokenA, tokenB)
	if action := s.Action(); action.Label != "Enter amount" || action.Enabled {
		t.Fatalf("missing amount must gate: %+v", action)
	}

	s.SetAmount("1000")
	if action := s.Action(); action.Label != "Loading" || action.Enabled {
		t.Fatalf("unresolved pair must gate: %+v", action)
	}

	if err := s.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if action := s.Action(); action.Label != "Approve ALPHA" || action.Kind != ActionApprove {
		t.Fatalf("zero allowance must gate on approval: %+v", action)
	}

	chain.allowances[tokenA.Address] = big.NewInt(1_000_000)
	if err := s.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if action := s.Action(); action.Label != "Swap" || action.Kind != ActionSubmit || !action.Enabled {
		t.Fatalf("covered allowance must enable swap: %+v", action)
	}
}

func TestSwapUnknownAllowanceDoesNotGate(t *testing.T) {
	chain := newFakeChain()
	seedPool(chain, 1_000_000, 2_000_000, 500_000)
	// no allowance configured: the read fails and the cache stays empty

	s := newTestSwap(chain, nil, testAccount)
	s.SetTokens(tokenA, tokenB)
	s.SetAmount("1000")
	if err := s.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if action := s.Action(); action.Label != "Swap" {
		t.Fatalf("unknown allowance must not prompt approval: %+v", action)
	}
}

func TestSwapMissingPairMeansNoQuote(t *testing.T) {
	chain := newFakeChain()

	s := newTestSwap(chain, nil, testAccount)
	s.SetTokens(tokenA, tokenB)
	s.SetAmount("1000")
	if err := s.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if s.Quote() != nil {
		t.Fatalf("missing pair must not quote")
	}
	if action := s.Action(); action.Label != "Insufficient liquidity" || action.Enabled {
		t.Fatalf("missing pair must gate: %+v", action)
	}
}

func TestSwapQuoteValues(t *testing.T) {
	chain := newFakeChain()
	seedPool(chain, 1_000_000, 2_000_000, 500_000)
	chain.allowances[tokenA.Address] = big.NewInt(1_000_000)

	s := newTestSwap(chain, nil, testAccount)
	s.SetTokens(tokenA, tokenB)
	s.SetAmount("1000")
	if err := s.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	quote := s.Quote()
	if quote == nil {
		t.Fatalf("expected a quote")
	}
	if quote.AmountOut.Cmp(big.NewInt(1992)) != 0 {
		t.Fatalf("amount out: got %s, want 1992", quote.AmountOut)
	}
	// 50 bps off 1992, rounded down
	if quote.MinimumReceived.Cmp(big.NewInt(1982)) != 0 {
		t.Fatalf("minimum received: got %s, want 1982", quote.MinimumReceived)
	}
	if quote.Fee.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("fee: got %s, want 3", quote.Fee)
	}
	if quote.PriceImpact < 0 {
		t.Fatalf("price impact must not be negative: %f", quote.PriceImpact)
	}
}

func TestSwapExecuteEntrypoints(t *testing.T) {
	cases := []struct {
		name   string
		input  model.Token
		output model.Token
		method string
		value  bool
	}{
		{"token to token", tokenA, tokenB, "swapExactTokensForTokens", false},
		{"native in", tokenNative, tokenB, "swapExactETHForTokens", true},
		{"native out", tokenA, tokenNative, "swapExactTokensForETH", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chain := newFakeChain()
			seedPool(chain, 1_000_000, 2_000_000, 500_000)
			chain.allowances[tokenA.Address] = big.NewInt(1_000_000)

			s := newTestSwap(chain, nil, testAccount)
			s.SetTokens(tc.input, tc.output)
			s.SetAmount("1000")
			if err := s.Recompute(context.Background()); err != nil {
				t.Fatalf("recompute: %v", err)
			}

			tx, err := s.Execute(context.Background())
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			if tx.Kind != model.TxKindSwap {
				t.Fatalf("tx kind: %s", tx.Kind)
			}

			write := chain.lastWrite()
			if write.to != testRouter {
				t.Fatalf("swap must target the router: %s", write.to.Hex())
			}
			if write.method != tc.method {
				t.Fatalf("entrypoint: got %s, want %s", write.method, tc.method)
			}
			if tc.value && (write.value == nil || write.value.Cmp(big.NewInt(1000)) != 0) {
				t.Fatalf("native input must ride as call value: %v", write.value)
			}
			if !tc.value && write.value != nil {
				t.Fatalf("token input must not send value: %v", write.value)
			}
			if s.Phase() != PhaseConfirming {
				t.Fatalf("phase after submit: %s", s.Phase())
			}
		})
	}
}

func TestSwapApproveThenSwap(t *testing.T) {
	chain := newFakeChain()
	seedPool(chain, 1_000_000, 2_000_000, 500_000)
	chain.allowances[tokenA.Address] = new(big.Int)
	activity := &fakeActivity{}

	s := newTestSwap(chain, activity, testAccount)
	s.SetTokens(tokenA, tokenB)
	s.SetAmount("1000")
	if err := s.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	// a swap attempt while the approval gate is open must be rejected
	if _, err := s.Execute(context.Background()); err == nil {
		t.Fatalf("execute must fail while approval is pending")
	}

	tx, err := s.Approve(context.Background())
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if s.Phase() != PhaseApproving {
		t.Fatalf("phase after approve submit: %s", s.Phase())
	}
	write := chain.lastWrite()
	if write.to != tokenA.Address || write.method != "approve" {
		t.Fatalf("approval write: %s %s", write.to.Hex(), write.method)
	}
	if write.args[1].(*big.Int).Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("approval must cover the exact amount: %v", write.args[1])
	}

	// chain reflects the approval before the receipt lands
	chain.allowances[tokenA.Address] = big.NewInt(1000)
	if err := s.Await(context.Background(), tx); err != nil {
		t.Fatalf("await: %v", err)
	}
	if action := s.Action(); action.Label != "Swap" || !action.Enabled {
		t.Fatalf("gate must advance after approval: %+v", action)
	}

	tx, err = s.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := s.Await(context.Background(), tx); err != nil {
		t.Fatalf("await: %v", err)
	}
	if s.Phase() != PhaseDone {
		t.Fatalf("phase after confirmation: %s", s.Phase())
	}

	// approve submit, approve confirm, swap submit, swap confirm
	if len(activity.records) != 4 {
		t.Fatalf("activity records: %d", len(activity.records))
	}
	last := activity.records[len(activity.records)-1]
	if last.Status != model.TxStatusConfirmed || last.SettledAt == "" {
		t.Fatalf("confirmed swap not settled in activity: %+v", last)
	}
}

func TestSwapRevertFailsAndRecords(t *testing.T) {
	chain := newFakeChain()
	seedPool(chain, 1_000_000, 2_000_000, 500_000)
	chain.allowances[tokenA.Address] = big.NewInt(1_000_000)
	chain.receiptStatus = 0
	activity := &fakeActivity{}

	s := newTestSwap(chain, activity, testAccount)
	s.SetTokens(tokenA, tokenB)
	s.SetAmount("1000")
	if err := s.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	tx, err := s.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := s.Await(context.Background(), tx); err == nil {
		t.Fatalf("reverted swap must surface an error")
	}
	if s.Phase() != PhaseFailed {
		t.Fatalf("phase after revert: %s", s.Phase())
	}
	if s.Err() == "" {
		t.Fatalf("revert must leave a user-visible error")
	}
	last := activity.records[len(activity.records)-1]
	if last.Status != model.TxStatusFailed {
		t.Fatalf("revert not recorded as failed: %+v", last)
	}
}

func TestSwapRaisedAmountReopensApprovalGate(t *testing.T) {
	chain := newFakeChain()
	seedPool(chain, 1_000_000, 2_000_000, 500_000)
	chain.allowances[tokenA.Address] = big.NewInt(1000)

	s := newTestSwap(chain, nil, testAccount)
	s.SetTokens(tokenA, tokenB)
	s.SetAmount("1000")
	if err := s.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if action := s.Action(); action.Label != "Swap" {
		t.Fatalf("covered amount must enable swap: %+v", action)
	}

	s.SetAmount("2000")
	if err := s.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if action := s.Action(); action.Label != "Approve ALPHA" {
		t.Fatalf("raised amount must reopen the approval gate: %+v", action)
	}
}
