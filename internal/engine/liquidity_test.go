package engine

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/model"
)

func newTestAddLiquidity(chain *fakeChain, activity Activity, account common.Address) *AddLiquidity {
	return NewAddLiquidity(chain, testOracle(chain), testTracker(chain), activity, testContracts(), testSettings(), account, nil)
}

func TestAddLiquidityDerivesCounterpart(t *testing.T) {
	chain := newFakeChain()
	seedPool(chain, 1_000_000, 2_000_000, 500_000)

	a := newTestAddLiquidity(chain, nil, testAccount)
	a.SetTokens(tokenA, tokenB)
	if err := a.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	a.SetAmount(FieldA, "100")
	amountA, amountB := a.Amounts()
	if amountA.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("active amount overwritten: %s", amountA)
	}
	if amountB.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("counterpart must follow the 1:2 reserve ratio: %s", amountB)
	}

	// editing the other side flips authority: A is now derived from B
	a.SetAmount(FieldB, "1000")
	amountA, amountB = a.Amounts()
	if amountB.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("active amount overwritten: %s", amountB)
	}
	if amountA.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("counterpart must follow the reverse ratio: %s", amountA)
	}

	// clearing the active side clears the derived side too
	a.SetAmount(FieldB, "")
	amountA, amountB = a.Amounts()
	if amountA.Sign() != 0 || amountB.Sign() != 0 {
		t.Fatalf("cleared input must clear both sides: %s / %s", amountA, amountB)
	}
}

func TestAddLiquidityNewPool(t *testing.T) {
	chain := newFakeChain()
	// no pair deployed: the deposit creates the pool

	a := newTestAddLiquidity(chain, nil, testAccount)
	a.SetTokens(tokenA, tokenB)
	if err := a.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if !a.NewPool() {
		t.Fatalf("missing pair must flag a new pool")
	}

	// both sides stay independent; the entered ratio is the initial price
	a.SetAmount(FieldA, "1000000")
	amountA, amountB := a.Amounts()
	if amountB.Sign() != 0 {
		t.Fatalf("new pool must not derive the counterpart: %s", amountB)
	}
	if a.Quote() != nil {
		t.Fatalf("one-sided deposit must not quote")
	}

	a.SetAmount(FieldB, "4000000")
	amountA, amountB = a.Amounts()
	if amountA.Cmp(big.NewInt(1_000_000)) != 0 || amountB.Cmp(big.NewInt(4_000_000)) != 0 {
		t.Fatalf("amounts: %s / %s", amountA, amountB)
	}

	quote := a.Quote()
	if quote == nil {
		t.Fatalf("expected a quote")
	}
	if !quote.NewPool {
		t.Fatalf("quote must carry the new-pool flag")
	}
	// sqrt(1e6 * 4e6) = 2e6, less the locked minimum
	if quote.Liquidity.Cmp(big.NewInt(1_999_000)) != 0 {
		t.Fatalf("first-deposit liquidity: got %s, want 1999000", quote.Liquidity)
	}
	if quote.ShareOfPool != 100 {
		t.Fatalf("first deposit owns the pool: %f", quote.ShareOfPool)
	}
}

func TestAddLiquidityPerTokenApprovalGates(t *testing.T) {
	chain := newFakeChain()
	seedPool(chain, 1_000_000, 2_000_000, 500_000)
	chain.allowances[tokenA.Address] = new(big.Int)
	chain.allowances[tokenB.Address] = new(big.Int)

	a := newTestAddLiquidity(chain, nil, testAccount)
	a.SetTokens(tokenA, tokenB)
	if err := a.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	a.SetAmount(FieldA, "100")
	if err := a.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	if action := a.Action(); action.Label != "Approve ALPHA" || action.Kind != ActionApprove {
		t.Fatalf("token A gates first: %+v", action)
	}

	tx, err := a.Approve(context.Background())
	if err != nil {
		t.Fatalf("approve A: %v", err)
	}
	if write := chain.lastWrite(); write.to != tokenA.Address {
		t.Fatalf("first approval must target token A: %s", write.to.Hex())
	}
	chain.allowances[tokenA.Address] = big.NewInt(100)
	if err := a.Await(context.Background(), tx); err != nil {
		t.Fatalf("await A: %v", err)
	}

	if action := a.Action(); action.Label != "Approve BETA" {
		t.Fatalf("token B gates next: %+v", action)
	}

	tx, err = a.Approve(context.Background())
	if err != nil {
		t.Fatalf("approve B: %v", err)
	}
	if write := chain.lastWrite(); write.to != tokenB.Address {
		t.Fatalf("second approval must target token B: %s", write.to.Hex())
	}
	chain.allowances[tokenB.Address] = big.NewInt(200)
	if err := a.Await(context.Background(), tx); err != nil {
		t.Fatalf("await B: %v", err)
	}

	if action := a.Action(); action.Label != "Add liquidity" || !action.Enabled {
		t.Fatalf("both approvals done must enable submit: %+v", action)
	}
}

func TestAddLiquidityExecute(t *testing.T) {
	chain := newFakeChain()
	seedPool(chain, 1_000_000, 2_000_000, 500_000)
	chain.allowances[tokenA.Address] = big.NewInt(1_000_000)
	chain.allowances[tokenB.Address] = big.NewInt(1_000_000)

	a := newTestAddLiquidity(chain, nil, testAccount)
	a.SetTokens(tokenA, tokenB)
	if err := a.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	a.SetAmount(FieldA, "100")

	tx, err := a.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if tx.Kind != model.TxKindAddLiquidity {
		t.Fatalf("tx kind: %s", tx.Kind)
	}

	write := chain.lastWrite()
	if write.to != testRouter || write.method != "addLiquidity" {
		t.Fatalf("write: %s %s", write.to.Hex(), write.method)
	}
	if write.value != nil {
		t.Fatalf("token-token deposit must not send value: %v", write.value)
	}
	if write.args[2].(*big.Int).Cmp(big.NewInt(100)) != 0 || write.args[3].(*big.Int).Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("desired amounts: %v / %v", write.args[2], write.args[3])
	}

	if err := a.Await(context.Background(), tx); err != nil {
		t.Fatalf("await: %v", err)
	}
	if a.Phase() != PhaseDone {
		t.Fatalf("phase after confirmation: %s", a.Phase())
	}
}

func TestAddLiquidityExecuteNativeSide(t *testing.T) {
	chain := newFakeChain()
	chain.pairAddress = testPair
	chain.pools[testPair] = &fakePool{
		token0:      testWrapped,
		token1:      tokenB.Address,
		reserve0:    big.NewInt(1_000_000),
		reserve1:    big.NewInt(2_000_000),
		totalSupply: big.NewInt(500_000),
		balance:     new(big.Int),
	}
	chain.allowances[tokenB.Address] = big.NewInt(1_000_000)

	a := newTestAddLiquidity(chain, nil, testAccount)
	a.SetTokens(tokenNative, tokenB)
	if err := a.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	a.SetAmount(FieldA, "100")

	tx, err := a.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	write := chain.lastWrite()
	if write.method != "addLiquidityETH" {
		t.Fatalf("native side must use addLiquidityETH: %s", write.method)
	}
	if write.value == nil || write.value.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("native amount must ride as call value: %v", write.value)
	}
	if write.args[0].(common.Address) != tokenB.Address {
		t.Fatalf("token argument must be the ERC20 side: %v", write.args[0])
	}

	if err := a.Await(context.Background(), tx); err != nil {
		t.Fatalf("await: %v", err)
	}
}
