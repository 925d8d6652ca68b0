package dex

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/model"
)

var (
	owner   = common.HexToAddress("0x5555555555555555555555555555555555555555")
	spender = common.HexToAddress("0x6666666666666666666666666666666666666666")
)

func TestNeedsApprovalBeforeFetch(t *testing.T) {
	caller := &fakeCaller{allowance: big.NewInt(0)}
	tracker := NewTracker(caller, 2, time.Millisecond, nil)

	// allowance not yet fetched: must not prompt for approval
	if tracker.NeedsApproval(tokenLow, owner, spender, big.NewInt(100)) {
		t.Fatalf("unknown allowance must report false")
	}
}

func TestNeedsApprovalAfterFetch(t *testing.T) {
	caller := &fakeCaller{allowance: big.NewInt(50)}
	tracker := NewTracker(caller, 2, time.Millisecond, nil)

	if _, err := tracker.Refresh(context.Background(), tokenLow, owner, spender); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if !tracker.NeedsApproval(tokenLow, owner, spender, big.NewInt(100)) {
		t.Fatalf("allowance 50 < target 100 must need approval")
	}
	if tracker.NeedsApproval(tokenLow, owner, spender, big.NewInt(50)) {
		t.Fatalf("allowance 50 >= target 50 must not need approval")
	}
	if tracker.NeedsApproval(tokenLow, owner, spender, big.NewInt(0)) {
		t.Fatalf("zero target must not need approval")
	}
	if tracker.NeedsApproval(tokenLow, owner, spender, nil) {
		t.Fatalf("nil target must not need approval")
	}
}

func TestNeedsApprovalNative(t *testing.T) {
	native := model.Token{Address: model.NativeAddress, Symbol: "MON", Decimals: 18}
	tracker := NewTracker(&fakeCaller{}, 2, time.Millisecond, nil)

	if tracker.NeedsApproval(native, owner, spender, big.NewInt(1)) {
		t.Fatalf("native coin never needs approval")
	}
}

func TestRefreshNativeRejected(t *testing.T) {
	native := model.Token{Address: model.NativeAddress, Symbol: "MON", Decimals: 18}
	tracker := NewTracker(&fakeCaller{}, 2, time.Millisecond, nil)

	if _, err := tracker.Refresh(context.Background(), native, owner, spender); err == nil {
		t.Fatalf("refreshing a native allowance must error")
	}
}

type staleThenFreshCaller struct {
	fakeCaller
	staleReads int
	reads      int
	fresh      *big.Int
}

func (c *staleThenFreshCaller) ReadContract(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	if method == "allowance" {
		c.reads++
		if c.reads > c.staleReads {
			return []interface{}{c.fresh}, nil
		}
		return []interface{}{new(big.Int)}, nil
	}
	return c.fakeCaller.ReadContract(ctx, to, parsed, method, args...)
}

func TestAwaitApprovalRetriesUntilFresh(t *testing.T) {
	// the first two reads lag behind the confirmed approval
	caller := &staleThenFreshCaller{staleReads: 2, fresh: big.NewInt(1_000)}
	tracker := NewTracker(caller, 4, time.Millisecond, nil)

	got := tracker.AwaitApproval(context.Background(), tokenLow, owner, spender, big.NewInt(1_000))
	if got == nil || got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("await must observe the fresh allowance, got %v", got)
	}
	if tracker.NeedsApproval(tokenLow, owner, spender, big.NewInt(1_000)) {
		t.Fatalf("approval gate must clear once fresh value lands")
	}
}

func TestAwaitApprovalBounded(t *testing.T) {
	caller := &fakeCaller{allowance: big.NewInt(10)}
	tracker := NewTracker(caller, 3, time.Millisecond, nil)

	start := time.Now()
	got := tracker.AwaitApproval(context.Background(), tokenLow, owner, spender, big.NewInt(1_000))
	if got == nil || got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("exhausted await must return last observed value, got %v", got)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("await must stay bounded")
	}
}
