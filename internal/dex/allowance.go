package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapEngine/internal/model"
)

type allowanceKey struct {
	token   common.Address
	owner   common.Address
	spender common.Address
}

// Tracker tracks spender allowances for the connected account. Reads go
// through Refresh; NeedsApproval consults only the cached value, so an
// allowance that has not been fetched yet reports false rather than
// prompting for an approval that may not be needed.
type Tracker struct {
	caller   ContractCaller
	logger   *zap.Logger
	attempts int
	backoff  time.Duration

	mu    sync.RWMutex
	cache map[allowanceKey]*big.Int
}

// NewTracker builds a Tracker. attempts and backoff bound the post-approval
// refresh loop.
func NewTracker(caller ContractCaller, attempts int, backoff time.Duration, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if attempts <= 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Tracker{
		caller:   caller,
		logger:   logger,
		attempts: attempts,
		backoff:  backoff,
		cache:    make(map[allowanceKey]*big.Int),
	}
}

// Refresh reads the current on-chain allowance and caches it.
func (t *Tracker) Refresh(ctx context.Context, token model.Token, owner, spender common.Address) (*big.Int, error) {
	if token.IsNative() {
		return nil, fmt.Errorf("native coin has no allowance")
	}

	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := t.caller.ReadContract(ctx, token.Address, parsed, "allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("read allowance: %w", err)
	}
	allowance, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("allowance value: %w", err)
	}

	t.mu.Lock()
	t.cache[allowanceKey{token.Address, owner, spender}] = allowance
	t.mu.Unlock()

	return allowance, nil
}

// Allowance returns the last observed allowance, if any.
func (t *Tracker) Allowance(token model.Token, owner, spender common.Address) (*big.Int, bool) {
	t.mu.RLock()
	allowance, ok := t.cache[allowanceKey{token.Address, owner, spender}]
	t.mu.RUnlock()
	return allowance, ok
}

// NeedsApproval reports whether the owner must approve the spender for the
// target amount. Native tokens never need approval; an unknown (not yet
// fetched) allowance reports false so the caller does not flash a spurious
// approval prompt.
func (t *Tracker) NeedsApproval(token model.Token, owner, spender common.Address, target *big.Int) bool {
	if token.IsNative() {
		return false
	}
	if target == nil || target.Sign() <= 0 {
		return false
	}
	allowance, ok := t.Allowance(token, owner, spender)
	if !ok {
		return false
	}
	return allowance.Cmp(target) < 0
}

// AwaitApproval re-reads the allowance after an approval confirmed, retrying
// with doubling delay while the RPC still returns the stale pre-approval
// value. On exhaustion it returns the last observed value; the caller keeps
// going rather than waiting forever on a lagging node.
func (t *Tracker) AwaitApproval(ctx context.Context, token model.Token, owner, spender common.Address, target *big.Int) *big.Int {
	delay := t.backoff
	var last *big.Int

	for attempt := 0; attempt < t.attempts; attempt++ {
		allowance, err := t.Refresh(ctx, token, owner, spender)
		if err == nil {
			last = allowance
			if target == nil || allowance.Cmp(target) >= 0 {
				return allowance
			}
		} else {
			t.logger.Warn("allowance refresh failed",
				zap.String("token", token.Address.Hex()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last
		case <-timer.C:
		}
		delay *= 2
	}

	t.logger.Warn("allowance still stale after retries",
		zap.String("token", token.Address.Hex()),
		zap.Int("attempts", t.attempts),
	)
	return last
}
