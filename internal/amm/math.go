// Package amm implements constant-product pool math on unsigned integer
// quantities. All functions are pure, never mutate their arguments, and
// return zero on degenerate input (zero amounts or reserves) so callers can
// treat a zero result as "no quote available".
package amm

import "math/big"

var (
	feeMul     = big.NewInt(997)
	feeDen     = big.NewInt(1000)
	bpsDen     = big.NewInt(10000)
	feeRateNum = big.NewInt(3)
	one        = big.NewInt(1)
	two        = big.NewInt(2)
)

// MinimumLiquidity is the pair contract's permanently locked first-deposit
// liquidity.
var MinimumLiquidity = big.NewInt(1000)

// GetAmountOut returns the output amount for an exact input swap, applying
// the 0.3% fee. The division truncates, matching the pair contract's own
// integer arithmetic exactly.
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	if sign(amountIn) <= 0 || sign(reserveIn) <= 0 || sign(reserveOut) <= 0 {
		return new(big.Int)
	}

	amountInWithFee := new(big.Int).Mul(amountIn, feeMul)
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, feeDen)
	denominator.Add(denominator, amountInWithFee)

	return numerator.Quo(numerator, denominator)
}

// GetAmountIn returns the input amount required to receive an exact output,
// rounded up so the computed input is never insufficient under the
// contract's truncation. Returns zero when amountOut would drain the pool.
func GetAmountIn(amountOut, reserveIn, reserveOut *big.Int) *big.Int {
	if sign(amountOut) <= 0 || sign(reserveIn) <= 0 || sign(reserveOut) <= 0 {
		return new(big.Int)
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return new(big.Int)
	}

	numerator := new(big.Int).Mul(reserveIn, amountOut)
	numerator.Mul(numerator, feeDen)
	denominator := new(big.Int).Sub(reserveOut, amountOut)
	denominator.Mul(denominator, feeMul)

	amountIn := new(big.Int).Quo(numerator, denominator)
	return amountIn.Add(amountIn, one)
}

// Quote returns the paired amount for a deposit against existing reserves.
// No fee applies; this is a proportional rule, not a trade.
func Quote(amountA, reserveA, reserveB *big.Int) *big.Int {
	if sign(amountA) <= 0 || sign(reserveA) <= 0 || sign(reserveB) <= 0 {
		return new(big.Int)
	}
	amountB := new(big.Int).Mul(amountA, reserveB)
	return amountB.Quo(amountB, reserveA)
}

// PriceImpact returns the percentage deviation of the execution price from
// the pre-trade spot price, clamped to be non-negative.
func PriceImpact(amountIn, amountOut, reserveIn, reserveOut *big.Int) float64 {
	if sign(amountIn) <= 0 || sign(reserveIn) <= 0 || sign(reserveOut) <= 0 {
		return 0
	}

	spot := ratFloat(reserveOut, reserveIn)
	execution := ratFloat(amountOut, amountIn)
	if spot == 0 {
		return 0
	}

	impact := (spot - execution) / spot * 100
	if impact < 0 {
		return 0
	}
	return impact
}

// MinimumReceived applies the slippage tolerance to an output amount,
// rounding down.
func MinimumReceived(amountOut *big.Int, slippageBps int64) *big.Int {
	if sign(amountOut) <= 0 || slippageBps < 0 || slippageBps > 10000 {
		return new(big.Int)
	}
	minOut := new(big.Int).Mul(amountOut, big.NewInt(10000-slippageBps))
	return minOut.Quo(minOut, bpsDen)
}

// MaximumSent applies the slippage tolerance to an input amount, rounding
// down on the inflated value.
func MaximumSent(amountIn *big.Int, slippageBps int64) *big.Int {
	if sign(amountIn) <= 0 || slippageBps < 0 {
		return new(big.Int)
	}
	maxIn := new(big.Int).Mul(amountIn, big.NewInt(10000+slippageBps))
	return maxIn.Quo(maxIn, bpsDen)
}

// SwapFee returns the 0.3% fee charged on the input amount.
func SwapFee(amountIn *big.Int) *big.Int {
	if sign(amountIn) <= 0 {
		return new(big.Int)
	}
	fee := new(big.Int).Mul(amountIn, feeRateNum)
	return fee.Quo(fee, feeDen)
}

// PoolShare returns liquidity as a percentage of total supply.
func PoolShare(liquidity, totalSupply *big.Int) float64 {
	if sign(liquidity) <= 0 || sign(totalSupply) <= 0 {
		return 0
	}
	return ratFloat(liquidity, totalSupply) * 100
}

// Sqrt returns the integer square root of n using Newton's method. Using
// integer arithmetic keeps first-deposit liquidity estimates bit-exact with
// the pair contract for arbitrarily large products, where a float sqrt can
// diverge at the margin.
func Sqrt(n *big.Int) *big.Int {
	if sign(n) <= 0 {
		return new(big.Int)
	}
	if n.Cmp(two) <= 0 {
		return big.NewInt(1)
	}

	guess := new(big.Int).Rsh(n, uint(n.BitLen()/2))
	if guess.Sign() == 0 {
		guess.SetInt64(1)
	}
	next := new(big.Int)
	for {
		next.Quo(n, guess)
		next.Add(next, guess)
		next.Rsh(next, 1)
		if next.Cmp(guess) >= 0 {
			return guess
		}
		guess, next = next, guess
	}
}

// MintLiquidity estimates the LP tokens minted for a deposit. A first
// deposit mints sqrt(amountA*amountB) less the locked minimum; subsequent
// deposits are bounded by the scarcer side of the reserve ratio.
func MintLiquidity(amountA, amountB, reserveA, reserveB, totalSupply *big.Int) *big.Int {
	if sign(amountA) <= 0 || sign(amountB) <= 0 {
		return new(big.Int)
	}

	if sign(totalSupply) <= 0 {
		product := new(big.Int).Mul(amountA, amountB)
		liquidity := Sqrt(product)
		liquidity.Sub(liquidity, MinimumLiquidity)
		if liquidity.Sign() < 0 {
			return new(big.Int)
		}
		return liquidity
	}

	if sign(reserveA) <= 0 || sign(reserveB) <= 0 {
		return new(big.Int)
	}

	liquidityA := new(big.Int).Mul(amountA, totalSupply)
	liquidityA.Quo(liquidityA, reserveA)
	liquidityB := new(big.Int).Mul(amountB, totalSupply)
	liquidityB.Quo(liquidityB, reserveB)

	if liquidityA.Cmp(liquidityB) < 0 {
		return liquidityA
	}
	return liquidityB
}

// BurnAmounts returns the underlying token amounts redeemed for burning
// liquidity against the current pool state.
func BurnAmounts(liquidity, reserve0, reserve1, totalSupply *big.Int) (*big.Int, *big.Int) {
	if sign(liquidity) <= 0 || sign(totalSupply) <= 0 {
		return new(big.Int), new(big.Int)
	}

	amount0 := new(big.Int).Mul(liquidity, zeroIfNil(reserve0))
	amount0.Quo(amount0, totalSupply)
	amount1 := new(big.Int).Mul(liquidity, zeroIfNil(reserve1))
	amount1.Quo(amount1, totalSupply)
	return amount0, amount1
}

// PercentOf returns value*percent/100, truncated.
func PercentOf(value *big.Int, percent int64) *big.Int {
	if sign(value) <= 0 || percent <= 0 {
		return new(big.Int)
	}
	if percent > 100 {
		percent = 100
	}
	part := new(big.Int).Mul(value, big.NewInt(percent))
	return part.Quo(part, big.NewInt(100))
}

func sign(v *big.Int) int {
	if v == nil {
		return -1
	}
	return v.Sign()
}

func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func ratFloat(num, den *big.Int) float64 {
	if sign(den) <= 0 {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(zeroIfNil(num), den).Float64()
	return f
}
