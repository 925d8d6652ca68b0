package model

import "math/big"

// SwapQuote is a derived swap valuation. It is recomputed from current
// inputs and reserves on every change and never persisted.
type SwapQuote struct {
	AmountIn        *big.Int
	AmountOut       *big.Int
	PriceImpact     float64
	MinimumReceived *big.Int
	Fee             *big.Int
}

// AddLiquidityQuote is a derived deposit valuation. NewPool marks a first
// deposit, where the entered ratio sets the initial price.
type AddLiquidityQuote struct {
	AmountA     *big.Int
	AmountB     *big.Int
	MinAmountA  *big.Int
	MinAmountB  *big.Int
	Liquidity   *big.Int
	ShareOfPool float64
	NewPool     bool
}

// RemoveLiquidityQuote is a derived withdrawal valuation for burning a
// portion of an LP position.
type RemoveLiquidityQuote struct {
	Liquidity  *big.Int
	Amount0    *big.Int
	Amount1    *big.Int
	MinAmount0 *big.Int
	MinAmount1 *big.Int
}
