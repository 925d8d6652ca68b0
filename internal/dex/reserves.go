package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapEngine/internal/model"
)

// Oracle resolves a token pair's on-chain reserves and LP supply, remapped
// into the caller's requested token order.
type Oracle struct {
	caller        ContractCaller
	factory       common.Address
	wrappedNative common.Address
	logger        *zap.Logger
}

// NewOracle builds an Oracle against the given factory.
func NewOracle(caller ContractCaller, factory, wrappedNative common.Address, logger *zap.Logger) *Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{
		caller:        caller,
		factory:       factory,
		wrappedNative: wrappedNative,
		logger:        logger,
	}
}

// EffectiveAddress maps the native-coin sentinel to the wrapped token; the
// sentinel itself is never sent on-chain.
func (o *Oracle) EffectiveAddress(token model.Token) common.Address {
	if token.IsNative() {
		return o.wrappedNative
	}
	return token.Address
}

// Resolve looks up the pair for (tokenA, tokenB) and returns its state with
// reserves assigned to the caller's order. A missing pair yields Exists=false
// and zero quantities; that is "pool to be created", not "empty pool".
func (o *Oracle) Resolve(ctx context.Context, tokenA, tokenB model.Token) (model.PairState, error) {
	factoryABI, err := FactoryABI()
	if err != nil {
		return model.EmptyPairState(), fmt.Errorf("parse factory abi: %w", err)
	}
	pairParsed, err := PairABI()
	if err != nil {
		return model.EmptyPairState(), fmt.Errorf("parse pair abi: %w", err)
	}

	addrA := o.EffectiveAddress(tokenA)
	addrB := o.EffectiveAddress(tokenB)

	values, err := o.caller.ReadContract(ctx, o.factory, factoryABI, "getPair", addrA, addrB)
	if err != nil {
		return model.EmptyPairState(), fmt.Errorf("get pair: %w", err)
	}
	pairAddress, err := asAddress(values[0])
	if err != nil {
		return model.EmptyPairState(), fmt.Errorf("pair address: %w", err)
	}

	if pairAddress == (common.Address{}) {
		return model.EmptyPairState(), nil
	}

	values, err = o.caller.ReadContract(ctx, pairAddress, pairParsed, "getReserves")
	if err != nil {
		return model.EmptyPairState(), fmt.Errorf("get reserves: %w", err)
	}
	if len(values) < 2 {
		return model.EmptyPairState(), fmt.Errorf("get reserves: short response")
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return model.EmptyPairState(), fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return model.EmptyPairState(), fmt.Errorf("reserve1: %w", err)
	}

	values, err = o.caller.ReadContract(ctx, pairAddress, pairParsed, "totalSupply")
	if err != nil {
		return model.EmptyPairState(), fmt.Errorf("total supply: %w", err)
	}
	totalSupply, err := asBigInt(values[0])
	if err != nil {
		return model.EmptyPairState(), fmt.Errorf("total supply: %w", err)
	}

	values, err = o.caller.ReadContract(ctx, pairAddress, pairParsed, "token0")
	if err != nil {
		return model.EmptyPairState(), fmt.Errorf("token0: %w", err)
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.EmptyPairState(), fmt.Errorf("token0: %w", err)
	}

	state := model.PairState{
		Exists:      true,
		PairAddress: pairAddress,
		TotalSupply: totalSupply,
	}

	// The pair stores reserves in its own token0/token1 order; remap by
	// comparing the caller's first token against token0.
	if strings.EqualFold(addrA.Hex(), token0.Hex()) {
		state.ReserveA = reserve0
		state.ReserveB = reserve1
	} else {
		state.ReserveA = reserve1
		state.ReserveB = reserve0
	}

	o.logger.Debug("pair resolved",
		zap.String("pair", pairAddress.Hex()),
		zap.String("reserve_a", state.ReserveA.String()),
		zap.String("reserve_b", state.ReserveB.String()),
		zap.String("total_supply", state.TotalSupply.String()),
	)

	return state, nil
}

// LPBalance returns the owner's LP-token balance in a pair.
func (o *Oracle) LPBalance(ctx context.Context, pair, owner common.Address) (*big.Int, error) {
	pairParsed, err := PairABI()
	if err != nil {
		return nil, fmt.Errorf("parse pair abi: %w", err)
	}
	values, err := o.caller.ReadContract(ctx, pair, pairParsed, "balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("lp balance: %w", err)
	}
	return asBigInt(values[0])
}
