package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapEngine/internal/model"
)

// Registry enumerates the factory's pools and resolves their token
// descriptors. Token metadata is immutable on-chain, so it is cached for
// the registry's lifetime; reserves and supply are re-read on every call.
type Registry struct {
	caller  ContractCaller
	factory common.Address
	logger  *zap.Logger

	mu     sync.Mutex
	tokens map[common.Address]model.Token
}

// NewRegistry builds a Registry against the given factory.
func NewRegistry(caller ContractCaller, factory common.Address, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		caller:  caller,
		factory: factory,
		logger:  logger,
		tokens:  make(map[common.Address]model.Token),
	}
}

// Pools walks allPairs and returns every pool with fresh reserves and
// supply. A pool whose reads fail is skipped with a warning rather than
// failing the whole enumeration.
func (r *Registry) Pools(ctx context.Context) ([]model.Pool, error) {
	factoryParsed, err := FactoryABI()
	if err != nil {
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}

	values, err := r.caller.ReadContract(ctx, r.factory, factoryParsed, "allPairsLength")
	if err != nil {
		return nil, fmt.Errorf("pairs length: %w", err)
	}
	length, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("pairs length: %w", err)
	}

	count := length.Int64()
	pools := make([]model.Pool, 0, count)
	for i := int64(0); i < count; i++ {
		values, err := r.caller.ReadContract(ctx, r.factory, factoryParsed, "allPairs", big.NewInt(i))
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
		pairAddress, err := asAddress(values[0])
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}

		pool, err := r.Pool(ctx, pairAddress)
		if err != nil {
			r.logger.Warn("skipping unreadable pool",
				zap.String("pair", pairAddress.Hex()), zap.Error(err))
			continue
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

// Pool reads a single pair's tokens, reserves and supply.
func (r *Registry) Pool(ctx context.Context, pair common.Address) (model.Pool, error) {
	pairParsed, err := PairABI()
	if err != nil {
		return model.Pool{}, fmt.Errorf("parse pair abi: %w", err)
	}

	values, err := r.caller.ReadContract(ctx, pair, pairParsed, "token0")
	if err != nil {
		return model.Pool{}, fmt.Errorf("token0: %w", err)
	}
	token0Addr, err := asAddress(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("token0: %w", err)
	}

	values, err = r.caller.ReadContract(ctx, pair, pairParsed, "token1")
	if err != nil {
		return model.Pool{}, fmt.Errorf("token1: %w", err)
	}
	token1Addr, err := asAddress(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("token1: %w", err)
	}

	values, err = r.caller.ReadContract(ctx, pair, pairParsed, "getReserves")
	if err != nil {
		return model.Pool{}, fmt.Errorf("get reserves: %w", err)
	}
	if len(values) < 2 {
		return model.Pool{}, fmt.Errorf("get reserves: short response")
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return model.Pool{}, fmt.Errorf("reserve1: %w", err)
	}

	values, err = r.caller.ReadContract(ctx, pair, pairParsed, "totalSupply")
	if err != nil {
		return model.Pool{}, fmt.Errorf("total supply: %w", err)
	}
	totalSupply, err := asBigInt(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("total supply: %w", err)
	}

	token0, err := r.tokenMeta(ctx, token0Addr)
	if err != nil {
		return model.Pool{}, err
	}
	token1, err := r.tokenMeta(ctx, token1Addr)
	if err != nil {
		return model.Pool{}, err
	}

	return model.Pool{
		Address:     pair,
		Token0:      token0,
		Token1:      token1,
		Reserve0:    reserve0,
		Reserve1:    reserve1,
		TotalSupply: totalSupply,
	}, nil
}

func (r *Registry) tokenMeta(ctx context.Context, token common.Address) (model.Token, error) {
	r.mu.Lock()
	cached, ok := r.tokens[token]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	meta, err := FetchTokenMeta(ctx, r.caller, token, r.logger)
	if err != nil {
		return model.Token{}, fmt.Errorf("token meta %s: %w", token.Hex(), err)
	}

	r.mu.Lock()
	r.tokens[token] = meta
	r.mu.Unlock()
	return meta, nil
}
