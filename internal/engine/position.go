package engine

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapEngine/internal/amm"
	"swapEngine/internal/dex"
	"swapEngine/internal/model"
)

// Positions projects the account's LP holdings across all factory pools:
// balance, pool share and the proportional underlying amounts. Everything
// here is derived; Refresh rebuilds the whole view from chain reads.
type Positions struct {
	registry *dex.Registry
	oracle   *dex.Oracle
	account  common.Address
	logger   *zap.Logger

	positions []model.UserPosition
}

// NewPositions builds a Positions view for one account.
func NewPositions(registry *dex.Registry, oracle *dex.Oracle, account common.Address, logger *zap.Logger) *Positions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Positions{
		registry: registry,
		oracle:   oracle,
		account:  account,
		logger:   logger,
	}
}

// Refresh re-reads every pool and the account's LP balance in each,
// keeping only pools with a non-zero holding, largest share first.
func (p *Positions) Refresh(ctx context.Context) error {
	if p.account == (common.Address{}) {
		p.positions = nil
		return nil
	}

	pools, err := p.registry.Pools(ctx)
	if err != nil {
		return fmt.Errorf("enumerate pools: %w", err)
	}

	positions := make([]model.UserPosition, 0, len(pools))
	for _, pool := range pools {
		balance, err := p.oracle.LPBalance(ctx, pool.Address, p.account)
		if err != nil {
			p.logger.Warn("lp balance read failed",
				zap.String("pair", pool.Address.Hex()), zap.Error(err))
			continue
		}
		if balance.Sign() <= 0 {
			continue
		}
		positions = append(positions, buildPosition(pool, balance))
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Share > positions[j].Share
	})
	p.positions = positions

	p.logger.Debug("positions refreshed",
		zap.String("account", p.account.Hex()),
		zap.Int("pools", len(pools)),
		zap.Int("held", len(positions)),
	)
	return nil
}

func buildPosition(pool model.Pool, balance *big.Int) model.UserPosition {
	amount0, amount1 := amm.BurnAmounts(balance, pool.Reserve0, pool.Reserve1, pool.TotalSupply)
	return model.UserPosition{
		Pool:         pool,
		Liquidity:    balance,
		Share:        amm.PoolShare(balance, pool.TotalSupply),
		Token0Amount: amount0,
		Token1Amount: amount1,
	}
}

// List returns the current positions, largest share first.
func (p *Positions) List() []model.UserPosition {
	return p.positions
}

// Find returns the position for a pair, nil when the account holds none.
func (p *Positions) Find(pair common.Address) *model.UserPosition {
	for i := range p.positions {
		if p.positions[i].Pool.Address == pair {
			return &p.positions[i]
		}
	}
	return nil
}
