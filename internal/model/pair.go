package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PairState holds a pair's reserves remapped into the caller's (A, B) token
// order. When Exists is false the pair has not been created and all
// quantities are zero.
type PairState struct {
	Exists      bool
	PairAddress common.Address
	ReserveA    *big.Int
	ReserveB    *big.Int
	TotalSupply *big.Int
}

// EmptyPairState returns the zero-valued state for a missing pair.
func EmptyPairState() PairState {
	return PairState{
		ReserveA:    new(big.Int),
		ReserveB:    new(big.Int),
		TotalSupply: new(big.Int),
	}
}

// Pool is a pair's full on-chain snapshot in canonical token0/token1 order.
type Pool struct {
	Address     common.Address
	Token0      Token
	Token1      Token
	Reserve0    *big.Int
	Reserve1    *big.Int
	TotalSupply *big.Int
}
