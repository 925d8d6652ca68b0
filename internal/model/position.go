package model

import "math/big"

// UserPosition is an account's LP holding in one pool plus its derived
// share and proportional underlying amounts. It is a pure projection of
// (balance, pool state) and is recomputed whenever either changes.
type UserPosition struct {
	Pool         Pool
	Liquidity    *big.Int
	Share        float64
	Token0Amount *big.Int
	Token1Amount *big.Int
}
