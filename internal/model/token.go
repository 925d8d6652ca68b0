package model

import "github.com/ethereum/go-ethereum/common"

// NativeAddress is the sentinel address standing in for the chain's native
// coin. It is never sent to a contract; callers must map it to the wrapped
// token before any ERC20 or pair interaction.
var NativeAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Token is an immutable token descriptor.
type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Decimals uint8          `json:"decimals"`
	LogoURI  string         `json:"logo_uri,omitempty"`
}

// IsNative reports whether the token is the chain's native coin.
func (t Token) IsNative() bool {
	return t.Address == NativeAddress
}

// Equal reports whether two tokens refer to the same contract.
func (t Token) Equal(other Token) bool {
	return t.Address == other.Address
}

// IsZero reports whether the token is unset.
func (t Token) IsZero() bool {
	return t.Address == (common.Address{}) && t.Symbol == ""
}
