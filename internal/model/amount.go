package model

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseAmount converts a decimal string into the token's smallest unit.
// Returns an error for malformed input or more fractional digits than the
// token carries.
func ParseAmount(input string, decimals uint8) (*big.Int, error) {
	input = strings.TrimSpace(strings.ReplaceAll(input, ",", ""))
	if input == "" || input == "." {
		return nil, fmt.Errorf("empty amount")
	}

	parts := strings.SplitN(input, ".", 2)
	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount has more than %d decimal places", decimals)
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	value, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", input)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return value, nil
}

// FormatAmount renders a smallest-unit value as a decimal string, trimming
// trailing fractional zeros.
func FormatAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	text := value.String()
	if decimals == 0 {
		return text
	}
	if len(text) <= int(decimals) {
		text = strings.Repeat("0", int(decimals)-len(text)+1) + text
	}
	split := len(text) - int(decimals)
	whole, frac := text[:split], text[split:]
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
