package assets

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrInexactAmount reports a human-readable amount that cannot be represented
// as an integer number of atomic units at the asset's precision.
var ErrInexactAmount = fmt.Errorf("amount not representable at asset precision")

// ToAtomic converts a human-readable decimal amount to atomic units.
// The conversion must be exact: "1.5" at 9 decimals yields 1500000000,
// while "0.0000000005" at 9 decimals is an error rather than a truncation.
func ToAtomic(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.Sign() <= 0 {
		return nil, fmt.Errorf("amount %q must be positive", amount)
	}

	shifted := d.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("%q at %d decimals: %w", amount, decimals, ErrInexactAmount)
	}
	return shifted.BigInt(), nil
}

// FromAtomic converts atomic units back to a human-readable decimal string.
func FromAtomic(atomic *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(atomic, -decimals).String()
}

// ParseAtomic parses a base-10 atomic amount string as carried on the ledger.
func ParseAtomic(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid atomic amount %q", s)
	}
	return v, nil
}
