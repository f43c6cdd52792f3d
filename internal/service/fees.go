package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// feePrecision is the number of decimal places fee quotes are rounded to,
// small enough to stay representable in every supported asset.
const feePrecision = 6

// FeeService computes fee-inclusive funding quotes from a basis-point rate.
type FeeService struct {
	bps decimal.Decimal
}

// NewFeeService creates a fee service charging bps basis points.
func NewFeeService(bps int) *FeeService {
	return &FeeService{bps: decimal.NewFromInt(int64(bps))}
}

// Quote returns the fee and fee-inclusive total for a funding amount, both
// rounded to six decimal places.
func (f *FeeService) Quote(amount string) (fee, total string, err error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", "", fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if !d.IsPositive() {
		return "", "", fmt.Errorf("amount must be positive, got %q", amount)
	}

	feeD := d.Mul(f.bps).Div(decimal.NewFromInt(10000)).Round(feePrecision)
	totalD := d.Add(feeD).Round(feePrecision)

	return feeD.String(), totalD.String(), nil
}
