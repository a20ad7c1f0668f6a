package types

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

const etherDecimals = 18

// ParseEther converts a decimal ether amount, e.g. "0.01", to wei
func ParseEther(s string) (sdkmath.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("invalid ether amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("ether amount cannot be negative: %s", s)
	}

	wei := d.Shift(etherDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return sdkmath.Int{}, fmt.Errorf("ether amount %s has more than %d decimals", s, etherDecimals)
	}

	return sdkmath.NewIntFromBigInt(wei.BigInt()), nil
}

// FormatEther renders a wei amount in ether
func FormatEther(wei sdkmath.Int) string {
	if wei.IsNil() {
		return "0"
	}

	return decimal.NewFromBigInt(wei.BigInt(), -etherDecimals).String()
}

// EtherFloat64 converts a wei amount to an approximate ether value, for gauges
func EtherFloat64(wei sdkmath.Int) float64 {
	if wei.IsNil() {
		return 0
	}

	return decimal.NewFromBigInt(wei.BigInt(), -etherDecimals).InexactFloat64()
}
