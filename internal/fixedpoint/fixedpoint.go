// Package fixedpoint converts between human decimal values and the
// 18-decimal integers the perp contract stores.
package fixedpoint

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the scale of every on-chain quantity the market exposes.
const Decimals int32 = 18

// ErrInvalidNumeric is returned when text or a float cannot be expressed as a fixed-point integer.
var ErrInvalidNumeric = errors.New("invalid numeric value")

// Parse scales a decimal string by 10^decimals, truncating digits beyond the scale.
func Parse(text string, decimals int32) (*big.Int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidNumeric)
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumeric, text)
	}

	return d.Shift(decimals).Truncate(0).BigInt(), nil
}

// ParseUnsigned is Parse for quantities the contract declares as uint256.
func ParseUnsigned(text string, decimals int32) (*big.Int, error) {
	v, err := Parse(text, decimals)
	if err != nil {
		return nil, err
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidNumeric, text)
	}
	return v, nil
}

// FromFloat converts a non-negative float using its shortest decimal representation.
func FromFloat(v float64, decimals int32) (*big.Int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNumeric, v)
	}
	if v < 0 {
		return nil, fmt.Errorf("%w: %v is negative", ErrInvalidNumeric, v)
	}
	return decimal.NewFromFloat(v).Shift(decimals).Truncate(0).BigInt(), nil
}

// ToFloat converts a fixed-point integer to float64 for display math.
// A nil input converts to 0.
func ToFloat(v *big.Int, decimals int32) float64 {
	if v == nil {
		return 0
	}
	f, _ := decimal.NewFromBigInt(v, -decimals).Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Format renders the exact decimal value of v. Parse(Format(v)) == v.
func Format(v *big.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -decimals).String()
}

// ParseDecimal is the lenient parse used by input fields: anything that is
// not a finite number reads as zero.
func ParseDecimal(text string) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Abs returns |v| as a new integer. A nil input yields zero.
func Abs(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Abs(v)
}
