package trade

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/xaut-perp/internal/fixedpoint"
	"github.com/rovshanmuradov/xaut-perp/internal/position"
)

// sizePrecision is the number of decimal places the size is rounded to
// before scaling into sizeDelta.
const sizePrecision = 6

// OpenOrder carries the openPosition arguments. MarginDelta is also the
// native value attached to the transaction.
type OpenOrder struct {
	IsLong      bool
	SizeDelta   *big.Int
	MarginDelta *big.Int
}

// Value is the payable amount for the transaction; always equal to MarginDelta.
func (o OpenOrder) Value() *big.Int {
	return o.MarginDelta
}

// Side returns the direction the order opens.
func (o OpenOrder) Side() position.Side {
	if o.IsLong {
		return position.Long
	}
	return position.Short
}

// CloseOrder carries the closePosition argument.
type CloseOrder struct {
	CloseSizeDelta *big.Int
	Percent        int
}

// BuildOpen converts a sized ticket into contract arguments.
func BuildOpen(isLong bool, t Ticket) (OpenOrder, error) {
	marginDelta, err := fixedpoint.ParseUnsigned(t.MarginText, fixedpoint.Decimals)
	if err != nil {
		return OpenOrder{}, fmt.Errorf("margin: %w", err)
	}

	if math.IsNaN(t.Size) || math.IsInf(t.Size, 0) || t.Size < 0 {
		return OpenOrder{}, fmt.Errorf("size: %w: %v", fixedpoint.ErrInvalidNumeric, t.Size)
	}
	sizeDelta := decimal.NewFromFloat(t.Size).
		Round(sizePrecision).
		Shift(fixedpoint.Decimals).
		BigInt()

	if sizeDelta.Sign() == 0 || marginDelta.Sign() == 0 {
		return OpenOrder{}, ErrEmptyOrder
	}

	return OpenOrder{
		IsLong:      isLong,
		SizeDelta:   sizeDelta,
		MarginDelta: marginDelta,
	}, nil
}

// BuildClose computes |size| * percent / 100 in integer arithmetic so that
// 100 percent closes exactly the full position.
func BuildClose(raw *position.Raw, percent int) (CloseOrder, error) {
	if !raw.Open() {
		return CloseOrder{}, ErrNoPosition
	}
	if percent < MinClosePercent || percent > MaxClosePercent {
		return CloseOrder{}, fmt.Errorf("%w: %d", ErrClosePercentOutOfRange, percent)
	}

	closeSize := raw.AbsSize()
	closeSize.Mul(closeSize, big.NewInt(int64(percent)))
	closeSize.Quo(closeSize, big.NewInt(100))

	return CloseOrder{CloseSizeDelta: closeSize, Percent: percent}, nil
}
