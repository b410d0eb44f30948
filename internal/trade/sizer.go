// Package trade sizes orders from ticket inputs and assembles the
// fixed-point arguments for openPosition and closePosition.
package trade

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/xaut-perp/internal/fixedpoint"
	"github.com/rovshanmuradov/xaut-perp/internal/types"
)

const (
	MinLeverage     = 1
	MaxLeverage     = 10
	DefaultLeverage = 3

	MinClosePercent     = 1
	MaxClosePercent     = 100
	DefaultClosePercent = 100

	// FeeRate is the display-only protocol fee shown on the ticket.
	FeeRate = 0.001
)

var (
	ErrLeverageOutOfRange     = errors.New("leverage out of range")
	ErrClosePercentOutOfRange = errors.New("close percent out of range")
	ErrNoPosition             = errors.New("no open position")
	ErrEmptyOrder             = errors.New("order has zero size or margin")
)

// Ticket is the sized form of the trading panel inputs.
type Ticket struct {
	MarginText string
	Margin     float64 // USD collateral
	Leverage   int
	Notional   float64 // USD exposure
	Size       float64 // XAUT
}

// Fee is the display fee on the notional.
func (t Ticket) Fee() float64 {
	return t.Notional * FeeRate
}

// Quote derives size and notional from the margin text at the given price.
// Unparseable margin reads as zero. Size is zero until a positive price is known.
func Quote(marginText string, leverage int, price types.NullFloat) (Ticket, error) {
	if leverage < MinLeverage || leverage > MaxLeverage {
		return Ticket{}, fmt.Errorf("%w: %d not in [%d, %d]", ErrLeverageOutOfRange, leverage, MinLeverage, MaxLeverage)
	}

	margin := fixedpoint.ParseDecimal(marginText)
	t := Ticket{
		MarginText: marginText,
		Margin:     margin,
		Leverage:   leverage,
		Notional:   margin * float64(leverage),
	}
	if price.Positive() {
		t.Size = t.Notional / price.Float64
	}
	return t, nil
}

// CanTrade gates the long/short buttons.
func CanTrade(connected bool, t Ticket, price types.NullFloat) bool {
	return connected && t.Margin > 0 && price.Positive()
}

// ClampLeverage pins a slider value into the allowed leverage range.
func ClampLeverage(v int) int {
	return clamp(v, MinLeverage, MaxLeverage)
}

// ClampClosePercent pins a slider value into [1, 100].
func ClampClosePercent(v int) int {
	return clamp(v, MinClosePercent, MaxClosePercent)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
