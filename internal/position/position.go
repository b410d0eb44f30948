// Package position decodes the signed on-chain position record into the
// display values shown on the position card.
package position

import (
	"math/big"

	"github.com/rovshanmuradov/xaut-perp/internal/fixedpoint"
	"github.com/rovshanmuradov/xaut-perp/internal/types"
)

// Side is the direction of an open position.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Sign returns +1 for long and -1 for short.
func (s Side) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

// Raw mirrors positions(address) on the perp contract. Size is signed:
// positive is long, negative is short, zero means no position. All three
// fields are 18-decimal fixed-point integers.
type Raw struct {
	Size       *big.Int
	EntryPrice *big.Int
	Margin     *big.Int
}

// Open reports whether the record holds a position. It looks at the raw
// integer so that dust sizes are never mistaken for "no position".
func (r *Raw) Open() bool {
	return r != nil && r.Size != nil && r.Size.Sign() != 0
}

// AbsSize returns |Size| as a new integer.
func (r *Raw) AbsSize() *big.Int {
	if r == nil {
		return new(big.Int)
	}
	return fixedpoint.Abs(r.Size)
}

// Decoded is the human-readable view of an open position.
type Decoded struct {
	Side      Side
	AbsSize   float64 // XAUT
	Entry     float64 // USD
	MarginUSD float64
	PnL       float64 // USD, gross of funding and fees
	Leverage  float64 // live effective leverage at the current price
}

// Decode converts raw into display values at the given market price.
// It returns false when there is no open position.
func Decode(raw *Raw, price types.NullFloat) (Decoded, bool) {
	if !raw.Open() {
		return Decoded{}, false
	}

	d := Decoded{
		Side:      Long,
		AbsSize:   fixedpoint.ToFloat(raw.AbsSize(), fixedpoint.Decimals),
		Entry:     fixedpoint.ToFloat(raw.EntryPrice, fixedpoint.Decimals),
		MarginUSD: fixedpoint.ToFloat(raw.Margin, fixedpoint.Decimals),
	}
	if raw.Size.Sign() < 0 {
		d.Side = Short
	}

	if price.Valid {
		d.PnL = (price.Float64 - d.Entry) * d.AbsSize * d.Side.Sign()
		if d.MarginUSD > 0 {
			d.Leverage = d.AbsSize * price.Float64 / d.MarginUSD
		}
	}

	return d, true
}

// Notional is the position value at price.
func (d Decoded) Notional(price float64) float64 {
	return d.AbsSize * price
}

// PnLPercent is PnL relative to posted margin.
func (d Decoded) PnLPercent() float64 {
	if d.MarginUSD <= 0 {
		return 0
	}
	return d.PnL / d.MarginUSD * 100
}
