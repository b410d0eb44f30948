// Package format renders market and position values as display text.
package format

import (
	"fmt"
	"math"

	"github.com/rovshanmuradov/xaut-perp/internal/types"
)

// Placeholder is shown for values that have not loaded yet.
const Placeholder = "..."

// Price renders "$2650.45" or the placeholder.
func Price(p types.NullFloat) string {
	if !p.Positive() {
		return Placeholder
	}
	return fmt.Sprintf("$%.2f", p.Float64)
}

// ChangeBadge renders a signed 24h change for the header. Unset reads "0.00%".
func ChangeBadge(c types.NullFloat) string {
	if !c.Valid || c.Float64 == 0 {
		return "0.00%"
	}
	sign := ""
	if c.Float64 > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, c.Float64)
}

// ChangeArrow renders "↑ 0.52%" for the stats panel or the placeholder.
func ChangeArrow(c types.NullFloat) string {
	if !c.Valid || c.Float64 == 0 {
		return Placeholder
	}
	arrow := "↑"
	if c.Float64 < 0 {
		arrow = "↓"
	}
	return fmt.Sprintf("%s %.2f%%", arrow, math.Abs(c.Float64))
}

// MarketCap renders market cap in millions, "$512.3M".
func MarketCap(m types.NullFloat) string {
	if !m.Positive() {
		return Placeholder
	}
	return fmt.Sprintf("$%.1fM", m.Float64/1e6)
}

// Size renders an XAUT amount with four decimals.
func Size(v float64) string {
	return fmt.Sprintf("%.4f XAUT", v)
}

// USD renders a dollar amount with two decimals.
func USD(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// PnL renders "+12.34 USD" or "-5.00 USD".
func PnL(v float64) string {
	sign := ""
	if v >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f USD", sign, v)
}

// SideBadge renders "LONG 3.0x".
func SideBadge(side string, leverage float64) string {
	return fmt.Sprintf("%s %.1fx", side, leverage)
}

// TotalCost echoes the margin text in the native token.
func TotalCost(marginText string) string {
	return marginText + " MNT"
}

// Leverage renders the selected leverage, "3x".
func Leverage(l int) string {
	return fmt.Sprintf("%dx", l)
}

// Percent renders an integer percentage.
func Percent(p int) string {
	return fmt.Sprintf("%d%%", p)
}
