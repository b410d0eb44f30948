package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/xaut-perp/internal/position"
	"github.com/rovshanmuradov/xaut-perp/internal/trade"
	"github.com/rovshanmuradov/xaut-perp/internal/types"
	"github.com/rovshanmuradov/xaut-perp/internal/ui/format"
	"github.com/rovshanmuradov/xaut-perp/internal/ui/style"
)

// PositionCard shows the open position and the partial close control.
type PositionCard struct {
	raw          *position.Raw
	price        types.NullFloat
	closePercent int
	busy         bool
	gauge        *PnLGauge
	width        int
}

func NewPositionCard() *PositionCard {
	return &PositionCard{closePercent: trade.DefaultClosePercent, gauge: NewPnLGauge(10)}
}

// SetPosition replaces the raw position. nil means no position.
func (c *PositionCard) SetPosition(raw *position.Raw) { c.raw = raw }

func (c *PositionCard) Position() *position.Raw { return c.raw }

func (c *PositionCard) SetPrice(p types.NullFloat) { c.price = p }

func (c *PositionCard) SetBusy(b bool) { c.busy = b }

func (c *PositionCard) SetWidth(w int) {
	c.width = w
	c.gauge.SetWidth(max(w-24, 4))
}

// Decoded returns the display view of the position.
func (c *PositionCard) Decoded() (position.Decoded, bool) {
	return position.Decode(c.raw, c.price)
}

func (c *PositionCard) ClosePercent() int { return c.closePercent }

// AdjustClosePercent moves the close slider within 1..100.
func (c *PositionCard) AdjustClosePercent(delta int) {
	c.closePercent = trade.ClampClosePercent(c.closePercent + delta)
}

func (c *PositionCard) View() string {
	d, ok := c.Decoded()
	if !ok {
		return ""
	}

	palette := style.DefaultPalette()
	inner := c.width - 4

	sideColor := palette.Long
	if d.Side == position.Short {
		sideColor = palette.Short
	}
	badge := lipgloss.NewStyle().Foreground(sideColor).Bold(true).Render(format.SideBadge(string(d.Side), d.Leverage))
	pnl := lipgloss.NewStyle().Foreground(palette.Signed(d.PnL)).Bold(true).Render(format.PnL(d.PnL))

	c.gauge.SetValue(d.PnLPercent())

	action := "[x] Execute Close"
	if c.busy {
		action = "Closing..."
	}

	rows := []string{
		style.Title().Render("XAUT/USD") + "  " + badge,
		style.Row("Unrealized PnL", pnl, inner),
		c.gauge.View(),
		style.Row("Size", format.Size(d.AbsSize), inner),
		style.Row("Entry", format.USD(d.Entry), inner),
		style.Row("Margin", format.USD(d.MarginUSD), inner),
		"",
		style.Row("Close Position  [ / ]", lipgloss.NewStyle().Bold(true).Render(format.Percent(c.closePercent)), inner),
		lipgloss.NewStyle().Foreground(palette.Short).Render(action),
	}
	return style.Panel(c.width - 2).Render(strings.Join(rows, "\n"))
}
