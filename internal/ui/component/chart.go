package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/xaut-perp/internal/monitor"
	"github.com/rovshanmuradov/xaut-perp/internal/pricefeed"
	"github.com/rovshanmuradov/xaut-perp/internal/ui/format"
	"github.com/rovshanmuradov/xaut-perp/internal/ui/style"
)

// PriceChart shows the timeframe selector and a sparkline of candle closes.
type PriceChart struct {
	selected  pricefeed.Timeframe
	snapshot  monitor.Snapshot
	sparkline *Sparkline
	width     int
}

func NewPriceChart(tf pricefeed.Timeframe) *PriceChart {
	return &PriceChart{selected: tf, sparkline: NewSparkline(40)}
}

// Select marks tf as the active timeframe. The chart keeps showing the
// previous candles until a snapshot for tf arrives.
func (c *PriceChart) Select(tf pricefeed.Timeframe) { c.selected = tf }

func (c *PriceChart) Selected() pricefeed.Timeframe { return c.selected }

func (c *PriceChart) SetSnapshot(s monitor.Snapshot) {
	c.snapshot = s
	c.sparkline.SetData(s.Closes())
}

func (c *PriceChart) SetWidth(w int) {
	c.width = w
	c.sparkline.SetWidth(max(w-4, 1))
}

func (c *PriceChart) View() string {
	palette := style.DefaultPalette()

	tabs := make([]string, 0, len(pricefeed.Timeframes))
	for _, tf := range pricefeed.Timeframes {
		if tf == c.selected {
			tabs = append(tabs, lipgloss.NewStyle().Foreground(palette.Background).
				Background(palette.Primary).Bold(true).Render(" "+string(tf)+" "))
			continue
		}
		tabs = append(tabs, style.Muted().Render(" "+string(tf)+" "))
	}

	rows := []string{
		style.Title().Render("XAUT/USD") + "  " + strings.Join(tabs, ""),
		c.sparkline.View(),
		c.rangeLine(),
	}
	return style.Panel(c.width - 2).Render(strings.Join(rows, "\n"))
}

func (c *PriceChart) rangeLine() string {
	candles := c.snapshot.Candles
	if len(candles) == 0 {
		return style.Muted().Render("Loading chart " + format.Placeholder)
	}

	lo, hi := candles[0].Low, candles[0].High
	for _, k := range candles[1:] {
		lo = min(lo, k.Low)
		hi = max(hi, k.High)
	}

	move := c.sparkline.ChangePercent()
	moveText := lipgloss.NewStyle().Foreground(style.DefaultPalette().Signed(move)).
		Render(fmt.Sprintf("%+.2f%%", move))

	stale := ""
	if c.snapshot.Timeframe != c.selected {
		stale = style.Muted().Render("  (updating)")
	}

	return style.Muted().Render(fmt.Sprintf("L %s  H %s  %d candles  ", format.USD(lo), format.USD(hi), len(candles))) +
		moveText + stale
}
