package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/xaut-perp/internal/monitor"
	"github.com/rovshanmuradov/xaut-perp/internal/ui/format"
	"github.com/rovshanmuradov/xaut-perp/internal/ui/style"
)

// MarketHeader shows symbol, price, 24h change and market cap, plus the
// connection status on the right.
type MarketHeader struct {
	symbol   string
	snapshot monitor.Snapshot
	account  string
	width    int
}

func NewMarketHeader(symbol string) *MarketHeader {
	return &MarketHeader{symbol: symbol}
}

func (h *MarketHeader) SetSnapshot(s monitor.Snapshot) { h.snapshot = s }

// SetAccount sets the status text shown on the right, such as a short address.
func (h *MarketHeader) SetAccount(account string) { h.account = account }

func (h *MarketHeader) SetWidth(w int) { h.width = w }

func (h *MarketHeader) View() string {
	palette := style.DefaultPalette()
	s := h.snapshot

	price := style.Muted().Render(format.Placeholder)
	if s.Price.Positive() {
		price = lipgloss.NewStyle().Foreground(palette.Text).Bold(true).Render(format.Price(s.Price))
	}

	change := lipgloss.NewStyle().
		Foreground(palette.Signed(s.PriceChange24h.Or(0))).
		Render(format.ChangeBadge(s.PriceChange24h) + " 24h")

	left := strings.Join([]string{
		style.Title().Render(h.symbol),
		price,
		change,
		style.Muted().Render("FDV ") + format.MarketCap(s.MarketCapUSD),
	}, "   ")

	right := style.Muted().Render(h.account)
	gap := h.width - 4 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	return style.Panel(h.width - 2).Render(left + strings.Repeat(" ", gap) + right)
}

// MarketStats shows the price, change and market cap rows of the stats panel.
type MarketStats struct {
	snapshot monitor.Snapshot
	width    int
}

func NewMarketStats() *MarketStats { return &MarketStats{} }

func (m *MarketStats) SetSnapshot(s monitor.Snapshot) { m.snapshot = s }

func (m *MarketStats) SetWidth(w int) { m.width = w }

func (m *MarketStats) View() string {
	palette := style.DefaultPalette()
	s := m.snapshot
	inner := m.width - 4

	change := lipgloss.NewStyle().
		Foreground(palette.Signed(s.PriceChange24h.Or(0))).
		Render(format.ChangeArrow(s.PriceChange24h))

	updated := format.Placeholder
	if s.Loaded() {
		updated = s.FetchedAt.Format("15:04:05")
	}

	rows := []string{
		style.Title().Render("Market"),
		style.Row("Price", format.Price(s.Price), inner),
		style.Row("24h Change", change, inner),
		style.Row("Market Cap", format.MarketCap(s.MarketCapUSD), inner),
		style.Row("Updated", updated, inner),
	}
	return style.Panel(m.width - 2).Render(strings.Join(rows, "\n"))
}
