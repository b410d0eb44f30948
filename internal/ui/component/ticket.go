package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/xaut-perp/internal/trade"
	"github.com/rovshanmuradov/xaut-perp/internal/types"
	"github.com/rovshanmuradov/xaut-perp/internal/ui/format"
	"github.com/rovshanmuradov/xaut-perp/internal/ui/style"
)

// TradeTicket holds the margin input and leverage selection and shows the
// derived size, notional and cost.
type TradeTicket struct {
	margin    textinput.Model
	leverage  int
	price     types.NullFloat
	connected bool
	busy      bool
	width     int
}

func NewTradeTicket() *TradeTicket {
	in := textinput.New()
	in.Placeholder = "0.0"
	in.Prompt = ""
	in.CharLimit = 24
	in.Focus()

	return &TradeTicket{margin: in, leverage: trade.DefaultLeverage}
}

func (t *TradeTicket) SetPrice(p types.NullFloat) { t.price = p }

func (t *TradeTicket) SetConnected(c bool) { t.connected = c }

func (t *TradeTicket) SetBusy(b bool) { t.busy = b }

func (t *TradeTicket) SetWidth(w int) {
	t.width = w
	t.margin.Width = max(w-16, 8)
}

// MarginText is the raw margin input.
func (t *TradeTicket) MarginText() string { return t.margin.Value() }

func (t *TradeTicket) SetMarginText(s string) { t.margin.SetValue(s) }

func (t *TradeTicket) Leverage() int { return t.leverage }

// AdjustLeverage moves the leverage by delta within the allowed range.
func (t *TradeTicket) AdjustLeverage(delta int) {
	t.leverage = trade.ClampLeverage(t.leverage + delta)
}

// Ticket sizes the current input. The leverage is always in range.
func (t *TradeTicket) Ticket() trade.Ticket {
	ticket, _ := trade.Quote(t.margin.Value(), t.leverage, t.price)
	return ticket
}

// CanTrade reports whether long and short are enabled.
func (t *TradeTicket) CanTrade() bool {
	return !t.busy && trade.CanTrade(t.connected, t.Ticket(), t.price)
}

// Update feeds numeric key presses to the margin input. Other keys are ignored
// so they remain free for dashboard shortcuts.
func (t *TradeTicket) Update(msg tea.KeyMsg) tea.Cmd {
	if !acceptsMarginKey(msg) {
		return nil
	}
	var cmd tea.Cmd
	t.margin, cmd = t.margin.Update(msg)
	return cmd
}

func acceptsMarginKey(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyBackspace, tea.KeyDelete, tea.KeyLeft, tea.KeyRight, tea.KeyHome, tea.KeyEnd:
		return true
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if (r < '0' || r > '9') && r != '.' {
				return false
			}
		}
		return len(msg.Runes) > 0
	default:
		return false
	}
}

func (t *TradeTicket) View() string {
	palette := style.DefaultPalette()
	inner := t.width - 4
	ticket := t.Ticket()

	leverageBar := t.leverageBar()

	rows := []string{
		style.Title().Render("Trade"),
		style.Row("Leverage", leverageBar, inner),
		style.Row("Margin (MNT)", t.margin.View(), inner),
		"",
		style.Row("Position Size", format.Size(ticket.Size), inner),
		style.Row("Notional Value", format.USD(ticket.Notional), inner),
		style.Row("Fees", "0.1%", inner),
		style.Row("Total Cost", lipgloss.NewStyle().Bold(true).Render(format.TotalCost(t.margin.Value())), inner),
		"",
	}

	longStyle := lipgloss.NewStyle().Padding(0, 3).Bold(true)
	shortStyle := longStyle
	if t.CanTrade() {
		longStyle = longStyle.Background(palette.Long).Foreground(palette.Background)
		shortStyle = shortStyle.Background(palette.Short).Foreground(palette.Background)
	} else {
		longStyle = longStyle.Foreground(palette.TextMuted)
		shortStyle = shortStyle.Foreground(palette.TextMuted)
	}
	rows = append(rows, longStyle.Render("[L] Long")+"  "+shortStyle.Render("[S] Short"))

	switch {
	case !t.connected:
		rows = append(rows, style.Muted().Render("Connect wallet to trade"))
	case t.busy:
		rows = append(rows, lipgloss.NewStyle().Foreground(palette.Warning).Render("Submitting..."))
	}

	return style.Panel(t.width - 2).Render(strings.Join(rows, "\n"))
}

func (t *TradeTicket) leverageBar() string {
	palette := style.DefaultPalette()
	var b strings.Builder
	for i := trade.MinLeverage; i <= trade.MaxLeverage; i++ {
		if i <= t.leverage {
			b.WriteString(lipgloss.NewStyle().Foreground(palette.Primary).Render("■"))
		} else {
			b.WriteString(style.Muted().Render("□"))
		}
	}
	return b.String() + " " + lipgloss.NewStyle().Bold(true).Render(format.Leverage(t.leverage))
}
