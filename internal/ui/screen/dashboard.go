// Package screen holds the full-screen views of the terminal app.
package screen

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/xaut-perp/internal/logger"
	"github.com/rovshanmuradov/xaut-perp/internal/monitor"
	"github.com/rovshanmuradov/xaut-perp/internal/position"
	"github.com/rovshanmuradov/xaut-perp/internal/pricefeed"
	"github.com/rovshanmuradov/xaut-perp/internal/trade"
	"github.com/rovshanmuradov/xaut-perp/internal/trading"
	"github.com/rovshanmuradov/xaut-perp/internal/types"
	"github.com/rovshanmuradov/xaut-perp/internal/ui"
	"github.com/rovshanmuradov/xaut-perp/internal/ui/component"
	"github.com/rovshanmuradov/xaut-perp/internal/ui/style"
)

const logRefreshInterval = 500 * time.Millisecond

// Trader submits orders and reads the position. *trading.Service satisfies it.
type Trader interface {
	Open(ctx context.Context, isLong bool, ticket trade.Ticket, price types.NullFloat) trading.Result
	Close(ctx context.Context, raw *position.Raw, percent int, price types.NullFloat) trading.Result
	LoadPosition(ctx context.Context) (*position.Raw, error)
	Busy() bool
	Connected() bool
}

// MarketFeed is the poller as seen from the dashboard. *monitor.Poller satisfies it.
type MarketFeed interface {
	SetTimeframe(tf pricefeed.Timeframe)
	Refresh(ctx context.Context) error
}

// Options configures a Dashboard.
type Options struct {
	Symbol    string
	Account   string // short address or "read-only"
	Timeframe pricefeed.Timeframe
	Logs      *logger.LogBuffer // optional
}

// Dashboard is the single trading screen: market header, chart, stats,
// trade ticket and the position card.
type Dashboard struct {
	ctx    context.Context
	trader Trader
	feed   MarketFeed
	logger *zap.Logger
	keyMap ui.KeyMap

	width    int
	height   int
	showHelp bool

	snapshot   monitor.Snapshot
	submitting bool

	header  *component.MarketHeader
	stats   *component.MarketStats
	chart   *component.PriceChart
	ticket  *component.TradeTicket
	card    *component.PositionCard
	toasts  *component.Toasts
	helpBar *component.HelpBar
	logs    *component.LogPane
}

// NewDashboard builds the screen. ctx bounds background commands.
func NewDashboard(ctx context.Context, trader Trader, feed MarketFeed, opts Options, zapLogger *zap.Logger) *Dashboard {
	if opts.Timeframe == "" {
		opts.Timeframe = pricefeed.DefaultTimeframe
	}

	d := &Dashboard{
		ctx:     ctx,
		trader:  trader,
		feed:    feed,
		logger:  zapLogger.Named("dashboard"),
		keyMap:  ui.DefaultKeyMap(),
		width:   100,
		height:  30,
		header:  component.NewMarketHeader(opts.Symbol),
		stats:   component.NewMarketStats(),
		chart:   component.NewPriceChart(opts.Timeframe),
		ticket:  component.NewTradeTicket(),
		card:    component.NewPositionCard(),
		toasts:  &component.Toasts{},
		helpBar: component.NewHelpBar(),
	}
	if opts.Logs != nil {
		d.logs = component.NewLogPane(opts.Logs)
	}

	d.header.SetAccount(opts.Account)
	d.ticket.SetConnected(trader.Connected())
	d.layout()
	return d
}

func (d *Dashboard) Init() tea.Cmd {
	cmds := []tea.Cmd{d.loadPosition()}
	if d.logs != nil {
		cmds = append(cmds, ui.TickLogs(logRefreshInterval))
	}
	return tea.Batch(cmds...)
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
		d.layout()
		return d, nil

	case ui.SnapshotMsg:
		d.applySnapshot(msg.Snapshot)
		return d, nil

	case ui.PositionMsg:
		// A failed read is shown as no position; the service already logged it.
		d.card.SetPosition(msg.Raw)
		return d, nil

	case ui.SubmissionMsg:
		return d, d.finishSubmission(msg.Result)

	case ui.ToastExpiredMsg:
		d.toasts.Expire(msg.ID)
		return d, nil

	case ui.LogTickMsg:
		if d.logs == nil {
			return d, nil
		}
		if d.logs.Visible() {
			d.logs.Refresh()
		}
		return d, ui.TickLogs(logRefreshInterval)

	case tea.KeyMsg:
		return d, d.handleKey(msg)
	}

	return d, nil
}

func (d *Dashboard) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, d.keyMap.Quit):
		return tea.Quit
	case key.Matches(msg, d.keyMap.Help):
		d.showHelp = !d.showHelp
		d.layout()
	case key.Matches(msg, d.keyMap.Long):
		return d.open(true)
	case key.Matches(msg, d.keyMap.Short):
		return d.open(false)
	case key.Matches(msg, d.keyMap.LevUp):
		d.ticket.AdjustLeverage(1)
	case key.Matches(msg, d.keyMap.LevDown):
		d.ticket.AdjustLeverage(-1)
	case key.Matches(msg, d.keyMap.CloseUp):
		d.card.AdjustClosePercent(closeStep(d.card.ClosePercent(), 1))
	case key.Matches(msg, d.keyMap.CloseDn):
		d.card.AdjustClosePercent(closeStep(d.card.ClosePercent(), -1))
	case key.Matches(msg, d.keyMap.ClosePos):
		return d.close()
	case key.Matches(msg, d.keyMap.Timeframe):
		d.selectTimeframe(d.chart.Selected().Next())
	case key.Matches(msg, d.keyMap.Refresh):
		return tea.Batch(d.refreshMarket(), d.loadPosition())
	case key.Matches(msg, d.keyMap.ToggleLogs):
		if d.logs != nil {
			d.logs.Toggle()
			d.logs.Refresh()
			d.layout()
		}
	case key.Matches(msg, d.keyMap.LogsUp):
		if d.logs != nil {
			d.logs.ScrollUp()
		}
	case key.Matches(msg, d.keyMap.LogsDown):
		if d.logs != nil {
			d.logs.ScrollDown()
		}
	default:
		return d.ticket.Update(msg)
	}
	return nil
}

// closeStep moves the slider in steps of 5 while keeping 1 reachable.
func closeStep(current, dir int) int {
	if dir < 0 && current <= 5 {
		return -1
	}
	if dir > 0 && current < 5 {
		return 5 - current
	}
	return dir * 5
}

func (d *Dashboard) applySnapshot(s monitor.Snapshot) {
	d.snapshot = s
	d.header.SetSnapshot(s)
	d.stats.SetSnapshot(s)
	d.chart.SetSnapshot(s)
	d.ticket.SetPrice(s.Price)
	d.card.SetPrice(s.Price)
}

func (d *Dashboard) selectTimeframe(tf pricefeed.Timeframe) {
	d.chart.Select(tf)
	d.feed.SetTimeframe(tf)
	d.logger.Debug("Timeframe selected", zap.String("timeframe", string(tf)))
}

// setSubmitting drives the one gate shared by open and close, so neither
// starts while the other is in flight.
func (d *Dashboard) setSubmitting(b bool) {
	d.submitting = b
	d.ticket.SetBusy(b)
	d.card.SetBusy(b)
}

func (d *Dashboard) open(isLong bool) tea.Cmd {
	if d.submitting || d.trader.Busy() || !d.ticket.CanTrade() {
		return nil
	}
	d.setSubmitting(true)

	ticket := d.ticket.Ticket()
	price := d.snapshot.Price
	ctx := d.ctx
	return func() tea.Msg {
		return ui.SubmissionMsg{Result: d.trader.Open(ctx, isLong, ticket, price)}
	}
}

func (d *Dashboard) close() tea.Cmd {
	raw := d.card.Position()
	if d.submitting || d.trader.Busy() || !raw.Open() {
		return nil
	}
	d.setSubmitting(true)

	percent := d.card.ClosePercent()
	price := d.snapshot.Price
	ctx := d.ctx
	return func() tea.Msg {
		return ui.SubmissionMsg{Result: d.trader.Close(ctx, raw, percent, price)}
	}
}

func (d *Dashboard) finishSubmission(r trading.Result) tea.Cmd {
	d.setSubmitting(false)

	// ErrBusy means another submission owns the gate and will report itself.
	if errors.Is(r.Err, trading.ErrBusy) {
		return nil
	}

	// Without a reload the card keeps what it shows.
	if r.Reloaded {
		d.card.SetPosition(r.Position)
	}
	id := d.toasts.Push(r.Notice, r.Success())
	return ui.ExpireToast(id, component.ToastDuration)
}

func (d *Dashboard) loadPosition() tea.Cmd {
	ctx := d.ctx
	return func() tea.Msg {
		raw, err := d.trader.LoadPosition(ctx)
		return ui.PositionMsg{Raw: raw, Err: err}
	}
}

func (d *Dashboard) refreshMarket() tea.Cmd {
	ctx := d.ctx
	return func() tea.Msg {
		// The poller publishes the snapshot itself and logs failures.
		_ = d.feed.Refresh(ctx)
		return nil
	}
}

func (d *Dashboard) layout() {
	d.header.SetWidth(d.width)

	left := style.AdaptiveWidth(d.width, 60)
	right := d.width - left
	if d.width < style.NarrowWidth {
		right = d.width
	}
	d.chart.SetWidth(left)
	d.stats.SetWidth(left)
	d.ticket.SetWidth(right)
	d.card.SetWidth(right)

	d.helpBar.SetWidth(d.width)
	d.helpBar.SetKeyBindings(d.keyMap.ContextualHelp(d.card.Position().Open()))

	if d.logs != nil {
		d.logs.SetSize(d.width, max(d.height/4, 6))
	}
}

func (d *Dashboard) View() string {
	d.helpBar.SetKeyBindings(d.keyMap.ContextualHelp(d.card.Position().Open()))

	leftCol := lipgloss.JoinVertical(lipgloss.Left, d.chart.View(), d.stats.View())

	rightParts := []string{d.ticket.View()}
	if card := d.card.View(); card != "" {
		rightParts = append(rightParts, card)
	}
	rightCol := lipgloss.JoinVertical(lipgloss.Left, rightParts...)

	sections := []string{
		d.header.View(),
		style.AdaptiveJoinHorizontal(d.width, leftCol, rightCol),
	}
	if toast := d.toasts.View(); toast != "" {
		sections = append(sections, toast)
	}
	if d.logs != nil && d.logs.Visible() {
		sections = append(sections, d.logs.View())
	}
	if d.showHelp {
		sections = append(sections, d.fullHelp())
	}
	sections = append(sections, d.helpBar.View())

	return strings.Join(sections, "\n")
}

func (d *Dashboard) fullHelp() string {
	var rows []string
	for _, group := range d.keyMap.FullHelp() {
		var items []string
		for _, b := range group {
			h := b.Help()
			items = append(items, lipgloss.NewStyle().Bold(true).Render(h.Key)+" "+h.Desc)
		}
		rows = append(rows, strings.Join(items, "   "))
	}
	return style.Panel(d.width - 2).Render(strings.Join(rows, "\n"))
}
