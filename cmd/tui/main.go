package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/xaut-perp/internal/blockchain/evm"
	"github.com/rovshanmuradov/xaut-perp/internal/config"
	"github.com/rovshanmuradov/xaut-perp/internal/journal"
	"github.com/rovshanmuradov/xaut-perp/internal/logger"
	"github.com/rovshanmuradov/xaut-perp/internal/metrics"
	"github.com/rovshanmuradov/xaut-perp/internal/monitor"
	"github.com/rovshanmuradov/xaut-perp/internal/pricefeed"
	"github.com/rovshanmuradov/xaut-perp/internal/trading"
	"github.com/rovshanmuradov/xaut-perp/internal/ui"
	"github.com/rovshanmuradov/xaut-perp/internal/ui/screen"
	"github.com/rovshanmuradov/xaut-perp/internal/wallet"
)

// AppModel hosts the dashboard and keeps listening to the worker bus.
type AppModel struct {
	dashboard *screen.Dashboard
	bus       <-chan tea.Msg
	width     int
	height    int
}

func NewAppModel(dashboard *screen.Dashboard, bus <-chan tea.Msg) *AppModel {
	return &AppModel{dashboard: dashboard, bus: bus}
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.dashboard.Init(),
		ui.ListenBus(m.bus),
	)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case ui.SnapshotMsg:
		// Only the poller publishes on the bus; re-arm for the next snapshot.
		cmds = append(cmds, ui.ListenBus(m.bus))
	}

	_, cmd := m.dashboard.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	return m.dashboard.View()
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file (empty for env only)")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logBuffer := logger.NewLogBuffer(500)
	appLogger, err := logger.CreateTUILogger(cfg.DebugLogging, logBuffer, cfg.LogFileConfig())
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync(appLogger)

	appLogger.Info("Starting XAUT perp terminal",
		zap.String("rpc", cfg.RPCURL),
		zap.String("contract", cfg.PerpAddress))

	collector := metrics.NewCollector()
	if cfg.MetricsAddr != "" {
		srv := collector.Serve(cfg.MetricsAddr, appLogger)
		defer srv.Close()
	}

	session, err := wallet.OpenSession(cfg.WalletFile, cfg.WalletName, cfg.WatchAddress, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open wallet session", zap.Error(err))
	}

	perp, err := evm.Dial(rootCtx, evm.Config{
		RPCURL:      cfg.RPCURL,
		ChainID:     cfg.ChainID,
		Address:     cfg.PerpAddress,
		ReadRetries: uint(cfg.ReadRetries),
		ReadTimeout: cfg.ReadTimeout(),
	}, appLogger, collector)
	if err != nil {
		appLogger.Fatal("Failed to connect to perp contract", zap.Error(err))
	}
	defer perp.Close()

	tradeJournal, err := journal.Open(cfg.JournalDir, 0, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open trade journal", zap.Error(err))
	}
	defer func() {
		stats := tradeJournal.Statistics()
		appLogger.Info("Session journal",
			zap.String("path", tradeJournal.Path()),
			zap.Int("orders", stats.TotalOrders),
			zap.Int("successful", stats.SuccessfulOrders))
		if err := tradeJournal.Close(); err != nil {
			appLogger.Warn("Failed to close trade journal", zap.Error(err))
		}
	}()

	service := trading.NewService(perp, session, tradeJournal, collector, appLogger)

	sender := ui.NewUpdateSender(ui.DefaultBusSize, appLogger)
	defer sender.Close()

	feed := pricefeed.NewClient(appLogger,
		pricefeed.WithBaseURL(cfg.PriceAPIURL),
		pricefeed.WithAssetID(cfg.AssetID),
		pricefeed.WithRateLimit(cfg.PriceRPS, 2),
	)
	poller := monitor.NewPoller(feed, monitor.PollerConfig{
		Interval:       cfg.PollInterval(),
		RequestTimeout: cfg.ReadTimeout(),
		Timeframe:      cfg.Timeframe(),
	}, appLogger, collector, sender.PublishSnapshot)

	go func() {
		if err := poller.Run(rootCtx); err != nil && rootCtx.Err() == nil {
			appLogger.Error("Market poller stopped", zap.Error(err))
		}
	}()

	account := "read-only"
	if addr, ok := session.Account(); ok {
		account = wallet.ShortAddress(addr)
		if !session.Connected() {
			account += " (watch)"
		}
	}

	createUI := func() (tea.Model, []tea.ProgramOption) {
		dashboard := screen.NewDashboard(rootCtx, service, poller, screen.Options{
			Symbol:    cfg.MarketSymbol,
			Account:   account,
			Timeframe: poller.Timeframe(),
			Logs:      logBuffer,
		}, appLogger)

		// A restarted UI starts from the poller's current snapshot.
		if snap := poller.Snapshot(); snap.Loaded() {
			dashboard.Update(ui.SnapshotMsg{Snapshot: snap})
		}

		return NewAppModel(dashboard, sender.Messages()), []tea.ProgramOption{
			tea.WithAltScreen(),
		}
	}

	recovery := ui.NewRecoveryHandler(appLogger, createUI)
	go func() {
		<-rootCtx.Done()
		recovery.Stop()
	}()

	if err := recovery.RunWithRecovery(); err != nil && rootCtx.Err() == nil {
		appLogger.Error("TUI application failed", zap.Error(err))
	}

	appLogger.Info("Shutting down XAUT perp terminal")
}
