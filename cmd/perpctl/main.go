// Command perpctl is a headless client for the XAUT/USD perp market.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/xaut-perp/internal/blockchain/evm"
	"github.com/rovshanmuradov/xaut-perp/internal/config"
	"github.com/rovshanmuradov/xaut-perp/internal/journal"
	"github.com/rovshanmuradov/xaut-perp/internal/logger"
	"github.com/rovshanmuradov/xaut-perp/internal/metrics"
	"github.com/rovshanmuradov/xaut-perp/internal/monitor"
	"github.com/rovshanmuradov/xaut-perp/internal/position"
	"github.com/rovshanmuradov/xaut-perp/internal/pricefeed"
	"github.com/rovshanmuradov/xaut-perp/internal/trade"
	"github.com/rovshanmuradov/xaut-perp/internal/trading"
	"github.com/rovshanmuradov/xaut-perp/internal/ui/format"
	"github.com/rovshanmuradov/xaut-perp/internal/wallet"
)

const usage = `usage: perpctl [-config path] <command> [flags]

commands:
  quote      print price, 24h change, market cap and the chart range
  position   print the connected account's position
  open       open or add to a position (-side long|short -margin N -leverage N)
  close      close part or all of the position (-percent 1..100)
  watch      poll the market and position until interrupted
  journal    print statistics of the trade journal
  export     export the trade journal (-format csv|json -action open|close -success -since 24h)
`

// app holds the wired dependencies shared by subcommands.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector
	poller    *monitor.Poller
	session   *wallet.Session
	perp      *evm.PerpClient
	journal   *journal.Journal
	service   *trading.Service
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file (empty for env only)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.CreatePrettyLogger(cfg.DebugLogging, cfg.LogFileConfig())
	defer logger.Sync(appLogger)

	a := &app{cfg: cfg, logger: appLogger, collector: metrics.NewCollector()}
	defer a.close()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "quote":
		err = a.runQuote(ctx)
	case "position":
		err = a.runPosition(ctx)
	case "open":
		err = a.runOpen(ctx, args)
	case "close":
		err = a.runClose(ctx, args)
	case "watch":
		err = a.runWatch(ctx)
	case "journal":
		err = a.runJournal()
	case "export":
		err = a.runExport(args)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		appLogger.Error("Command failed", zap.String("command", cmd), zap.Error(err))
		a.close()
		os.Exit(1)
	}
}

func (a *app) initMarket() {
	feed := pricefeed.NewClient(a.logger,
		pricefeed.WithBaseURL(a.cfg.PriceAPIURL),
		pricefeed.WithAssetID(a.cfg.AssetID),
		pricefeed.WithRateLimit(a.cfg.PriceRPS, 2),
	)
	a.poller = monitor.NewPoller(feed, monitor.PollerConfig{
		Interval:       a.cfg.PollInterval(),
		RequestTimeout: a.cfg.ReadTimeout(),
		Timeframe:      a.cfg.Timeframe(),
	}, a.logger, a.collector, nil)
}

func (a *app) initChain(ctx context.Context) error {
	session, err := wallet.OpenSession(a.cfg.WalletFile, a.cfg.WalletName, a.cfg.WatchAddress, a.logger)
	if err != nil {
		return fmt.Errorf("wallet session: %w", err)
	}
	a.session = session

	a.perp, err = evm.Dial(ctx, evm.Config{
		RPCURL:      a.cfg.RPCURL,
		ChainID:     a.cfg.ChainID,
		Address:     a.cfg.PerpAddress,
		ReadRetries: uint(a.cfg.ReadRetries),
		ReadTimeout: a.cfg.ReadTimeout(),
	}, a.logger, a.collector)
	if err != nil {
		return err
	}

	a.journal, err = journal.Open(a.cfg.JournalDir, 0, a.logger)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	a.service = trading.NewService(a.perp, a.session, a.journal, a.collector, a.logger)
	return nil
}

func (a *app) close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("Failed to close trade journal", zap.Error(err))
		}
		a.journal = nil
	}
	if a.perp != nil {
		a.perp.Close()
		a.perp = nil
	}
}

// load fetches the market snapshot and the position concurrently.
func (a *app) load(ctx context.Context) (monitor.Snapshot, *position.Raw, error) {
	defer logger.TrackPerformance(a.logger, "load_market_and_position")()

	var raw *position.Raw

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.poller.Refresh(gctx)
	})
	g.Go(func() error {
		var err error
		raw, err = a.service.LoadPosition(gctx)
		if evm.IsReadFailure(err) {
			// Shown as no position; the service logged the failure.
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return monitor.Snapshot{}, nil, err
	}
	return a.poller.Snapshot(), raw, nil
}

func (a *app) runQuote(ctx context.Context) error {
	a.initMarket()
	if err := a.poller.Refresh(ctx); err != nil {
		return err
	}
	printSnapshot(a.cfg.MarketSymbol, a.poller.Snapshot())
	return nil
}

func (a *app) runPosition(ctx context.Context) error {
	a.initMarket()
	if err := a.initChain(ctx); err != nil {
		return err
	}

	snap, raw, err := a.load(ctx)
	if err != nil {
		return err
	}
	printSnapshot(a.cfg.MarketSymbol, snap)
	a.printPosition(raw, snap)
	return nil
}

func (a *app) runOpen(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	side := fs.String("side", "long", "long or short")
	margin := fs.String("margin", "", "margin in MNT, e.g. 10.5")
	leverage := fs.Int("leverage", trade.DefaultLeverage, "leverage 1..10")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var isLong bool
	switch *side {
	case "long":
		isLong = true
	case "short":
	default:
		return fmt.Errorf("unknown side %q", *side)
	}

	a.initMarket()
	if err := a.initChain(ctx); err != nil {
		return err
	}
	if !a.service.Connected() {
		return trading.ErrNotConnected
	}
	if err := a.poller.Refresh(ctx); err != nil {
		return fmt.Errorf("price unavailable: %w", err)
	}
	snap := a.poller.Snapshot()

	ticket, err := trade.Quote(*margin, *leverage, snap.Price)
	if err != nil {
		return err
	}
	if !trade.CanTrade(true, ticket, snap.Price) {
		return errors.New("margin must be positive and a price must be known")
	}

	fmt.Printf("Opening %s %s at %s, margin %s, leverage %s\n",
		*side, format.Size(ticket.Size), format.Price(snap.Price),
		format.TotalCost(*margin), format.Leverage(*leverage))

	result := a.service.Open(ctx, isLong, ticket, snap.Price)
	return a.report(result, snap)
}

func (a *app) runClose(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("close", flag.ExitOnError)
	percent := fs.Int("percent", trade.DefaultClosePercent, "percent of the position to close, 1..100")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a.initMarket()
	if err := a.initChain(ctx); err != nil {
		return err
	}
	if !a.service.Connected() {
		return trading.ErrNotConnected
	}

	snap, raw, err := a.load(ctx)
	if err != nil {
		return err
	}
	if !raw.Open() {
		return trade.ErrNoPosition
	}

	fmt.Printf("Closing %s of the position\n", format.Percent(*percent))
	result := a.service.Close(ctx, raw, *percent, snap.Price)
	return a.report(result, snap)
}

func (a *app) report(result trading.Result, snap monitor.Snapshot) error {
	if !result.Success() {
		fmt.Println(result.Notice)
		return result.Err
	}
	fmt.Printf("%s (tx %s)\n", result.Notice, result.TxHash.Hex())
	a.printPosition(result.Position, snap)
	return nil
}

func (a *app) runWatch(ctx context.Context) error {
	a.initMarket()
	if err := a.initChain(ctx); err != nil {
		return err
	}
	if a.cfg.MetricsAddr != "" {
		srv := a.collector.Serve(a.cfg.MetricsAddr, a.logger)
		defer srv.Close()
	}

	ticker := time.NewTicker(a.cfg.PollInterval())
	defer ticker.Stop()

	for {
		snap, raw, err := a.load(ctx)
		if err != nil {
			a.logger.Warn("Refresh failed, keeping last values", zap.Error(err))
		} else {
			printSnapshot(a.cfg.MarketSymbol, snap)
			a.printPosition(raw, snap)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (a *app) journalPath() string {
	return filepath.Join(a.cfg.JournalDir, journal.FileName)
}

func (a *app) runJournal() error {
	entries, err := journal.ReadFile(a.journalPath())
	if err != nil {
		return err
	}
	s := journal.Summarize(entries)

	fmt.Printf("Journal %s\n", a.journalPath())
	fmt.Printf("  orders      %d (%d successful)\n", s.TotalOrders, s.SuccessfulOrders)
	fmt.Printf("  opens       %d   closes %d\n", s.OpenCount, s.CloseCount)
	fmt.Printf("  long        %d   short  %d\n", s.LongCount, s.ShortCount)
	fmt.Printf("  margin      %s\n", format.USD(s.TotalMarginUSD))
	fmt.Printf("  notional    %s\n", format.USD(s.TotalNotional))
	if s.TotalOrders > 0 {
		fmt.Printf("  period      %s .. %s\n",
			s.StartDate.Format(time.DateTime), s.EndDate.Format(time.DateTime))
	}
	return nil
}

func (a *app) runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	formatFlag := fs.String("format", "csv", "csv or json")
	action := fs.String("action", "", "only open or close entries")
	onlySuccess := fs.Bool("success", false, "only successful submissions")
	since := fs.Duration("since", 0, "only entries newer than this, e.g. 24h")
	out := fs.String("out", filepath.Join(a.cfg.JournalDir, "exports"), "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := journal.ExportOptions{
		Format:       journal.ExportFormat(*formatFlag),
		ActionFilter: journal.Action(*action),
		OnlySuccess:  *onlySuccess,
		OutputDir:    *out,
	}
	if *since > 0 {
		opts.StartTime = time.Now().Add(-*since)
	}

	entries, err := journal.ReadFile(a.journalPath())
	if err != nil {
		return err
	}
	path, err := journal.NewExporter(a.logger).Export(entries, opts)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func printSnapshot(symbol string, s monitor.Snapshot) {
	fmt.Printf("%s  %s  %s 24h  FDV %s\n",
		symbol, format.Price(s.Price), format.ChangeArrow(s.PriceChange24h), format.MarketCap(s.MarketCapUSD))

	if len(s.Candles) == 0 {
		return
	}
	lo, hi := s.Candles[0].Low, s.Candles[0].High
	for _, c := range s.Candles[1:] {
		lo = min(lo, c.Low)
		hi = max(hi, c.High)
	}
	fmt.Printf("  %s range  L %s  H %s  (%d candles)\n", s.Timeframe, format.USD(lo), format.USD(hi), len(s.Candles))
}

func (a *app) printPosition(raw *position.Raw, s monitor.Snapshot) {
	d, ok := position.Decode(raw, s.Price)
	if !ok {
		fmt.Println("No open position")
		return
	}
	a.collector.SetPositionPnL(d.PnL)

	fmt.Printf("%s  PnL %s (%+.2f%%)\n", format.SideBadge(string(d.Side), d.Leverage), format.PnL(d.PnL), d.PnLPercent())
	fmt.Printf("  Size    %s\n", format.Size(d.AbsSize))
	if s.Price.Valid {
		fmt.Printf("  Value   %s\n", format.USD(d.Notional(s.Price.Float64)))
	}
	fmt.Printf("  Entry   %s\n", format.USD(d.Entry))
	fmt.Printf("  Margin  %s\n", format.USD(d.MarginUSD))
}
