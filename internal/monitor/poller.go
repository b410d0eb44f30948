package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/xaut-perp/internal/metrics"
	"github.com/rovshanmuradov/xaut-perp/internal/pricefeed"
	"github.com/rovshanmuradov/xaut-perp/internal/types"
)

const (
	DefaultPollInterval   = 60 * time.Second
	DefaultRequestTimeout = 10 * time.Second
)

// MarketSource is the oracle the poller reads from.
type MarketSource interface {
	FetchQuote(ctx context.Context) (pricefeed.Quote, error)
	FetchOHLC(ctx context.Context, days int) ([]pricefeed.Candle, error)
}

// Snapshot is one consistent view of the market. It is replaced whole,
// never patched field by field.
type Snapshot struct {
	Price          types.NullFloat
	PriceChange24h types.NullFloat
	MarketCapUSD   types.NullFloat
	Candles        []pricefeed.Candle
	Timeframe      pricefeed.Timeframe
	FetchedAt      time.Time
}

// Loaded reports whether at least one poll has succeeded.
func (s Snapshot) Loaded() bool {
	return !s.FetchedAt.IsZero()
}

// Closes returns the candle close series for the chart.
func (s Snapshot) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// SnapshotCallback is invoked after every successful poll.
type SnapshotCallback func(Snapshot)

// PollerConfig holds poller settings.
type PollerConfig struct {
	Interval       time.Duration
	RequestTimeout time.Duration
	Timeframe      pricefeed.Timeframe
}

// Poller refreshes the market snapshot on a fixed interval and whenever the
// chart timeframe changes. A failed poll keeps the previous snapshot.
type Poller struct {
	source   MarketSource
	config   PollerConfig
	logger   *zap.Logger
	metrics  *metrics.Collector
	callback SnapshotCallback

	mu        sync.RWMutex
	snapshot  Snapshot
	timeframe pricefeed.Timeframe
	lastErr   error

	wake chan struct{}
}

// NewPoller creates a poller. collector and callback may be nil.
func NewPoller(source MarketSource, config PollerConfig, logger *zap.Logger,
	collector *metrics.Collector, callback SnapshotCallback) *Poller {
	if config.Interval <= 0 {
		config.Interval = DefaultPollInterval
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.Timeframe == "" {
		config.Timeframe = pricefeed.DefaultTimeframe
	}

	return &Poller{
		source:    source,
		config:    config,
		logger:    logger.Named("market_poller"),
		metrics:   collector,
		callback:  callback,
		timeframe: config.Timeframe,
		wake:      make(chan struct{}, 1),
	}
}

// Run polls until ctx is cancelled. The first poll happens immediately.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Starting market poller",
		zap.Duration("interval", p.config.Interval),
		zap.String("timeframe", string(p.Timeframe())))

	_ = p.Refresh(ctx)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Market poller stopped")
			return ctx.Err()
		case <-ticker.C:
			_ = p.Refresh(ctx)
		case <-p.wake:
			_ = p.Refresh(ctx)
		}
	}
}

// SetTimeframe switches the chart window and triggers an immediate poll.
func (p *Poller) SetTimeframe(tf pricefeed.Timeframe) {
	p.mu.Lock()
	p.timeframe = tf
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
		// a refresh is already pending
	}
}

// Timeframe returns the currently selected window.
func (p *Poller) Timeframe() pricefeed.Timeframe {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.timeframe
}

// Snapshot returns the last successful snapshot.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// LastError returns the error of the most recent poll, nil after a success.
func (p *Poller) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// Refresh performs a single poll. On failure the previous snapshot is kept
// and the error is returned after being logged.
func (p *Poller) Refresh(ctx context.Context) error {
	tf := p.Timeframe()

	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	var (
		quote   pricefeed.Quote
		candles []pricefeed.Candle
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quote, err = p.source.FetchQuote(gctx)
		p.metrics.RecordFetch("simple_price", err)
		if err != nil {
			return fmt.Errorf("quote: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		candles, err = p.source.FetchOHLC(gctx, tf.Days())
		p.metrics.RecordFetch("ohlc", err)
		if err != nil {
			return fmt.Errorf("ohlc: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		p.mu.Lock()
		p.lastErr = err
		p.mu.Unlock()

		if errors.Is(err, context.Canceled) {
			p.logger.Debug("Market refresh interrupted", zap.Error(err))
		} else {
			p.logger.Error("Failed to refresh market data", zap.Error(err))
		}
		return err
	}

	next := Snapshot{
		Price:          quote.Price,
		PriceChange24h: quote.PriceChange24h,
		MarketCapUSD:   quote.MarketCapUSD,
		Candles:        candles,
		Timeframe:      tf,
		FetchedAt:      time.Now(),
	}

	p.mu.Lock()
	p.snapshot = next
	p.lastErr = nil
	p.mu.Unlock()

	if next.Price.Valid {
		p.metrics.SetLastPrice(next.Price.Float64)
	}

	p.logger.Debug("Market snapshot updated",
		zap.String("price", next.Price.Format("%.2f", "unset")),
		zap.Int("candles", len(next.Candles)),
		zap.String("timeframe", string(tf)))

	if p.callback != nil {
		p.callback(next)
	}
	return nil
}
