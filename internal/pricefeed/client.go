// Package pricefeed is the HTTP client for the CoinGecko-compatible price
// oracle that backs the market header and chart.
package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rovshanmuradov/xaut-perp/internal/types"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	DefaultAssetID = "tether-gold"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// ErrFetchFailure wraps every transport, status and decode failure.
var ErrFetchFailure = errors.New("price fetch failed")

// Quote is the spot block of the oracle response. Fields missing from the
// payload stay unset.
type Quote struct {
	Price          types.NullFloat
	PriceChange24h types.NullFloat
	MarketCapUSD   types.NullFloat
}

// Candle is one OHLC bar. Time is unix seconds.
type Candle struct {
	Time  int64
	Open  float64
	High  float64
	Low   float64
	Close float64
}

type simplePriceEntry struct {
	USD       *float64 `json:"usd"`
	Change24h *float64 `json:"usd_24h_change"`
	MarketCap *float64 `json:"usd_market_cap"`
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at another oracle host.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithAssetID changes the asset identifier used in both endpoints.
func WithAssetID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.assetID = id
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit caps outgoing requests per second. The public oracle tier
// throttles aggressively, so every request waits on the limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// Client fetches spot quotes and OHLC series.
type Client struct {
	baseURL string
	assetID string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates an oracle client.
func NewClient(logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		assetID: DefaultAssetID,
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  logger.Named("pricefeed"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AssetID returns the oracle identifier being tracked.
func (c *Client) AssetID() string {
	return c.assetID
}

// FetchQuote returns price, 24h change and market cap.
func (c *Client) FetchQuote(ctx context.Context) (Quote, error) {
	q := url.Values{}
	q.Set("ids", c.assetID)
	q.Set("vs_currencies", "usd")
	q.Set("include_market_cap", "true")
	q.Set("include_24hr_change", "true")

	body, err := c.get(ctx, "/simple/price", q)
	if err != nil {
		return Quote{}, err
	}

	var payload map[string]simplePriceEntry
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return Quote{}, fmt.Errorf("%w: decode price: %v", ErrFetchFailure, err)
	}

	entry, ok := payload[c.assetID]
	if !ok {
		return Quote{}, fmt.Errorf("%w: asset %q missing from response", ErrFetchFailure, c.assetID)
	}

	return Quote{
		Price:          nullable(entry.USD),
		PriceChange24h: nullable(entry.Change24h),
		MarketCapUSD:   nullable(entry.MarketCap),
	}, nil
}

// FetchOHLC returns candles for the lookback in days, oldest first.
func (c *Client) FetchOHLC(ctx context.Context, days int) ([]Candle, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", strconv.Itoa(days))

	body, err := c.get(ctx, "/coins/"+url.PathEscape(c.assetID)+"/ohlc", q)
	if err != nil {
		return nil, err
	}

	var rows [][]float64
	if err := sonic.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: decode ohlc: %v", ErrFetchFailure, err)
	}

	candles := make([]Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			c.logger.Debug("Skipping short OHLC row", zap.Int("len", len(row)))
			continue
		}
		candles = append(candles, Candle{
			Time:  int64(row[0]) / 1000,
			Open:  row[1],
			High:  row[2],
			Low:   row[3],
			Close: row[4],
		})
	}
	return candles, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %w", ErrFetchFailure, err)
	}

	endpoint := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrFetchFailure, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "xaut-perp/1.0")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailure, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetchFailure, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: http error %d: %s", ErrFetchFailure, path, resp.StatusCode, truncate(body, 200))
	}

	c.logger.Debug("Oracle request completed",
		zap.String("path", path),
		zap.Duration("latency", time.Since(start)))

	return body, nil
}

func nullable(v *float64) types.NullFloat {
	if v == nil {
		return types.NullFloat{}
	}
	return types.Some(*v)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
