// internal/metrics/collector.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "xaut_perp"

// Collector owns the application's prometheus metrics. A nil *Collector is
// valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	fetches       *prometheus.CounterVec
	submissions   *prometheus.CounterVec
	submitLatency *prometheus.HistogramVec
	contractReads *prometheus.HistogramVec
	lastPrice     prometheus.Gauge
	positionPnL   prometheus.Gauge
}

// NewCollector creates a collector on a private registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "oracle_fetches_total",
				Help:      "Price oracle fetches by endpoint and outcome",
			},
			[]string{"endpoint", "status"},
		),

		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Position open/close submissions by outcome",
			},
			[]string{"action", "status"},
		),

		submitLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "submission_duration_seconds",
				Help:      "Time from submission to reload completion",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"action"},
		),

		contractReads: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "contract_read_seconds",
				Help:      "Contract view call latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
			},
			[]string{"method", "status"},
		),

		lastPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_price_usd",
			Help:      "Last XAUT/USD price received from the oracle",
		}),

		positionPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "position_pnl_usd",
			Help:      "Unrealized PnL of the connected account",
		}),
	}

	c.registry.MustRegister(
		c.fetches,
		c.submissions,
		c.submitLatency,
		c.contractReads,
		c.lastPrice,
		c.positionPnL,
	)
	return c
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordFetch counts one oracle request.
func (c *Collector) RecordFetch(endpoint string, err error) {
	if c == nil {
		return
	}
	c.fetches.WithLabelValues(endpoint, status(err)).Inc()
}

// RecordSubmission counts a write and observes its end-to-end duration.
func (c *Collector) RecordSubmission(action string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.submissions.WithLabelValues(action, status(err)).Inc()
	c.submitLatency.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordContractRead observes a view call.
func (c *Collector) RecordContractRead(method string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.contractReads.WithLabelValues(method, status(err)).Observe(duration.Seconds())
}

// SetLastPrice updates the price gauge.
func (c *Collector) SetLastPrice(price float64) {
	if c == nil {
		return
	}
	c.lastPrice.Set(price)
}

// SetPositionPnL updates the PnL gauge.
func (c *Collector) SetPositionPnL(pnl float64) {
	if c == nil {
		return
	}
	c.positionPnL.Set(pnl)
}

// Gatherer exposes the registry for tests and custom handlers.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// Handler serves the registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve starts a /metrics endpoint in the background.
func (c *Collector) Serve(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()

	logger.Info("Metrics server listening", zap.String("addr", addr))
	return srv
}
