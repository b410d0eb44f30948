package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/xaut-perp/internal/metrics"
	"github.com/rovshanmuradov/xaut-perp/internal/pricefeed"
	"github.com/rovshanmuradov/xaut-perp/internal/types"
)

type fakeSource struct {
	mu        sync.Mutex
	price     float64
	quoteErr  error
	ohlcErr   error
	days      []int
	quoteHits int
}

func (f *fakeSource) FetchQuote(ctx context.Context) (pricefeed.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quoteHits++
	if f.quoteErr != nil {
		return pricefeed.Quote{}, f.quoteErr
	}
	return pricefeed.Quote{
		Price:          types.Some(f.price),
		PriceChange24h: types.Some(0.5),
	}, nil
}

func (f *fakeSource) FetchOHLC(ctx context.Context, days int) ([]pricefeed.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.days = append(f.days, days)
	if f.ohlcErr != nil {
		return nil, f.ohlcErr
	}
	return []pricefeed.Candle{
		{Time: 1, Close: f.price - 1},
		{Time: 2, Close: f.price},
	}, nil
}

func (f *fakeSource) set(fn func(*fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeSource) requestedDays() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.days...)
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	src := &fakeSource{price: 2650}
	var got []Snapshot
	p := NewPoller(src, PollerConfig{}, zaptest.NewLogger(t), metrics.NewCollector(), func(s Snapshot) {
		got = append(got, s)
	})

	assert.False(t, p.Snapshot().Loaded())

	require.NoError(t, p.Refresh(context.Background()))

	snap := p.Snapshot()
	assert.True(t, snap.Loaded())
	assert.Equal(t, types.Some(2650), snap.Price)
	assert.False(t, snap.MarketCapUSD.Valid)
	assert.Equal(t, []float64{2649, 2650}, snap.Closes())
	assert.Equal(t, pricefeed.DefaultTimeframe, snap.Timeframe)
	require.Len(t, got, 1)
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	src := &fakeSource{price: 2650}
	p := NewPoller(src, PollerConfig{}, zaptest.NewLogger(t), nil, nil)

	require.NoError(t, p.Refresh(context.Background()))
	before := p.Snapshot()

	src.set(func(f *fakeSource) {
		f.price = 9999
		f.ohlcErr = errors.New("ohlc down")
	})
	err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, before, p.Snapshot(), "price must not advance when the chart fetch fails")
	assert.Error(t, p.LastError())

	src.set(func(f *fakeSource) {
		f.ohlcErr = nil
		f.quoteErr = errors.New("quote down")
	})
	require.Error(t, p.Refresh(context.Background()))
	assert.Equal(t, before, p.Snapshot())

	src.set(func(f *fakeSource) { f.quoteErr = nil })
	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, 9999.0, p.Snapshot().Price.Float64)
	assert.NoError(t, p.LastError())
}

func TestFirstFailureLeavesSnapshotUnset(t *testing.T) {
	src := &fakeSource{quoteErr: errors.New("down")}
	p := NewPoller(src, PollerConfig{}, zaptest.NewLogger(t), nil, nil)

	require.Error(t, p.Refresh(context.Background()))
	assert.False(t, p.Snapshot().Loaded())
	assert.False(t, p.Snapshot().Price.Valid)
}

func TestRunPollsImmediatelyAndOnTimeframeChange(t *testing.T) {
	src := &fakeSource{price: 2650}
	updates := make(chan Snapshot, 8)
	p := NewPoller(src, PollerConfig{Interval: time.Hour}, zaptest.NewLogger(t), nil, func(s Snapshot) {
		updates <- s
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case s := <-updates:
		assert.Equal(t, pricefeed.Timeframe24h, s.Timeframe)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial poll")
	}

	p.SetTimeframe(pricefeed.Timeframe7d)

	select {
	case s := <-updates:
		assert.Equal(t, pricefeed.Timeframe7d, s.Timeframe)
	case <-time.After(2 * time.Second):
		t.Fatal("timeframe change did not trigger a poll")
	}

	assert.Equal(t, []int{1, 7}, src.requestedDays())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop on cancel")
	}
}

func TestRunTicks(t *testing.T) {
	src := &fakeSource{price: 1}
	var mu sync.Mutex
	count := 0
	p := NewPoller(src, PollerConfig{Interval: 20 * time.Millisecond}, zaptest.NewLogger(t), nil, func(Snapshot) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_ = p.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, count, 3)
}
