package pricefeed

import "fmt"

// Timeframe selects the chart window.
type Timeframe string

const (
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe24h Timeframe = "24h"
	Timeframe7d  Timeframe = "7d"

	DefaultTimeframe = Timeframe24h
)

// Timeframes lists the selector options in display order.
var Timeframes = []Timeframe{Timeframe15m, Timeframe30m, Timeframe24h, Timeframe7d}

// Days is the OHLC lookback requested from the oracle. Intraday frames
// share the one-day series.
func (tf Timeframe) Days() int {
	if tf == Timeframe7d {
		return 7
	}
	return 1
}

// Next cycles to the following selector option.
func (tf Timeframe) Next() Timeframe {
	for i, candidate := range Timeframes {
		if candidate == tf {
			return Timeframes[(i+1)%len(Timeframes)]
		}
	}
	return DefaultTimeframe
}

// ParseTimeframe validates a configured timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	for _, tf := range Timeframes {
		if string(tf) == s {
			return tf, nil
		}
	}
	return "", fmt.Errorf("unknown timeframe %q", s)
}
