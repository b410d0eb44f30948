package journal

import (
	"fmt"
	"strconv"
	"time"
)

// Action is the kind of submission recorded.
type Action string

const (
	ActionOpen  Action = "open"
	ActionClose Action = "close"
)

// Entry is one submitted order and its outcome.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Account   string    `json:"account"`
	Action    Action    `json:"action"`
	Side      string    `json:"side"` // LONG or SHORT

	SizeXAUT     float64 `json:"size_xaut"`
	MarginUSD    float64 `json:"margin_usd,omitempty"`
	Leverage     int     `json:"leverage,omitempty"`
	ClosePercent int     `json:"close_percent,omitempty"`
	Price        float64 `json:"price"`

	// Exact contract arguments, 18-decimal integers as strings.
	SizeDelta   string `json:"size_delta"`
	MarginDelta string `json:"margin_delta,omitempty"`

	TxHash   string `json:"tx_hash,omitempty"`
	Success  bool   `json:"success"`
	ErrorMsg string `json:"error_msg,omitempty"`
}

// ToCSV converts the entry to a CSV record matching CSVHeaders.
func (e *Entry) ToCSV() []string {
	return []string{
		e.ID,
		e.Timestamp.Format(time.RFC3339),
		e.Account,
		string(e.Action),
		e.Side,
		formatFloat(e.SizeXAUT),
		formatFloat(e.MarginUSD),
		formatInt(e.Leverage),
		formatInt(e.ClosePercent),
		formatFloat(e.Price),
		e.SizeDelta,
		e.MarginDelta,
		e.TxHash,
		strconv.FormatBool(e.Success),
		e.ErrorMsg,
	}
}

// CSVHeaders returns the header row for journal CSV files.
func CSVHeaders() []string {
	return []string{
		"id",
		"timestamp",
		"account",
		"action",
		"side",
		"size_xaut",
		"margin_usd",
		"leverage",
		"close_percent",
		"price",
		"size_delta",
		"margin_delta",
		"tx_hash",
		"success",
		"error_msg",
	}
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return fmt.Sprintf("%.6f", f)
}

func formatInt(i int) string {
	if i == 0 {
		return ""
	}
	return strconv.Itoa(i)
}
