package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/xaut-perp/internal/monitor"
	"github.com/rovshanmuradov/xaut-perp/internal/position"
	"github.com/rovshanmuradov/xaut-perp/internal/trading"
)

// SnapshotMsg carries a fresh market snapshot from the poller.
type SnapshotMsg struct {
	Snapshot monitor.Snapshot
}

// PositionMsg carries the result of a position read. Raw is nil when the
// account has no position.
type PositionMsg struct {
	Raw *position.Raw
	Err error
}

// SubmissionMsg is sent when an open or close finished, after the position
// reload.
type SubmissionMsg struct {
	Result trading.Result
}

// ToastExpiredMsg hides the toast with the given ID.
type ToastExpiredMsg struct {
	ID int
}

// LogTickMsg refreshes the log pane.
type LogTickMsg time.Time

// ListenBus waits for the next message published by background workers.
// The model must re-arm it after each delivery.
func ListenBus(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// ExpireToast schedules a ToastExpiredMsg for id.
func ExpireToast(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg { return ToastExpiredMsg{ID: id} })
}

// TickLogs schedules the next log pane refresh.
func TickLogs(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg { return LogTickMsg(t) })
}
