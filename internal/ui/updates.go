package ui

import (
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/xaut-perp/internal/monitor"
)

// DefaultBusSize is the capacity of the channel between workers and the UI.
const DefaultBusSize = 256

// UpdateSender delivers messages from background goroutines to the UI
// without ever blocking the sender.
type UpdateSender struct {
	msgChan        chan tea.Msg
	droppedUpdates atomic.Uint64
	sentUpdates    atomic.Uint64
	logger         *zap.Logger
	statsInterval  time.Duration
	stopStats      chan struct{}
	closeOnce      sync.Once
}

// NewUpdateSender creates a sender over a channel of the given capacity.
func NewUpdateSender(size int, logger *zap.Logger) *UpdateSender {
	if size <= 0 {
		size = DefaultBusSize
	}
	us := &UpdateSender{
		msgChan:       make(chan tea.Msg, size),
		logger:        logger.Named("bus"),
		statsInterval: 30 * time.Second,
		stopStats:     make(chan struct{}),
	}

	go us.logStats()

	return us
}

// Messages is the receive side, consumed with ListenBus.
func (us *UpdateSender) Messages() <-chan tea.Msg {
	return us.msgChan
}

// SendUpdate enqueues msg or drops it if the UI is behind.
func (us *UpdateSender) SendUpdate(msg tea.Msg) {
	select {
	case us.msgChan <- msg:
		us.sentUpdates.Add(1)
	default:
		us.droppedUpdates.Add(1)
	}
}

// PublishSnapshot is the poller callback.
func (us *UpdateSender) PublishSnapshot(s monitor.Snapshot) {
	us.SendUpdate(SnapshotMsg{Snapshot: s})
}

// GetStats returns the sent and dropped counters.
func (us *UpdateSender) GetStats() (sent, dropped uint64) {
	return us.sentUpdates.Load(), us.droppedUpdates.Load()
}

func (us *UpdateSender) logStats() {
	ticker := time.NewTicker(us.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sent, dropped := us.GetStats()
			if dropped > 0 {
				us.logger.Warn("UI update statistics",
					zap.Uint64("sent", sent),
					zap.Uint64("dropped", dropped),
					zap.Float64("drop_rate", float64(dropped)/float64(sent+dropped)*100))
			}
		case <-us.stopStats:
			return
		}
	}
}

// Close stops the stats loop. The channel stays open so late senders never panic.
func (us *UpdateSender) Close() {
	us.closeOnce.Do(func() { close(us.stopStats) })
}
