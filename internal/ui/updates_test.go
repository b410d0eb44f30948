package ui

import (
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/xaut-perp/internal/monitor"
	"github.com/rovshanmuradov/xaut-perp/internal/types"
)

func TestUpdateSenderNonBlocking(t *testing.T) {
	sender := NewUpdateSender(10, zap.NewNop())
	defer sender.Close()

	for i := 0; i < 10; i++ {
		sender.SendUpdate(PositionMsg{})
	}

	start := time.Now()
	for i := 0; i < 100; i++ {
		sender.SendUpdate(PositionMsg{})
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond, "SendUpdate must not block")

	sent, dropped := sender.GetStats()
	assert.Equal(t, uint64(10), sent)
	assert.Equal(t, uint64(100), dropped)
}

func TestUpdateSenderConcurrent(t *testing.T) {
	sender := NewUpdateSender(100, zap.NewNop())
	defer sender.Close()

	const workers, perWorker = 10, 100

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				sender.SendUpdate(PositionMsg{})
			}
		}()
	}
	wg.Wait()

	sent, dropped := sender.GetStats()
	assert.Equal(t, uint64(workers*perWorker), sent+dropped)
	assert.Equal(t, uint64(100), sent)
}

func TestPublishSnapshotReachesListenBus(t *testing.T) {
	sender := NewUpdateSender(4, zap.NewNop())
	defer sender.Close()

	snap := monitor.Snapshot{Price: types.Some(2650)}
	sender.PublishSnapshot(snap)

	msg := ListenBus(sender.Messages())()
	got, ok := msg.(SnapshotMsg)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, 2650.0, got.Snapshot.Price.Float64)
}

func TestListenBusClosedChannel(t *testing.T) {
	ch := make(chan tea.Msg)
	close(ch)
	assert.Nil(t, ListenBus(ch)())
}

func TestCloseIsIdempotent(t *testing.T) {
	sender := NewUpdateSender(1, zap.NewNop())
	sender.Close()
	sender.Close()
	sender.SendUpdate(PositionMsg{})
}
