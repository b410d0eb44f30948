package logger

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogBufferConcurrentAccess(t *testing.T) {
	buffer := NewLogBuffer(100)

	var wg sync.WaitGroup
	numGoroutines := 10
	logsPerGoroutine := 100

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < logsPerGoroutine; j++ {
				buffer.Add("info", fmt.Sprintf("goroutine %d iteration %d", id, j),
					map[string]interface{}{"goroutine": id})
				_ = buffer.Recent(10)
			}
		}(i)
	}
	wg.Wait()

	total, dropped := buffer.Stats()
	assert.Equal(t, uint64(numGoroutines*logsPerGoroutine), total)
	assert.Equal(t, total-100, dropped)
	assert.Len(t, buffer.Recent(0), 100)
}

func TestLogBufferRecentOrder(t *testing.T) {
	buffer := NewLogBuffer(3)
	assert.Empty(t, buffer.Recent(0))

	for i := 1; i <= 5; i++ {
		buffer.Add("info", fmt.Sprintf("m%d", i), nil)
	}

	var msgs []string
	for _, e := range buffer.Recent(0) {
		msgs = append(msgs, e.Message)
	}
	assert.Equal(t, []string{"m3", "m4", "m5"}, msgs)

	last := buffer.Recent(2)
	require.Len(t, last, 2)
	assert.Equal(t, "m4", last[0].Message)
	assert.Equal(t, "m5", last[1].Message)
}

func TestLogBufferWriteParsesJSON(t *testing.T) {
	buffer := NewLogBuffer(10)

	_, err := buffer.Write([]byte(`{"level":"error","time":"2026-01-02T10:00:00.000Z","msg":"Quote fetch failed","endpoint":"price"}` + "\n" +
		"plain text line\n"))
	require.NoError(t, err)

	logs := buffer.Recent(0)
	require.Len(t, logs, 2)
	assert.Equal(t, "error", logs[0].Level)
	assert.Equal(t, "Quote fetch failed", logs[0].Message)
	assert.Equal(t, "price", logs[0].Fields["endpoint"])
	assert.Equal(t, 10, logs[0].Timestamp.Hour())
	assert.Equal(t, "plain text line", logs[1].Message)
}

func TestCreateTUILoggerWritesToBuffer(t *testing.T) {
	buffer := NewLogBuffer(10)
	file := FileConfig{LogFile: filepath.Join(t.TempDir(), "app.log"), MaxSize: 1}

	log, err := CreateTUILogger(false, buffer, file)
	require.NoError(t, err)

	log.Named("poller").Info("Market snapshot updated", zap.Float64("price", 2650.5))
	log.Debug("hidden")

	logs := buffer.Recent(0)
	require.Len(t, logs, 1)
	assert.Equal(t, "Market snapshot updated", logs[0].Message)
	assert.Equal(t, "poller", logs[0].Fields["logger"])

	_, err = CreateTUILogger(false, nil, file)
	assert.Error(t, err)
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage("Order submitted", zap.String("action", "open"),
		zap.String("tx_hash", "0x1234567890abcdef1234567890abcdef"))
	assert.Contains(t, msg, "open submitted: 0x12345678...abcdef")

	assert.Contains(t, FormatMessage("Market snapshot updated", zap.Float64("price", 2650.5)), "2650.50")
	assert.Equal(t, "unrelated", FormatMessage("unrelated"))
}
