package logger

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// LogEntry represents a single log entry in the buffer
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogBuffer is a thread-safe ring of recent log entries. It implements
// io.Writer so a zap JSON core can write into it directly.
type LogBuffer struct {
	mu           sync.Mutex
	ringBuffer   []LogEntry
	maxSize      int
	currentIndex int
	wrapped      bool

	totalEntries   uint64
	droppedEntries uint64
}

// NewLogBuffer creates a buffer holding up to maxSize entries.
func NewLogBuffer(maxSize int) *LogBuffer {
	if maxSize <= 0 {
		maxSize = 500
	}
	return &LogBuffer{
		ringBuffer: make([]LogEntry, maxSize),
		maxSize:    maxSize,
	}
}

// Add appends an entry, overwriting the oldest one when full.
func (lb *LogBuffer) Add(level, message string, fields map[string]interface{}) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.addLocked(LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Fields:    fields,
	})
}

func (lb *LogBuffer) addLocked(entry LogEntry) {
	if lb.wrapped {
		lb.droppedEntries++
	}

	lb.ringBuffer[lb.currentIndex] = entry
	lb.currentIndex = (lb.currentIndex + 1) % lb.maxSize
	if lb.currentIndex == 0 {
		lb.wrapped = true
	}
	lb.totalEntries++
}

// Write accepts one or more newline-separated JSON log lines as produced by
// zap's JSON encoder. Lines that are not JSON are stored verbatim.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	lines := bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n"))

	lb.mu.Lock()
	defer lb.mu.Unlock()

	for _, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lb.addLocked(parseLine(line))
	}
	return len(p), nil
}

func parseLine(line []byte) LogEntry {
	var raw map[string]interface{}
	if err := sonic.Unmarshal(line, &raw); err != nil {
		return LogEntry{Timestamp: time.Now(), Level: "info", Message: string(line)}
	}

	entry := LogEntry{Timestamp: time.Now()}
	if v, ok := raw["level"].(string); ok {
		entry.Level = v
	}
	if v, ok := raw["msg"].(string); ok {
		entry.Message = v
	}
	if v, ok := raw["time"].(string); ok {
		if ts, err := time.Parse("2006-01-02T15:04:05.000Z0700", v); err == nil {
			entry.Timestamp = ts
		}
	}

	delete(raw, "level")
	delete(raw, "msg")
	delete(raw, "time")
	if len(raw) > 0 {
		entry.Fields = raw
	}
	return entry
}

// Recent returns up to limit entries, oldest first. limit <= 0 returns all.
func (lb *LogBuffer) Recent(limit int) []LogEntry {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	count := lb.currentIndex
	start := 0
	if lb.wrapped {
		count = lb.maxSize
		start = lb.currentIndex
	}

	skip := 0
	if limit > 0 && limit < count {
		skip = count - limit
	}

	logs := make([]LogEntry, 0, count-skip)
	for i := skip; i < count; i++ {
		logs = append(logs, lb.ringBuffer[(start+i)%lb.maxSize])
	}
	return logs
}

// Stats returns the number of entries seen and how many were overwritten.
func (lb *LogBuffer) Stats() (total, dropped uint64) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.totalEntries, lb.droppedEntries
}

// Sync satisfies zapcore.WriteSyncer.
func (lb *LogBuffer) Sync() error { return nil }

// String renders an entry as a single display line.
func (e LogEntry) String() string {
	return fmt.Sprintf("%s %-5s %s", e.Timestamp.Format("15:04:05"), e.Level, e.Message)
}
