package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/xaut-perp/internal/logger"
)

// FileName is the journal file created inside the journal directory.
const FileName = "journal.csv"

// Journal appends submissions to a CSV file and keeps the most recent ones in memory.
type Journal struct {
	mu         sync.RWMutex
	csvWriter  *logger.SafeCSVWriter
	entries    []Entry
	maxEntries int
	logger     *zap.Logger

	totalOrders      int
	successfulOrders int
	openCount        int
	closeCount       int
	totalMarginUSD   float64
}

// Open creates or appends to dir/journal.csv.
func Open(dir string, maxEntries int, zapLogger *zap.Logger) (*Journal, error) {
	if maxEntries <= 0 {
		maxEntries = 200
	}

	csvPath := filepath.Join(dir, FileName)
	csvWriter, err := logger.NewSafeCSVWriter(csvPath, CSVHeaders(), 10*time.Second, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal writer: %w", err)
	}

	zapLogger.Debug("Trade journal opened",
		zap.String("csv_file", csvPath),
		zap.Int("max_memory_entries", maxEntries))

	return &Journal{
		csvWriter:  csvWriter,
		entries:    make([]Entry, 0, maxEntries),
		maxEntries: maxEntries,
		logger:     zapLogger,
	}, nil
}

// Record stores an entry, assigning an ID and timestamp when missing.
func (j *Journal) Record(entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.csvWriter.WriteRecord(entry.ToCSV()); err != nil {
		return entry, fmt.Errorf("failed to write journal entry: %w", err)
	}

	if len(j.entries) >= j.maxEntries {
		j.entries = j.entries[1:]
	}
	j.entries = append(j.entries, entry)

	j.totalOrders++
	if entry.Success {
		j.successfulOrders++
	}
	switch entry.Action {
	case ActionOpen:
		j.openCount++
		if entry.Success {
			j.totalMarginUSD += entry.MarginUSD
		}
	case ActionClose:
		j.closeCount++
	}

	j.logger.Debug("Journal entry recorded",
		zap.String("id", entry.ID),
		zap.String("action", string(entry.Action)),
		zap.Bool("success", entry.Success))

	return entry, nil
}

// Recent returns up to limit of the latest entries, oldest first.
func (j *Journal) Recent(limit int) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if limit <= 0 || limit > len(j.entries) {
		limit = len(j.entries)
	}

	result := make([]Entry, limit)
	copy(result, j.entries[len(j.entries)-limit:])
	return result
}

// Statistics holds aggregate counts for this session.
type Statistics struct {
	TotalOrders      int     `json:"total_orders"`
	SuccessfulOrders int     `json:"successful_orders"`
	FailedOrders     int     `json:"failed_orders"`
	SuccessRate      float64 `json:"success_rate"`
	OpenCount        int     `json:"open_count"`
	CloseCount       int     `json:"close_count"`
	TotalMarginUSD   float64 `json:"total_margin_usd"`
}

func (j *Journal) Statistics() Statistics {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.statisticsLocked()
}

func (j *Journal) statisticsLocked() Statistics {
	stats := Statistics{
		TotalOrders:      j.totalOrders,
		SuccessfulOrders: j.successfulOrders,
		FailedOrders:     j.totalOrders - j.successfulOrders,
		OpenCount:        j.openCount,
		CloseCount:       j.closeCount,
		TotalMarginUSD:   j.totalMarginUSD,
	}
	if j.totalOrders > 0 {
		stats.SuccessRate = float64(j.successfulOrders) / float64(j.totalOrders) * 100
	}
	return stats
}

// Path returns the CSV file backing the journal.
func (j *Journal) Path() string {
	return j.csvWriter.Path()
}

func (j *Journal) Flush() error {
	return j.csvWriter.Flush()
}

// Close flushes and closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	stats := j.statisticsLocked()
	j.logger.Info("Closing trade journal",
		zap.Int("total_orders", stats.TotalOrders),
		zap.Int("successful_orders", stats.SuccessfulOrders),
		zap.Float64("total_margin_usd", stats.TotalMarginUSD))

	return j.csvWriter.Close()
}

// ReadFile loads all entries from a journal CSV file.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(CSVHeaders())

	var entries []Entry
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read journal line %d: %w", line, err)
		}
		if line == 1 && record[0] == "id" {
			continue
		}

		entry, err := fromCSV(record)
		if err != nil {
			return nil, fmt.Errorf("parse journal line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func fromCSV(record []string) (Entry, error) {
	ts, err := time.Parse(time.RFC3339, record[1])
	if err != nil {
		return Entry{}, err
	}
	success, err := strconv.ParseBool(record[13])
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		ID:           record[0],
		Timestamp:    ts,
		Account:      record[2],
		Action:       Action(record[3]),
		Side:         record[4],
		SizeXAUT:     parseFloat(record[5]),
		MarginUSD:    parseFloat(record[6]),
		Leverage:     parseInt(record[7]),
		ClosePercent: parseInt(record[8]),
		Price:        parseFloat(record[9]),
		SizeDelta:    record[10],
		MarginDelta:  record[11],
		TxHash:       record[12],
		Success:      success,
		ErrorMsg:     record[14],
	}, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}
