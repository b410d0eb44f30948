package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format       ExportFormat
	StartTime    time.Time
	EndTime      time.Time
	ActionFilter Action
	OnlySuccess  bool
	OutputDir    string
}

// ErrNothingToExport is returned when no entry passes the filters.
var ErrNothingToExport = fmt.Errorf("no journal entries match the export criteria")

// Exporter writes filtered journal entries to CSV or JSON files.
type Exporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger, now: time.Now}
}

// Export writes entries matching options and returns the output path.
func (e *Exporter) Export(entries []Entry, options ExportOptions) (string, error) {
	filtered := filterEntries(entries, options)
	if len(filtered) == 0 {
		return "", ErrNothingToExport
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, e.generateFilename(options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = e.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("Journal exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func filterEntries(entries []Entry, options ExportOptions) []Entry {
	var filtered []Entry
	for _, entry := range entries {
		if !options.StartTime.IsZero() && entry.Timestamp.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && entry.Timestamp.After(options.EndTime) {
			continue
		}
		if options.ActionFilter != "" && entry.Action != options.ActionFilter {
			continue
		}
		if options.OnlySuccess && !entry.Success {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered
}

func (e *Exporter) generateFilename(options ExportOptions) string {
	prefix := "journal_all"
	if options.ActionFilter != "" {
		prefix = "journal_" + string(options.ActionFilter)
	}
	return fmt.Sprintf("%s_%s.%s", prefix, e.now().Format("20060102_150405"), options.Format)
}

func exportToCSV(entries []Entry, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, entry := range entries {
		if err := writer.Write(entry.ToCSV()); err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func (e *Exporter) exportToJSON(entries []Entry, outputPath string) error {
	exportData := struct {
		ExportTime time.Time     `json:"export_time"`
		EntryCount int           `json:"entry_count"`
		Summary    ExportSummary `json:"summary"`
		Entries    []Entry       `json:"entries"`
	}{
		ExportTime: e.now(),
		EntryCount: len(entries),
		Summary:    Summarize(entries),
		Entries:    entries,
	}

	data, err := sonic.ConfigStd.MarshalIndent(exportData, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	if err := os.WriteFile(outputPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	return nil
}

// ExportSummary contains summary statistics for exported entries
type ExportSummary struct {
	TotalOrders      int       `json:"total_orders"`
	SuccessfulOrders int       `json:"successful_orders"`
	OpenCount        int       `json:"open_count"`
	CloseCount       int       `json:"close_count"`
	LongCount        int       `json:"long_count"`
	ShortCount       int       `json:"short_count"`
	TotalMarginUSD   float64   `json:"total_margin_usd"`
	TotalNotional    float64   `json:"total_notional_usd"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
}

// Summarize aggregates entries sorted by time. Only successful opens count
// toward margin and notional.
func Summarize(entries []Entry) ExportSummary {
	summary := ExportSummary{TotalOrders: len(entries)}
	if len(entries) == 0 {
		return summary
	}

	summary.StartDate = entries[0].Timestamp
	summary.EndDate = entries[len(entries)-1].Timestamp

	for _, entry := range entries {
		if entry.Success {
			summary.SuccessfulOrders++
		}

		switch entry.Action {
		case ActionOpen:
			summary.OpenCount++
			if entry.Success {
				summary.TotalMarginUSD += entry.MarginUSD
				summary.TotalNotional += entry.SizeXAUT * entry.Price
			}
		case ActionClose:
			summary.CloseCount++
		}

		switch entry.Side {
		case "LONG":
			summary.LongCount++
		case "SHORT":
			summary.ShortCount++
		}
	}
	return summary
}
