package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleEntries(base time.Time) []Entry {
	return []Entry{
		{
			Timestamp: base, Account: "0xabc", Action: ActionOpen, Side: "LONG",
			SizeXAUT: 0.15, MarginUSD: 100, Leverage: 3, Price: 2000,
			SizeDelta: "150000000000000000", MarginDelta: "100000000000000000000",
			TxHash: "0x01", Success: true,
		},
		{
			Timestamp: base.Add(time.Minute), Account: "0xabc", Action: ActionOpen, Side: "SHORT",
			SizeXAUT: 0.05, MarginUSD: 50, Leverage: 2, Price: 2000,
			Success: false, ErrorMsg: "Insufficient margin",
		},
		{
			Timestamp: base.Add(2 * time.Minute), Account: "0xabc", Action: ActionClose, Side: "LONG",
			SizeXAUT: 0.075, ClosePercent: 50, Price: 2010,
			SizeDelta: "75000000000000000", TxHash: "0x02", Success: true,
		},
	}
}

func TestJournalRecordAndReadBack(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir, 2, zap.NewNop())
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, e := range sampleEntries(base) {
		recorded, err := j.Record(e)
		require.NoError(t, err)
		assert.NotEmpty(t, recorded.ID)
	}

	recent := j.Recent(0)
	require.Len(t, recent, 2, "memory holds maxEntries")
	assert.Equal(t, ActionClose, recent[1].Action)
	assert.Len(t, j.Recent(1), 1)

	stats := j.Statistics()
	assert.Equal(t, 3, stats.TotalOrders)
	assert.Equal(t, 2, stats.SuccessfulOrders)
	assert.Equal(t, 1, stats.FailedOrders)
	assert.Equal(t, 2, stats.OpenCount)
	assert.Equal(t, 1, stats.CloseCount)
	assert.InDelta(t, 100, stats.TotalMarginUSD, 1e-9)
	assert.InDelta(t, 66.666, stats.SuccessRate, 0.01)

	require.NoError(t, j.Close())

	entries, err := ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Insufficient margin", entries[1].ErrorMsg)
	assert.Equal(t, 50, entries[2].ClosePercent)
	assert.Equal(t, "150000000000000000", entries[0].SizeDelta)
	assert.True(t, entries[0].Timestamp.Equal(base))
}

func TestJournalAppendsAcrossSessions(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		j, err := Open(dir, 10, zap.NewNop())
		require.NoError(t, err)
		_, err = j.Record(Entry{Action: ActionOpen, Side: "LONG", Success: true})
		require.NoError(t, err)
		require.NoError(t, j.Close())
	}

	entries, err := ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestReadFileErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("only,three,columns\n"), 0o644))
	_, err = ReadFile(path)
	assert.Error(t, err)
}

func TestExportCSVWithFilters(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exporter := NewExporter(zap.NewNop())
	exporter.now = func() time.Time { return base }

	outDir := t.TempDir()
	path, err := exporter.Export(sampleEntries(base), ExportOptions{
		Format:       FormatCSV,
		ActionFilter: ActionOpen,
		OnlySuccess:  true,
		OutputDir:    outDir,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "journal_open_20260301_120000.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,timestamp"))
	assert.Contains(t, lines[1], "0x01")
}

func TestExportJSONSummary(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exporter := NewExporter(zap.NewNop())

	entries := sampleEntries(base)
	// Out of order on purpose.
	entries[0], entries[2] = entries[2], entries[0]

	path, err := exporter.Export(entries, ExportOptions{Format: FormatJSON, OutputDir: t.TempDir()})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out struct {
		EntryCount int           `json:"entry_count"`
		Summary    ExportSummary `json:"summary"`
		Entries    []Entry       `json:"entries"`
	}
	require.NoError(t, sonic.Unmarshal(data, &out))

	assert.Equal(t, 3, out.EntryCount)
	assert.Equal(t, ActionOpen, out.Entries[0].Action, "sorted by time")
	assert.Equal(t, 2, out.Summary.OpenCount)
	assert.Equal(t, 1, out.Summary.CloseCount)
	assert.Equal(t, 2, out.Summary.LongCount)
	assert.InDelta(t, 100, out.Summary.TotalMarginUSD, 1e-9)
	assert.InDelta(t, 300, out.Summary.TotalNotional, 1e-9)
}

func TestExportNothingMatches(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	_, err := exporter.Export(nil, ExportOptions{Format: FormatCSV, OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrNothingToExport)

	base := time.Now()
	_, err = exporter.Export(sampleEntries(base), ExportOptions{
		Format:    FormatCSV,
		StartTime: base.Add(time.Hour),
		OutputDir: t.TempDir(),
	})
	assert.ErrorIs(t, err, ErrNothingToExport)

	_, err = exporter.Export(sampleEntries(base), ExportOptions{Format: "xml", OutputDir: t.TempDir()})
	assert.Error(t, err)
}
