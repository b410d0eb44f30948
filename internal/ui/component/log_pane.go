package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/xaut-perp/internal/logger"
	"github.com/rovshanmuradov/xaut-perp/internal/ui/style"
)

const logPaneEntries = 50

// LogPane shows the tail of the in-memory log buffer. Hidden by default.
type LogPane struct {
	buffer    *logger.LogBuffer
	viewport  viewport.Model
	visible   bool
	showDebug bool
	width     int
	height    int

	timestamp lipgloss.Style
	levels    map[string]lipgloss.Style
}

func NewLogPane(buffer *logger.LogBuffer) *LogPane {
	palette := style.DefaultPalette()
	return &LogPane{
		buffer:    buffer,
		viewport:  viewport.New(60, 6),
		timestamp: lipgloss.NewStyle().Foreground(palette.TextMuted),
		levels: map[string]lipgloss.Style{
			"error": lipgloss.NewStyle().Foreground(palette.Error).Bold(true),
			"warn":  lipgloss.NewStyle().Foreground(palette.Warning).Bold(true),
			"info":  lipgloss.NewStyle().Foreground(palette.Info),
			"debug": lipgloss.NewStyle().Foreground(palette.TextMuted),
		},
	}
}

// SetSize sets the outer dimensions including border.
func (lp *LogPane) SetSize(width, height int) {
	lp.width = width
	lp.height = height
	lp.viewport.Width = max(width-4, 10)
	lp.viewport.Height = max(height-3, 2)
}

// Toggle flips visibility.
func (lp *LogPane) Toggle() {
	lp.visible = !lp.visible
}

func (lp *LogPane) Visible() bool {
	return lp.visible
}

// ScrollUp and ScrollDown move through older entries.
func (lp *LogPane) ScrollUp()   { lp.viewport.LineUp(1) }
func (lp *LogPane) ScrollDown() { lp.viewport.LineDown(1) }

// Refresh reloads the viewport from the buffer and follows the tail.
func (lp *LogPane) Refresh() {
	if lp.buffer == nil {
		lp.viewport.SetContent("No log buffer available")
		return
	}

	var lines []string
	for _, entry := range lp.buffer.Recent(logPaneEntries) {
		level := strings.ToLower(entry.Level)
		if level == "warning" {
			level = "warn"
		}
		if level == "debug" && !lp.showDebug {
			continue
		}
		lines = append(lines, lp.formatEntry(level, entry))
	}

	if len(lines) == 0 {
		lp.viewport.SetContent("No log entries yet")
		return
	}
	lp.viewport.SetContent(strings.Join(lines, "\n"))
	lp.viewport.GotoBottom()
}

func (lp *LogPane) formatEntry(level string, entry logger.LogEntry) string {
	levelStyle, ok := lp.levels[level]
	if !ok {
		levelStyle = lp.levels["info"]
	}

	msg := entry.Message
	if name, ok := entry.Fields["logger"].(string); ok && name != "" {
		msg = name + ": " + msg
	}
	if errText, ok := entry.Fields["error"].(string); ok && errText != "" {
		msg += " (" + errText + ")"
	}

	return fmt.Sprintf("%s %s",
		lp.timestamp.Render(entry.Timestamp.Format("15:04:05")),
		levelStyle.Render(msg))
}

// View renders the pane, or nothing when hidden.
func (lp *LogPane) View() string {
	if !lp.visible {
		return ""
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		style.Title().Render("Logs"),
		lp.viewport.View(),
	)
	return style.Panel(lp.width - 2).Render(content)
}

// Height is the rendered height, zero when hidden.
func (lp *LogPane) Height() int {
	if !lp.visible {
		return 0
	}
	return lp.height
}
