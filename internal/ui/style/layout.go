package style

import "github.com/charmbracelet/lipgloss"

// NarrowWidth is the terminal width below which dashboard columns stack.
const NarrowWidth = 90

// AdaptiveJoinHorizontal places columns side by side, or stacks them on
// narrow terminals.
func AdaptiveJoinHorizontal(width int, columns ...string) string {
	if width < NarrowWidth {
		return lipgloss.JoinVertical(lipgloss.Left, columns...)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

// AdaptiveWidth returns percentage of width, or the full width when the
// columns stack.
func AdaptiveWidth(width, percentage int) int {
	if width < NarrowWidth {
		return width
	}
	return width * percentage / 100
}
