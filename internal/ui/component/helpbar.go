package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/xaut-perp/internal/ui/style"
)

// HelpBar shows the enabled key bindings on one or more lines.
type HelpBar struct {
	keyBindings []key.Binding
	width       int

	keyStyle  lipgloss.Style
	descStyle lipgloss.Style
	separator string
}

func NewHelpBar() *HelpBar {
	palette := style.DefaultPalette()
	return &HelpBar{
		width:     80,
		keyStyle:  lipgloss.NewStyle().Foreground(palette.Primary).Bold(true),
		descStyle: lipgloss.NewStyle().Foreground(palette.TextMuted),
		separator: lipgloss.NewStyle().Foreground(palette.TextMuted).Render(" • "),
	}
}

func (h *HelpBar) SetKeyBindings(bindings []key.Binding) *HelpBar {
	h.keyBindings = bindings
	return h
}

func (h *HelpBar) SetWidth(width int) *HelpBar {
	h.width = width
	return h
}

// View wraps items so no line exceeds the width.
func (h *HelpBar) View() string {
	var (
		lines   []string
		current string
	)
	sepWidth := lipgloss.Width(h.separator)

	for _, binding := range h.keyBindings {
		if !binding.Enabled() {
			continue
		}
		help := binding.Help()
		item := h.keyStyle.Render(help.Key) + " " + h.descStyle.Render(help.Desc)

		switch {
		case current == "":
			current = item
		case lipgloss.Width(current)+sepWidth+lipgloss.Width(item) > h.width:
			lines = append(lines, current)
			current = item
		default:
			current += h.separator + item
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return strings.Join(lines, "\n")
}
