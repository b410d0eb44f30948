package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Gold    = lipgloss.Color("#F5C542") // Primary highlight
	Cyan    = lipgloss.Color("#00E5FF")
	Yellow  = lipgloss.Color("#FFB500")
	Green   = lipgloss.Color("#2AFFAA")
	Red     = lipgloss.Color("#FF5555")
	Blue    = lipgloss.Color("#3B82F6")
	Magenta = lipgloss.Color("#FF1B6B")

	Base03 = lipgloss.Color("#1B1D23") // Background
	Base02 = lipgloss.Color("#262831")
	Base01 = lipgloss.Color("#6C7280") // Muted text
	Base2  = lipgloss.Color("#ECEFF4") // Primary text
	Base1  = lipgloss.Color("#B4BCC8")
)

// Palette provides a centralized color management
type Palette struct {
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Warning lipgloss.Color
	Info    lipgloss.Color

	Background    lipgloss.Color
	BackgroundAlt lipgloss.Color
	Text          lipgloss.Color
	TextMuted     lipgloss.Color
	TextSecondary lipgloss.Color

	Long  lipgloss.Color
	Short lipgloss.Color
}

// DefaultPalette returns the default color palette
func DefaultPalette() Palette {
	return Palette{
		Primary: Gold,
		Accent:  Cyan,
		Success: Green,
		Error:   Red,
		Warning: Yellow,
		Info:    Blue,

		Background:    Base03,
		BackgroundAlt: Base02,
		Text:          Base2,
		TextMuted:     Base01,
		TextSecondary: Base1,

		Long:  Green,
		Short: Red,
	}
}

// Signed picks the success or error color by sign; zero is muted.
func (p Palette) Signed(v float64) lipgloss.Color {
	switch {
	case v > 0:
		return p.Success
	case v < 0:
		return p.Error
	default:
		return p.TextMuted
	}
}

// Panel is the bordered box used by every dashboard section.
func Panel(width int) lipgloss.Style {
	s := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(DefaultPalette().TextMuted).
		Padding(0, 1)
	if width > 0 {
		s = s.Width(width)
	}
	return s
}

// Title styles a panel heading.
func Title() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(DefaultPalette().Primary).Bold(true)
}

// Muted styles labels and placeholders.
func Muted() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(DefaultPalette().TextMuted)
}

// Row lays out a label on the left and a value on the right within width.
func Row(label, value string, width int) string {
	l := Muted().Render(label)
	gap := width - lipgloss.Width(l) - lipgloss.Width(value)
	if gap < 1 {
		gap = 1
	}
	return l + strings.Repeat(" ", gap) + value
}
