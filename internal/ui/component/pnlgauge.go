package component

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/xaut-perp/internal/ui/style"
)

// PnLGauge renders PnL as a percentage of margin with a bar.
type PnLGauge struct {
	value    float64 // percent of margin
	width    int
	maxScale float64
}

func NewPnLGauge(width int) *PnLGauge {
	return &PnLGauge{width: width, maxScale: 50}
}

func (p *PnLGauge) SetValue(value float64) *PnLGauge {
	p.value = value
	return p
}

func (p *PnLGauge) SetWidth(width int) *PnLGauge {
	p.width = width
	return p
}

// Arrow returns the direction marker for the current value.
func (p *PnLGauge) Arrow() string {
	switch {
	case p.value > 0:
		return "↑"
	case p.value < 0:
		return "↓"
	default:
		return "→"
	}
}

func (p *PnLGauge) View() string {
	color := style.DefaultPalette().Signed(p.value)

	sign := ""
	if p.value > 0 {
		sign = "+"
	}
	text := fmt.Sprintf("%s%.2f%% %s", sign, p.value, p.Arrow())

	bar := lipgloss.NewStyle().Foreground(color).Render(p.bar())
	return bar + " " + lipgloss.NewStyle().Foreground(color).Bold(true).Render(text)
}

func (p *PnLGauge) bar() string {
	if p.width <= 0 {
		return ""
	}

	intensity := math.Min(math.Abs(p.value)/p.maxScale, 1)
	filled := int(intensity * float64(p.width))
	if filled < 1 && p.value != 0 {
		filled = 1
	}
	return strings.Repeat("█", filled) + strings.Repeat("▁", p.width-filled)
}
