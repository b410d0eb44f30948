package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/xaut-perp/internal/ui/style"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline draws a series of closes as block characters, one column per
// sample. Longer series are downsampled to the width.
type Sparkline struct {
	data  []float64
	width int
}

func NewSparkline(width int) *Sparkline {
	return &Sparkline{width: width}
}

// SetData replaces the series.
func (s *Sparkline) SetData(data []float64) *Sparkline {
	s.data = append(s.data[:0], data...)
	return s
}

func (s *Sparkline) SetWidth(width int) *Sparkline {
	s.width = width
	return s
}

// ChangePercent returns the move from first to last sample.
func (s *Sparkline) ChangePercent() float64 {
	if len(s.data) < 2 || s.data[0] == 0 {
		return 0
	}
	first, last := s.data[0], s.data[len(s.data)-1]
	return (last - first) / first * 100
}

// View renders the sparkline colored by its overall direction.
func (s *Sparkline) View() string {
	if s.width <= 0 {
		return ""
	}
	if len(s.data) == 0 {
		return style.Muted().Render(strings.Repeat("▁", s.width))
	}

	color := style.DefaultPalette().Signed(s.ChangePercent())
	return lipgloss.NewStyle().Foreground(color).Render(s.blocks())
}

func (s *Sparkline) blocks() string {
	samples := resample(s.data, s.width)
	lo, hi := minMax(samples)

	var b strings.Builder
	for _, v := range samples {
		idx := len(sparkChars) / 2
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkChars)-1))
		}
		b.WriteRune(sparkChars[idx])
	}
	for i := len(samples); i < s.width; i++ {
		b.WriteRune(' ')
	}
	return b.String()
}

// resample picks evenly spaced points so that at most width remain, always
// keeping the last one.
func resample(data []float64, width int) []float64 {
	if len(data) <= width {
		return data
	}
	if width == 1 {
		return data[len(data)-1:]
	}
	out := make([]float64, width)
	step := float64(len(data)-1) / float64(width-1)
	for i := range out {
		out[i] = data[int(float64(i)*step+0.5)]
	}
	return out
}

func minMax(data []float64) (float64, float64) {
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
