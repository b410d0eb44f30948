package component

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/xaut-perp/internal/ui/style"
)

// ToastDuration is how long a notification stays on screen.
const ToastDuration = 4 * time.Second

// Toast is a single transient notification.
type Toast struct {
	ID      int
	Text    string
	Success bool
}

// Toasts keeps the current notification. A newer toast replaces the older one.
type Toasts struct {
	current *Toast
	nextID  int
}

// Push shows text and returns the toast ID used to expire it.
func (t *Toasts) Push(text string, success bool) int {
	t.nextID++
	t.current = &Toast{ID: t.nextID, Text: text, Success: success}
	return t.nextID
}

// Expire hides the toast if it is still the one with id.
func (t *Toasts) Expire(id int) {
	if t.current != nil && t.current.ID == id {
		t.current = nil
	}
}

func (t *Toasts) Current() *Toast { return t.current }

func (t *Toasts) View() string {
	if t.current == nil {
		return ""
	}
	palette := style.DefaultPalette()
	color, icon := palette.Success, "✓ "
	if !t.current.Success {
		color, icon = palette.Error, "✗ "
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Foreground(color).
		Padding(0, 1).
		Render(icon + t.current.Text)
}
