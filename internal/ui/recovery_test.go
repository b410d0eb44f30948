package ui

import (
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockModel quits on its first update or panics in Init when asked.
type mockModel struct {
	panicOnInit bool
}

func (m mockModel) Init() tea.Cmd {
	if m.panicOnInit {
		panic("init panic test")
	}
	return tea.Quit
}

func (m mockModel) Update(tea.Msg) (tea.Model, tea.Cmd) { return m, tea.Quit }

func (m mockModel) View() string { return "Test UI" }

func headless() []tea.ProgramOption {
	return []tea.ProgramOption{
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
	}
}

func TestRecoveryHandlerNormalExit(t *testing.T) {
	handler := NewRecoveryHandler(zap.NewNop(), func() (tea.Model, []tea.ProgramOption) {
		return mockModel{}, headless()
	})

	require.NoError(t, handler.RunWithRecovery())
	assert.Zero(t, handler.RestartCount())
}

func TestRecoveryHandlerRestartsAfterPanic(t *testing.T) {
	var runs atomic.Int32
	handler := NewRecoveryHandler(zap.NewNop(), func() (tea.Model, []tea.ProgramOption) {
		// Panic on the first run only.
		return mockModel{panicOnInit: runs.Add(1) == 1}, headless()
	})
	handler.restartDelay = time.Millisecond

	require.NoError(t, handler.RunWithRecovery())
	assert.Equal(t, 1, handler.RestartCount())
	assert.Equal(t, int32(2), runs.Load())
}

func TestRecoveryHandlerGivesUp(t *testing.T) {
	handler := NewRecoveryHandler(zap.NewNop(), func() (tea.Model, []tea.ProgramOption) {
		return mockModel{panicOnInit: true}, headless()
	})
	handler.restartDelay = time.Millisecond
	handler.maxRestarts = 2

	err := handler.RunWithRecovery()
	require.Error(t, err)
	assert.True(t, errors.Is(err, tea.ErrProgramPanic))
	assert.Equal(t, 3, handler.RestartCount())
}

func TestRecoveryHandlerStoppedBeforeRun(t *testing.T) {
	var runs atomic.Int32
	handler := NewRecoveryHandler(zap.NewNop(), func() (tea.Model, []tea.ProgramOption) {
		runs.Add(1)
		return mockModel{}, headless()
	})
	handler.Stop()

	require.NoError(t, handler.RunWithRecovery())
	assert.Zero(t, runs.Load())
}
