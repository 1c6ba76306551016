package tui

import (
	"bytes"
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithSpinner_NonInteractiveCallsDirectly(t *testing.T) {
	t.Setenv("ILSETL_NON_INTERACTIVE", "1")

	called := false
	err := RunWithSpinner(context.Background(), "Fetching", func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRunWithSpinner_NonInteractivePropagatesError(t *testing.T) {
	t.Setenv("ILSETL_NON_INTERACTIVE", "1")

	boom := errors.New("boom")
	err := RunWithSpinner(context.Background(), "Fetching", func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRunSpinner_ReturnsOperationResult(t *testing.T) {
	var out bytes.Buffer
	boom := errors.New("boom")

	err := runSpinner(context.Background(), "Fetching", func(ctx context.Context) error {
		return boom
	}, tea.WithInput(nil), tea.WithOutput(&out))

	assert.ErrorIs(t, err, boom)
}

func TestSpinnerModel_DoneQuits(t *testing.T) {
	m := newSpinnerModel("Fetching", nil)

	updated, cmd := m.Update(spinnerDoneMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	view := updated.View()
	assert.Contains(t, view, SymbolCheck)
	assert.Contains(t, view, "Fetching")
}

func TestSpinnerModel_FailureView(t *testing.T) {
	m := newSpinnerModel("Fetching", nil)

	updated, _ := m.Update(spinnerDoneMsg{err: errors.New("boom")})
	assert.Contains(t, updated.View(), SymbolCross)
}

func TestSpinnerModel_CtrlCCancels(t *testing.T) {
	canceled := false
	m := newSpinnerModel("Fetching", func() { canceled = true })

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, canceled)
	assert.Contains(t, updated.View(), "canceling")
}
