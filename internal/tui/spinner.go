package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// spinnerDoneMsg signals that the wrapped operation finished.
type spinnerDoneMsg struct {
	err error
}

// spinnerModel shows a spinner until the operation reports back.
type spinnerModel struct {
	spinner  spinner.Model
	message  string
	done     bool
	canceled bool
	err      error
	cancel   func()
}

func newSpinnerModel(message string, cancel func()) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return spinnerModel{
		spinner: s,
		message: message,
		cancel:  cancel,
	}
}

// Init implements tea.Model.
func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.canceled = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m spinnerModel) View() string {
	if m.done {
		if m.err != nil {
			return ErrorStyle.Render(SymbolCross+" "+m.message) + "\n"
		}
		return SuccessStyle.Render(SymbolCheck+" "+m.message) + "\n"
	}
	if m.canceled {
		return m.spinner.View() + " " + MessageStyle.Render(m.message+" (canceling)")
	}
	return m.spinner.View() + " " + MessageStyle.Render(m.message)
}
