package tui

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// RunWithSpinner runs fn while a spinner labeled message is drawn on stderr.
// Without a terminal fn runs directly. Ctrl+C cancels the context passed to fn.
func RunWithSpinner(ctx context.Context, message string, fn func(context.Context) error) error {
	if !IsInteractive() {
		return fn(ctx)
	}
	return runSpinner(ctx, message, fn, tea.WithOutput(os.Stderr))
}

func runSpinner(ctx context.Context, message string, fn func(context.Context) error, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(newSpinnerModel(message, cancel), opts...)

	result := make(chan error, 1)
	go func() {
		err := fn(ctx)
		result <- err
		program.Send(spinnerDoneMsg{err: err})
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-result
		return fmt.Errorf("spinner: %w", err)
	}
	return <-result
}
