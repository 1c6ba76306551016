package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func envOf(vars map[string]string) func(string) string {
	return func(name string) string { return vars[name] }
}

func TestModeFor(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		terminal bool
		want     Mode
	}{
		{"terminal with clean env", nil, true, ModeInteractive},
		{"no terminal", nil, false, ModeNonInteractive},
		{"explicit opt-out", map[string]string{"ILSETL_NON_INTERACTIVE": "1"}, true, ModeNonInteractive},
		{"opt-out needs exactly 1", map[string]string{"ILSETL_NON_INTERACTIVE": "true"}, true, ModeInteractive},
		{"CI", map[string]string{"CI": "true"}, true, ModeNonInteractive},
		{"NO_COLOR", map[string]string{"NO_COLOR": "1"}, true, ModeNonInteractive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, modeFor(envOf(tt.env), tt.terminal))
		})
	}
}

func TestIsInteractive_FalseUnderGoTest(t *testing.T) {
	t.Setenv("ILSETL_NON_INTERACTIVE", "")
	t.Setenv("CI", "")
	t.Setenv("NO_COLOR", "")

	// go test does not attach stderr to a terminal.
	assert.False(t, IsInteractive())
}
