package tui

import (
	"os"

	"golang.org/x/term"
)

// Mode says whether progress indicators may be drawn.
type Mode int

const (
	ModeNonInteractive Mode = iota
	ModeInteractive
)

// envDisablesProgress lists variables that turn the spinner off when set.
// ILSETL_NON_INTERACTIVE only counts when it is exactly "1".
var envDisablesProgress = []string{"CI", "NO_COLOR"}

// modeFor decides the mode from the environment and whether stderr is a terminal.
func modeFor(getenv func(string) string, stderrIsTerminal bool) Mode {
	if getenv("ILSETL_NON_INTERACTIVE") == "1" {
		return ModeNonInteractive
	}
	for _, name := range envDisablesProgress {
		if getenv(name) != "" {
			return ModeNonInteractive
		}
	}
	if !stderrIsTerminal {
		return ModeNonInteractive
	}
	return ModeInteractive
}

// DetectMode reports ModeInteractive only when stderr is a terminal and none of
// ILSETL_NON_INTERACTIVE=1, CI or NO_COLOR is set. Spinners draw on stderr so
// piped stdout stays clean.
func DetectMode() Mode {
	return modeFor(os.Getenv, term.IsTerminal(int(os.Stderr.Fd())))
}

// IsInteractive reports whether DetectMode returns ModeInteractive.
func IsInteractive() bool {
	return DetectMode() == ModeInteractive
}
