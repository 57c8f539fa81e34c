// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TERMINAL DETECTION
// =============================================================================

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// IsTTY reports whether stdin is a terminal.
func IsTTY() bool { return isTerminal(os.Stdin) }

// IsStdoutTTY reports whether stdout is a terminal.
func IsStdoutTTY() bool { return isTerminal(os.Stdout) }

// TTYRequiredError is returned when a command can only run interactively.
type TTYRequiredError struct {
	Operation string
}

func (e *TTYRequiredError) Error() string {
	if e.Operation == "" {
		return "not a terminal: interactive input is not available"
	}
	return "not a terminal: cannot " + e.Operation
}

// =============================================================================
// COLOR CONTROL
// =============================================================================

var (
	colorOnce    sync.Once
	colorAllowed bool
)

// colorDecision applies NO_COLOR (https://no-color.org/), then FORCE_COLOR,
// then falls back to whether stdout is a terminal.
func colorDecision(getenv func(string) string, stdoutTTY bool) bool {
	switch {
	case getenv("NO_COLOR") != "":
		return false
	case getenv("FORCE_COLOR") != "":
		return true
	default:
		return stdoutTTY
	}
}

// ColorsEnabled reports whether output may be colored. The answer is fixed
// for the life of the process.
func ColorsEnabled() bool {
	colorOnce.Do(func() {
		colorAllowed = colorDecision(os.Getenv, IsStdoutTTY())
	})
	return colorAllowed
}

// GetColorProfile returns the profile lipgloss should render with.
func GetColorProfile() termenv.Profile {
	if ColorsEnabled() {
		return termenv.ColorProfile()
	}
	return termenv.Ascii
}

// configureColors applies the color decision to lipgloss.
func configureColors() {
	lipgloss.SetColorProfile(GetColorProfile())
}
