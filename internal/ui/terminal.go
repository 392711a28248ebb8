package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor reports whether command output on stdout should carry ANSI
// styling.
func ShouldUseColor() bool {
	return ColorFor(os.Stdout)
}

// ColorFor reports whether output written to f should carry ANSI styling.
// The environment decides first (NO_COLOR, then CLICOLOR_FORCE, then
// CLICOLOR); otherwise f must be a terminal.
func ColorFor(f *os.File) bool {
	return colorDecision(os.Getenv, func() bool {
		return f != nil && term.IsTerminal(int(f.Fd()))
	})
}

func colorDecision(getenv func(string) string, isTTY func() bool) bool {
	// Any non-empty NO_COLOR turns styling off (no-color.org).
	if getenv("NO_COLOR") != "" {
		return false
	}
	switch {
	case strings.TrimSpace(getenv("CLICOLOR_FORCE")) == "1":
		return true
	case strings.TrimSpace(getenv("CLICOLOR")) == "0":
		return false
	}
	return isTTY()
}
