// Package ui renders ANSI-styled text for the eventdesk CLI.
package ui

import "fmt"

// ANSI256 color codes.
const (
	colorAccent  = 74  // blue
	colorCmd     = 250 // light gray
	colorMuted   = 245 // medium gray
	colorSuccess = 71  // green
	colorWarn    = 178 // amber
	colorError   = 167 // red
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color. Used for event ids and
// section headers.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(colorCmd, s) }

// RenderSuccess returns s in green.
func RenderSuccess(s string) string { return render(colorSuccess, s) }

// RenderWarning returns s in amber.
func RenderWarning(s string) string { return render(colorWarn, s) }

// RenderError returns s in red.
func RenderError(s string) string { return render(colorError, s) }

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// ColorEnabled reports whether the Render functions emit escape codes.
func ColorEnabled() bool { return !noColor }
