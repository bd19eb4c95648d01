package ui

import "fmt"

// ANSI256 color codes.
const (
	colorAccent   = 74  // blue
	colorCmd      = 250 // light gray
	colorMuted    = 245 // medium gray
	colorRequired = 167 // red
	colorOK       = 108 // green
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent color. Section titles and help
// group headers use it.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in gray. Hidden sections, IDs and flag types use it.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderCommand returns s styled as a command name.
func RenderCommand(s string) string { return paint(colorCmd, s) }

// RenderOK returns s in green.
func RenderOK(s string) string { return paint(colorOK, s) }

// RequiredMarker is appended to the labels of required fields.
func RequiredMarker() string { return paint(colorRequired, "*") }

// SectionHeading formats a section title for the layout printer. Hidden
// sections are muted and tagged.
func SectionHeading(title string, visible bool) string {
	if !visible {
		return RenderMuted(title + " (hidden)")
	}
	return RenderAccent(title)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
