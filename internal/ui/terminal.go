package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor reports whether stdout should get ANSI colors.
// NO_COLOR and CLICOLOR=0 disable them; CLICOLOR_FORCE=1 forces them on.
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	// Otherwise only when stdout is a terminal.
	return term.IsTerminal(int(os.Stdout.Fd()))
}
