// Package display renders prayer schedules for the terminal: text styles,
// aligned tables and the per-period color themes.
//
// Colors are off when NO_COLOR is set (https://no-color.org/) or stdout is
// not a terminal, and forced on by FORCE_COLOR.
package display

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// enabled reports whether color output is active.
// It is set once at init time.
var enabled = shouldEnable()

// renderer writes true color whenever colors are enabled at all; the
// NO_COLOR and terminal checks happen in enabled.
var renderer = newRenderer()

func newRenderer() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(os.Stdout)
	r.SetColorProfile(termenv.TrueColor)
	return r
}

var (
	boldStyle   = renderer.NewStyle().Bold(true)
	dimStyle    = renderer.NewStyle().Faint(true)
	redStyle    = renderer.NewStyle().Foreground(lipgloss.Color("1"))
	accentStyle = renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
)

func shouldEnable() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if _, ok := os.LookupEnv("FORCE_COLOR"); ok {
		return true
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SetEnabled overrides the auto-detected color state.
// Useful for testing or when --json forces plain output.
func SetEnabled(b bool) {
	enabled = b
}

// Enabled reports whether color output is currently active.
func Enabled() bool {
	return enabled
}

func render(s lipgloss.Style, text string) string {
	if !enabled {
		return text
	}
	return s.Render(text)
}

// Bold returns text rendered in bold.
func Bold(text string) string {
	return render(boldStyle, text)
}

// Dim returns text rendered faint. Used for the prayer that has passed.
func Dim(text string) string {
	return render(dimStyle, text)
}

// Red returns text rendered in red. Used for fetch failures.
func Red(text string) string {
	return render(redStyle, text)
}

// Accent highlights the next prayer (bold cyan).
func Accent(text string) string {
	return render(accentStyle, text)
}
