package display

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

// Theme is the two-stop background gradient shown during a period.
type Theme struct {
	Name string // fajr, sunrise, dhuhr, asr, maghrib or night
	From string // hex color
	To   string // hex color
}

var themes = map[prayer.Period]Theme{
	prayer.FajrToSunrise:  {Name: "fajr", From: "#ffdfba", To: "#ffab73"},
	prayer.SunriseToDhuhr: {Name: "sunrise", From: "#87ceeb", To: "#ffcccb"},
	prayer.DhuhrToAsr:     {Name: "dhuhr", From: "#b0e0e6", To: "#fffacd"},
	prayer.AsrToMaghrib:   {Name: "asr", From: "#ffa500", To: "#ffcccb"},
	prayer.MaghribToIsha:  {Name: "maghrib", From: "#ff4500", To: "#2a2a72"},
}

var nightTheme = Theme{Name: "night", From: "#0d1b2a", To: "#1e3c72"}

// PeriodTheme returns the theme for p. Both night periods share one theme.
func PeriodTheme(p prayer.Period) Theme {
	if t, ok := themes[p]; ok {
		return t
	}
	return nightTheme
}

// Foreground returns a text color readable on the theme's gradient.
func (t Theme) Foreground() string {
	from, err1 := colorful.Hex(t.From)
	to, err2 := colorful.Hex(t.To)
	if err1 != nil || err2 != nil {
		return "#ffffff"
	}
	_, _, l := from.BlendLab(to, 0.5).Hcl()
	if l > 0.6 {
		return "#1b1b1b"
	}
	return "#f5f5f5"
}

// Badge renders text on the theme's first color.
func (t Theme) Badge(text string) string {
	if !enabled {
		return text
	}
	return renderer.NewStyle().
		Bold(true).
		Padding(0, 1).
		Background(lipgloss.Color(t.From)).
		Foreground(lipgloss.Color(t.Foreground())).
		Render(text)
}

// Gradient renders text over a background blended from From to To.
func (t Theme) Gradient(text string) string {
	if !enabled {
		return text
	}
	from, err1 := colorful.Hex(t.From)
	to, err2 := colorful.Hex(t.To)
	if err1 != nil || err2 != nil {
		return t.Badge(text)
	}

	fg := lipgloss.Color(t.Foreground())
	runes := []rune(text)
	var sb strings.Builder
	for i, r := range runes {
		frac := 0.0
		if len(runes) > 1 {
			frac = float64(i) / float64(len(runes)-1)
		}
		bg := from.BlendLab(to, frac).Clamped().Hex()
		sb.WriteString(renderer.NewStyle().
			Background(lipgloss.Color(bg)).
			Foreground(fg).
			Render(string(r)))
	}
	return sb.String()
}
