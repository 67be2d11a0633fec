// Package tui renders the terminal-facing pieces of mfetch: the banner, result summaries and
// terminal detection for prompts.
package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.ANSIColor(termenv.ANSIBrightWhite)).
			Bold(true)

	QuestionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.ANSIColor(termenv.ANSIBrightGreen)).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.ANSIColor(termenv.ANSIBrightGreen))

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.ANSIColor(termenv.ANSIYellow))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff0000")).
			Bold(true)

	PathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3a96dd")).
			Bold(true)

	HintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676")).
			PaddingLeft(2)
)

var gradient = []string{
	"#89DCEB", "#99C9F5", "#B0B0FF", "#C49FFF", "#DB8AFF",
}

// Banner paints "app | vX | extras..." over a pastel gradient exactly width cells wide.
func Banner(app string, version string, width int, extras ...string) string {
	if width <= 0 {
		return ""
	}
	parts := append([]string{app, "v" + version}, extras...)
	runes := []rune(" " + strings.Join(parts, " | "))

	var out strings.Builder
	for col := 0; col < width; col++ {
		background := gradient[col*len(gradient)/width]

		glyph := " "
		if col < len(runes) {
			glyph = string(runes[col])
		}

		foreground := "#FFFFFF"
		if isLight(background) {
			foreground = "#000000"
		}

		out.WriteString(
			lipgloss.NewStyle().
				Background(lipgloss.Color(background)).
				Foreground(lipgloss.Color(foreground)).
				Bold(true).
				Render(glyph),
		)
	}
	return out.String()
}

// Rec. 709 relative luminance; good enough to pick black or white text on a pastel.
func isLight(hex string) bool {
	r, g, b := hexToRGB(hex)
	return 0.2126*r+0.7152*g+0.0722*b > 0.5
}

func hexToRGB(hex string) (float64, float64, float64) {
	channel := func(s string) float64 {
		v, _ := strconv.ParseUint(s, 16, 8)
		return float64(v) / 255
	}
	hex = strings.TrimPrefix(hex, "#")
	switch len(hex) {
	case 6:
		return channel(hex[0:2]), channel(hex[2:4]), channel(hex[4:6])
	case 3:
		return channel(strings.Repeat(hex[0:1], 2)),
			channel(strings.Repeat(hex[1:2], 2)),
			channel(strings.Repeat(hex[2:3], 2))
	}
	return 0, 0, 0
}
