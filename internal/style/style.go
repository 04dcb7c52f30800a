package style

import (
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/gamut"
)

const (
	ColorLightGrey = lipgloss.Color("245")
	ColorCyan      = lipgloss.Color("63")
	ColorBrightRed = lipgloss.Color("196")
	ColorFuscia    = lipgloss.Color("170")
	ColorDarkGrey  = lipgloss.Color("241")
	ColorGrey2     = lipgloss.Color("235")
	ColorGrey3     = lipgloss.Color("236")
)

const Background1 = "☖"

// Styles
var (
	PaneTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorFuscia).
			PaddingLeft(1)

	PaneCountStyle = lipgloss.NewStyle().
			Foreground(ColorDarkGrey)

	// Thread rows
	ThreadRowStyle = lipgloss.NewStyle().
			PaddingLeft(1)

	CurrentThreadRowStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				Bold(true).
				Foreground(ColorFuscia).
				Background(ColorGrey3)

	CursorMarkerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")).
				Bold(true)

	// Message log
	SenderStyle = lipgloss.NewStyle().Bold(true)

	UnknownSenderStyle = lipgloss.NewStyle().
				Bold(true).
				Faint(true)

	AttachmentStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	AttachmentMetaStyle = lipgloss.NewStyle().
				Foreground(ColorDarkGrey).
				Italic(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorBrightRed).
			Bold(true)

	EmptyStyle = lipgloss.NewStyle().
			Foreground(ColorDarkGrey).
			Italic(true)

	SubScreenStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorCyan).
			Background(ColorGrey2).
			Padding(1, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorFuscia)
)

var Subtle = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}

var Blends = gamut.Blends(lipgloss.Color("#F25D94"), lipgloss.Color("#EDFF82"), 50)

// StateBorderColor maps a pane's coarse state marker to its border colour.
func StateBorderColor(marker string) lipgloss.TerminalColor {
	switch marker {
	case "loading":
		return ColorLightGrey
	case "failed":
		return ColorBrightRed
	case "loaded":
		return ColorCyan
	}
	return ColorDarkGrey
}

// PaneBorder returns the border for a pane, doubled when the pane has focus.
func PaneBorder(focused bool) lipgloss.Border {
	if focused {
		return lipgloss.DoubleBorder()
	}
	return lipgloss.RoundedBorder()
}

// Rainbow renders each rune of s in the next colour of colors.
func Rainbow(base lipgloss.Style, s string, colors []color.Color) string {
	var str strings.Builder
	for i, ss := range []rune(s) {
		c, _ := colorful.MakeColor(colors[i%len(colors)])
		str.WriteString(base.Foreground(lipgloss.Color(c.Hex())).Render(string(ss)))
	}
	return str.String()
}

func RenderSubscreen(w, h int, title, content string) string {
	return lipgloss.Place(
		w,
		h,
		lipgloss.Center,
		lipgloss.Center,
		SubScreenStyle.Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				Rainbow(TitleStyle, title, Blends),
				content,
			),
		),
		lipgloss.WithWhitespaceChars(Background1),
		lipgloss.WithWhitespaceForeground(Subtle),
	)
}
