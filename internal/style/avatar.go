package style

import (
	"hash/fnv"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/gamut"
	"github.com/rivo/uniseg"
)

// avatarPalette holds the badge backgrounds. Colours are picked by hashing
// the icon URL so the same picture always gets the same badge.
var avatarPalette = Ramp(12,
	gamut.Hex("#F25D94"),
	gamut.Hex("#874BFD"),
	gamut.Hex("#3FA7D6"),
	gamut.Hex("#59CD90"),
	gamut.Hex("#EDB458"),
)

var placeholderAvatarStyle = lipgloss.NewStyle().
	Foreground(ColorLightGrey).
	Background(ColorGrey3)

// Avatar renders a three cell badge standing in for a picture. placeholder
// marks the default "no image" icon, which is always drawn dim.
func Avatar(name, icon string, placeholder bool) string {
	badge := " ? "
	gr := uniseg.NewGraphemes(strings.TrimSpace(name))
	if gr.Next() {
		letter := strings.ToUpper(gr.Str())
		switch uniseg.StringWidth(letter) {
		case 1:
			badge = " " + letter + " "
		case 2:
			badge = " " + letter
		}
	}

	if placeholder || icon == "" {
		return placeholderAvatarStyle.Render(badge)
	}

	bg := AvatarColor(icon)
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(hex(gamut.Contrast(bg))).
		Background(hex(bg)).
		Render(badge)
}

// AvatarColor returns the badge colour for an icon URL.
func AvatarColor(icon string) color.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(icon))
	return avatarPalette[h.Sum32()%uint32(len(avatarPalette))]
}
