package style

import (
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"
)

// Title gradient stops.
var (
	GradientStart color.Color = lipgloss.Color("#F25D94")
	GradientEnd   color.Color = lipgloss.Color("#874BFD")
)

// Ramp returns size colours blended in Hcl between the given stops, spread as
// evenly as possible across the segments.
func Ramp(size int, stops ...color.Color) []color.Color {
	if len(stops) < 2 || size <= 0 {
		return nil
	}

	points := make([]colorful.Color, len(stops))
	for i, k := range stops {
		points[i], _ = colorful.MakeColor(k)
	}

	segments := len(points) - 1
	ramp := make([]color.Color, 0, size)
	for i := range segments {
		n := size / segments
		if i < size%segments {
			n++
		}
		for j := range n {
			var t float64
			if n > 1 {
				t = float64(j) / float64(n-1)
			}
			ramp = append(ramp, points[i].BlendHcl(points[i+1], t))
		}
	}
	return ramp
}

func hex(c color.Color) lipgloss.Color {
	cf, _ := colorful.MakeColor(c)
	return lipgloss.Color(cf.Hex())
}

// ApplyBoldForegroundGrad renders input bold with a horizontal foreground
// gradient, one colour per grapheme cluster.
func ApplyBoldForegroundGrad(input string, from, to color.Color) string {
	if input == "" {
		return ""
	}

	var clusters []string
	gr := uniseg.NewGraphemes(input)
	for gr.Next() {
		clusters = append(clusters, gr.Str())
	}

	bold := lipgloss.NewStyle().Bold(true)
	if len(clusters) == 1 {
		return bold.Foreground(hex(from)).Render(input)
	}

	var o strings.Builder
	for i, c := range Ramp(len(clusters), from, to) {
		o.WriteString(bold.Foreground(hex(c)).Render(clusters[i]))
	}
	return o.String()
}
