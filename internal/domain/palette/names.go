package palette

import "github.com/lucasb-eyer/go-colorful"

// named is the caption set used for swatches in song listings.
var named = []struct {
	name string
	hex  string
}{
	{"black", "#000000"},
	{"white", "#FFFFFF"},
	{"red", "#FF0000"},
	{"green", "#008000"},
	{"blue", "#0000FF"},
	{"yellow", "#FFFF00"},
	{"cyan", "#00FFFF"},
	{"magenta", "#FF00FF"},
	{"gray", "#808080"},
	{"silver", "#C0C0C0"},
	{"maroon", "#800000"},
	{"olive", "#808000"},
	{"lime", "#00FF00"},
	{"teal", "#008080"},
	{"navy", "#000080"},
	{"purple", "#800080"},
	{"orange", "#FFA500"},
	{"pink", "#FFC0CB"},
	{"brown", "#A52A2A"},
	{"gold", "#FFD700"},
	{"beige", "#F5F5DC"},
	{"turquoise", "#40E0D0"},
	{"lavender", "#E6E6FA"},
	{"coral", "#FF7F50"},
}

var namedColors = func() []colorful.Color {
	out := make([]colorful.Color, len(named))
	for i, n := range named {
		out[i] = MustColor(n.hex).colorful()
	}
	return out
}()

// HueName returns the closest human-readable name for c, measured in CIE Lab.
// Ties go to the earlier entry.
func HueName(c Color) string {
	cf := c.colorful()
	best := 0
	bestDist := cf.DistanceLab(namedColors[0])
	for i := 1; i < len(namedColors); i++ {
		if d := cf.DistanceLab(namedColors[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return named[best].name
}
