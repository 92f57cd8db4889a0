// Package palette parses hex colors and holds the three-slot palettes that
// every rating carries.
package palette

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Slots is the fixed number of colors in a palette.
const Slots = 3

// hexDigits is the length of an RRGGBB color without the leading '#'.
const hexDigits = 6

// Default picker values for a fresh form.
var Defaults = [Slots]string{"#FF0000", "#00FF00", "#0000FF"}

// Color is a point in 8-bit RGB space.
type Color struct {
	R, G, B uint8
}

// ParseColor converts "#RRGGBB" (the '#' is optional, surrounding whitespace
// is ignored) into a Color. Shorthand "#RGB" is rejected.
func ParseColor(s string) (Color, error) {
	v := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(v) != hexDigits {
		return Color{}, fmt.Errorf("%w: %q has wrong length", ErrInvalidColor, s)
	}
	for _, r := range v {
		if !isHexDigit(r) {
			return Color{}, fmt.Errorf("%w: %q has non-hex digit %q", ErrInvalidColor, s, r)
		}
	}
	c, err := colorful.Hex("#" + v)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q: %v", ErrInvalidColor, s, err)
	}
	r, g, b := c.RGB255()
	return Color{R: r, G: g, B: b}, nil
}

// MustColor is ParseColor for constants and tests.
func MustColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

func isHexDigit(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'a' && r <= 'f':
		return true
	case r >= 'A' && r <= 'F':
		return true
	}
	return false
}

// Hex returns the canonical upper-case "#RRGGBB" form.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func (c Color) String() string { return c.Hex() }

// Distance is the Euclidean distance between two colors in 0-255 RGB space.
func (c Color) Distance(o Color) float64 {
	dr := float64(c.R) - float64(o.R)
	dg := float64(c.G) - float64(o.G)
	db := float64(c.B) - float64(o.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// Palette is an ordered triple of colors. Slot 0 carries the most weight.
type Palette [Slots]Color

// ParsePalette parses three hex strings. The returned error names the first
// slot (1-based) that failed.
func ParsePalette(hex [Slots]string) (Palette, error) {
	var p Palette
	for i, s := range hex {
		c, err := ParseColor(s)
		if err != nil {
			return Palette{}, fmt.Errorf("color %d: %w", i+1, err)
		}
		p[i] = c
	}
	return p, nil
}

// ParseSlice is ParsePalette for callers holding a slice.
func ParseSlice(hex []string) (Palette, error) {
	if len(hex) != Slots {
		return Palette{}, fmt.Errorf("%w: got %d", ErrSlotCount, len(hex))
	}
	return ParsePalette([Slots]string{hex[0], hex[1], hex[2]})
}

// Strings returns the canonical hex form of every slot.
func (p Palette) Strings() [Slots]string {
	var out [Slots]string
	for i, c := range p {
		out[i] = c.Hex()
	}
	return out
}
