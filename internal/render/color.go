package render

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

var ErrBadColor = errors.New("unrecognised colour")

// ParseColor understands CSS colour names, #rgb and #rrggbb hex, rgb(...)
// and rgba(...), and "transparent".
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "transparent":
		return color.RGBA{}, nil
	case strings.HasPrefix(s, "#"):
		c, err := colorful.Hex(s)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("%w %q: %v", ErrBadColor, s, err)
		}
		r, g, b := c.RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
	case strings.HasPrefix(s, "rgb"):
		return parseFunctional(s)
	}
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}
	return color.RGBA{}, fmt.Errorf("%w %q", ErrBadColor, s)
}

// MustColor is ParseColor with a fallback for unparseable input.
func MustColor(s string, fallback color.RGBA) color.RGBA {
	c, err := ParseColor(s)
	if err != nil {
		return fallback
	}
	return c
}

// parseFunctional parses rgb(r, g, b) and rgba(r, g, b, a). Alpha is
// premultiplied into the result as image/color expects.
func parseFunctional(s string) (color.RGBA, error) {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return color.RGBA{}, fmt.Errorf("%w %q", ErrBadColor, s)
	}
	parts := strings.Split(s[open+1:end], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.RGBA{}, fmt.Errorf("%w %q", ErrBadColor, s)
	}
	var v [4]float64
	v[3] = 1
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("%w %q: %v", ErrBadColor, s, err)
		}
		v[i] = f
	}
	a := clamp(v[3], 0, 1)
	channel := func(f float64) uint8 { return uint8(clamp(f, 0, 255)*a + 0.5) }
	return color.RGBA{R: channel(v[0]), G: channel(v[1]), B: channel(v[2]), A: uint8(a*255 + 0.5)}, nil
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
