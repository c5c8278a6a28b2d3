package shape

import (
	"math"
	"slices"

	"github.com/rivo/uniseg"

	"github.com/badgemaker/badgemaker/internal/document"
)

// Glyph is one grapheme of circular text, positioned in a frame whose
// origin is the circle centre. Draw it rotated by Angle at (0, Y), centred
// on both axes.
type Glyph struct {
	Text  string
	Angle float64
	Y     float64
}

// LayoutCircleText lays the text of a circle-text shape along its circle.
// With centre alignment half of the angular budget is spent before the
// first glyph so the string is centred on the start angle. Outward facing
// text is turned by half a turn. kerning adds a fixed arc gap between
// glyphs.
func LayoutCircleText(p document.Properties, m Measurer, align string) ([]Glyph, error) {
	text := p.String(document.KeyText)
	if text == "" {
		return nil, nil
	}
	if m == nil {
		return nil, ErrNoMeasurer
	}
	family := p.String(document.KeyFontFamily)
	size := p.Float(document.KeyFontSize)
	radius := p.Float(document.KeyRadius)
	kerning := p.Float(document.KeyKerning)
	inside := p.Bool(document.KeyTextInside, true)
	inward := p.Bool(document.KeyInwardFacing, true)

	_, textHeight, err := m.Measure(text, family, size)
	if err != nil {
		return nil, err
	}
	if !inside {
		radius += textHeight
	}
	arcRadius := radius - textHeight
	if arcRadius <= 0 {
		return nil, ErrDegenerateLayout
	}

	clockwise := -1.0
	if align == "right" {
		clockwise = 1
	}

	clusters := graphemes(text)
	if ((align == "left" || align == "center") && inward) || (align == "right" && !inward) {
		slices.Reverse(clusters)
	}

	widths := make([]float64, len(clusters))
	for i, c := range clusters {
		w, _, err := m.Measure(c, family, size)
		if err != nil {
			return nil, err
		}
		widths[i] = w
	}

	angle := p.Float(document.KeyStartAngle) * math.Pi / 180
	if !inward {
		angle += math.Pi
	}
	if align == "center" {
		for i, w := range widths {
			gap := kerning
			if i == len(widths)-1 {
				gap = 0
			}
			angle += (w + gap) / arcRadius / 2 * -clockwise
		}
	}

	y := textHeight/2 - radius
	if !inward {
		y = -y
	}

	glyphs := make([]Glyph, len(clusters))
	for i, c := range clusters {
		angle += widths[i] / 2 / arcRadius * clockwise
		glyphs[i] = Glyph{Text: c, Angle: angle, Y: y}
		angle += (widths[i]/2 + kerning) / arcRadius * clockwise
	}
	return glyphs, nil
}

func graphemes(s string) []string {
	var out []string
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}
