package shape

import "image"

// TextAlign selects which point of a string FillText positions.
type TextAlign int

const (
	// AlignBaselineLeft places the left end of the baseline at (x, y).
	AlignBaselineLeft TextAlign = iota
	// AlignCenterMiddle centres the string horizontally and vertically on (x, y).
	AlignCenterMiddle
)

// Surface is the immediate-mode 2D drawing context shapes are rendered on.
// Coordinates are document space; zoom is applied by the caller through
// Scale. Colours are CSS colour strings (names or hex).
type Surface interface {
	Save()
	Restore()
	ResetTransform()
	Translate(x, y float64)
	Rotate(radians float64)
	Scale(sx, sy float64)

	SetFillColor(color string)
	SetStrokeColor(color string)
	SetLineWidth(width float64)

	FillRect(x, y, w, h float64)
	FillRoundedRect(x, y, w, h, r float64)
	StrokeRect(x, y, w, h float64)
	StrokeRoundedRect(x, y, w, h, r float64)
	FillCircle(cx, cy, r float64)
	StrokeCircle(cx, cy, r float64)

	// SetFont selects family at size points.
	SetFont(family string, size float64)
	FillText(text string, x, y float64, align TextAlign)
	DrawImage(img image.Image, x, y, w, h float64)
}

// Measurer reports the extent of text set in family at size points.
// Implementations may cache faces but must not have visible side effects.
type Measurer interface {
	Measure(text, family string, size float64) (width, height float64, err error)
}

// ImageSource resolves an image source reference to a decoded image.
// ok is false while the decode is pending or after it failed.
type ImageSource interface {
	Image(src string) (img image.Image, ok bool)
}
