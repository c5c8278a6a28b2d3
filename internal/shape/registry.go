// Package shape holds the per-variant geometry of scene shapes: bounding
// boxes, point containment, resize handles, rendering and outlines. Every
// operation dispatches through a single switch on document.Type.
package shape

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/badgemaker/badgemaker/internal/document"
)

var (
	ErrUnknownType      = document.ErrUnknownType
	ErrNoMeasurer       = errors.New("no text measurer configured")
	ErrDegenerateLayout = errors.New("circle text radius smaller than text height")
)

// Layout holds the visual constants of outlines and circular text.
type Layout struct {
	HandleSize         float64 `toml:"handle_size"`
	RectOutlinePadding float64 `toml:"rect_outline_padding"`
	TextOutlinePadding float64 `toml:"text_outline_padding"`
	OutlineColor       string  `toml:"outline_color"`
	GroupOutlineColor  string  `toml:"group_outline_color"`
	BorderColor        string  `toml:"border_color"`
	// CircleTextAlign is one of "left", "center", "right".
	CircleTextAlign string `toml:"circle_text_align"`
}

func DefaultLayout() Layout {
	return Layout{
		HandleSize:         8,
		RectOutlinePadding: 2,
		TextOutlinePadding: 5,
		OutlineColor:       "lightblue",
		GroupOutlineColor:  "orange",
		BorderColor:        "black",
		CircleTextAlign:    "center",
	}
}

// Registry evaluates shape geometry. It is safe for concurrent use as long
// as its Measurer and ImageSource are.
type Registry struct {
	measurer Measurer
	images   ImageSource
	layout   Layout
}

// NewRegistry creates a registry. images may be nil, in which case image
// shapes never draw.
func NewRegistry(measurer Measurer, images ImageSource, layout Layout) *Registry {
	return &Registry{measurer: measurer, images: images, layout: layout}
}

func (r *Registry) Layout() Layout { return r.layout }

// BoundingBox returns the axis-aligned box used for hit-testing, outlines
// and alignment, whatever the shape's native parameterisation.
func (r *Registry) BoundingBox(s document.Shape) (Rect, error) {
	p := s.Props
	switch s.Type {
	case document.TypeRectangle, document.TypeImage:
		return Rect{
			X:      p.Float(document.KeyX),
			Y:      p.Float(document.KeyY),
			Width:  p.Float(document.KeyWidth),
			Height: p.Float(document.KeyHeight),
		}, nil
	case document.TypeCircle, document.TypeCircleText:
		return circleBox(p), nil
	case document.TypeText:
		return r.textBox(p)
	default:
		return Rect{}, fmt.Errorf("%w: %q", ErrUnknownType, s.Type)
	}
}

func circleBox(p document.Properties) Rect {
	x, y, radius := p.Float(document.KeyX), p.Float(document.KeyY), p.Float(document.KeyRadius)
	return Rect{X: x - radius, Y: y - radius, Width: radius * 2, Height: radius * 2}
}

// textBox pads the measured extent. y is the baseline, so the box sits above it.
func (r *Registry) textBox(p document.Properties) (Rect, error) {
	w, h, err := r.measure(p.String(document.KeyText), p.String(document.KeyFontFamily), p.Float(document.KeyFontSize))
	if err != nil {
		return Rect{}, err
	}
	pad := r.layout.TextOutlinePadding
	return Rect{
		X:      p.Float(document.KeyX) - pad,
		Y:      p.Float(document.KeyY) - h - pad,
		Width:  w + pad*2,
		Height: h + pad*2,
	}, nil
}

func (r *Registry) measure(text, family string, size float64) (float64, float64, error) {
	if r.measurer == nil {
		return 0, 0, ErrNoMeasurer
	}
	w, h, err := r.measurer.Measure(text, family, size)
	if err != nil {
		return 0, 0, fmt.Errorf("measure text: %w", err)
	}
	return w, h, nil
}

// HitTest reports whether (x, y) lies inside the shape body. Circle variants
// use true circular distance; everything else its bounding box. Shapes that
// cannot be evaluated never hit.
func (r *Registry) HitTest(x, y float64, s document.Shape) bool {
	switch s.Type {
	case document.TypeCircle, document.TypeCircleText:
		dx := x - s.Props.Float(document.KeyX)
		dy := y - s.Props.Float(document.KeyY)
		radius := s.Props.Float(document.KeyRadius)
		return dx*dx+dy*dy <= radius*radius
	}

	box, err := r.BoundingBox(s)
	if err != nil {
		slog.Warn("hit test", "error", err, "id", s.ID, "type", s.Type)
		return false
	}
	return box.Contains(x, y)
}
