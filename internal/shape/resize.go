package shape

import (
	"fmt"
	"math"
	"strings"

	"github.com/badgemaker/badgemaker/internal/document"
)

// Handle names a corner hotspot of a bounding box.
type Handle string

const (
	HandleNone Handle = ""
	HandleNW   Handle = "nw"
	HandleNE   Handle = "ne"
	HandleSW   Handle = "sw"
	HandleSE   Handle = "se"
)

// Handles lists the corners in hit-test priority order.
var Handles = []Handle{HandleNW, HandleNE, HandleSW, HandleSE}

func (h Handle) north() bool { return strings.Contains(string(h), "n") }
func (h Handle) south() bool { return strings.Contains(string(h), "s") }
func (h Handle) west() bool  { return strings.Contains(string(h), "w") }
func (h Handle) east() bool  { return strings.Contains(string(h), "e") }

// ResizeState is the per-gesture cache of a resize drag. Circle variants
// keep the rectangle being dragged here so that corners can move freely
// while the shape itself stays a circle.
type ResizeState struct {
	// Rect is the live rectangle being dragged.
	Rect  Rect
	Valid bool
}

// HandleZone returns the square hotspot of handle h on box.
func (r *Registry) HandleZone(box Rect, h Handle) Rect {
	size := r.layout.HandleSize
	x, y := box.X, box.Y
	if h.east() {
		x += box.Width
	}
	if h.south() {
		y += box.Height
	}
	return Rect{X: x - size/2, Y: y - size/2, Width: size, Height: size}
}

// HandleAt returns the corner of box whose hotspot contains (x, y). Hotspot
// size is in document units and does not depend on zoom.
func (r *Registry) HandleAt(x, y float64, box Rect) Handle {
	for _, h := range Handles {
		if r.HandleZone(box, h).Contains(x, y) {
			return h
		}
	}
	return HandleNone
}

// HandleBox returns the box whose corners carry the resize handles of s:
// the live resize rect when one is cached, else the bounding box.
func (r *Registry) HandleBox(s document.Shape, state *ResizeState) (Rect, error) {
	if state != nil && state.Valid {
		return state.Rect, nil
	}
	return r.BoundingBox(s)
}

// ApplyResize returns the properties of s after dragging handle h to
// (px, py). state must be the same value for the whole gesture.
func (r *Registry) ApplyResize(s document.Shape, h Handle, px, py float64, state *ResizeState) (document.Properties, error) {
	if h == HandleNone {
		return s.Props.Clone(), nil
	}
	p := s.Props.Clone()

	switch s.Type {
	case document.TypeRectangle, document.TypeImage, document.TypeText:
		box := Rect{
			X:      p.Float(document.KeyX),
			Y:      p.Float(document.KeyY),
			Width:  p.Float(document.KeyWidth),
			Height: p.Float(document.KeyHeight),
		}
		// Text carries no box until its first resize; start from its metrics.
		if s.Type == document.TypeText && !(p.Has(document.KeyWidth) && p.Has(document.KeyHeight)) {
			tw, th, err := r.measure(p.String(document.KeyText), p.String(document.KeyFontFamily), p.Float(document.KeyFontSize))
			if err != nil {
				return nil, err
			}
			box.Width, box.Height = tw, th
		}
		box = resizeRect(box, h, px, py)
		p[document.KeyX], p[document.KeyY] = box.X, box.Y
		p[document.KeyWidth], p[document.KeyHeight] = box.Width, box.Height
		return p, nil

	case document.TypeCircle, document.TypeCircleText:
		if state == nil {
			state = &ResizeState{}
		}
		if !state.Valid {
			state.Rect = circleBox(p)
			state.Valid = true
		}
		state.Rect = resizeRect(state.Rect, h, px, py)
		cx, cy := state.Rect.Center()
		p[document.KeyX], p[document.KeyY] = cx, cy
		p[document.KeyRadius] = math.Min(math.Abs(state.Rect.Width), math.Abs(state.Rect.Height)) / 2
		return p, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, s.Type)
	}
}

// resizeRect moves the dragged corner of rect to (px, py), keeping the
// opposite corner anchored.
func resizeRect(rect Rect, h Handle, px, py float64) Rect {
	if h.north() {
		rect.Height = rect.Y - py + rect.Height
		rect.Y = py
	}
	if h.south() {
		rect.Height = py - rect.Y
	}
	if h.west() {
		rect.Width = rect.X - px + rect.Width
		rect.X = px
	}
	if h.east() {
		rect.Width = px - rect.X
	}
	return rect
}
