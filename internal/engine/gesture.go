package engine

import (
	"github.com/badgemaker/badgemaker/internal/document"
	"github.com/badgemaker/badgemaker/internal/shape"
)

type GestureKind int

const (
	GestureNone GestureKind = iota
	// GestureCreate drags out the placeholder box of an armed tool.
	GestureCreate
	GestureDrag
	GestureResize
	GestureRubberBand
)

func (k GestureKind) String() string {
	switch k {
	case GestureCreate:
		return "create"
	case GestureDrag:
		return "drag"
	case GestureResize:
		return "resize"
	case GestureRubberBand:
		return "rubber-band"
	default:
		return "none"
	}
}

// Gesture is the transient state of one pointer interaction. It lives in
// the Engine only; the document sees a single commit when the pointer is
// released, and nothing at all when the gesture is cancelled.
type Gesture struct {
	Kind    GestureKind
	ShapeID int64
	Handle  shape.Handle
	// Offset is the pointer position relative to the shape anchor at press.
	Offset Point
	Start  Point
	// Current is the latest pointer position.
	Current Point
	// Working holds the properties being edited by a drag or resize.
	Working document.Properties
	Resize  shape.ResizeState
	Moved   bool
}

// Rect returns the normalised rectangle between Start and Current.
func (g *Gesture) Rect() shape.Rect {
	return shape.RectFromPoints(g.Start.X, g.Start.Y, g.Current.X, g.Current.Y)
}

// working returns the shape with the gesture's properties substituted.
func (g *Gesture) working(sh document.Shape) document.Shape {
	if g == nil || g.Working == nil || sh.ID != g.ShapeID {
		return sh
	}
	return document.Shape{ID: sh.ID, Type: sh.Type, Props: g.Working}
}
