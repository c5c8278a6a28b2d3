package engine

import (
	"log/slog"

	"github.com/badgemaker/badgemaker/internal/document"
	"github.com/badgemaker/badgemaker/internal/shape"
)

// Point is a position in document coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type HitKind int

const (
	HitNone HitKind = iota
	HitHandle
	HitBody
)

func (k HitKind) String() string {
	switch k {
	case HitHandle:
		return "handle"
	case HitBody:
		return "body"
	default:
		return "none"
	}
}

// Hit is the result of classifying a pointer position.
type Hit struct {
	Kind   HitKind
	Shape  document.Shape
	Handle shape.Handle
}

// Shaper answers geometric questions about a whole document. It keeps no
// state of its own.
type Shaper struct {
	reg *shape.Registry
}

func NewShaper(reg *shape.Registry) *Shaper {
	return &Shaper{reg: reg}
}

func (s *Shaper) Registry() *shape.Registry { return s.reg }

// PickTopmost returns the last-painted shape whose body contains p.
func (s *Shaper) PickTopmost(p Point, shapes []document.Shape) (document.Shape, bool) {
	for i := len(shapes) - 1; i >= 0; i-- {
		if s.reg.HitTest(p.X, p.Y, shapes[i]) {
			return shapes[i], true
		}
	}
	return document.Shape{}, false
}

// PickAllAt returns every shape whose body contains p, topmost first.
func (s *Shaper) PickAllAt(p Point, shapes []document.Shape) []document.Shape {
	var hits []document.Shape
	for i := len(shapes) - 1; i >= 0; i-- {
		if s.reg.HitTest(p.X, p.Y, shapes[i]) {
			hits = append(hits, shapes[i])
		}
	}
	return hits
}

// ResizeHandleAt returns the handle of sh under p.
func (s *Shaper) ResizeHandleAt(p Point, sh document.Shape, resize *shape.ResizeState) shape.Handle {
	box, err := s.reg.HandleBox(sh, resize)
	if err != nil {
		slog.Warn("handle test", "error", err, "id", sh.ID)
		return shape.HandleNone
	}
	return s.reg.HandleAt(p.X, p.Y, box)
}

// Classify decides what a pointer press at p would grab. A handle of the
// active shape wins over any body, including bodies painted above it.
// activeID is 0 when nothing is active.
func (s *Shaper) Classify(p Point, shapes []document.Shape, activeID int64, resize *shape.ResizeState) Hit {
	if activeID != 0 {
		if active, ok := document.Snapshot(shapes).Find(activeID); ok {
			if h := s.ResizeHandleAt(p, active, resize); h != shape.HandleNone {
				return Hit{Kind: HitHandle, Shape: active, Handle: h}
			}
		}
	}
	if sh, ok := s.PickTopmost(p, shapes); ok {
		return Hit{Kind: HitBody, Shape: sh}
	}
	return Hit{Kind: HitNone}
}

// ContainedInRect reports whether the bounding box of sh touches rect.
// rect may have negative extents.
func (s *Shaper) ContainedInRect(sh document.Shape, rect shape.Rect) bool {
	box, err := s.reg.BoundingBox(sh)
	if err != nil {
		slog.Warn("rect selection", "error", err, "id", sh.ID)
		return false
	}
	return box.Normalize().Intersects(rect.Normalize())
}

// ShapesInRect returns, in paint order, the ids of shapes touched by the
// rectangle spanned by a and b.
func (s *Shaper) ShapesInRect(shapes []document.Shape, a, b Point) []int64 {
	rect := shape.RectFromPoints(a.X, a.Y, b.X, b.Y)
	var ids []int64
	for _, sh := range shapes {
		if s.ContainedInRect(sh, rect) {
			ids = append(ids, sh.ID)
		}
	}
	return ids
}

// SelectionBounds returns the union of the bounding boxes of the given ids.
func (s *Shaper) SelectionBounds(shapes []document.Shape, ids []int64) shape.Rect {
	var result shape.Rect
	first := true
	for _, id := range ids {
		sh, ok := document.Snapshot(shapes).Find(id)
		if !ok {
			continue
		}
		box, err := s.reg.BoundingBox(sh)
		if err != nil {
			continue
		}
		box = box.Normalize()
		if first {
			result = box
			first = false
		} else {
			result = result.Union(box)
		}
	}
	return result
}
