package engine

import (
	"fmt"
	"log/slog"

	"github.com/badgemaker/badgemaker/internal/document"
	"github.com/badgemaker/badgemaker/internal/shape"
)

// objectTagger is implemented by surfaces that attribute drawing to shapes.
type objectTagger interface {
	SetObject(id int64)
}

// Render draws one frame: every shape in paint order with the gesture's
// working copy substituted, then the outlines of the active and selected
// shapes, then the placeholder or rubber band of the gesture in flight.
// A shape that fails to draw is logged and skipped.
func (e *Engine) Render(surf shape.Surface) {
	snap := e.store.Snapshot()
	reg := e.shaper.Registry()
	tagger, _ := surf.(objectTagger)

	surf.Save()
	surf.Scale(e.zoom, e.zoom)
	for _, sh := range snap.Objects {
		sh = e.gesture.working(sh)
		if tagger != nil {
			tagger.SetObject(sh.ID)
		}
		guard("render shape", sh, func() error { return reg.Render(surf, sh) })
	}
	if tagger != nil {
		tagger.SetObject(0)
	}
	surf.Restore()

	for _, id := range snap.Selected {
		if snap.Active != nil && snap.Active.ID == id {
			continue
		}
		if sh, ok := snap.Objects.Find(id); ok {
			sh = e.gesture.working(sh)
			guard("outline shape", sh, func() error { return reg.Outline(surf, sh, e.zoom, true, nil) })
		}
	}
	if snap.Active != nil {
		if sh, ok := snap.Objects.Find(snap.Active.ID); ok {
			var resize *shape.ResizeState
			if e.gesture != nil && e.gesture.Kind == GestureResize && e.gesture.ShapeID == sh.ID {
				resize = &e.gesture.Resize
			}
			sh = e.gesture.working(sh)
			guard("outline shape", sh, func() error { return reg.Outline(surf, sh, e.zoom, false, resize) })
		}
	}

	if g := e.gesture; g != nil && g.Moved {
		switch g.Kind {
		case GestureCreate:
			e.strokeScreenRect(surf, g.Rect(), reg.Layout().OutlineColor)
		case GestureRubberBand:
			e.strokeScreenRect(surf, g.Rect(), reg.Layout().GroupOutlineColor)
		}
	}
}

func (e *Engine) strokeScreenRect(surf shape.Surface, r shape.Rect, color string) {
	r = r.Scale(e.zoom)
	surf.Save()
	defer surf.Restore()
	surf.ResetTransform()
	surf.SetStrokeColor(color)
	surf.SetLineWidth(1)
	surf.StrokeRect(r.X, r.Y, r.Width, r.Height)
}

// guard runs fn, turning an error or a panic into a log line so one broken
// shape cannot abort the frame.
func guard(op string, sh document.Shape, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(op, "error", fmt.Errorf("panic: %v", r), "id", sh.ID, "type", sh.Type)
		}
	}()
	if err := fn(); err != nil {
		slog.Warn(op, "error", err, "id", sh.ID, "type", sh.Type)
	}
}

// Export renders the document alone, without outlines or gesture state, at
// zoom 1. It is used for PNG and PDF output.
func (e *Engine) Export(surf shape.Surface) {
	snap := e.store.Snapshot()
	RenderDocument(e.shaper.Registry(), surf, snap.Objects)
}

// RenderDocument draws shapes in paint order, skipping any that fail.
func RenderDocument(reg *shape.Registry, surf shape.Surface, shapes []document.Shape) {
	for _, sh := range shapes {
		guard("render shape", sh, func() error { return reg.Render(surf, sh) })
	}
}
