package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/badgemaker/badgemaker/internal/document"
	"github.com/badgemaker/badgemaker/internal/render"
	"github.com/badgemaker/badgemaker/internal/shape"
	"github.com/badgemaker/badgemaker/internal/store"
)

const (
	DefaultZoomStep = 0.01
	DefaultMinZoom  = 0.01
)

// Modifiers are the keyboard modifiers held during a pointer or key event.
type Modifiers struct {
	Shift bool
	Ctrl  bool
}

type Config struct {
	ZoomStep       float64
	MinZoom        float64
	CycleTolerance float64
}

// Engine is the interaction controller between a pointer/keyboard surface
// and the document store. It turns raw events in screen coordinates into
// store mutations and owns the in-flight gesture, the armed tool and the
// zoom level. It is not safe for concurrent use.
type Engine struct {
	store  *store.Store
	shaper *Shaper
	cfg    Config

	zoom    float64
	tool    document.Type
	seed    document.Properties
	color   string
	gesture *Gesture
	cycler  ClickCycler

	recorder *render.Recorder
}

// NewEngine creates an engine at zoom 1 with no tool armed.
func NewEngine(st *store.Store, shaper *Shaper, cfg Config) *Engine {
	if cfg.ZoomStep <= 0 {
		cfg.ZoomStep = DefaultZoomStep
	}
	if cfg.MinZoom <= 0 {
		cfg.MinZoom = DefaultMinZoom
	}
	return &Engine{
		store:    st,
		shaper:   shaper,
		cfg:      cfg,
		zoom:     1,
		cycler:   ClickCycler{Tolerance: cfg.CycleTolerance},
		recorder: render.NewRecorder(),
	}
}

// --- Commands (surface → engine) ---

// ArmTool makes the next press on the canvas create a shape of type t.
// seed is merged into the new shape's properties.
func (e *Engine) ArmTool(t document.Type, seed document.Properties) error {
	if !t.Known() {
		return fmt.Errorf("arm tool: %w: %q", document.ErrUnknownType, t)
	}
	e.tool = t
	e.seed = seed.Clone()
	return nil
}

func (e *Engine) DisarmTool() {
	e.tool = ""
	e.seed = nil
}

// Tool returns the armed shape type, or "".
func (e *Engine) Tool() document.Type { return e.tool }

// SetColor sets the colour for new shapes and recolours the active one.
func (e *Engine) SetColor(color string) error {
	e.color = color
	err := e.store.UpdateActiveObjectProps(document.Properties{document.KeyColor: color})
	if errors.Is(err, store.ErrNoActiveObject) {
		return nil
	}
	return err
}

func (e *Engine) SetZoom(z float64) {
	if math.IsNaN(z) || z < e.cfg.MinZoom {
		z = e.cfg.MinZoom
	}
	e.zoom = z
	e.store.Touch()
}

func (e *Engine) Zoom() float64 { return e.zoom }

// Wheel changes the zoom by steps wheel notches. Positive steps zoom in.
func (e *Engine) Wheel(steps float64) {
	e.SetZoom(e.zoom + steps*e.cfg.ZoomStep)
}

// ScreenToDocument maps a canvas pixel position to document coordinates.
func (e *Engine) ScreenToDocument(sx, sy float64) Point {
	x, y := e.View().Invert().TransformPoint(sx, sy)
	return Point{X: x, Y: y}
}

// View is the document-to-screen transform.
func (e *Engine) View() render.Matrix2D {
	return render.Scale(e.zoom, e.zoom)
}

// PointerDown starts a gesture at screen position (sx, sy).
func (e *Engine) PointerDown(sx, sy float64, mods Modifiers) {
	p := e.ScreenToDocument(sx, sy)
	e.gesture = nil

	if e.tool != "" {
		e.gesture = &Gesture{Kind: GestureCreate, Start: p, Current: p}
		return
	}

	snap := e.store.Snapshot()
	var activeID int64
	if snap.Active != nil {
		activeID = snap.Active.ID
	}
	hit := e.shaper.Classify(p, snap.Objects, activeID, nil)

	// Pressing on the active shape keeps it, even under another shape, so
	// a shape reached by click cycling can be dragged.
	if hit.Kind == HitBody && activeID != 0 && hit.Shape.ID != activeID {
		if active, ok := snap.Objects.Find(activeID); ok && e.shaper.Registry().HitTest(p.X, p.Y, active) {
			hit.Shape = active
		}
	}

	switch hit.Kind {
	case HitHandle:
		e.gesture = &Gesture{
			Kind:    GestureResize,
			ShapeID: hit.Shape.ID,
			Handle:  hit.Handle,
			Start:   p,
			Current: p,
			Working: hit.Shape.Props.Clone(),
		}
	case HitBody:
		if mods.Shift {
			e.store.ToggleObjectSelection(hit.Shape.ID)
			return
		}
		off := Point{
			X: p.X - hit.Shape.Props.Float(document.KeyX),
			Y: p.Y - hit.Shape.Props.Float(document.KeyY),
		}
		if hit.Shape.ID != activeID {
			if err := e.store.SetActiveObject(hit.Shape.ID, off.X, off.Y); err != nil {
				slog.Warn("activate shape", "error", err, "id", hit.Shape.ID)
				return
			}
		}
		e.gesture = &Gesture{
			Kind:    GestureDrag,
			ShapeID: hit.Shape.ID,
			Offset:  off,
			Start:   p,
			Current: p,
			Working: hit.Shape.Props.Clone(),
		}
	default:
		e.cycler.Reset()
		e.store.CleanAllSelections()
		e.gesture = &Gesture{Kind: GestureRubberBand, Start: p, Current: p}
	}
}

// PointerMove updates the gesture in flight. Nothing is written to the
// store until PointerUp.
func (e *Engine) PointerMove(sx, sy float64) {
	g := e.gesture
	if g == nil {
		return
	}
	p := e.ScreenToDocument(sx, sy)
	if p == g.Current {
		return
	}
	g.Current = p
	g.Moved = true

	switch g.Kind {
	case GestureDrag:
		g.Working[document.KeyX] = p.X - g.Offset.X
		g.Working[document.KeyY] = p.Y - g.Offset.Y
	case GestureResize:
		sh, ok := e.store.Object(g.ShapeID)
		if !ok {
			e.gesture = nil
			return
		}
		sh.Props = g.Working
		props, err := e.shaper.Registry().ApplyResize(sh, g.Handle, p.X, p.Y, &g.Resize)
		if err != nil {
			slog.Warn("resize shape", "error", err, "id", g.ShapeID)
			return
		}
		g.Working = props
	}
	e.store.Touch()
}

// PointerUp finishes the gesture and commits its result.
func (e *Engine) PointerUp(sx, sy float64) error {
	e.PointerMove(sx, sy)
	g := e.gesture
	e.gesture = nil
	if g == nil {
		return nil
	}

	switch g.Kind {
	case GestureCreate:
		return e.create(g)
	case GestureDrag:
		if g.Moved {
			return e.store.UpdateProps(g.ShapeID, document.Properties{
				document.KeyX: g.Working.Float(document.KeyX),
				document.KeyY: g.Working.Float(document.KeyY),
			})
		}
	case GestureResize:
		if g.Moved {
			return e.store.UpdateProps(g.ShapeID, g.Working)
		}
	case GestureRubberBand:
		if g.Moved {
			snap := e.store.Snapshot()
			e.store.SelectObjects(e.shaper.ShapesInRect(snap.Objects, g.Start, g.Current))
			return nil
		}
	}
	e.store.Touch()
	return nil
}

// create adds the armed tool's shape. A drag defines the placeholder box;
// a plain click places the shape at the pointer with default size.
func (e *Engine) create(g *Gesture) error {
	seed := e.seed.Clone()
	seed[document.KeyX] = g.Start.X
	seed[document.KeyY] = g.Start.Y
	if g.Moved {
		seed[document.KeyWidth] = g.Current.X - g.Start.X
		seed[document.KeyHeight] = g.Current.Y - g.Start.Y
	}
	if e.color != "" && e.tool != document.TypeImage {
		seed[document.KeyColor] = e.color
	}
	t := e.tool
	e.DisarmTool()
	if _, err := e.store.AddShape(t, seed); err != nil {
		return fmt.Errorf("create %s: %w", t, err)
	}
	return nil
}

// Click handles a click that did not drag. Repeated clicks on the same
// spot walk down through the shapes stacked there.
func (e *Engine) Click(sx, sy float64, mods Modifiers) (int64, bool) {
	if mods.Shift {
		return 0, false
	}
	p := e.ScreenToDocument(sx, sy)
	snap := e.store.Snapshot()
	sh, ok := e.cycler.Next(e.shaper, p, snap.Objects)
	if !ok {
		return 0, false
	}
	if snap.Active != nil && snap.Active.ID == sh.ID {
		return sh.ID, true
	}
	off := Point{X: p.X - sh.Props.Float(document.KeyX), Y: p.Y - sh.Props.Float(document.KeyY)}
	if err := e.store.SetActiveObject(sh.ID, off.X, off.Y); err != nil {
		slog.Warn("activate shape", "error", err, "id", sh.ID)
		return 0, false
	}
	return sh.ID, true
}

// Cancel drops the gesture in flight and disarms the tool. Nothing is
// committed.
func (e *Engine) Cancel() {
	e.gesture = nil
	e.DisarmTool()
	e.store.Touch()
}

// --- Queries (surface ← engine) ---

// Gesture returns a copy of the gesture in flight.
func (e *Engine) Gesture() (Gesture, bool) {
	if e.gesture == nil {
		return Gesture{}, false
	}
	g := *e.gesture
	g.Working = g.Working.Clone()
	return g, true
}

// HitAt classifies the screen position without changing anything. Surfaces
// use it to pick a cursor.
func (e *Engine) HitAt(sx, sy float64) Hit {
	snap := e.store.Snapshot()
	var activeID int64
	if snap.Active != nil {
		activeID = snap.Active.ID
	}
	return e.shaper.Classify(e.ScreenToDocument(sx, sy), snap.Objects, activeID, nil)
}

// SelectionBounds returns the union box of the selected shapes.
func (e *Engine) SelectionBounds() shape.Rect {
	snap := e.store.Snapshot()
	return e.shaper.SelectionBounds(snap.Objects, snap.Selected)
}

// DrawCommands renders the current frame into draw commands and returns
// them as JSON.
func (e *Engine) DrawCommands() string {
	e.recorder.Reset()
	e.Render(e.recorder)
	result, err := render.DrawCommandsToJSON(e.recorder.Commands())
	if err != nil {
		slog.Error("encode draw commands", "error", err)
	}
	return result
}
