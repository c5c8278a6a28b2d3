package engine

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/badgemaker/badgemaker/internal/document"
	"github.com/badgemaker/badgemaker/internal/render"
	"github.com/badgemaker/badgemaker/internal/shape"
	"github.com/badgemaker/badgemaker/internal/store"
)

// fixedMeasurer makes every rune half the font size wide.
type fixedMeasurer struct{}

func (fixedMeasurer) Measure(text, _ string, size float64) (float64, float64, error) {
	return float64(len([]rune(text))) * size / 2, size, nil
}

type panicMeasurer struct{}

func (panicMeasurer) Measure(string, string, float64) (float64, float64, error) {
	panic("font table corrupt")
}

func newShaper() *Shaper {
	return NewShaper(shape.NewRegistry(fixedMeasurer{}, nil, shape.DefaultLayout()))
}

func newTestEngine(t *testing.T, m shape.Measurer) (*Engine, *store.Store) {
	t.Helper()
	st := store.New(store.Options{Scheduler: &store.ManualScheduler{}})
	sh := NewShaper(shape.NewRegistry(m, nil, shape.DefaultLayout()))
	return NewEngine(st, sh, Config{}), st
}

func rect(id int64, x, y, w, h float64) document.Shape {
	return document.Shape{ID: id, Type: document.TypeRectangle, Props: document.Properties{
		"x": x, "y": y, "width": w, "height": h,
	}}
}

func circle(id int64, x, y, r float64) document.Shape {
	return document.Shape{ID: id, Type: document.TypeCircle, Props: document.Properties{
		"x": x, "y": y, "radius": r,
	}}
}

func addRect(t *testing.T, st *store.Store, x, y, w, h float64) document.Shape {
	t.Helper()
	sh, err := st.AddShape(document.TypeRectangle, document.Properties{"x": x, "y": y, "width": w, "height": h})
	if err != nil {
		t.Fatal(err)
	}
	return sh
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestPickTopmost(t *testing.T) {
	s := newShaper()
	shapes := []document.Shape{rect(1, 0, 0, 100, 100), circle(2, 50, 50, 10)}

	tests := []struct {
		name string
		p    Point
		want int64
	}{
		{"circle on top", Point{50, 50}, 2},
		{"outside circle", Point{5, 5}, 1},
		{"circle box corner is not the circle", Point{41, 41}, 1},
		{"nothing", Point{200, 200}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh, ok := s.PickTopmost(tt.p, shapes)
			if tt.want == 0 {
				if ok {
					t.Fatalf("picked %d, want nothing", sh.ID)
				}
				return
			}
			if !ok || sh.ID != tt.want {
				t.Errorf("picked %d (%v), want %d", sh.ID, ok, tt.want)
			}
		})
	}

	all := s.PickAllAt(Point{50, 50}, shapes)
	if len(all) != 2 || all[0].ID != 2 || all[1].ID != 1 {
		t.Errorf("PickAllAt = %v", all)
	}
}

func TestClassifyHandleWinsOverBody(t *testing.T) {
	s := newShaper()
	// Shape 2 is painted above the se corner of shape 1.
	shapes := []document.Shape{rect(1, 0, 0, 100, 100), rect(2, 90, 90, 50, 50)}

	hit := s.Classify(Point{100, 100}, shapes, 1, nil)
	if hit.Kind != HitHandle || hit.Handle != shape.HandleSE || hit.Shape.ID != 1 {
		t.Errorf("with 1 active: %v %q on %d", hit.Kind, hit.Handle, hit.Shape.ID)
	}

	hit = s.Classify(Point{100, 100}, shapes, 0, nil)
	if hit.Kind != HitBody || hit.Shape.ID != 2 {
		t.Errorf("nothing active: %v on %d", hit.Kind, hit.Shape.ID)
	}

	if hit := s.Classify(Point{300, 300}, shapes, 1, nil); hit.Kind != HitNone {
		t.Errorf("empty space = %v", hit.Kind)
	}
}

func TestClickCycler(t *testing.T) {
	s := newShaper()
	shapes := []document.Shape{
		rect(1, 0, 0, 100, 100),
		rect(2, 10, 10, 80, 80),
		rect(3, 20, 20, 60, 60),
	}
	var c ClickCycler

	clicks := []struct {
		p    Point
		want int64
	}{
		{Point{50, 50}, 3},
		{Point{50, 50}, 2},
		{Point{51, 51}, 1}, // within tolerance
		{Point{50, 50}, 3}, // wraps
		{Point{200, 200}, 0},
		{Point{50, 50}, 3},
		{Point{55, 55}, 3}, // moved: restart at top
		{Point{5, 5}, 1},
	}
	for i, cl := range clicks {
		sh, ok := c.Next(s, cl.p, shapes)
		var got int64
		if ok {
			got = sh.ID
		}
		if got != cl.want {
			t.Fatalf("click %d at %v picked %d, want %d", i, cl.p, got, cl.want)
		}
	}
}

func TestShapesInRect(t *testing.T) {
	s := newShaper()
	shapes := []document.Shape{rect(1, 0, 0, 10, 10), circle(2, 50, 50, 5), rect(3, 100, 100, 10, 10)}

	tests := []struct {
		name string
		a, b Point
		want []int64
	}{
		{"partial overlap", Point{5, 5}, Point{48, 48}, []int64{1, 2}},
		{"drag up-left", Point{48, 48}, Point{5, 5}, []int64{1, 2}},
		{"touching edge", Point{10, 10}, Point{20, 20}, []int64{1}},
		{"all", Point{-1, -1}, Point{200, 200}, []int64{1, 2, 3}},
		{"empty", Point{20, 20}, Point{30, 30}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ShapesInRect(shapes, tt.a, tt.b); !slices.Equal(got, tt.want) {
				t.Errorf("ShapesInRect = %v, want %v", got, tt.want)
			}
		})
	}

	if b := s.SelectionBounds(shapes, []int64{1, 2}); b != (shape.Rect{X: 0, Y: 0, Width: 55, Height: 55}) {
		t.Errorf("SelectionBounds = %+v", b)
	}
}

func TestAlign(t *testing.T) {
	s := newShaper()
	shapes := []document.Shape{rect(1, 10, 5, 20, 20), rect(2, 50, 40, 10, 10), circle(3, 100, 0, 10)}

	t.Run("justify-left", func(t *testing.T) {
		out, err := s.Align(shapes, AlignLeft)
		if err != nil {
			t.Fatal(err)
		}
		for _, sh := range out {
			box, _ := s.Registry().BoundingBox(sh)
			if !approx(box.X, 10) {
				t.Errorf("shape %d box x = %v, want 10", sh.ID, box.X)
			}
		}
		if x := out[2].Props.Float("x"); !approx(x, 20) {
			t.Errorf("circle centre x = %v, want 20", x)
		}
		if y := out[1].Props.Float("y"); y != 40 {
			t.Errorf("y changed to %v", y)
		}
	})

	t.Run("center-horizontal", func(t *testing.T) {
		out, err := s.Align(shapes, AlignCenterHorizontal)
		if err != nil {
			t.Fatal(err)
		}
		want := (20.0 + 55.0 + 100.0) / 3
		for _, sh := range out {
			box, _ := s.Registry().BoundingBox(sh)
			if cx, _ := box.Center(); !approx(cx, want) {
				t.Errorf("shape %d centre x = %v, want %v", sh.ID, cx, want)
			}
		}
	})

	t.Run("justify-bottom", func(t *testing.T) {
		out, _ := s.Align(shapes, AlignBottom)
		for _, sh := range out {
			box, _ := s.Registry().BoundingBox(sh)
			if !approx(box.Y+box.Height, 50) {
				t.Errorf("shape %d bottom = %v, want 50", sh.ID, box.Y+box.Height)
			}
			if w := sh.Props.Float("width"); sh.Type == document.TypeRectangle && w == 0 {
				t.Error("size lost")
			}
		}
	})

	t.Run("input untouched", func(t *testing.T) {
		_, _ = s.Align(shapes, AlignRight)
		if x := shapes[0].Props.Float("x"); x != 10 {
			t.Errorf("input mutated: x = %v", x)
		}
	})

	if _, err := s.Align(shapes, "diagonal"); !errors.Is(err, ErrUnknownAlignMode) {
		t.Errorf("unknown mode err = %v", err)
	}
}

func TestDragCommitsOnRelease(t *testing.T) {
	e, st := newTestEngine(t, fixedMeasurer{})
	sh := addRect(t, st, 0, 0, 100, 100)

	e.PointerDown(50, 50, Modifiers{})
	e.PointerMove(60, 70)
	e.PointerMove(70, 80)

	if cur, _ := st.Object(sh.ID); cur.Props.Float("x") != 0 {
		t.Fatal("drag wrote to the store before release")
	}
	g, ok := e.Gesture()
	if !ok || g.Kind != GestureDrag || g.Working.Float("x") != 20 {
		t.Fatalf("gesture = %+v", g)
	}

	if err := e.PointerUp(70, 80); err != nil {
		t.Fatal(err)
	}
	cur, _ := st.Object(sh.ID)
	if x, y := cur.Props.Float("x"), cur.Props.Float("y"); x != 20 || y != 30 {
		t.Errorf("position = %v,%v want 20,30", x, y)
	}
	if n := st.Snapshot().HistoryLen; n != 2 {
		t.Errorf("history len = %d, want 2 (add + one update)", n)
	}
}

func TestCancelDiscardsGesture(t *testing.T) {
	e, st := newTestEngine(t, fixedMeasurer{})
	sh := addRect(t, st, 0, 0, 100, 100)
	before := st.Snapshot().HistoryLen

	e.PointerDown(100, 100, Modifiers{})
	e.PointerMove(300, 300)
	if g, _ := e.Gesture(); g.Kind != GestureResize {
		t.Fatalf("gesture = %v, want resize", g.Kind)
	}
	e.Cancel()
	if err := e.PointerUp(300, 300); err != nil {
		t.Fatal(err)
	}

	cur, _ := st.Object(sh.ID)
	if cur.Props.Float("width") != 100 || st.Snapshot().HistoryLen != before {
		t.Error("cancelled resize was committed")
	}
	if _, ok := e.Gesture(); ok {
		t.Error("gesture survived Cancel")
	}
}

func TestResizeGesture(t *testing.T) {
	e, st := newTestEngine(t, fixedMeasurer{})
	sh := addRect(t, st, 0, 0, 100, 100)

	e.PointerDown(100, 100, Modifiers{})
	e.PointerMove(150, 120)
	if err := e.PointerUp(150, 120); err != nil {
		t.Fatal(err)
	}
	cur, _ := st.Object(sh.ID)
	if w, h := cur.Props.Float("width"), cur.Props.Float("height"); w != 150 || h != 120 {
		t.Errorf("size = %vx%v, want 150x120", w, h)
	}
}

func TestCreateWithZoom(t *testing.T) {
	e, st := newTestEngine(t, fixedMeasurer{})
	e.SetZoom(2)
	if err := e.ArmTool(document.TypeRectangle, nil); err != nil {
		t.Fatal(err)
	}
	if err := e.SetColor("green"); err != nil {
		t.Fatal(err)
	}

	e.PointerDown(20, 20, Modifiers{})
	e.PointerMove(120, 80)
	if err := e.PointerUp(120, 80); err != nil {
		t.Fatal(err)
	}

	snap := st.Snapshot()
	if len(snap.Objects) != 1 {
		t.Fatalf("%d objects", len(snap.Objects))
	}
	p := snap.Objects[0].Props
	got := [4]float64{p.Float("x"), p.Float("y"), p.Float("width"), p.Float("height")}
	if got != [4]float64{10, 10, 50, 30} {
		t.Errorf("box = %v, want [10 10 50 30]", got)
	}
	if p.String("color") != "green" {
		t.Errorf("color = %q", p.String("color"))
	}
	if e.Tool() != "" {
		t.Error("tool still armed after create")
	}

	if err := e.ArmTool("star", nil); !errors.Is(err, document.ErrUnknownType) {
		t.Errorf("ArmTool(star) = %v", err)
	}
}

func TestZoomFloor(t *testing.T) {
	e, _ := newTestEngine(t, fixedMeasurer{})
	e.Wheel(-50)
	if z := e.Zoom(); !approx(z, 0.5) {
		t.Errorf("zoom = %v, want 0.5", z)
	}
	e.Wheel(-1000)
	if z := e.Zoom(); z != DefaultMinZoom {
		t.Errorf("zoom = %v, want floor %v", z, DefaultMinZoom)
	}
	if p := e.ScreenToDocument(1, 2); !approx(p.X, 100) || !approx(p.Y, 200) {
		t.Errorf("ScreenToDocument = %+v", p)
	}
}

func TestViewRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t, fixedMeasurer{})
	e.SetZoom(2.5)
	sx, sy := e.View().TransformPoint(40, 12)
	if !approx(sx, 100) || !approx(sy, 30) {
		t.Fatalf("View maps to %v,%v", sx, sy)
	}
	if p := e.ScreenToDocument(sx, sy); !approx(p.X, 40) || !approx(p.Y, 12) {
		t.Errorf("ScreenToDocument = %+v, want 40,12", p)
	}
}

func TestRubberBandSelects(t *testing.T) {
	e, st := newTestEngine(t, fixedMeasurer{})
	a := addRect(t, st, 0, 0, 10, 10)
	addRect(t, st, 100, 100, 10, 10)

	e.PointerDown(50, 50, Modifiers{})
	e.PointerMove(5, 5)
	if err := e.PointerUp(5, 5); err != nil {
		t.Fatal(err)
	}
	snap := st.Snapshot()
	if !slices.Equal(snap.Selected, []int64{a.ID}) || snap.Active != nil {
		t.Errorf("selected = %v active = %+v", snap.Selected, snap.Active)
	}
}

func TestClickCyclesActiveObject(t *testing.T) {
	e, st := newTestEngine(t, fixedMeasurer{})
	a := addRect(t, st, 0, 0, 100, 100)
	b := addRect(t, st, 20, 20, 60, 60)

	for i, want := range []int64{b.ID, a.ID, b.ID} {
		e.PointerDown(50, 50, Modifiers{})
		_ = e.PointerUp(50, 50)
		id, ok := e.Click(50, 50, Modifiers{})
		if !ok || id != want {
			t.Fatalf("click %d = %d, want %d", i, id, want)
		}
		if act := st.Snapshot().Active; act == nil || act.ID != want {
			t.Fatalf("click %d: active = %+v", i, act)
		}
	}
}

func TestShiftClickToggles(t *testing.T) {
	e, st := newTestEngine(t, fixedMeasurer{})
	a := addRect(t, st, 0, 0, 10, 10)
	b := addRect(t, st, 50, 50, 10, 10)

	e.PointerDown(5, 5, Modifiers{Shift: true})
	_ = e.PointerUp(5, 5)
	snap := st.Snapshot()
	if !slices.Equal(snap.Selected, []int64{b.ID, a.ID}) || snap.Active != nil {
		t.Errorf("selected = %v active = %+v", snap.Selected, snap.Active)
	}
}

func TestKeyDown(t *testing.T) {
	e, st := newTestEngine(t, fixedMeasurer{})
	sh := addRect(t, st, 100, 100, 10, 10)
	x := func() float64 {
		cur, _ := st.Object(sh.ID)
		return cur.Props.Float("x")
	}

	steps := []struct {
		key     string
		mods    Modifiers
		handled bool
		wantX   float64
	}{
		{KeyArrowRight, Modifiers{Shift: true}, true, 110},
		{KeyArrowLeft, Modifiers{}, true, 109},
		{"z", Modifiers{Ctrl: true}, true, 110},
		{"Z", Modifiers{Ctrl: true, Shift: true}, true, 109},
		{"y", Modifiers{Ctrl: true}, false, 109},
		{"q", Modifiers{}, false, 109},
	}
	for _, step := range steps {
		handled, err := e.KeyDown(step.key, step.mods)
		if err != nil || handled != step.handled {
			t.Fatalf("%s: handled=%v err=%v, want %v", step.key, handled, err, step.handled)
		}
		if got := x(); got != step.wantX {
			t.Fatalf("%s: x = %v, want %v", step.key, got, step.wantX)
		}
	}

	// Undo and redo clear the selection.
	if handled, _ := e.KeyDown("c", Modifiers{Ctrl: true}); handled {
		t.Fatal("copy handled with nothing selected")
	}
	if err := st.SetActiveObject(sh.ID, 0, 0); err != nil {
		t.Fatal(err)
	}

	if handled, err := e.KeyDown("c", Modifiers{Ctrl: true}); !handled || err != nil {
		t.Fatalf("copy: %v %v", handled, err)
	}
	if handled, err := e.KeyDown("v", Modifiers{Ctrl: true}); !handled || err != nil {
		t.Fatalf("paste: %v %v", handled, err)
	}
	if n := len(st.Snapshot().Objects); n != 2 {
		t.Fatalf("after paste %d objects", n)
	}

	// The pasted shape is multi-selected; Delete removes it.
	if handled, err := e.KeyDown(KeyDelete, Modifiers{}); !handled || err != nil {
		t.Fatalf("delete: %v %v", handled, err)
	}
	if n := len(st.Snapshot().Objects); n != 1 {
		t.Errorf("after delete %d objects", n)
	}
	if handled, _ := e.KeyDown(KeyArrowUp, Modifiers{}); handled {
		t.Error("arrow handled with no active object")
	}
	if handled, _ := e.KeyDown(KeyEscape, Modifiers{}); !handled {
		t.Error("escape not handled")
	}
}

func TestRenderSkipsBrokenShapes(t *testing.T) {
	e, st := newTestEngine(t, panicMeasurer{})
	data := []byte(`[
		{"id": 1, "type": "star", "properties": {}},
		{"id": 2, "type": "text", "properties": {"text": "hi", "rotation": 10}},
		{"id": 3, "type": "rectangle", "properties": {"x": 0, "y": 0, "width": 10, "height": 10, "color": "red"}}
	]`)
	if err := st.Import(data); err != nil {
		t.Fatal(err)
	}
	if err := st.SetActiveObject(3, 0, 0); err != nil {
		t.Fatal(err)
	}

	rec := render.NewRecorder()
	e.Render(rec)

	var fills, strokes int
	for _, c := range rec.Commands() {
		switch {
		case c.Op == "fillRect" && c.ObjectID == "3":
			fills++
		case c.Op == "strokeRect":
			strokes++
		}
	}
	if fills != 1 {
		t.Errorf("rectangle drawn %d times, want 1", fills)
	}
	if strokes != 5 {
		t.Errorf("outline strokes = %d, want frame + 4 handles", strokes)
	}

	if js := e.DrawCommands(); len(js) < 2 || js[0] != '[' {
		t.Errorf("DrawCommands = %.40q", js)
	}
}
