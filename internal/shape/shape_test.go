package shape

import (
	"errors"
	"fmt"
	"image"
	"math"
	"testing"
	"unicode/utf8"

	"github.com/badgemaker/badgemaker/internal/document"
)

// fixedMeasurer reports every rune as size/2 wide and the string as size tall.
type fixedMeasurer struct{}

func (fixedMeasurer) Measure(text, _ string, size float64) (float64, float64, error) {
	return float64(utf8.RuneCountInString(text)) * size / 2, size, nil
}

type failingMeasurer struct{}

func (failingMeasurer) Measure(string, string, float64) (float64, float64, error) {
	return 0, 0, errors.New("no font")
}

// callSurface records surface calls as strings.
type callSurface struct {
	calls []string
}

func (c *callSurface) add(format string, args ...any) {
	c.calls = append(c.calls, fmt.Sprintf(format, args...))
}

func (c *callSurface) Save()                  { c.add("save") }
func (c *callSurface) Restore()               { c.add("restore") }
func (c *callSurface) ResetTransform()        { c.add("reset") }
func (c *callSurface) Translate(x, y float64) { c.add("translate %g %g", x, y) }
func (c *callSurface) Rotate(r float64)       { c.add("rotate %.4f", r) }
func (c *callSurface) Scale(x, y float64)     { c.add("scale %g %g", x, y) }
func (c *callSurface) SetFillColor(s string)  { c.add("fill %s", s) }
func (c *callSurface) SetStrokeColor(s string) {
	c.add("stroke %s", s)
}
func (c *callSurface) SetLineWidth(w float64) { c.add("lineWidth %g", w) }
func (c *callSurface) FillRect(x, y, w, h float64) {
	c.add("fillRect %g %g %g %g", x, y, w, h)
}
func (c *callSurface) FillRoundedRect(x, y, w, h, r float64) {
	c.add("fillRoundedRect %g %g %g %g %g", x, y, w, h, r)
}
func (c *callSurface) StrokeRect(x, y, w, h float64) {
	c.add("strokeRect %g %g %g %g", x, y, w, h)
}
func (c *callSurface) StrokeRoundedRect(x, y, w, h, r float64) {
	c.add("strokeRoundedRect %g %g %g %g %g", x, y, w, h, r)
}
func (c *callSurface) FillCircle(x, y, r float64)   { c.add("fillCircle %g %g %g", x, y, r) }
func (c *callSurface) StrokeCircle(x, y, r float64) { c.add("strokeCircle %g %g %g", x, y, r) }
func (c *callSurface) SetFont(f string, s float64)  { c.add("font %s %g", f, s) }
func (c *callSurface) FillText(t string, x, y float64, _ TextAlign) {
	c.add("text %s %g %g", t, x, y)
}
func (c *callSurface) DrawImage(_ image.Image, x, y, w, h float64) {
	c.add("image %g %g %g %g", x, y, w, h)
}

func (c *callSurface) count(prefix string) int {
	n := 0
	for _, call := range c.calls {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

type mapImages map[string]image.Image

func (m mapImages) Image(src string) (image.Image, bool) {
	img, ok := m[src]
	return img, ok
}

func newTestRegistry() *Registry {
	return NewRegistry(fixedMeasurer{}, nil, DefaultLayout())
}

func rect(x, y, w, h float64) document.Shape {
	return document.Shape{ID: 1, Type: document.TypeRectangle, Props: document.Normalize(document.TypeRectangle, document.Properties{
		document.KeyX: x, document.KeyY: y, document.KeyWidth: w, document.KeyHeight: h,
	})}
}

func circle(x, y, r float64) document.Shape {
	return document.Shape{ID: 2, Type: document.TypeCircle, Props: document.Normalize(document.TypeCircle, document.Properties{
		document.KeyX: x, document.KeyY: y, document.KeyRadius: r,
	})}
}

func text(x, y float64, s string) document.Shape {
	return document.Shape{ID: 3, Type: document.TypeText, Props: document.Normalize(document.TypeText, document.Properties{
		document.KeyX: x, document.KeyY: y, document.KeyText: s,
		document.KeyFontFamily: "Arial", document.KeyFontSize: 10.0,
	})}
}

func TestBoundingBox(t *testing.T) {
	r := newTestRegistry()
	tests := []struct {
		name  string
		shape document.Shape
		want  Rect
	}{
		{"rectangle", rect(10, 20, 30, 40), Rect{10, 20, 30, 40}},
		{"circle", circle(100, 100, 25), Rect{75, 75, 50, 50}},
		// 4 runes * 5 wide, 10 tall, padded by 5.
		{"text", text(50, 60, "abcd"), Rect{45, 45, 30, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.BoundingBox(tt.shape)
			if err != nil {
				t.Fatalf("BoundingBox: %v", err)
			}
			if got != tt.want {
				t.Errorf("BoundingBox = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBoundingBoxUnknownType(t *testing.T) {
	r := newTestRegistry()
	_, err := r.BoundingBox(document.Shape{Type: "star"})
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
}

func TestHitTestCentre(t *testing.T) {
	r := newTestRegistry()
	shapes := []document.Shape{rect(10, 20, 30, 40), circle(100, 100, 25), text(50, 60, "abcd")}
	for _, s := range shapes {
		box, err := r.BoundingBox(s)
		if err != nil {
			t.Fatal(err)
		}
		cx, cy := box.Center()
		if !r.HitTest(cx, cy, s) {
			t.Errorf("%s: centre (%g,%g) not hit", s.Type, cx, cy)
		}
	}
}

func TestHitTestCircleUsesDistance(t *testing.T) {
	r := newTestRegistry()
	c := circle(100, 100, 25)
	// Inside the box but outside the circle.
	if r.HitTest(78, 78, c) {
		t.Error("box corner of circle counted as hit")
	}
	if !r.HitTest(100, 124, c) {
		t.Error("point inside radius missed")
	}
}

func TestHitTestMeasureFailure(t *testing.T) {
	r := NewRegistry(failingMeasurer{}, nil, DefaultLayout())
	if r.HitTest(50, 50, text(50, 60, "abcd")) {
		t.Error("text with failing measurer reported a hit")
	}
}

func TestHandleAt(t *testing.T) {
	r := newTestRegistry()
	box := Rect{100, 100, 50, 50}
	tests := []struct {
		x, y float64
		want Handle
	}{
		{100, 100, HandleNW},
		{103, 97, HandleNW},
		{150, 100, HandleNE},
		{100, 150, HandleSW},
		{152, 152, HandleSE},
		{125, 125, HandleNone},
		{95, 100, HandleNone},
	}
	for _, tt := range tests {
		if got := r.HandleAt(tt.x, tt.y, box); got != tt.want {
			t.Errorf("HandleAt(%g,%g) = %q, want %q", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestApplyResizeRectangle(t *testing.T) {
	r := newTestRegistry()
	tests := []struct {
		name   string
		handle Handle
		px, py float64
		want   Rect
	}{
		{"se", HandleSE, 60, 80, Rect{10, 20, 50, 60}},
		{"nw", HandleNW, 0, 0, Rect{0, 0, 40, 60}},
		{"ne", HandleNE, 50, 10, Rect{10, 10, 40, 50}},
		{"sw", HandleSW, 5, 70, Rect{5, 20, 35, 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := r.ApplyResize(rect(10, 20, 30, 40), tt.handle, tt.px, tt.py, &ResizeState{})
			if err != nil {
				t.Fatal(err)
			}
			got := Rect{p.Float(document.KeyX), p.Float(document.KeyY), p.Float(document.KeyWidth), p.Float(document.KeyHeight)}
			if got != tt.want {
				t.Errorf("resize %s = %+v, want %+v", tt.name, got, tt.want)
			}
		})
	}
}

func TestApplyResizeDoesNotMutateInput(t *testing.T) {
	r := newTestRegistry()
	s := rect(10, 20, 30, 40)
	if _, err := r.ApplyResize(s, HandleSE, 100, 100, nil); err != nil {
		t.Fatal(err)
	}
	if s.Props.Float(document.KeyWidth) != 30 {
		t.Errorf("input width changed to %g", s.Props.Float(document.KeyWidth))
	}
}

func TestApplyResizeCircle(t *testing.T) {
	r := newTestRegistry()
	c := circle(100, 100, 50)
	state := &ResizeState{}

	// Drag se from (150,150) to (170,200): box 50..170 x 50..200.
	p, err := r.ApplyResize(c, HandleSE, 170, 200, state)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Float(document.KeyRadius); got != 60 {
		t.Errorf("radius = %g, want 60", got)
	}
	if x, y := p.Float(document.KeyX), p.Float(document.KeyY); x != 110 || y != 125 {
		t.Errorf("centre = (%g,%g), want (110,125)", x, y)
	}
	if !state.Valid || state.Rect != (Rect{50, 50, 120, 150}) {
		t.Errorf("state = %+v", state)
	}

	// The cached rect is reused for the rest of the gesture.
	c.Props = p
	p, err = r.ApplyResize(c, HandleSE, 150, 150, state)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Float(document.KeyRadius); got != 50 {
		t.Errorf("radius after second move = %g, want 50", got)
	}

	box, err := r.HandleBox(c, state)
	if err != nil {
		t.Fatal(err)
	}
	if box != state.Rect {
		t.Errorf("HandleBox = %+v, want live rect %+v", box, state.Rect)
	}
}

func TestApplyResizeCircleInverted(t *testing.T) {
	r := newTestRegistry()
	p, err := r.ApplyResize(circle(100, 100, 50), HandleSE, 30, 40, &ResizeState{})
	if err != nil {
		t.Fatal(err)
	}
	// Box 50..30 x 50..40 has negative extents; radius uses magnitudes.
	if got := p.Float(document.KeyRadius); got != 5 {
		t.Errorf("radius = %g, want 5", got)
	}
}

func TestApplyResizeTextUsesBoxRule(t *testing.T) {
	r := newTestRegistry()
	s := text(100, 100, "abcd")
	s.Props[document.KeyFontSize] = 20.0

	// No stored box yet: starts from the metrics, 40x20.
	p, err := r.ApplyResize(s, HandleNW, 90, 70, &ResizeState{})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]float64{
		document.KeyX: 90, document.KeyY: 70,
		document.KeyWidth: 50, document.KeyHeight: 50,
		document.KeyFontSize: 20,
	}
	for k, v := range want {
		if got := p.Float(k); got != v {
			t.Errorf("%s = %g, want %g", k, got, v)
		}
	}

	s.Props = p
	p, err = r.ApplyResize(s, HandleSE, 150, 130, &ResizeState{})
	if err != nil {
		t.Fatal(err)
	}
	if w, h := p.Float(document.KeyWidth), p.Float(document.KeyHeight); w != 60 || h != 60 {
		t.Errorf("size after se drag = %gx%g, want 60x60", w, h)
	}
	if x, y := p.Float(document.KeyX), p.Float(document.KeyY); x != 90 || y != 70 {
		t.Errorf("se drag moved the anchor to %g,%g", x, y)
	}
}

func TestLayoutCircleText(t *testing.T) {
	p := document.Normalize(document.TypeCircleText, document.Properties{
		document.KeyX: 0.0, document.KeyY: 0.0,
		document.KeyRadius:     60.0,
		document.KeyText:       "ab",
		document.KeyFontFamily: "Arial",
		document.KeyFontSize:   10.0,
	})
	glyphs, err := LayoutCircleText(p, fixedMeasurer{}, "center")
	if err != nil {
		t.Fatal(err)
	}
	if len(glyphs) != 2 {
		t.Fatalf("got %d glyphs, want 2", len(glyphs))
	}
	// Inward centre alignment reverses the glyphs.
	if glyphs[0].Text != "b" || glyphs[1].Text != "a" {
		t.Errorf("order = %q %q, want b a", glyphs[0].Text, glyphs[1].Text)
	}
	// Glyph widths 5, arc radius 50: the pair is centred on angle 0.
	const eps = 1e-9
	if math.Abs(glyphs[0].Angle+glyphs[1].Angle) > eps {
		t.Errorf("angles %g %g not symmetric about 0", glyphs[0].Angle, glyphs[1].Angle)
	}
	if math.Abs(glyphs[0].Angle-0.05) > eps {
		t.Errorf("first angle = %g, want 0.05", glyphs[0].Angle)
	}
	if glyphs[0].Y != -55 {
		t.Errorf("Y = %g, want -55", glyphs[0].Y)
	}
}

func TestLayoutCircleTextOutward(t *testing.T) {
	p := document.Normalize(document.TypeCircleText, document.Properties{
		document.KeyRadius:       60.0,
		document.KeyText:         "ab",
		document.KeyFontSize:     10.0,
		document.KeyInwardFacing: false,
		document.KeyTextInside:   false,
	})
	glyphs, err := LayoutCircleText(p, fixedMeasurer{}, "center")
	if err != nil {
		t.Fatal(err)
	}
	if glyphs[0].Text != "a" {
		t.Errorf("outward text reversed: first glyph %q", glyphs[0].Text)
	}
	// Radius grows by text height when drawn outside: 70 - 5.
	if glyphs[0].Y != 65 {
		t.Errorf("Y = %g, want 65", glyphs[0].Y)
	}
	mid := (glyphs[0].Angle + glyphs[1].Angle) / 2
	if math.Abs(mid-math.Pi) > 1e-9 {
		t.Errorf("outward text centred at %g, want pi", mid)
	}
}

func TestLayoutCircleTextDegenerate(t *testing.T) {
	p := document.Normalize(document.TypeCircleText, document.Properties{
		document.KeyRadius: 5.0, document.KeyText: "ab", document.KeyFontSize: 10.0,
	})
	if _, err := LayoutCircleText(p, fixedMeasurer{}, "center"); !errors.Is(err, ErrDegenerateLayout) {
		t.Fatalf("err = %v, want ErrDegenerateLayout", err)
	}
}

func TestRenderRectangleWithBorder(t *testing.T) {
	r := newTestRegistry()
	s := rect(10, 20, 30, 40)
	s.Props[document.KeyBorderWidth] = 2.0
	s.Props[document.KeyCornerRadius] = 4.0

	surf := &callSurface{}
	if err := r.Render(surf, s); err != nil {
		t.Fatal(err)
	}
	if surf.count("fillRoundedRect") != 1 || surf.count("strokeRoundedRect") != 1 {
		t.Errorf("calls = %v", surf.calls)
	}
	if surf.calls[0] != "save" || surf.calls[len(surf.calls)-1] != "restore" {
		t.Errorf("render not wrapped in save/restore: %v", surf.calls)
	}
}

func TestRenderImagePending(t *testing.T) {
	img := document.Shape{Type: document.TypeImage, Props: document.Normalize(document.TypeImage, document.Properties{
		document.KeyImageSrc: "logo.png", document.KeyWidth: 10.0, document.KeyHeight: 10.0,
	})}

	r := NewRegistry(fixedMeasurer{}, mapImages{}, DefaultLayout())
	surf := &callSurface{}
	if err := r.Render(surf, img); err != nil {
		t.Fatal(err)
	}
	if surf.count("image") != 0 {
		t.Error("pending image was drawn")
	}

	r = NewRegistry(fixedMeasurer{}, mapImages{"logo.png": image.NewRGBA(image.Rect(0, 0, 1, 1))}, DefaultLayout())
	surf = &callSurface{}
	if err := r.Render(surf, img); err != nil {
		t.Fatal(err)
	}
	if surf.count("image") != 1 {
		t.Error("ready image was not drawn")
	}
}

func TestOutline(t *testing.T) {
	r := newTestRegistry()
	s := rect(10, 20, 30, 40)

	surf := &callSurface{}
	if err := r.Outline(surf, s, 2, false, nil); err != nil {
		t.Fatal(err)
	}
	if surf.count("reset") != 1 {
		t.Error("outline not drawn in screen space")
	}
	// Padded by 2 then scaled by 2.
	if surf.calls[2] != "stroke lightblue" || surf.calls[4] != "strokeRect 16 36 68 88" {
		t.Errorf("calls = %v", surf.calls)
	}
	if got := surf.count("strokeRect"); got != 5 {
		t.Errorf("strokeRect count = %d, want 5", got)
	}

	surf = &callSurface{}
	if err := r.Outline(surf, s, 1, true, nil); err != nil {
		t.Fatal(err)
	}
	if surf.count("stroke orange") != 1 || surf.count("strokeRect") != 1 {
		t.Errorf("group outline calls = %v", surf.calls)
	}
}

func TestOutlineRotatedTextPivot(t *testing.T) {
	r := newTestRegistry()
	s := text(50, 60, "abcd")
	s.Props[document.KeyRotation] = 90.0

	surf := &callSurface{}
	if err := r.Outline(surf, s, 2, false, nil); err != nil {
		t.Fatal(err)
	}
	// Box 45,45 30x20: centre 60,55, pivot 10 lower, then scaled by 2.
	want := []string{"save", "reset", "translate 120 130", "rotate 1.5708", "translate -120 -130"}
	for i, w := range want {
		if surf.calls[i] != w {
			t.Fatalf("calls[%d] = %q, want %q (all: %v)", i, surf.calls[i], w, surf.calls)
		}
	}
}
