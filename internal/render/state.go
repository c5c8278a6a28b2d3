package render

// state is the save/restore unit shared by the surfaces in this package.
type state struct {
	matrix     Matrix2D
	fill       string
	stroke     string
	lineWidth  float64
	fontFamily string
	fontSize   float64
}

func defaultState() state {
	return state{matrix: Identity(), fill: "black", stroke: "black", lineWidth: 1}
}

// stack implements the transform and style half of shape.Surface.
type stack struct {
	cur   state
	saved []state
}

func newStack() stack {
	return stack{cur: defaultState()}
}

func (s *stack) Save() { s.saved = append(s.saved, s.cur) }

func (s *stack) Restore() {
	if len(s.saved) == 0 {
		return
	}
	s.cur = s.saved[len(s.saved)-1]
	s.saved = s.saved[:len(s.saved)-1]
}

func (s *stack) ResetTransform()        { s.cur.matrix = Identity() }
func (s *stack) Translate(x, y float64) { s.cur.matrix = s.cur.matrix.Multiply(Translate(x, y)) }
func (s *stack) Rotate(radians float64) { s.cur.matrix = s.cur.matrix.Multiply(Rotate(radians)) }
func (s *stack) Scale(sx, sy float64)   { s.cur.matrix = s.cur.matrix.Multiply(Scale(sx, sy)) }

func (s *stack) SetFillColor(c string)   { s.cur.fill = c }
func (s *stack) SetStrokeColor(c string) { s.cur.stroke = c }
func (s *stack) SetLineWidth(w float64)  { s.cur.lineWidth = w }

func (s *stack) SetFont(family string, size float64) {
	s.cur.fontFamily, s.cur.fontSize = family, size
}
