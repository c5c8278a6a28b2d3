package render

import (
	"encoding/json"
	"image"
	"strconv"

	"github.com/badgemaker/badgemaker/internal/shape"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context,
// setting Transform before every command.
type DrawCommand struct {
	Op          string    `json:"op"`                 // fillRect, strokeRect, fillRoundedRect, strokeRoundedRect, fillCircle, strokeCircle, text, image
	ObjectID    string    `json:"objectId,omitempty"` // For hit correlation
	Transform   []float64 `json:"transform"`          // [a, b, c, d, e, f] affine matrix
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width,omitempty"`
	Height      float64   `json:"height,omitempty"`
	Radius      float64   `json:"radius,omitempty"`
	Fill        string    `json:"fill,omitempty"`
	Stroke      string    `json:"stroke,omitempty"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`
	Text        string    `json:"text,omitempty"`
	Font        string    `json:"font,omitempty"`  // CSS font shorthand, e.g. "18pt Arial"
	Align       string    `json:"align,omitempty"` // "center" for centred glyphs
	ImageSrc    string    `json:"imageSrc,omitempty"`
}

// Sourced is implemented by decoded images that remember where they came
// from, so the front end can blit its own copy.
type Sourced interface {
	Source() string
}

// Recorder is a shape.Surface that records draw commands instead of
// rasterising them.
type Recorder struct {
	stack
	object   string
	commands []DrawCommand
}

var _ shape.Surface = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{stack: newStack()}
}

// SetObject tags subsequent commands with a shape id; 0 clears the tag.
func (r *Recorder) SetObject(id int64) {
	if id == 0 {
		r.object = ""
		return
	}
	r.object = strconv.FormatInt(id, 10)
}

// Commands returns the recorded commands in painter's order.
func (r *Recorder) Commands() []DrawCommand { return r.commands }

// Reset drops the recorded commands and the saved state.
func (r *Recorder) Reset() {
	r.stack = newStack()
	r.object = ""
	r.commands = r.commands[:0]
}

func (r *Recorder) emit(cmd DrawCommand) {
	cmd.ObjectID = r.object
	cmd.Transform = r.cur.matrix.ToSlice()
	r.commands = append(r.commands, cmd)
}

func (r *Recorder) fillCmd(op string) DrawCommand {
	return DrawCommand{Op: op, Fill: r.cur.fill}
}

func (r *Recorder) strokeCmd(op string) DrawCommand {
	return DrawCommand{Op: op, Stroke: r.cur.stroke, StrokeWidth: r.cur.lineWidth}
}

func (r *Recorder) FillRect(x, y, w, h float64) {
	cmd := r.fillCmd("fillRect")
	cmd.X, cmd.Y, cmd.Width, cmd.Height = x, y, w, h
	r.emit(cmd)
}

func (r *Recorder) FillRoundedRect(x, y, w, h, radius float64) {
	cmd := r.fillCmd("fillRoundedRect")
	cmd.X, cmd.Y, cmd.Width, cmd.Height, cmd.Radius = x, y, w, h, radius
	r.emit(cmd)
}

func (r *Recorder) StrokeRect(x, y, w, h float64) {
	cmd := r.strokeCmd("strokeRect")
	cmd.X, cmd.Y, cmd.Width, cmd.Height = x, y, w, h
	r.emit(cmd)
}

func (r *Recorder) StrokeRoundedRect(x, y, w, h, radius float64) {
	cmd := r.strokeCmd("strokeRoundedRect")
	cmd.X, cmd.Y, cmd.Width, cmd.Height, cmd.Radius = x, y, w, h, radius
	r.emit(cmd)
}

func (r *Recorder) FillCircle(cx, cy, radius float64) {
	cmd := r.fillCmd("fillCircle")
	cmd.X, cmd.Y, cmd.Radius = cx, cy, radius
	r.emit(cmd)
}

func (r *Recorder) StrokeCircle(cx, cy, radius float64) {
	cmd := r.strokeCmd("strokeCircle")
	cmd.X, cmd.Y, cmd.Radius = cx, cy, radius
	r.emit(cmd)
}

func (r *Recorder) FillText(text string, x, y float64, align shape.TextAlign) {
	cmd := r.fillCmd("text")
	cmd.X, cmd.Y, cmd.Text = x, y, text
	cmd.Font = CSSFont(r.cur.fontFamily, r.cur.fontSize)
	if align == shape.AlignCenterMiddle {
		cmd.Align = "center"
	}
	r.emit(cmd)
}

// DrawImage records the image source; images without one are skipped
// since the front end has no way to find their pixels.
func (r *Recorder) DrawImage(img image.Image, x, y, w, h float64) {
	src, ok := img.(Sourced)
	if !ok {
		return
	}
	r.emit(DrawCommand{Op: "image", X: x, Y: y, Width: w, Height: h, ImageSrc: src.Source()})
}

// CSSFont formats a family and point size as a CSS font shorthand.
func CSSFont(family string, size float64) string {
	return strconv.FormatFloat(size, 'f', -1, 64) + "pt " + family
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
