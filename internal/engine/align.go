package engine

import (
	"errors"
	"fmt"

	"github.com/badgemaker/badgemaker/internal/document"
	"github.com/badgemaker/badgemaker/internal/shape"
)

var ErrUnknownAlignMode = errors.New("unknown align mode")

// Align modes.
const (
	AlignCenterHorizontal = "center-horizontal"
	AlignCenterVertical   = "center-vertical"
	AlignLeft             = "justify-left"
	AlignRight            = "justify-right"
	AlignTop              = "justify-top"
	AlignBottom           = "justify-bottom"
)

// AlignModes lists every mode in toolbar order.
var AlignModes = []string{
	AlignCenterHorizontal, AlignCenterVertical,
	AlignLeft, AlignRight, AlignTop, AlignBottom,
}

// Align returns copies of shapes moved so their bounding boxes share a
// centre line or an edge. Only x and y change; each shape moves by the
// offset of its box, so centre-anchored shapes land in the right place.
// Shapes whose box cannot be computed are returned unchanged.
func (s *Shaper) Align(shapes []document.Shape, mode string) ([]document.Shape, error) {
	switch mode {
	case AlignCenterHorizontal, AlignCenterVertical, AlignLeft, AlignRight, AlignTop, AlignBottom:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlignMode, mode)
	}

	boxes := make([]shape.Rect, len(shapes))
	valid := make([]bool, len(shapes))
	var n int
	for i, sh := range shapes {
		box, err := s.reg.BoundingBox(sh)
		if err != nil {
			continue
		}
		boxes[i], valid[i] = box.Normalize(), true
		n++
	}

	out := make([]document.Shape, len(shapes))
	for i, sh := range shapes {
		out[i] = sh.Clone()
	}
	if n == 0 {
		return out, nil
	}

	target := alignTarget(boxes, valid, n, mode)
	for i := range out {
		if !valid[i] {
			continue
		}
		b := boxes[i]
		var dx, dy float64
		switch mode {
		case AlignCenterHorizontal:
			dx = target - (b.X + b.Width/2)
		case AlignCenterVertical:
			dy = target - (b.Y + b.Height/2)
		case AlignLeft:
			dx = target - b.X
		case AlignRight:
			dx = target - (b.X + b.Width)
		case AlignTop:
			dy = target - b.Y
		case AlignBottom:
			dy = target - (b.Y + b.Height)
		}
		p := out[i].Props
		p[document.KeyX] = p.Float(document.KeyX) + dx
		p[document.KeyY] = p.Float(document.KeyY) + dy
	}
	return out, nil
}

func alignTarget(boxes []shape.Rect, valid []bool, n int, mode string) float64 {
	var sum float64
	first := true
	var target float64
	for i, b := range boxes {
		if !valid[i] {
			continue
		}
		var v float64
		switch mode {
		case AlignCenterHorizontal:
			sum += b.X + b.Width/2
			continue
		case AlignCenterVertical:
			sum += b.Y + b.Height/2
			continue
		case AlignLeft:
			v = b.X
		case AlignRight:
			v = b.X + b.Width
		case AlignTop:
			v = b.Y
		case AlignBottom:
			v = b.Y + b.Height
		}
		switch {
		case first:
			target = v
		case (mode == AlignLeft || mode == AlignTop) && v < target:
			target = v
		case (mode == AlignRight || mode == AlignBottom) && v > target:
			target = v
		}
		first = false
	}
	if mode == AlignCenterHorizontal || mode == AlignCenterVertical {
		return sum / float64(n)
	}
	return target
}
