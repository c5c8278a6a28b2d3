package shape

import (
	"fmt"
	"math"

	"github.com/badgemaker/badgemaker/internal/document"
)

// Render draws s on surf in document coordinates. The surface transform is
// restored before returning. Image shapes whose source is not decoded yet
// draw nothing.
func (r *Registry) Render(surf Surface, s document.Shape) error {
	surf.Save()
	defer surf.Restore()

	p := s.Props
	switch s.Type {
	case document.TypeRectangle:
		r.renderRect(surf, p)
		return nil
	case document.TypeCircle:
		r.renderCircle(surf, p)
		return nil
	case document.TypeText:
		return r.renderText(surf, p)
	case document.TypeCircleText:
		return r.renderCircleText(surf, p)
	case document.TypeImage:
		r.renderImage(surf, p)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, s.Type)
	}
}

func (r *Registry) renderRect(surf Surface, p document.Properties) {
	x, y := p.Float(document.KeyX), p.Float(document.KeyY)
	w, h := p.Float(document.KeyWidth), p.Float(document.KeyHeight)
	if rot := p.Float(document.KeyRotation); rot != 0 {
		rotateAbout(surf, x+w/2, y+h/2, rot)
	}

	corner := p.Float(document.KeyCornerRadius)
	surf.SetFillColor(colorOr(p, "black"))
	if corner > 0 {
		surf.FillRoundedRect(x, y, w, h, corner)
	} else {
		surf.FillRect(x, y, w, h)
	}

	if bw := p.Float(document.KeyBorderWidth); bw > 0 {
		surf.SetStrokeColor(r.layout.BorderColor)
		surf.SetLineWidth(bw)
		if corner > 0 {
			surf.StrokeRoundedRect(x, y, w, h, corner)
		} else {
			surf.StrokeRect(x, y, w, h)
		}
	}
}

func (r *Registry) renderCircle(surf Surface, p document.Properties) {
	x, y, radius := p.Float(document.KeyX), p.Float(document.KeyY), p.Float(document.KeyRadius)
	surf.SetFillColor(colorOr(p, "black"))
	surf.FillCircle(x, y, radius)
	if bw := p.Float(document.KeyBorderWidth); bw > 0 {
		surf.SetStrokeColor(r.layout.BorderColor)
		surf.SetLineWidth(bw)
		surf.StrokeCircle(x, y, radius)
	}
}

// renderText rotates about the middle of the baseline.
func (r *Registry) renderText(surf Surface, p document.Properties) error {
	text := p.String(document.KeyText)
	family, size := p.String(document.KeyFontFamily), p.Float(document.KeyFontSize)
	x, y := p.Float(document.KeyX), p.Float(document.KeyY)

	if rot := p.Float(document.KeyRotation); rot != 0 {
		w, _, err := r.measure(text, family, size)
		if err != nil {
			return err
		}
		rotateAbout(surf, x+w/2, y, rot)
	}
	surf.SetFillColor(colorOr(p, "black"))
	surf.SetFont(family, size)
	surf.FillText(text, x, y, AlignBaselineLeft)
	return nil
}

func (r *Registry) renderCircleText(surf Surface, p document.Properties) error {
	glyphs, err := LayoutCircleText(p, r.measurer, r.layout.CircleTextAlign)
	if err != nil {
		return err
	}
	surf.SetFillColor(colorOr(p, "black"))
	surf.SetFont(p.String(document.KeyFontFamily), p.Float(document.KeyFontSize))
	surf.Translate(p.Float(document.KeyX), p.Float(document.KeyY))
	for _, g := range glyphs {
		surf.Save()
		surf.Rotate(g.Angle)
		surf.FillText(g.Text, 0, g.Y, AlignCenterMiddle)
		surf.Restore()
	}
	return nil
}

func (r *Registry) renderImage(surf Surface, p document.Properties) {
	if r.images == nil {
		return
	}
	img, ok := r.images.Image(p.String(document.KeyImageSrc))
	if !ok {
		return
	}
	surf.DrawImage(img,
		p.Float(document.KeyX), p.Float(document.KeyY),
		p.Float(document.KeyWidth), p.Float(document.KeyHeight))
}

// OutlineRect returns the outline of s in document coordinates and the
// rotation, in degrees, to apply about its centre.
func (r *Registry) OutlineRect(s document.Shape, state *ResizeState) (Rect, float64, error) {
	switch s.Type {
	case document.TypeRectangle, document.TypeImage:
		box, err := r.BoundingBox(s)
		if err != nil {
			return Rect{}, 0, err
		}
		return box.Inset(r.layout.RectOutlinePadding), 0, nil
	case document.TypeText:
		box, err := r.textBox(s.Props)
		if err != nil {
			return Rect{}, 0, err
		}
		return box, s.Props.Float(document.KeyRotation), nil
	case document.TypeCircle, document.TypeCircleText:
		if state != nil && state.Valid {
			return state.Rect, 0, nil
		}
		return circleBox(s.Props), 0, nil
	default:
		return Rect{}, 0, fmt.Errorf("%w: %q", ErrUnknownType, s.Type)
	}
}

// Outline draws the selection frame of s in screen space: the outline rect
// is multiplied by scale and drawn with the identity transform. Corner
// squares are drawn unless withoutSpots, which also switches to the group
// colour used for multi-selection.
func (r *Registry) Outline(surf Surface, s document.Shape, scale float64, withoutSpots bool, state *ResizeState) error {
	rect, rot, err := r.OutlineRect(s, state)
	if err != nil {
		return err
	}

	surf.Save()
	defer surf.Restore()
	surf.ResetTransform()
	if rot != 0 {
		cx, cy := r.outlinePivot(s, rect)
		rotateAbout(surf, cx*scale, cy*scale, rot)
	}
	rect = rect.Scale(scale)

	color := r.layout.OutlineColor
	if withoutSpots {
		color = r.layout.GroupOutlineColor
	}
	surf.SetStrokeColor(color)
	surf.SetLineWidth(1)
	surf.StrokeRect(rect.X, rect.Y, rect.Width, rect.Height)
	if withoutSpots {
		return nil
	}
	for _, h := range Handles {
		spot := r.HandleZone(rect, h)
		surf.StrokeRect(spot.X, spot.Y, spot.Width, spot.Height)
	}
	return nil
}

// outlinePivot is the point a rotated outline turns about, in document
// units. Text pivots twice the outline padding below its box centre.
func (r *Registry) outlinePivot(s document.Shape, rect Rect) (float64, float64) {
	cx, cy := rect.Center()
	if s.Type == document.TypeText {
		cy += r.layout.TextOutlinePadding * 2
	}
	return cx, cy
}

func rotateAbout(surf Surface, cx, cy, degrees float64) {
	surf.Translate(cx, cy)
	surf.Rotate(degrees * math.Pi / 180)
	surf.Translate(-cx, -cy)
}

func colorOr(p document.Properties, def string) string {
	if c := p.String(document.KeyColor); c != "" {
		return c
	}
	return def
}
