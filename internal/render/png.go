package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"strings"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"github.com/badgemaker/badgemaker/internal/shape"
)

// FontData supplies TrueType bytes for a font family.
type FontData interface {
	TTF(family string) []byte
}

// PNG rasterises shapes with gg. Text and images are placed through the
// current transform but drawn upright.
type PNG struct {
	stack
	dc      *gg.Context
	fonts   FontData
	sources map[string]*text.FontSource
}

var _ shape.Surface = (*PNG)(nil)

// NewPNG creates a width x height canvas cleared to background.
func NewPNG(width, height int, background string, fonts FontData) *PNG {
	dc := gg.NewContext(width, height)
	dc.ClearWithColor(gg.FromColor(MustColor(background, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})))
	return &PNG{
		stack:   newStack(),
		dc:      dc,
		fonts:   fonts,
		sources: map[string]*text.FontSource{},
	}
}

// apply loads the current transform into gg before a path operation.
func (p *PNG) apply() {
	m := p.cur.matrix
	p.dc.SetTransform(gg.Matrix{A: m[0], B: m[2], C: m[4], D: m[1], E: m[3], F: m[5]})
}

func (p *PNG) setColor(c string) {
	p.dc.SetColor(MustColor(c, color.RGBA{A: 0xff}))
}

func (p *PNG) fill(op string) {
	p.setColor(p.cur.fill)
	if err := p.dc.Fill(); err != nil {
		slog.Warn("png fill", "error", err, "op", op)
	}
}

func (p *PNG) strokePath(op string) {
	p.setColor(p.cur.stroke)
	p.dc.SetLineWidth(p.cur.lineWidth)
	if err := p.dc.Stroke(); err != nil {
		slog.Warn("png stroke", "error", err, "op", op)
	}
}

func (p *PNG) FillRect(x, y, w, h float64) {
	p.apply()
	p.dc.DrawRectangle(x, y, w, h)
	p.fill("fillRect")
}

func (p *PNG) FillRoundedRect(x, y, w, h, r float64) {
	p.apply()
	p.dc.DrawRoundedRectangle(x, y, w, h, r)
	p.fill("fillRoundedRect")
}

func (p *PNG) StrokeRect(x, y, w, h float64) {
	p.apply()
	p.dc.DrawRectangle(x, y, w, h)
	p.strokePath("strokeRect")
}

func (p *PNG) StrokeRoundedRect(x, y, w, h, r float64) {
	p.apply()
	p.dc.DrawRoundedRectangle(x, y, w, h, r)
	p.strokePath("strokeRoundedRect")
}

func (p *PNG) FillCircle(cx, cy, r float64) {
	p.apply()
	p.dc.DrawCircle(cx, cy, r)
	p.fill("fillCircle")
}

func (p *PNG) StrokeCircle(cx, cy, r float64) {
	p.apply()
	p.dc.DrawCircle(cx, cy, r)
	p.strokePath("strokeCircle")
}

func (p *PNG) face(family string, size float64) (text.Face, error) {
	key := strings.ToLower(family)
	src, ok := p.sources[key]
	if !ok {
		var err error
		src, err = text.NewFontSource(p.fonts.TTF(family))
		if err != nil {
			return nil, fmt.Errorf("load font %q: %w", family, err)
		}
		p.sources[key] = src
	}
	return src.Face(size), nil
}

func (p *PNG) FillText(s string, x, y float64, align shape.TextAlign) {
	if p.fonts == nil || p.cur.fontSize <= 0 {
		return
	}
	m := p.cur.matrix
	// Points to pixels at 96 DPI, then the canvas zoom.
	face, err := p.face(p.cur.fontFamily, p.cur.fontSize*96/72*m.ScaleFactor())
	if err != nil {
		slog.Warn("png text", "error", err)
		return
	}
	tx, ty := m.TransformPoint(x, y)
	p.dc.Identity()
	p.dc.SetFont(face)
	p.setColor(p.cur.fill)
	if align == shape.AlignCenterMiddle {
		p.dc.DrawStringAnchored(s, tx, ty, 0.5, 0.5)
		return
	}
	p.dc.DrawString(s, tx, ty)
}

func (p *PNG) DrawImage(img image.Image, x, y, w, h float64) {
	m := p.cur.matrix
	tx, ty := m.TransformPoint(x, y)
	k := m.ScaleFactor()
	p.dc.Identity()
	p.dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X: tx, Y: ty, DstWidth: w * k, DstHeight: h * k,
	})
}

// Image returns the rendered raster.
func (p *PNG) Image() image.Image { return p.dc.Image() }

func (p *PNG) Encode(w io.Writer) error {
	if err := p.dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func (p *PNG) Close() error { return p.dc.Close() }
