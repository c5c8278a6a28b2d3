package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/badgemaker/badgemaker/internal/shape"
)

// PDF draws shapes onto a single page sized to the canvas, one PDF point
// per document unit.
type PDF struct {
	stack
	pdf    *gofpdf.Fpdf
	height float64
	fonts  FontData
	// registered holds font families and images already embedded.
	registered map[string]bool
	images     map[image.Image]string
}

var _ shape.Surface = (*PDF)(nil)

func NewPDF(width, height float64, fonts FontData) *PDF {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	return &PDF{
		stack:      newStack(),
		pdf:        pdf,
		height:     height,
		fonts:      fonts,
		registered: map[string]bool{},
		images:     map[image.Image]string{},
	}
}

// begin opens a PDF graphics state carrying the current transform. gofpdf
// flips y for every coordinate, so the canvas matrix is conjugated by that
// flip before it is emitted.
func (p *PDF) begin() {
	m, h := p.cur.matrix, p.height
	p.pdf.TransformBegin()
	if m.IsIdentity() {
		return
	}
	p.pdf.Transform(gofpdf.TransformMatrix{
		A: m[0],
		B: -m[1],
		C: -m[2],
		D: m[3],
		E: m[2]*h + m[4],
		F: h - m[3]*h - m[5],
	})
}

func (p *PDF) end() { p.pdf.TransformEnd() }

func (p *PDF) setFill() {
	c := MustColor(p.cur.fill, color.RGBA{A: 0xff})
	p.pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
	p.pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}

func (p *PDF) setStroke() {
	c := MustColor(p.cur.stroke, color.RGBA{A: 0xff})
	p.pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
	p.pdf.SetLineWidth(p.cur.lineWidth)
}

func (p *PDF) FillRect(x, y, w, h float64) {
	p.setFill()
	p.begin()
	p.pdf.Rect(x, y, w, h, "F")
	p.end()
}

func (p *PDF) FillRoundedRect(x, y, w, h, r float64) {
	p.setFill()
	p.begin()
	p.pdf.RoundedRect(x, y, w, h, r, "1234", "F")
	p.end()
}

func (p *PDF) StrokeRect(x, y, w, h float64) {
	p.setStroke()
	p.begin()
	p.pdf.Rect(x, y, w, h, "D")
	p.end()
}

func (p *PDF) StrokeRoundedRect(x, y, w, h, r float64) {
	p.setStroke()
	p.begin()
	p.pdf.RoundedRect(x, y, w, h, r, "1234", "D")
	p.end()
}

func (p *PDF) FillCircle(cx, cy, r float64) {
	p.setFill()
	p.begin()
	p.pdf.Circle(cx, cy, r, "F")
	p.end()
}

func (p *PDF) StrokeCircle(cx, cy, r float64) {
	p.setStroke()
	p.begin()
	p.pdf.Circle(cx, cy, r, "D")
	p.end()
}

// useFont embeds the family as a UTF-8 font the first time it is used.
func (p *PDF) useFont() bool {
	if p.fonts == nil || p.cur.fontSize <= 0 {
		return false
	}
	name := strings.ToLower(p.cur.fontFamily)
	if name == "" {
		name = "default"
	}
	if !p.registered[name] {
		p.pdf.AddUTF8FontFromBytes(name, "", p.fonts.TTF(p.cur.fontFamily))
		p.registered[name] = true
	}
	// Canvas points are 96 DPI pixels scaled by 4/3; keep that ratio.
	p.pdf.SetFont(name, "", p.cur.fontSize*96/72)
	return true
}

func (p *PDF) FillText(s string, x, y float64, align shape.TextAlign) {
	if !p.useFont() {
		return
	}
	p.setFill()
	if align == shape.AlignCenterMiddle {
		_, unit := p.pdf.GetFontSize()
		x -= p.pdf.GetStringWidth(s) / 2
		y += unit * 0.35
	}
	p.begin()
	p.pdf.Text(x, y, s)
	p.end()
}

func (p *PDF) DrawImage(img image.Image, x, y, w, h float64) {
	name, ok := p.images[img]
	if !ok {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			slog.Warn("pdf image", "error", err)
			return
		}
		name = "img" + strconv.Itoa(len(p.images))
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		p.pdf.RegisterImageOptionsReader(name, opts, &buf)
		p.images[img] = name
	}
	p.begin()
	p.pdf.ImageOptions(name, x, y, w, h, false, gofpdf.ImageOptions{ImageType: "PNG", AllowNegativePosition: true}, 0, "")
	p.end()
}

// Output writes the document and reports the first drawing error, if any.
func (p *PDF) Output(w io.Writer) error {
	if err := p.pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
