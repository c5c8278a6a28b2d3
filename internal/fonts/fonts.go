// Package fonts resolves font families to TrueType data and measures text
// the way the canvas front end does: sizes are points at 96 DPI.
package fonts

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// DPI converts point sizes to pixels.
const DPI = 96

var ErrBadSize = errors.New("font size must be positive")

type faceKey struct {
	family string
	size   float64
}

// Library caches parsed fonts and sized faces. Families are looked up as
// <dir>/<family>.ttf first and fall back to the Go font that best matches
// the family name.
type Library struct {
	dir string

	mu     sync.Mutex
	data   map[string][]byte
	parsed map[string]*opentype.Font
	faces  map[faceKey]font.Face
}

// NewLibrary creates a library. dir may be empty.
func NewLibrary(dir string) *Library {
	return &Library{
		dir:    dir,
		data:   map[string][]byte{},
		parsed: map[string]*opentype.Font{},
		faces:  map[faceKey]font.Face{},
	}
}

// TTF returns the TrueType data used for family.
func (l *Library) TTF(family string) []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ttfLocked(family)
}

func (l *Library) ttfLocked(family string) []byte {
	key := strings.ToLower(family)
	if data, ok := l.data[key]; ok {
		return data
	}
	data := l.fromDir(family)
	if data == nil {
		data = builtin(key)
	}
	l.data[key] = data
	return data
}

func (l *Library) fromDir(family string) []byte {
	if l.dir == "" || family == "" {
		return nil
	}
	path := filepath.Join(l.dir, family+".ttf")
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("read font file", "error", err, "path", path)
		}
		return nil
	}
	return data
}

// builtin maps CSS-ish family names onto the Go fonts.
func builtin(family string) []byte {
	bold := strings.Contains(family, "bold") || strings.Contains(family, "black")
	italic := strings.Contains(family, "italic") || strings.Contains(family, "oblique")
	switch {
	case strings.Contains(family, "mono") || strings.Contains(family, "courier"):
		return gomono.TTF
	case bold && italic:
		return gobolditalic.TTF
	case bold:
		return gobold.TTF
	case italic:
		return goitalic.TTF
	default:
		return goregular.TTF
	}
}

// Face returns a face for family at size points.
func (l *Library) Face(family string, size float64) (font.Face, error) {
	if size <= 0 {
		return nil, ErrBadSize
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := faceKey{strings.ToLower(family), size}
	if face, ok := l.faces[key]; ok {
		return face, nil
	}

	f, ok := l.parsed[key.family]
	if !ok {
		var err error
		f, err = opentype.Parse(l.ttfLocked(family))
		if err != nil {
			return nil, fmt.Errorf("parse font %q: %w", family, err)
		}
		l.parsed[key.family] = f
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: DPI, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("create face %q %gpt: %w", family, size, err)
	}
	l.faces[key] = face
	return face, nil
}

// Measure returns the advance width of text and the line height of the
// face (ascent plus descent).
func (l *Library) Measure(text, family string, size float64) (float64, float64, error) {
	face, err := l.Face(family, size)
	if err != nil {
		return 0, 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	adv := font.MeasureString(face, text)
	m := face.Metrics()
	return fixedToFloat(adv), fixedToFloat(m.Ascent + m.Descent), nil
}

// Close releases every cached face.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for k, face := range l.faces {
		if err := face.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(l.faces, k)
	}
	return errors.Join(errs...)
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
