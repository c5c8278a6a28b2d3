package fonts

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

func TestBuiltinFamilies(t *testing.T) {
	lib := NewLibrary("")
	tests := []struct {
		family string
		want   []byte
	}{
		{"Arial", goregular.TTF},
		{"Courier New", gomono.TTF},
		{"Arial Bold", gobold.TTF},
		{"", goregular.TTF},
	}
	for _, tt := range tests {
		if got := lib.TTF(tt.family); !bytes.Equal(got, tt.want) {
			t.Errorf("TTF(%q) picked the wrong font", tt.family)
		}
	}
}

func TestFontDirOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Badge.ttf"), gomono.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	lib := NewLibrary(dir)
	if !bytes.Equal(lib.TTF("Badge"), gomono.TTF) {
		t.Error("font from dir not used")
	}
}

func TestMeasure(t *testing.T) {
	lib := NewLibrary("")
	defer lib.Close()

	w1, h1, err := lib.Measure("lorem", "Arial", 18)
	if err != nil {
		t.Fatal(err)
	}
	w2, h2, err := lib.Measure("lorem ipsum", "Arial", 18)
	if err != nil {
		t.Fatal(err)
	}
	if w1 <= 0 || w2 <= w1 {
		t.Errorf("widths %g, %g: longer text should be wider", w1, w2)
	}
	if h1 != h2 || h1 <= 0 {
		t.Errorf("heights %g, %g: height depends only on the face", h1, h2)
	}

	_, h3, err := lib.Measure("lorem", "Arial", 36)
	if err != nil {
		t.Fatal(err)
	}
	if h3 <= h1 {
		t.Errorf("36pt height %g not larger than 18pt height %g", h3, h1)
	}
}

func TestMeasureBadSize(t *testing.T) {
	lib := NewLibrary("")
	if _, _, err := lib.Measure("x", "Arial", 0); !errors.Is(err, ErrBadSize) {
		t.Fatalf("err = %v, want ErrBadSize", err)
	}
}
