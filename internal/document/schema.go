package document

import (
	"errors"
	"fmt"
	"math"
)

var ErrUnknownType = errors.New("unknown shape type")

type FieldKind int

const (
	FieldNumber FieldKind = iota
	FieldString
	FieldColor
	FieldBool
)

type Field struct {
	Key  string
	Kind FieldKind
	// Default is used by Normalize when the key is absent.
	Default any
}

const DefaultColor = "black"

var (
	rectangleSchema = []Field{
		{KeyX, FieldNumber, 0.0},
		{KeyY, FieldNumber, 0.0},
		{KeyWidth, FieldNumber, 0.0},
		{KeyHeight, FieldNumber, 0.0},
		{KeyColor, FieldColor, DefaultColor},
		{KeyBorderWidth, FieldNumber, 0.0},
		{KeyCornerRadius, FieldNumber, 0.0},
		{KeyRotation, FieldNumber, 0.0},
	}
	circleSchema = []Field{
		{KeyX, FieldNumber, 0.0},
		{KeyY, FieldNumber, 0.0},
		{KeyRadius, FieldNumber, 0.0},
		{KeyColor, FieldColor, DefaultColor},
		{KeyBorderWidth, FieldNumber, 0.0},
	}
	textSchema = []Field{
		{KeyX, FieldNumber, 0.0},
		{KeyY, FieldNumber, 0.0},
		{KeyText, FieldString, ""},
		{KeyFontFamily, FieldString, ""},
		{KeyFontSize, FieldNumber, 0.0},
		{KeyColor, FieldColor, DefaultColor},
		{KeyRotation, FieldNumber, 0.0},
	}
	circleTextSchema = []Field{
		{KeyX, FieldNumber, 0.0},
		{KeyY, FieldNumber, 0.0},
		{KeyRadius, FieldNumber, 0.0},
		{KeyText, FieldString, ""},
		{KeyFontFamily, FieldString, ""},
		{KeyFontSize, FieldNumber, 0.0},
		{KeyStartAngle, FieldNumber, 0.0},
		{KeyKerning, FieldNumber, 0.0},
		{KeyTextInside, FieldBool, true},
		{KeyInwardFacing, FieldBool, true},
		{KeyColor, FieldColor, DefaultColor},
	}
	imageSchema = []Field{
		{KeyX, FieldNumber, 0.0},
		{KeyY, FieldNumber, 0.0},
		{KeyWidth, FieldNumber, 0.0},
		{KeyHeight, FieldNumber, 0.0},
		{KeyImageSrc, FieldString, ""},
	}
)

// Schema returns the canonical property fields of t.
func Schema(t Type) ([]Field, error) {
	switch t {
	case TypeRectangle:
		return rectangleSchema, nil
	case TypeCircle:
		return circleSchema, nil
	case TypeText:
		return textSchema, nil
	case TypeCircleText:
		return circleTextSchema, nil
	case TypeImage:
		return imageSchema, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

// Normalize returns a copy of props holding every field of t's schema, with
// values coerced to the field kind. Unknown extra keys are kept. Shapes of an
// unknown type are returned unchanged apart from number coercion.
func Normalize(t Type, props Properties) Properties {
	out := Properties{}
	for k, v := range props {
		out[k] = normalizeValue(v)
	}
	fields, err := Schema(t)
	if err != nil {
		return out
	}
	for _, f := range fields {
		v, ok := out[f.Key]
		switch f.Kind {
		case FieldNumber:
			if _, isNum := v.(float64); !ok || !isNum {
				out[f.Key] = f.Default
			}
		case FieldString:
			if _, isStr := v.(string); !ok || !isStr {
				out[f.Key] = f.Default
			}
		case FieldColor:
			if s, isStr := v.(string); !ok || !isStr || s == "" {
				out[f.Key] = f.Default
			}
		case FieldBool:
			if _, isBool := v.(bool); !ok || !isBool {
				out[f.Key] = f.Default
			}
		}
	}
	if t.CenterAnchored() && out.Float(KeyRadius) < 0 {
		out[KeyRadius] = 0.0
	}
	return out
}

// Creation defaults shared by the tool panel.
const (
	DefaultX          = 240.0
	DefaultY          = 240.0
	DefaultSize       = 100.0
	DefaultRadius     = 50.0
	DefaultText       = "lorem ipsum"
	DefaultFontFamily = "Arial"
	DefaultFontSize   = 18.0
)

// Defaults builds the properties of a new shape of type t. Seed values
// override the per-type defaults. For circle variants a seed carrying a
// width/height placeholder box is converted to centre and radius.
func Defaults(t Type, seed Properties) (Properties, error) {
	var base Properties
	switch t {
	case TypeRectangle:
		base = Properties{
			KeyX: DefaultX, KeyY: DefaultY,
			KeyWidth: DefaultSize, KeyHeight: DefaultSize,
			KeyColor: "blue",
		}
		base = base.Merge(normalizeBox(seed))
	case TypeImage:
		base = Properties{
			KeyX: DefaultX, KeyY: DefaultY,
			KeyWidth: DefaultSize, KeyHeight: DefaultSize,
		}
		base = base.Merge(normalizeBox(seed))
	case TypeCircle:
		base = Properties{KeyColor: "red"}
		base = base.Merge(circleFromSeed(seed))
	case TypeText:
		base = Properties{
			KeyX: DefaultX, KeyY: DefaultY,
			KeyText:       DefaultText,
			KeyFontFamily: DefaultFontFamily,
			KeyFontSize:   DefaultFontSize,
			KeyColor:      DefaultColor,
			KeyRotation:   0.0,
		}
		seed = seed.Clone()
		delete(seed, KeyWidth)
		delete(seed, KeyHeight)
		base = base.Merge(seed)
	case TypeCircleText:
		base = Properties{
			KeyColor:        "red",
			KeyText:         DefaultText,
			KeyFontFamily:   DefaultFontFamily,
			KeyFontSize:     DefaultFontSize,
			KeyStartAngle:   0.0,
			KeyKerning:      0.0,
			KeyTextInside:   true,
			KeyInwardFacing: true,
		}
		base = base.Merge(circleFromSeed(seed))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return Normalize(t, base), nil
}

// normalizeBox flips negative width/height produced by dragging up or left.
func normalizeBox(seed Properties) Properties {
	out := seed.Clone()
	if !out.Has(KeyWidth) || !out.Has(KeyHeight) {
		return out
	}
	x, y := out.Float(KeyX), out.Float(KeyY)
	w, h := out.Float(KeyWidth), out.Float(KeyHeight)
	if w < 0 {
		x, w = x+w, -w
	}
	if h < 0 {
		y, h = y+h, -h
	}
	out[KeyX], out[KeyY], out[KeyWidth], out[KeyHeight] = x, y, w, h
	return out
}

func circleFromSeed(seed Properties) Properties {
	out := normalizeBox(seed)
	if out.Has(KeyWidth) && out.Has(KeyHeight) {
		w, h := out.Float(KeyWidth), out.Float(KeyHeight)
		out[KeyX] = out.Float(KeyX) + w/2
		out[KeyY] = out.Float(KeyY) + h/2
		out[KeyRadius] = math.Min(w, h) / 2
		delete(out, KeyWidth)
		delete(out, KeyHeight)
		return out
	}
	if !out.Has(KeyX) {
		out[KeyX] = DefaultX
	}
	if !out.Has(KeyY) {
		out[KeyY] = DefaultY
	}
	if !out.Has(KeyRadius) {
		out[KeyRadius] = DefaultRadius
	}
	return out
}
