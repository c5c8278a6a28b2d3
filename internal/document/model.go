package document

import (
	"encoding/json"
	"maps"
	"math"
)

type Type string

const (
	TypeRectangle  Type = "rectangle"
	TypeCircle     Type = "circle"
	TypeText       Type = "text"
	TypeCircleText Type = "circle-text"
	TypeImage      Type = "image"
)

// Types lists the built-in shape variants in tool-panel order.
var Types = []Type{TypeRectangle, TypeCircle, TypeText, TypeCircleText, TypeImage}

// Known reports whether t is one of the built-in variants.
func (t Type) Known() bool {
	switch t {
	case TypeRectangle, TypeCircle, TypeText, TypeCircleText, TypeImage:
		return true
	}
	return false
}

// CenterAnchored reports whether x,y denote the centre rather than a corner.
func (t Type) CenterAnchored() bool {
	return t == TypeCircle || t == TypeCircleText
}

// Property keys. The names match the persisted file format.
const (
	KeyX            = "x"
	KeyY            = "y"
	KeyWidth        = "width"
	KeyHeight       = "height"
	KeyRadius       = "radius"
	KeyColor        = "color"
	KeyBorderWidth  = "borderWidth"
	KeyCornerRadius = "cornerRadius"
	KeyRotation     = "rotation"
	KeyText         = "text"
	KeyFontFamily   = "fontFamily"
	KeyFontSize     = "fontSize"
	KeyStartAngle   = "startAngle"
	KeyKerning      = "kerning"
	KeyTextInside   = "textInside"
	KeyInwardFacing = "inwardFacing"
	KeyImageSrc     = "imageSrc"
)

// Properties is the per-type property bag of a shape. Numbers are always
// held as float64 once a shape has been normalised.
type Properties map[string]any

type Shape struct {
	ID    int64      `json:"id"`
	Type  Type       `json:"type"`
	Props Properties `json:"properties"`
}

// Clone returns a copy of the shape that shares no property map with s.
func (s Shape) Clone() Shape {
	return Shape{ID: s.ID, Type: s.Type, Props: s.Props.Clone()}
}

// Clone returns a shallow copy of p. Property values are scalars.
func (p Properties) Clone() Properties {
	if p == nil {
		return Properties{}
	}
	return maps.Clone(p)
}

// Merge returns a copy of p with every key of patch applied on top.
func (p Properties) Merge(patch Properties) Properties {
	out := p.Clone()
	for k, v := range patch {
		out[k] = normalizeValue(v)
	}
	return out
}

// Float returns the numeric value stored under key, or 0.
func (p Properties) Float(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// String returns the string stored under key, or "".
func (p Properties) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns the bool stored under key, or def when absent or not a bool.
func (p Properties) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Has reports whether key is set.
func (p Properties) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Snapshot is an ordered document. Order is paint order: later entries are
// drawn on top.
type Snapshot []Shape

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for i, sh := range s {
		out[i] = sh.Clone()
	}
	return out
}

// IndexOf returns the paint index of id, or -1.
func (s Snapshot) IndexOf(id int64) int {
	for i, sh := range s {
		if sh.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the shape with the given id.
func (s Snapshot) Find(id int64) (Shape, bool) {
	if i := s.IndexOf(id); i >= 0 {
		return s[i], true
	}
	return Shape{}, false
}

func normalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return n.String()
		}
		return f
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0.0
		}
		return n
	default:
		return v
	}
}
