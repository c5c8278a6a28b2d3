package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var ErrInvalidFile = errors.New("invalid scene file")

type fileShape struct {
	ID    json.Number    `json:"id"`
	Type  Type           `json:"type"`
	Props map[string]any `json:"properties"`
}

// Decode parses the import file format: a JSON array of
// {id, type, properties} objects. Only JSON validity is checked; shape
// types and property values are normalised but never rejected. Ids that are
// missing or out of range decode as 0 so the caller can assign fresh ones.
func Decode(data []byte) ([]Shape, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []fileShape
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after array", ErrInvalidFile)
	}

	shapes := make([]Shape, 0, len(raw))
	for _, r := range raw {
		shapes = append(shapes, Shape{
			ID:    parseID(r.ID),
			Type:  r.Type,
			Props: Normalize(r.Type, r.Props),
		})
	}
	return shapes, nil
}

// Encode writes shapes in the import/export file format.
func Encode(shapes []Shape) ([]byte, error) {
	if shapes == nil {
		shapes = []Shape{}
	}
	data, err := json.MarshalIndent(shapes, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode scene: %w", err)
	}
	return data, nil
}

// parseID returns 0 for ids outside 1..MaxID.
func parseID(n json.Number) int64 {
	if n == "" {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		if !ValidID(i) {
			return 0
		}
		return i
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || f < 1 || f > MaxID {
		return 0
	}
	return int64(f)
}
