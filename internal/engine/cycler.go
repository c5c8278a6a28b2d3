package engine

import (
	"math"
	"slices"

	"github.com/badgemaker/badgemaker/internal/document"
)

// DefaultCycleTolerance is how far, in document units, a click may land
// from the previous one and still count as the same spot.
const DefaultCycleTolerance = 2.0

// ClickCycler walks through overlapping shapes on repeated clicks at the
// same spot: the first click picks the topmost shape, the next one the
// shape below it, and so on, wrapping around at the bottom.
type ClickCycler struct {
	Tolerance float64

	last  Point
	stack []int64
	pos   int
}

// Next returns the shape a click at p selects.
func (c *ClickCycler) Next(s *Shaper, p Point, shapes []document.Shape) (document.Shape, bool) {
	hits := s.PickAllAt(p, shapes)
	if len(hits) == 0 {
		c.Reset()
		return document.Shape{}, false
	}
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}

	tol := c.Tolerance
	if tol <= 0 {
		tol = DefaultCycleTolerance
	}
	same := c.stack != nil &&
		math.Abs(p.X-c.last.X) <= tol && math.Abs(p.Y-c.last.Y) <= tol &&
		slices.Equal(ids, c.stack)
	if same {
		c.pos = (c.pos + 1) % len(ids)
	} else {
		c.pos = 0
	}
	c.last, c.stack = p, ids
	return hits[c.pos], true
}

// Reset forgets the previous click.
func (c *ClickCycler) Reset() {
	c.stack = nil
	c.pos = 0
}
