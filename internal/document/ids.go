package document

import (
	"sync"
	"time"
)

// MaxID is the largest shape id, the largest integer a JSON number holds
// exactly in a browser.
const MaxID = 1<<53 - 1

// ValidID reports whether id can name a shape.
func ValidID(id int64) bool { return id > 0 && id <= MaxID }

// IDGenerator hands out shape ids derived from the wall clock in
// milliseconds. Ids are strictly increasing even when several shapes are
// created within the same millisecond.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// NewIDGeneratorWithClock is used by tests that need deterministic ids.
func NewIDGeneratorWithClock(now func() time.Time) *IDGenerator {
	return &IDGenerator{now: now}
}

func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Observe advances the generator past id so loaded or imported shapes can
// never collide with new ones. Invalid ids are ignored.
func (g *IDGenerator) Observe(id int64) {
	if !ValidID(id) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if id > g.last {
		g.last = id
	}
}
