package store

import (
	"sync"
	"time"
)

// Scheduler runs fn once after roughly d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// TimerScheduler uses time.AfterFunc.
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// ManualScheduler holds callbacks until Flush is called. It drives the
// store in tests and in hosts that own their event loop.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []func()
}

func (m *ManualScheduler) AfterFunc(_ time.Duration, fn func()) {
	m.mu.Lock()
	m.pending = append(m.pending, fn)
	m.mu.Unlock()
}

// Pending returns the number of callbacks waiting.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Flush runs every pending callback, including ones scheduled while
// flushing, and reports how many ran.
func (m *ManualScheduler) Flush() int {
	n := 0
	for {
		m.mu.Lock()
		fns := m.pending
		m.pending = nil
		m.mu.Unlock()
		if len(fns) == 0 {
			return n
		}
		for _, fn := range fns {
			fn()
			n++
		}
	}
}
