// Package persist defines the storage contract of the document store and
// runs every write through a single ordered background queue.
package persist

import (
	"context"
	"slices"
	"sync"

	"github.com/badgemaker/badgemaker/internal/document"
)

// Adapter stores shapes. Every method must be idempotent. Load returns
// shapes in paint order. Save and SaveMany keep the position of shapes
// already stored and append new ones; rewriting the order is done with
// DeleteAll followed by SaveMany.
type Adapter interface {
	Init(ctx context.Context) error
	Load(ctx context.Context) ([]document.Shape, error)
	Save(ctx context.Context, s document.Shape) error
	SaveMany(ctx context.Context, shapes []document.Shape) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
}

// Memory keeps shapes in process. It is the default backend and the one
// tests use.
type Memory struct {
	mu     sync.Mutex
	shapes []document.Shape
}

var _ Adapter = (*Memory)(nil)

func NewMemory(initial ...document.Shape) *Memory {
	m := &Memory{}
	for _, s := range initial {
		m.upsert(s)
	}
	return m
}

func (m *Memory) Init(context.Context) error { return nil }

func (m *Memory) Load(context.Context) ([]document.Shape, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return document.Snapshot(m.shapes).Clone(), nil
}

func (m *Memory) Save(_ context.Context, s document.Shape) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsert(s)
	return nil
}

func (m *Memory) SaveMany(_ context.Context, shapes []document.Shape) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range shapes {
		m.upsert(s)
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shapes = slices.DeleteFunc(m.shapes, func(s document.Shape) bool { return s.ID == id })
	return nil
}

func (m *Memory) DeleteAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shapes = nil
	return nil
}

// upsert must be called with mu held.
func (m *Memory) upsert(s document.Shape) {
	s = s.Clone()
	if i := document.Snapshot(m.shapes).IndexOf(s.ID); i >= 0 {
		m.shapes[i] = s
		return
	}
	m.shapes = append(m.shapes, s)
}
