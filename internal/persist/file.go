package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/badgemaker/badgemaker/internal/document"
)

// File stores the document as one JSON file in the import/export format.
// Every write replaces the file atomically through a temporary file.
type File struct {
	path string

	mu  sync.Mutex
	mem *Memory
}

var _ Adapter = (*File)(nil)

func NewFile(path string) *File {
	return &File{path: path, mem: NewMemory()}
}

func (f *File) Init(context.Context) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

func (f *File) Load(ctx context.Context) ([]document.Shape, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		f.mem = NewMemory()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	shapes, err := document.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", f.path, err)
	}
	f.mem = NewMemory(shapes...)
	return f.mem.Load(ctx)
}

func (f *File) Save(ctx context.Context, s document.Shape) error {
	return f.update(ctx, func(m *Memory) error { return m.Save(ctx, s) })
}

func (f *File) SaveMany(ctx context.Context, shapes []document.Shape) error {
	return f.update(ctx, func(m *Memory) error { return m.SaveMany(ctx, shapes) })
}

func (f *File) Delete(ctx context.Context, id int64) error {
	return f.update(ctx, func(m *Memory) error { return m.Delete(ctx, id) })
}

func (f *File) DeleteAll(ctx context.Context) error {
	return f.update(ctx, func(m *Memory) error { return m.DeleteAll(ctx) })
}

func (f *File) update(ctx context.Context, fn func(*Memory) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := fn(f.mem); err != nil {
		return err
	}
	shapes, err := f.mem.Load(ctx)
	if err != nil {
		return err
	}
	data, err := document.Encode(shapes)
	if err != nil {
		return err
	}
	return writeAtomic(f.path, data)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}
