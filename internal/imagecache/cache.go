// Package imagecache decodes image sources in the background and keeps the
// results apart from shape properties. A source is a data URL or a file
// path; decoding moves it from pending to ready or failed exactly once.
package imagecache

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const maxImageSize = 10 << 20 // 10MB

var (
	ErrUnsupportedSource = errors.New("unsupported image source")
	ErrTooLarge          = errors.New("image larger than 10MB")
)

type State int

const (
	StateUnknown State = iota
	StatePending
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Image is a decoded image that remembers its source reference.
type Image struct {
	image.Image
	src string
}

func (i *Image) Source() string { return i.src }

type entry struct {
	state State
	img   *Image
	err   error
}

// Cache maps source references to decoded images.
type Cache struct {
	dir string // base directory for relative file paths

	mu        sync.Mutex
	entries   map[string]*entry
	listeners []func(src string, state State)
	wg        sync.WaitGroup
}

// New creates a cache that resolves relative paths against dir.
func New(dir string) *Cache {
	return &Cache{dir: dir, entries: map[string]*entry{}}
}

// OnLoad registers fn to run after every decode completes, successfully or
// not. fn runs on the decoding goroutine.
func (c *Cache) OnLoad(fn func(src string, state State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Request starts decoding src unless it is already known and returns the
// current state.
func (c *Cache) Request(src string) State {
	if src == "" {
		return StateFailed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[src]; ok {
		return e.state
	}
	c.entries[src] = &entry{state: StatePending}
	c.wg.Add(1)
	go c.decode(src)
	return StatePending
}

// Image returns the decoded image for src. Unknown sources are requested
// and reported as not ready.
func (c *Cache) Image(src string) (image.Image, bool) {
	if c.Request(src) != StateReady {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[src].img, true
}

// State returns the state of src and the decode error for failed sources.
func (c *Cache) State(src string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[src]
	if !ok {
		return StateUnknown, nil
	}
	return e.state, e.err
}

// Forget drops src so the next request decodes it again.
func (c *Cache) Forget(src string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[src]; ok && e.state != StatePending {
		delete(c.entries, src)
	}
}

// Wait blocks until every decode started so far has finished.
func (c *Cache) Wait() {
	c.wg.Wait()
}

func (c *Cache) decode(src string) {
	defer c.wg.Done()

	img, err := c.load(src)

	c.mu.Lock()
	e := c.entries[src]
	if err != nil {
		e.state, e.err = StateFailed, err
	} else {
		e.state, e.img = StateReady, &Image{Image: img, src: src}
	}
	state := e.state
	listeners := append([]func(string, State){}, c.listeners...)
	c.mu.Unlock()

	if err != nil {
		slog.Warn("decode image", "error", err, "src", truncate(src))
	}
	for _, fn := range listeners {
		fn(src, state)
	}
}

func (c *Cache) load(src string) (image.Image, error) {
	data, err := c.read(src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func (c *Cache) read(src string) ([]byte, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		return decodeDataURL(src)
	case strings.Contains(src, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, truncate(src))
	}

	path := src
	if !filepath.IsAbs(path) && c.dir != "" {
		path = filepath.Join(c.dir, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if info.Size() > maxImageSize {
		return nil, ErrTooLarge
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// decodeDataURL handles data:[<mediatype>][;base64],<data>.
func decodeDataURL(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: data URL without payload", ErrUnsupportedSource)
	}
	if strings.HasSuffix(meta, ";base64") {
		if base64.StdEncoding.DecodedLen(len(payload)) > maxImageSize {
			return nil, ErrTooLarge
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode data URL: %w", err)
		}
		return data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URL: %w", err)
	}
	return []byte(text), nil
}

func truncate(src string) string {
	if len(src) > 64 {
		return src[:64] + "..."
	}
	return src
}
