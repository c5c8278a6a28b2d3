// Package store holds the live document: the ordered shape collection, the
// active and multi-selected shapes, the copy buffer and the undo history.
// Every content change is persisted through a Persister, recorded in the
// history and announced to observers after a short debounce.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/badgemaker/badgemaker/internal/document"
	"github.com/badgemaker/badgemaker/internal/imagecache"
)

var (
	ErrUnknownType     = document.ErrUnknownType
	ErrNotFound        = errors.New("object not found")
	ErrNoActiveObject  = errors.New("no active object")
	ErrNothingSelected = errors.New("nothing selected")
	ErrCopyBufferEmpty = errors.New("copy buffer is empty")
	ErrHistoryIndex    = errors.New("history index out of range")
	ErrInvalidImport   = errors.New("invalid import file")
)

// Persister receives every content change. Implementations must not block;
// persist.Queue is the production one.
type Persister interface {
	Save(s document.Shape)
	SaveMany(shapes []document.Shape)
	Delete(id int64)
	DeleteAll()
	Replace(shapes []document.Shape)
}

// Loader provides the initial document for Open. persist.Adapter satisfies it.
type Loader interface {
	Init(ctx context.Context) error
	Load(ctx context.Context) ([]document.Shape, error)
}

// Aligner moves shapes to a common edge or centre. The engine implements it.
type Aligner interface {
	Align(shapes []document.Shape, mode string) ([]document.Shape, error)
}

// ImageLoader starts decoding an image source.
type ImageLoader interface {
	Request(src string) imagecache.State
}

// Clipboard mirrors the copy buffer outside the process.
type Clipboard interface {
	Write(text string) error
}

type Direction int

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
)

type Options struct {
	Persister Persister
	Loader    Loader
	Aligner   Aligner
	Images    ImageLoader
	Clipboard Clipboard

	Scheduler   Scheduler
	NotifyDelay time.Duration

	IDs *document.IDGenerator
	Now func() time.Time

	CopyNudge float64
	MoveStep  float64
	FineStep  float64
}

// ActiveObject is the shape under direct manipulation. Props is a working
// copy kept in step with the document. OffsetX/OffsetY is where the pointer
// grabbed the shape relative to its anchor.
type ActiveObject struct {
	ID      int64               `json:"id"`
	Props   document.Properties `json:"properties"`
	OffsetX float64             `json:"offsetX"`
	OffsetY float64             `json:"offsetY"`
}

// Template is a copied shape without an identity.
type Template struct {
	Type  document.Type       `json:"type"`
	Props document.Properties `json:"properties"`
}

// Snapshot is what observers see. It shares nothing with the store.
type Snapshot struct {
	Objects      document.Snapshot `json:"objects"`
	Active       *ActiveObject     `json:"active"`
	Selected     []int64           `json:"selected"`
	HistoryIndex int               `json:"historyIndex"`
	HistoryLen   int               `json:"historyLen"`
	Version      uint64            `json:"version"`
}

type Observer func(Snapshot)

type subscription struct {
	id uuid.UUID
	fn Observer
}

type Store struct {
	opts Options

	mu        sync.Mutex
	objects   document.Snapshot
	active    *ActiveObject
	selected  []int64
	buffer    []Template
	history   history
	version   uint64
	scheduled bool
	subs      []subscription
}

func New(opts Options) *Store {
	if opts.Persister == nil {
		opts.Persister = nopPersister{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler{}
	}
	if opts.NotifyDelay <= 0 {
		opts.NotifyDelay = 20 * time.Millisecond
	}
	if opts.IDs == nil {
		opts.IDs = document.NewIDGenerator()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CopyNudge == 0 {
		opts.CopyNudge = 10
	}
	if opts.MoveStep == 0 {
		opts.MoveStep = 1
	}
	if opts.FineStep == 0 {
		opts.FineStep = 10
	}
	return &Store{opts: opts, history: newHistory()}
}

// Open loads the document from the configured Loader and records it as the
// first history entry. On failure the document is left empty.
func (s *Store) Open(ctx context.Context) error {
	if s.opts.Loader == nil {
		return errors.New("open document: no loader configured")
	}
	shapes, err := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active, s.selected = nil, nil
	s.history.reset()
	if err != nil {
		slog.Error("load document", "error", err)
		s.objects = nil
		s.scheduleLocked()
		return fmt.Errorf("open document: %w", err)
	}

	objects, changed := s.prepare(shapes)
	s.objects = objects
	if changed {
		s.opts.Persister.Replace(s.objects)
	}
	s.requestImagesLocked(s.objects)
	s.history.push(ActionUpdate, s.objects, s.opts.Now())
	s.scheduleLocked()
	return nil
}

func (s *Store) load(ctx context.Context) ([]document.Shape, error) {
	if err := s.opts.Loader.Init(ctx); err != nil {
		return nil, err
	}
	return s.opts.Loader.Load(ctx)
}

// AddShape creates a shape of type t from the per-type defaults overridden
// by seed, appends it on top and makes it active.
func (s *Store) AddShape(t document.Type, seed document.Properties) (document.Shape, error) {
	props, err := document.Defaults(t, seed)
	if err != nil {
		return document.Shape{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sh := document.Shape{ID: s.opts.IDs.Next(), Type: t, Props: props}
	s.objects = append(s.objects, sh)
	s.opts.Persister.Save(sh)
	s.history.push(ActionAdd, s.objects, s.opts.Now())
	s.activateLocked(len(s.objects)-1, 0, 0)
	s.requestImagesLocked(document.Snapshot{sh})
	s.scheduleLocked()
	return sh.Clone(), nil
}

// UpdateProps merges patch into the properties of shape id.
func (s *Store) UpdateProps(id int64, patch document.Properties) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, patch)
}

// UpdateActiveObjectProps merges patch into the active object and its shape.
func (s *Store) UpdateActiveObjectProps(patch document.Properties) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ErrNoActiveObject
	}
	return s.updateLocked(s.active.ID, patch)
}

func (s *Store) updateLocked(id int64, patch document.Properties) error {
	i := s.objects.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("update %d: %w", id, ErrNotFound)
	}
	sh := s.objects[i]
	before := sh.Props.String(document.KeyImageSrc)
	sh.Props = document.Normalize(sh.Type, sh.Props.Merge(patch))
	s.objects[i] = sh

	if s.active != nil && s.active.ID == id {
		s.active.Props = sh.Props.Clone()
	}
	if sh.Props.String(document.KeyImageSrc) != before {
		s.requestImagesLocked(document.Snapshot{sh})
	}
	s.opts.Persister.Save(sh)
	s.history.push(ActionUpdate, s.objects, s.opts.Now())
	s.scheduleLocked()
	return nil
}

// RemoveObject deletes shape id and drops it from the selection.
func (s *Store) RemoveObject(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.objects.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("remove %d: %w", id, ErrNotFound)
	}
	s.objects = slices.Delete(s.objects, i, i+1)
	s.selected = slices.DeleteFunc(s.selected, func(v int64) bool { return v == id })
	if s.active != nil && s.active.ID == id {
		s.active = nil
	}
	s.opts.Persister.Delete(id)
	s.history.push(ActionRemove, s.objects, s.opts.Now())
	s.scheduleLocked()
	return nil
}

// ClearObjects empties the document, the history and the selection.
func (s *Store) ClearObjects() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = nil
	s.active, s.selected = nil, nil
	s.history.reset()
	s.opts.Persister.DeleteAll()
	s.scheduleLocked()
}

// ReplaceObjects swaps in a whole new document. Missing or duplicate ids are
// replaced with fresh ones.
func (s *Store) ReplaceObjects(shapes []document.Shape) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(shapes)
}

func (s *Store) replaceLocked(shapes []document.Shape) {
	s.objects, _ = s.prepare(shapes)
	s.active, s.selected = nil, nil
	s.requestImagesLocked(s.objects)
	s.opts.Persister.Replace(s.objects)
	s.history.push(ActionUpdate, s.objects, s.opts.Now())
	s.scheduleLocked()
}

// prepare normalises shapes and makes their ids unique. changed reports
// whether any id was reassigned.
func (s *Store) prepare(shapes []document.Shape) (document.Snapshot, bool) {
	for _, sh := range shapes {
		s.opts.IDs.Observe(sh.ID)
	}
	out := make(document.Snapshot, 0, len(shapes))
	seen := make(map[int64]bool, len(shapes))
	changed := false
	for _, sh := range shapes {
		if !sh.Type.Known() {
			slog.Warn("load shape", "error", ErrUnknownType, "id", sh.ID, "type", sh.Type)
		}
		id := sh.ID
		if !document.ValidID(id) || seen[id] {
			id = s.opts.IDs.Next()
			changed = true
		}
		seen[id] = true
		out = append(out, document.Shape{ID: id, Type: sh.Type, Props: document.Normalize(sh.Type, sh.Props)})
	}
	return out, changed
}

// MoveToFront paints shape id above every other shape.
func (s *Store) MoveToFront(id int64) error {
	return s.relocate(id, true)
}

// MoveToBack paints shape id below every other shape.
func (s *Store) MoveToBack(id int64) error {
	return s.relocate(id, false)
}

func (s *Store) relocate(id int64, front bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.objects.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("reorder %d: %w", id, ErrNotFound)
	}
	if (front && i == len(s.objects)-1) || (!front && i == 0) {
		return nil
	}
	sh := s.objects[i]
	s.objects = slices.Delete(s.objects, i, i+1)
	if front {
		s.objects = append(s.objects, sh)
	} else {
		s.objects = slices.Insert(s.objects, 0, sh)
	}
	s.opts.Persister.Replace(s.objects)
	s.history.push(ActionUpdate, s.objects, s.opts.Now())
	s.scheduleLocked()
	return nil
}

// AlignSelectedObjects aligns the multi-selected shapes, or the active
// shape alone, using the configured Aligner.
func (s *Store) AlignSelectedObjects(mode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.Aligner == nil {
		return fmt.Errorf("align: %w", errors.ErrUnsupported)
	}
	ids := s.selectionLocked()
	if len(ids) == 0 {
		return ErrNothingSelected
	}
	var targets []document.Shape
	for _, sh := range s.objects {
		if slices.Contains(ids, sh.ID) {
			targets = append(targets, sh.Clone())
		}
	}
	aligned, err := s.opts.Aligner.Align(targets, mode)
	if err != nil {
		return fmt.Errorf("align: %w", err)
	}
	for _, a := range aligned {
		i := s.objects.IndexOf(a.ID)
		if i < 0 {
			continue
		}
		s.objects[i].Props = document.Normalize(a.Type, a.Props)
		if s.active != nil && s.active.ID == a.ID {
			s.active.Props = s.objects[i].Props.Clone()
		}
	}
	s.opts.Persister.SaveMany(aligned)
	s.history.push(ActionUpdate, s.objects, s.opts.Now())
	s.scheduleLocked()
	return nil
}

// CopySelectedObjects fills the copy buffer from the multi-selection, or
// from the active object when nothing is multi-selected. Copies are nudged
// right so a paste does not hide the original.
func (s *Store) CopySelectedObjects() (int, error) {
	s.mu.Lock()
	ids := s.selectionLocked()
	if len(ids) == 0 {
		s.mu.Unlock()
		return 0, ErrNothingSelected
	}
	var buf []Template
	for _, sh := range s.objects {
		if !slices.Contains(ids, sh.ID) {
			continue
		}
		props := sh.Props.Clone()
		props[document.KeyX] = props.Float(document.KeyX) + s.opts.CopyNudge
		buf = append(buf, Template{Type: sh.Type, Props: props})
	}
	s.buffer = buf
	clip := s.opts.Clipboard
	s.mu.Unlock()

	if clip != nil {
		if err := mirror(clip, buf); err != nil {
			slog.Warn("mirror copy buffer", "error", err)
		}
	}
	return len(buf), nil
}

func mirror(clip Clipboard, buf []Template) error {
	data, err := json.Marshal(buf)
	if err != nil {
		return err
	}
	return clip.Write(string(data))
}

// PasteCopiedObjects appends the copy buffer with fresh ids, selects the
// pasted shapes and empties the buffer.
func (s *Store) PasteCopiedObjects() ([]document.Shape, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buffer) == 0 {
		return nil, ErrCopyBufferEmpty
	}
	pasted := make(document.Snapshot, 0, len(s.buffer))
	for _, t := range s.buffer {
		pasted = append(pasted, document.Shape{
			ID:    s.opts.IDs.Next(),
			Type:  t.Type,
			Props: document.Normalize(t.Type, t.Props),
		})
	}
	s.buffer = nil
	s.objects = append(s.objects, pasted...)
	s.active = nil
	s.selected = make([]int64, len(pasted))
	for i, sh := range pasted {
		s.selected[i] = sh.ID
	}
	s.requestImagesLocked(pasted)
	s.opts.Persister.SaveMany(pasted)
	s.history.push(ActionAdd, s.objects, s.opts.Now())
	s.scheduleLocked()
	return pasted.Clone(), nil
}

// MoveActiveObject nudges the active object by the move step, or by the
// fine step when fine is set.
func (s *Store) MoveActiveObject(dir Direction, fine bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ErrNoActiveObject
	}
	step := s.opts.MoveStep
	if fine {
		step = s.opts.FineStep
	}
	x, y := s.active.Props.Float(document.KeyX), s.active.Props.Float(document.KeyY)
	switch dir {
	case DirUp:
		y -= step
	case DirDown:
		y += step
	case DirLeft:
		x -= step
	case DirRight:
		x += step
	default:
		return fmt.Errorf("move: unknown direction %d", dir)
	}
	return s.updateLocked(s.active.ID, document.Properties{document.KeyX: x, document.KeyY: y})
}

// SetActiveObject makes id the active object and the only selected one.
func (s *Store) SetActiveObject(id int64, offsetX, offsetY float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.objects.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("activate %d: %w", id, ErrNotFound)
	}
	s.activateLocked(i, offsetX, offsetY)
	s.scheduleLocked()
	return nil
}

func (s *Store) activateLocked(i int, offsetX, offsetY float64) {
	sh := s.objects[i]
	s.active = &ActiveObject{ID: sh.ID, Props: sh.Props.Clone(), OffsetX: offsetX, OffsetY: offsetY}
	s.selected = []int64{sh.ID}
}

// ToggleObjectSelection adds id to or removes it from the multi-selection.
// The active object is cleared either way.
func (s *Store) ToggleObjectSelection(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.selected, id); i >= 0 {
		s.selected = slices.Delete(slices.Clone(s.selected), i, i+1)
	} else if s.objects.IndexOf(id) >= 0 {
		s.selected = append(slices.Clone(s.selected), id)
	}
	s.active = nil
	s.scheduleLocked()
}

// SelectObjects replaces the multi-selection. Unknown ids are ignored.
func (s *Store) SelectObjects(ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sel []int64
	for _, id := range ids {
		if s.objects.IndexOf(id) >= 0 && !slices.Contains(sel, id) {
			sel = append(sel, id)
		}
	}
	s.selected = sel
	s.active = nil
	s.scheduleLocked()
}

func (s *Store) CleanAllSelections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active, s.selected = nil, nil
	s.scheduleLocked()
}

// selectionLocked returns the multi-selection, falling back to the active
// object.
func (s *Store) selectionLocked() []int64 {
	if len(s.selected) > 0 {
		return s.selected
	}
	if s.active != nil {
		return []int64{s.active.ID}
	}
	return nil
}

// RestoreFromHistory makes entry index the live document. Later entries are
// kept so the restore can be redone.
func (s *Store) RestoreFromHistory(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreLocked(index)
}

func (s *Store) restoreLocked(index int) error {
	e, ok := s.history.entry(index)
	if !ok {
		return fmt.Errorf("restore %d of %d: %w", index, len(s.history.entries), ErrHistoryIndex)
	}
	s.objects = e.Objects.Clone()
	s.history.index = index
	s.active, s.selected = nil, nil
	s.requestImagesLocked(s.objects)
	s.opts.Persister.Replace(s.objects)
	s.scheduleLocked()
	return nil
}

// Undo restores the previous history entry and reports whether it moved.
// History is a linear log: an edit made after an undo is appended at the
// end, so undoing that edit returns to the entry that had been undone, not
// to the state the edit started from.
func (s *Store) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history.index <= 0 {
		return false
	}
	return s.restoreLocked(s.history.index-1) == nil
}

// Redo restores the next history entry in the log and reports whether it
// moved.
func (s *Store) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history.index+1 >= len(s.history.entries) {
		return false
	}
	return s.restoreLocked(s.history.index+1) == nil
}

// HistoryWindow returns at most the last limit history entries with their
// absolute indices, for display.
func (s *Store) HistoryWindow(limit int) []IndexedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.window(limit)
}

// Import replaces the document with the contents of an export file. A file
// that does not parse leaves the store untouched.
func (s *Store) Import(data []byte) error {
	shapes, err := document.Decode(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(shapes)
	return nil
}

// Export encodes the document in the import file format.
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	objects := s.objects.Clone()
	s.mu.Unlock()
	return document.Encode(objects)
}

// Object returns a copy of shape id.
func (s *Store) Object(id int64) (document.Shape, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.objects.Find(id)
	return sh.Clone(), ok
}

// CopyBuffer returns a copy of the pending copy buffer.
func (s *Store) CopyBuffer() []Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Template, len(s.buffer))
	for i, t := range s.buffer {
		out[i] = Template{Type: t.Type, Props: t.Props.Clone()}
	}
	return out
}

// LoadCopyBuffer replaces the copy buffer with text previously mirrored to
// a clipboard. Templates of unknown type are rejected.
func (s *Store) LoadCopyBuffer(text string) (int, error) {
	var buf []Template
	if err := json.Unmarshal([]byte(text), &buf); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}
	for _, t := range buf {
		if !t.Type.Known() {
			return 0, fmt.Errorf("%w: %w: %q", ErrInvalidImport, ErrUnknownType, t.Type)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = buf
	return len(buf), nil
}

// Snapshot returns the current state immediately.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Objects:      s.objects.Clone(),
		Selected:     slices.Clone(s.selected),
		HistoryIndex: s.history.index,
		HistoryLen:   len(s.history.entries),
		Version:      s.version,
	}
	if s.active != nil {
		a := *s.active
		a.Props = a.Props.Clone()
		snap.Active = &a
	}
	return snap
}

// Subscribe registers fn for debounced change notifications. The returned
// function removes it.
func (s *Store) Subscribe(fn Observer) (dispose func()) {
	id := uuid.New()
	s.mu.Lock()
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.subs = slices.DeleteFunc(s.subs, func(sub subscription) bool { return sub.id == id })
		})
	}
}

// Touch schedules a notification without changing content, for example
// after an image finished decoding.
func (s *Store) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked()
}

// scheduleLocked coalesces notifications: only the first change after a
// flush arms the scheduler.
func (s *Store) scheduleLocked() {
	s.version++
	if s.scheduled {
		return
	}
	s.scheduled = true
	s.opts.Scheduler.AfterFunc(s.opts.NotifyDelay, s.flush)
}

func (s *Store) flush() {
	s.mu.Lock()
	s.scheduled = false
	snap := s.snapshotLocked()
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
}

func (s *Store) requestImagesLocked(shapes document.Snapshot) {
	if s.opts.Images == nil {
		return
	}
	for _, sh := range shapes {
		if sh.Type != document.TypeImage {
			continue
		}
		if src := sh.Props.String(document.KeyImageSrc); src != "" {
			s.opts.Images.Request(src)
		}
	}
}

type nopPersister struct{}

func (nopPersister) Save(document.Shape)       {}
func (nopPersister) SaveMany([]document.Shape) {}
func (nopPersister) Delete(int64)              {}
func (nopPersister) DeleteAll()                {}
func (nopPersister) Replace([]document.Shape)  {}
