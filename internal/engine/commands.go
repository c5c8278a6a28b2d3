package engine

import (
	"errors"
	"strings"

	"github.com/badgemaker/badgemaker/internal/store"
)

// Key names follow KeyboardEvent.key.
const (
	KeyDelete     = "Delete"
	KeyBackspace  = "Backspace"
	KeyEscape     = "Escape"
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
)

var arrows = map[string]store.Direction{
	KeyArrowUp:    store.DirUp,
	KeyArrowDown:  store.DirDown,
	KeyArrowLeft:  store.DirLeft,
	KeyArrowRight: store.DirRight,
}

// KeyDown applies a keyboard shortcut. handled is false when the key means
// nothing in the current state, so the surface can let the event through.
// Shift makes arrow keys move by the fine step.
func (e *Engine) KeyDown(key string, mods Modifiers) (handled bool, err error) {
	if mods.Ctrl {
		return e.shortcut(strings.ToLower(key), mods)
	}

	switch key {
	case KeyDelete, KeyBackspace:
		return e.deleteSelection()
	case KeyEscape:
		e.Cancel()
		e.store.CleanAllSelections()
		return true, nil
	}

	if dir, ok := arrows[key]; ok {
		err := e.store.MoveActiveObject(dir, mods.Shift)
		if errors.Is(err, store.ErrNoActiveObject) {
			return false, nil
		}
		return err == nil, err
	}
	return false, nil
}

func (e *Engine) shortcut(key string, mods Modifiers) (bool, error) {
	switch {
	case key == "c":
		_, err := e.store.CopySelectedObjects()
		if errors.Is(err, store.ErrNothingSelected) {
			return false, nil
		}
		return err == nil, err
	case key == "v":
		_, err := e.store.PasteCopiedObjects()
		if errors.Is(err, store.ErrCopyBufferEmpty) {
			return false, nil
		}
		return err == nil, err
	case key == "z" && mods.Shift, key == "y":
		return e.store.Redo(), nil
	case key == "z":
		return e.store.Undo(), nil
	}
	return false, nil
}

// deleteSelection removes the active shape, or every multi-selected one.
func (e *Engine) deleteSelection() (bool, error) {
	snap := e.store.Snapshot()
	ids := snap.Selected
	if snap.Active != nil {
		ids = []int64{snap.Active.ID}
	}
	if len(ids) == 0 {
		return false, nil
	}
	var errs []error
	for _, id := range ids {
		if err := e.store.RemoveObject(id); err != nil {
			errs = append(errs, err)
		}
	}
	return true, errors.Join(errs...)
}
