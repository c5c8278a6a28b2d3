package store

import (
	"time"

	"github.com/badgemaker/badgemaker/internal/document"
	"github.com/badgemaker/badgemaker/internal/typeid"
)

type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionUpdate Action = "update"
)

// Entry is one point in the undo history. Objects is the full document as
// it was right after the action.
type Entry struct {
	ID      string            `json:"id"`
	Action  Action            `json:"action"`
	Objects document.Snapshot `json:"objects"`
	At      time.Time         `json:"at"`
}

// IndexedEntry pairs an entry with its absolute position in the history.
type IndexedEntry struct {
	Index int `json:"index"`
	Entry
}

// history keeps every snapshot in order. index is the entry the live
// document currently matches, or -1 for an empty history.
type history struct {
	entries []Entry
	index   int
}

func newHistory() history {
	return history{index: -1}
}

// push appends a snapshot and moves the cursor to it. Entries after the
// cursor are kept so that restoring an old entry never loses redo targets.
func (h *history) push(action Action, objects document.Snapshot, at time.Time) {
	h.entries = append(h.entries, Entry{
		ID:      typeid.NewHistoryID(),
		Action:  action,
		Objects: objects.Clone(),
		At:      at,
	})
	h.index = len(h.entries) - 1
}

func (h *history) entry(i int) (Entry, bool) {
	if i < 0 || i >= len(h.entries) {
		return Entry{}, false
	}
	return h.entries[i], true
}

func (h *history) reset() {
	h.entries = nil
	h.index = -1
}

// window returns at most the last limit entries. limit <= 0 means all.
func (h *history) window(limit int) []IndexedEntry {
	start := 0
	if limit > 0 && len(h.entries) > limit {
		start = len(h.entries) - limit
	}
	out := make([]IndexedEntry, 0, len(h.entries)-start)
	for i := start; i < len(h.entries); i++ {
		e := h.entries[i]
		e.Objects = e.Objects.Clone()
		out = append(out, IndexedEntry{Index: i, Entry: e})
	}
	return out
}
