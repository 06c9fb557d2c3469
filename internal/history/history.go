// Package history provides bounded undo/redo over deep snapshots of the cue
// sequence.
//
// The stack holds a baseline snapshot plus up to capacity post-mutation
// snapshots, so undo depth is bounded by capacity. Once the bound is
// exceeded the oldest entry is dropped and undo beyond the retained window
// becomes a no-op rather than an error. Not safe for concurrent use; the
// owning session serializes access.
package history

import (
	"subcue/internal/subtitle"
)

// DefaultCapacity is the reference undo depth.
const DefaultCapacity = 50

type History struct {
	capacity int
	stack    [][]subtitle.Cue
	cursor   int
}

func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{capacity: capacity}
}

// Reset clears the stack and installs a new baseline. Called on import and
// restore so undo can never cross that boundary.
func (h *History) Reset(baseline []subtitle.Cue) {
	h.stack = [][]subtitle.Cue{subtitle.CloneCues(baseline)}
	h.cursor = 0
}

// Clear empties the stack entirely.
func (h *History) Clear() {
	h.stack = nil
	h.cursor = 0
}

// Push records a post-mutation snapshot. Any redo tail is discarded; beyond
// capacity the oldest entry is dropped, ring-buffer style.
func (h *History) Push(snapshot []subtitle.Cue) {
	if len(h.stack) == 0 {
		// No baseline yet: treat the first snapshot as one.
		h.Reset(snapshot)
		return
	}
	h.stack = append(h.stack[:h.cursor+1], subtitle.CloneCues(snapshot))
	if len(h.stack) > h.capacity+1 {
		h.stack = h.stack[1:]
	}
	h.cursor = len(h.stack) - 1
}

// Undo moves the cursor back and returns the prior snapshot. Returns false
// without effect when no prior snapshot is retained.
func (h *History) Undo() ([]subtitle.Cue, bool) {
	if !h.CanUndo() {
		return nil, false
	}
	h.cursor--
	return subtitle.CloneCues(h.stack[h.cursor]), true
}

// Redo moves the cursor forward and returns the newer snapshot, symmetric
// to Undo.
func (h *History) Redo() ([]subtitle.Cue, bool) {
	if !h.CanRedo() {
		return nil, false
	}
	h.cursor++
	return subtitle.CloneCues(h.stack[h.cursor]), true
}

func (h *History) CanUndo() bool {
	return h.cursor > 0
}

func (h *History) CanRedo() bool {
	return h.cursor < len(h.stack)-1
}

// Depth returns the number of retained snapshots, baseline included.
func (h *History) Depth() int {
	return len(h.stack)
}
