package recorder

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/motionscript/internal/funscript"
)

// DefaultHistory is the number of undo entries kept.
const DefaultHistory = 100

// Op names the edit an undo entry reverses.
type Op string

const (
	OpRecord   Op = "record"
	OpClear    Op = "clear"
	OpSmooth   Op = "smooth"
	OpBeatSnap Op = "beat_snap"
)

// Segment is the result of one edit on one track: the actions that now
// occupy [Start, End]. A clear has no actions.
type Segment struct {
	ID      uuid.UUID
	Track   string
	Actions []funscript.Action
	Start   int
	End     int
	Created time.Time
}

func newSegment(track string, actions []funscript.Action, start, end int, now time.Time) Segment {
	return Segment{
		ID:      uuid.New(),
		Track:   track,
		Actions: slices.Clone(actions),
		Start:   start,
		End:     end,
		Created: now,
	}
}

// Entry is one undoable edit. Previous holds what the track had in the
// segment's range before the edit.
type Entry struct {
	Op       Op
	Segment  Segment
	Previous []funscript.Action
}

// UndoManager is a bounded undo stack with a redo stack that is discarded
// whenever a new edit is pushed. It is not safe for concurrent use; the
// Recorder serialises access.
type UndoManager struct {
	max  int
	undo []Entry
	redo []Entry
}

// NewUndoManager keeps up to max entries, or DefaultHistory when max <= 0.
func NewUndoManager(max int) *UndoManager {
	if max <= 0 {
		max = DefaultHistory
	}
	return &UndoManager{max: max}
}

// Push records an edit, evicting the oldest entry when full.
func (u *UndoManager) Push(e Entry) {
	u.undo = append(u.undo, e)
	if len(u.undo) > u.max {
		u.undo = slices.Delete(u.undo, 0, len(u.undo)-u.max)
	}
	u.redo = u.redo[:0]
}

func (u *UndoManager) CanUndo() bool { return len(u.undo) > 0 }
func (u *UndoManager) CanRedo() bool { return len(u.redo) > 0 }

// Len returns the undo and redo stack depths.
func (u *UndoManager) Len() (undo, redo int) { return len(u.undo), len(u.redo) }

// Undo moves the newest entry to the redo stack and returns it.
func (u *UndoManager) Undo() (Entry, bool) {
	if len(u.undo) == 0 {
		return Entry{}, false
	}
	e := u.undo[len(u.undo)-1]
	u.undo = u.undo[:len(u.undo)-1]
	u.redo = append(u.redo, e)
	return e, true
}

// Redo moves the newest undone entry back to the undo stack and returns it.
func (u *UndoManager) Redo() (Entry, bool) {
	if len(u.redo) == 0 {
		return Entry{}, false
	}
	e := u.redo[len(u.redo)-1]
	u.redo = u.redo[:len(u.redo)-1]
	u.undo = append(u.undo, e)
	return e, true
}

func (u *UndoManager) Clear() {
	u.undo, u.redo = nil, nil
}
