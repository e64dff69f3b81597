// Package recorder turns mapped controller positions into funscript actions
// while a video plays, and owns the undoable edits applied to a project's
// tracks afterwards.
package recorder

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/banshee-data/motionscript/internal/axis"
	"github.com/banshee-data/motionscript/internal/beat"
	"github.com/banshee-data/motionscript/internal/funscript"
	"github.com/banshee-data/motionscript/internal/monitoring"
	"github.com/banshee-data/motionscript/internal/simplify"
)

// Settings controls sampling and point reduction.
type Settings struct {
	// MinIntervalMs is the minimum spacing between samples on one track.
	MinIntervalMs int
	// PointReduction runs RDP with Epsilon over buffers of more than
	// minReducePoints samples when recording stops.
	PointReduction bool
	Epsilon        float64
}

func DefaultSettings() Settings {
	return Settings{MinIntervalMs: 11, PointReduction: true, Epsilon: 1.5}
}

const minReducePoints = 3

// Recorder buffers samples between Start and Stop and commits them into a
// project. All methods are safe to call from the UI goroutine while the
// tracking loop calls AddSample.
type Recorder struct {
	mu       sync.Mutex
	project  *funscript.Project
	history  *UndoManager
	settings Settings
	now      func() time.Time

	// active maps track name to the controller axis that drives it.
	active    map[string]axis.Axis
	recording bool
	startMs   int
	buffer    map[string][]funscript.Action
	lastAt    map[string]int
}

// New returns a recorder writing into project's stroke track.
func New(project *funscript.Project, settings Settings, history int) *Recorder {
	r := &Recorder{
		project:  project,
		history:  NewUndoManager(history),
		settings: settings,
		now:      time.Now,
		buffer:   map[string][]funscript.Action{},
		lastAt:   map[string]int{},
	}
	r.active = map[string]axis.Axis{funscript.DefaultTrack: axis.Y}
	return r
}

// controllerAxis resolves a track name to its driving controller axis:
// standard track names use their definition, anything else must name a
// controller axis directly.
func controllerAxis(track string) (axis.Axis, error) {
	if def, ok := funscript.Definition(track); ok {
		return def.Controller, nil
	}
	a, err := axis.Parse(track)
	if err != nil {
		return 0, fmt.Errorf("track %q has no controller axis: %w", track, err)
	}
	return a, nil
}

// SetActiveTracks chooses which tracks the next recording writes. It fails
// while recording or when a name cannot be resolved.
func (r *Recorder) SetActiveTracks(names ...string) error {
	active := make(map[string]axis.Axis, len(names))
	for _, n := range names {
		a, err := controllerAxis(n)
		if err != nil {
			return err
		}
		active[n] = a
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return fmt.Errorf("cannot change tracks while recording")
	}
	r.active = active
	return nil
}

// ActiveTracks lists the recorded track names in sorted order.
func (r *Recorder) ActiveTracks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.active))
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Start begins buffering at video time videoMs, discarding any previous
// buffer.
func (r *Recorder) Start(videoMs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = true
	r.startMs = videoMs
	r.buffer = make(map[string][]funscript.Action, len(r.active))
	r.lastAt = make(map[string]int, len(r.active))
	monitoring.Diagf("recorder: start at %d ms on %v", videoMs, slices.Sorted(maps.Keys(r.active)))
}

// AddSample appends one mapped sample per active track. Samples closer than
// MinIntervalMs to the previous one on a track are dropped.
func (r *Recorder) AddSample(videoMs int, mapped [axis.Count]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	for name, a := range r.active {
		if last, ok := r.lastAt[name]; ok && videoMs-last < r.settings.MinIntervalMs {
			continue
		}
		r.buffer[name] = append(r.buffer[name], funscript.Action{At: videoMs, Pos: funscript.ClampPos(mapped[a])})
		r.lastAt[name] = videoMs
	}
}

// Preview returns a copy of the current buffers.
func (r *Recorder) Preview() map[string][]funscript.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]funscript.Action, len(r.buffer))
	for k, v := range r.buffer {
		out[k] = slices.Clone(v)
	}
	return out
}

// Stop ends recording and commits each non-empty buffer into its track,
// replacing the actions in the recorded time range. Each commit is one
// undo entry. It returns the committed segments by track name.
func (r *Recorder) Stop() map[string]Segment {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return nil
	}
	r.recording = false

	segments := make(map[string]Segment)
	for _, name := range slices.Sorted(maps.Keys(r.buffer)) {
		actions := r.buffer[name]
		if len(actions) == 0 {
			continue
		}
		raw := len(actions)
		if r.settings.PointReduction && len(actions) > minReducePoints {
			actions = simplify.RDP(actions, r.settings.Epsilon)
		}
		start, end := funscript.Span(actions)
		track := r.project.Track(name)
		previous := track.InRange(start, end)
		track.Add(actions)

		seg := newSegment(name, actions, start, end, r.now())
		r.history.Push(Entry{Op: OpRecord, Segment: seg, Previous: previous})
		segments[name] = seg
		monitoring.Opsf("recorder: committed %d/%d points to %s [%d, %d] ms", len(actions), raw, name, start, end)
	}
	r.buffer = map[string][]funscript.Action{}
	return segments
}

// Cancel ends recording and discards the buffers.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false
	r.buffer = map[string][]funscript.Action{}
}

func (r *Recorder) CanUndo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.CanUndo()
}

func (r *Recorder) CanRedo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.CanRedo()
}

// Undo reverts the newest edit: the segment's range is emptied and the
// actions it held before are restored.
func (r *Recorder) Undo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.history.Undo()
	if !ok {
		return false
	}
	track := r.project.Track(e.Segment.Track)
	track.RemoveRange(e.Segment.Start, e.Segment.End)
	track.Actions = append(track.Actions, e.Previous...)
	track.Sort()
	monitoring.Diagf("recorder: undo %s on %s", e.Op, e.Segment.Track)
	return true
}

// Redo reapplies the newest undone edit: the segment's range is replaced
// by the segment's actions, which for a clear leaves it empty.
func (r *Recorder) Redo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.history.Redo()
	if !ok {
		return false
	}
	track := r.project.Track(e.Segment.Track)
	track.RemoveRange(e.Segment.Start, e.Segment.End)
	track.Actions = append(track.Actions, e.Segment.Actions...)
	track.Sort()
	monitoring.Diagf("recorder: redo %s on %s", e.Op, e.Segment.Track)
	return true
}

// ClearRange deletes a track's actions in [start, end]. It reports whether
// anything was removed; an empty range records no undo entry.
func (r *Recorder) ClearRange(track string, start, end int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.project.Track(track)
	removed := t.RemoveRange(start, end)
	if len(removed) == 0 {
		return false
	}
	r.history.Push(Entry{
		Op:       OpClear,
		Segment:  newSegment(track, nil, start, end, r.now()),
		Previous: removed,
	})
	return true
}

// ApplySmoothing runs a moving average of the given window over a whole
// track. Tracks shorter than the window are left alone.
func (r *Recorder) ApplySmoothing(track string, window int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.project.Track(track)
	if len(t.Actions) == 0 {
		return false
	}
	start, end := funscript.Span(t.Actions)
	return r.smooth(t, window, start, end)
}

// ApplySmoothingRange is ApplySmoothing limited to actions in [start, end].
func (r *Recorder) ApplySmoothingRange(track string, window, start, end int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.smooth(r.project.Track(track), window, start, end)
}

func (r *Recorder) smooth(t *funscript.Track, window, start, end int) bool {
	target := t.InRange(start, end)
	if len(target) == 0 || len(target) < window {
		return false
	}
	positions := make([]int, len(target))
	for i, a := range target {
		positions[i] = a.Pos
	}
	smoothed := simplify.MovingAverage(positions, window)
	next := make([]funscript.Action, len(target))
	for i, a := range target {
		next[i] = funscript.Action{At: a.At, Pos: smoothed[i]}
	}

	t.RemoveRange(start, end)
	t.Actions = append(t.Actions, next...)
	t.Sort()
	r.history.Push(Entry{
		Op:       OpSmooth,
		Segment:  newSegment(t.Name, next, start, end, r.now()),
		Previous: target,
	})
	return true
}

// ApplyBeatSnap pulls every action on a track toward the beat grid of data
// by strength percent, then re-sorts and dedupes the track. It returns the
// number of actions moved; nothing moved records no undo entry.
func (r *Recorder) ApplyBeatSnap(track string, data *beat.Data, strength float64) int {
	if data == nil {
		return 0
	}
	grid := data.Grid()

	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.project.Track(track)
	snapped, moved := beat.Snap(t.Actions, grid, data.BPM, strength)
	if moved == 0 {
		return 0
	}
	previous := slices.Clone(t.Actions)
	oldStart, oldEnd := funscript.Span(previous)
	newStart, newEnd := funscript.Span(snapped)
	start, end := min(oldStart, newStart), max(oldEnd, newEnd)

	t.Actions = snapped
	t.Dedupe()
	r.history.Push(Entry{
		Op:       OpBeatSnap,
		Segment:  newSegment(track, t.InRange(start, end), start, end, r.now()),
		Previous: previous,
	})
	monitoring.Opsf("recorder: beat snap moved %d of %d actions on %s", moved, len(previous), track)
	return moved
}

// History exposes the undo stack depths for display.
func (r *Recorder) History() (undo, redo int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.Len()
}
