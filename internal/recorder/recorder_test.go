package recorder

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motionscript/internal/axis"
	"github.com/banshee-data/motionscript/internal/beat"
	"github.com/banshee-data/motionscript/internal/funscript"
)

type A = funscript.Action

func mapped(a axis.Axis, pos int) [axis.Count]int {
	var m [axis.Count]int
	m[a] = pos
	return m
}

func newTestRecorder(p *funscript.Project, reduce bool) *Recorder {
	s := DefaultSettings()
	s.PointReduction = reduce
	return New(p, s, 0)
}

func TestRecorder_MinInterval(t *testing.T) {
	p := funscript.NewProject("clip.mp4")
	r := newTestRecorder(p, false)

	r.Start(0)
	assert.True(t, r.Recording())
	for _, s := range []struct{ at, pos int }{{0, 10}, {5, 11}, {11, 20}, {20, 21}, {22, 130}} {
		r.AddSample(s.at, mapped(axis.Y, s.pos))
	}
	segs := r.Stop()
	assert.False(t, r.Recording())

	want := []A{{At: 0, Pos: 10}, {At: 11, Pos: 20}, {At: 22, Pos: 100}}
	if diff := cmp.Diff(want, p.Track("stroke").Actions); diff != "" {
		t.Errorf("stroke mismatch (-want +got):\n%s", diff)
	}
	require.Contains(t, segs, "stroke")
	assert.Equal(t, 0, segs["stroke"].Start)
	assert.Equal(t, 22, segs["stroke"].End)
	assert.NotEqual(t, segs["stroke"].ID.String(), "")
	assert.True(t, r.CanUndo())
}

func TestRecorder_PointReduction(t *testing.T) {
	p := funscript.NewProject("clip.mp4")
	r := newTestRecorder(p, true)

	r.Start(0)
	for i := 0; i <= 10; i++ {
		r.AddSample(i*20, mapped(axis.Y, i*10))
	}
	r.Stop()
	assert.Equal(t, []A{{At: 0, Pos: 0}, {At: 200, Pos: 100}}, p.Track("stroke").Actions)
}

func TestRecorder_ActiveTracks(t *testing.T) {
	p := funscript.NewProject("clip.mp4")
	r := newTestRecorder(p, false)

	require.NoError(t, r.SetActiveTracks("stroke", "twist", "z"))
	assert.Equal(t, []string{"stroke", "twist", "z"}, r.ActiveTracks())
	assert.Error(t, r.SetActiveTracks("bogus"))

	var m [axis.Count]int
	m[axis.Y], m[axis.Yaw], m[axis.Z] = 10, 70, 40
	r.Start(1000)
	r.AddSample(1000, m)
	assert.Error(t, r.SetActiveTracks("stroke"), "tracks are fixed while recording")
	segs := r.Stop()

	assert.Len(t, segs, 3)
	assert.Equal(t, []A{{At: 1000, Pos: 70}}, p.Track("twist").Actions)
	assert.Equal(t, []A{{At: 1000, Pos: 40}}, p.Track("z").Actions)
	undo, _ := r.History()
	assert.Equal(t, 3, undo)
}

func TestRecorder_CancelAndPreview(t *testing.T) {
	p := funscript.NewProject("clip.mp4")
	r := newTestRecorder(p, false)

	r.AddSample(0, mapped(axis.Y, 50))
	assert.Empty(t, r.Preview(), "samples are ignored when not recording")

	r.Start(0)
	r.AddSample(0, mapped(axis.Y, 50))
	prev := r.Preview()
	require.Len(t, prev["stroke"], 1)
	prev["stroke"][0].Pos = 99
	assert.Equal(t, 50, r.Preview()["stroke"][0].Pos)

	r.Cancel()
	assert.Empty(t, r.Preview())
	assert.Nil(t, r.Stop())
	assert.Empty(t, p.Track("stroke").Actions)
	assert.False(t, r.CanUndo())
}

func TestRecorder_UndoRedoRecord(t *testing.T) {
	p := funscript.NewProject("clip.mp4")
	orig := []A{{At: 50, Pos: 10}, {At: 100, Pos: 20}, {At: 500, Pos: 30}}
	p.Track("stroke").Actions = append([]A(nil), orig...)
	r := newTestRecorder(p, true)

	r.Start(40)
	r.AddSample(40, mapped(axis.Y, 1))
	r.AddSample(80, mapped(axis.Y, 2))
	r.AddSample(120, mapped(axis.Y, 3))
	r.Stop()
	recorded := []A{{At: 40, Pos: 1}, {At: 80, Pos: 2}, {At: 120, Pos: 3}, {At: 500, Pos: 30}}
	assert.Equal(t, recorded, p.Track("stroke").Actions)

	require.True(t, r.Undo())
	assert.Equal(t, orig, p.Track("stroke").Actions)
	assert.True(t, r.CanRedo())

	require.True(t, r.Redo())
	assert.Equal(t, recorded, p.Track("stroke").Actions)
	assert.False(t, r.Redo())
}

func TestRecorder_ClearRange(t *testing.T) {
	p := funscript.NewProject("clip.mp4")
	orig := []A{{At: 0, Pos: 0}, {At: 100, Pos: 50}, {At: 200, Pos: 100}}
	p.Track("stroke").Actions = append([]A(nil), orig...)
	r := newTestRecorder(p, false)

	assert.False(t, r.ClearRange("stroke", 300, 400))
	assert.False(t, r.CanUndo())

	require.True(t, r.ClearRange("stroke", 50, 150))
	cleared := []A{{At: 0, Pos: 0}, {At: 200, Pos: 100}}
	assert.Equal(t, cleared, p.Track("stroke").Actions)

	require.True(t, r.Undo())
	assert.Equal(t, orig, p.Track("stroke").Actions)

	require.True(t, r.Redo())
	assert.Equal(t, cleared, p.Track("stroke").Actions, "redo of a clear empties the range again")
}

func TestRecorder_Smoothing(t *testing.T) {
	p := funscript.NewProject("clip.mp4")
	orig := []A{{At: 0, Pos: 0}, {At: 100, Pos: 100}, {At: 200, Pos: 0}, {At: 300, Pos: 100}, {At: 400, Pos: 0}}
	p.Track("stroke").Actions = append([]A(nil), orig...)
	r := newTestRecorder(p, false)

	assert.False(t, r.ApplySmoothing("stroke", 7), "window longer than the track")
	assert.False(t, r.ApplySmoothing("empty", 3))

	require.True(t, r.ApplySmoothing("stroke", 3))
	want := []A{{At: 0, Pos: 50}, {At: 100, Pos: 33}, {At: 200, Pos: 67}, {At: 300, Pos: 33}, {At: 400, Pos: 50}}
	assert.Equal(t, want, p.Track("stroke").Actions)

	require.True(t, r.Undo())
	assert.Equal(t, orig, p.Track("stroke").Actions)

	require.True(t, r.ApplySmoothingRange("stroke", 3, 100, 300))
	assert.Equal(t, []A{{At: 0, Pos: 0}, {At: 100, Pos: 50}, {At: 200, Pos: 67}, {At: 300, Pos: 50}, {At: 400, Pos: 0}},
		p.Track("stroke").Actions)
}

func TestRecorder_BeatSnap(t *testing.T) {
	data := &beat.Data{Beats: []int{0, 1000, 2000}, Subdivisions: 4, BPM: 60}

	t.Run("snaps and undoes", func(t *testing.T) {
		p := funscript.NewProject("clip.mp4")
		orig := []A{{At: 260, Pos: 10}, {At: 990, Pos: 50}, {At: 1490, Pos: 40}}
		p.Track("stroke").Actions = append([]A(nil), orig...)
		r := newTestRecorder(p, false)

		assert.Equal(t, 3, r.ApplyBeatSnap("stroke", data, 100))
		assert.Equal(t, []A{{At: 250, Pos: 10}, {At: 1000, Pos: 50}, {At: 1500, Pos: 40}}, p.Track("stroke").Actions)

		require.True(t, r.Undo())
		assert.Equal(t, orig, p.Track("stroke").Actions)
	})

	t.Run("collisions keep last", func(t *testing.T) {
		p := funscript.NewProject("clip.mp4")
		orig := []A{{At: 240, Pos: 10}, {At: 260, Pos: 20}}
		p.Track("stroke").Actions = append([]A(nil), orig...)
		r := newTestRecorder(p, false)

		assert.Equal(t, 2, r.ApplyBeatSnap("stroke", data, 100))
		assert.Equal(t, []A{{At: 250, Pos: 20}}, p.Track("stroke").Actions)

		require.True(t, r.Undo())
		assert.Equal(t, orig, p.Track("stroke").Actions)
	})

	t.Run("no-ops", func(t *testing.T) {
		p := funscript.NewProject("clip.mp4")
		r := newTestRecorder(p, false)
		assert.Zero(t, r.ApplyBeatSnap("stroke", data, 100))
		assert.Zero(t, r.ApplyBeatSnap("stroke", nil, 100))
		p.Track("stroke").Actions = []A{{At: 260, Pos: 1}}
		assert.Zero(t, r.ApplyBeatSnap("stroke", data, 0))
		assert.False(t, r.CanUndo())
	})
}

func TestUndoManager(t *testing.T) {
	u := NewUndoManager(3)
	for i := 0; i < 5; i++ {
		u.Push(Entry{Op: OpRecord, Segment: Segment{Start: i}})
	}
	n, _ := u.Len()
	assert.Equal(t, 3, n)

	e, ok := u.Undo()
	require.True(t, ok)
	assert.Equal(t, 4, e.Segment.Start)
	e, _ = u.Undo()
	assert.Equal(t, 3, e.Segment.Start)
	e, _ = u.Undo()
	assert.Equal(t, 2, e.Segment.Start, "oldest entries were evicted")
	_, ok = u.Undo()
	assert.False(t, ok)

	e, ok = u.Redo()
	require.True(t, ok)
	assert.Equal(t, 2, e.Segment.Start)

	u.Push(Entry{Op: OpClear})
	assert.False(t, u.CanRedo(), "a new edit discards redo")

	u.Clear()
	assert.False(t, u.CanUndo())
	assert.Equal(t, DefaultHistory, NewUndoManager(0).max)
}

func TestRecorder_ConcurrentSamples(t *testing.T) {
	p := funscript.NewProject("clip.mp4")
	r := newTestRecorder(p, true)

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for at := 0; ; at += 11 {
			select {
			case <-done:
				return
			default:
				r.AddSample(at, mapped(axis.Y, at%100))
			}
		}
	}()
	for i := 0; i < 20; i++ {
		r.Start(0)
		_ = r.Preview()
		r.Stop()
	}
	close(done)
	wg.Wait()
}
