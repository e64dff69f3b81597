package beat

import (
	"fmt"
	"slices"

	"github.com/banshee-data/motionscript/internal/plainmap"
)

// DefaultSubdivisions splits each beat into sixteenth notes.
const DefaultSubdivisions = 4

// Snap tolerances in milliseconds used by SnapToBeat and SnapToGrid callers.
const (
	BeatSnapTolerance = 100
	GridSnapTolerance = 50
)

// Data is the persisted result of beat analysis. Beats are strictly
// ascending; Onsets are every detected rhythmic event and need not line up
// with Beats.
type Data struct {
	Beats        []int   `json:"beats"`
	Onsets       []int   `json:"onsets"`
	BPM          float64 `json:"bpm"`
	Confidence   float64 `json:"confidence"`
	Subdivisions int     `json:"subdivisions"`
}

// BeatInterval is the nominal beat period in milliseconds, or 0 with no
// tempo.
func (d *Data) BeatInterval() float64 {
	if d.BPM <= 0 {
		return 0
	}
	return 60000 / d.BPM
}

// Grid returns the beats with Subdivisions evenly spaced points between each
// consecutive pair, ending on the last beat. It is derived, never stored.
func (d *Data) Grid() []int {
	if len(d.Beats) == 0 {
		return nil
	}
	sub := max(1, d.Subdivisions)
	out := make([]int, 0, (len(d.Beats)-1)*sub+1)
	for i := 0; i+1 < len(d.Beats); i++ {
		start := float64(d.Beats[i])
		step := float64(d.Beats[i+1]-d.Beats[i]) / float64(sub)
		for s := 0; s < sub; s++ {
			out = append(out, int(start+float64(s)*step))
		}
	}
	return append(out, d.Beats[len(d.Beats)-1])
}

// SnapToBeat returns the beat nearest t if it lies within tol milliseconds,
// otherwise t.
func (d *Data) SnapToBeat(t, tol int) int {
	return snapPoint(d.Beats, t, tol)
}

// SnapToGrid is SnapToBeat over the subdivided grid.
func (d *Data) SnapToGrid(t, tol int) int {
	return snapPoint(d.Grid(), t, tol)
}

func snapPoint(points []int, t, tol int) int {
	best, bestDist := t, tol+1
	for _, p := range points {
		dist := p - t
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best, bestDist = p, dist
		}
	}
	if bestDist > tol {
		return t
	}
	return best
}

// ToMap renders d as plain values for embedding in a host project file.
func (d *Data) ToMap() map[string]any {
	return map[string]any{
		"beats":        slices.Clone(d.Beats),
		"onsets":       slices.Clone(d.Onsets),
		"bpm":          d.BPM,
		"confidence":   d.Confidence,
		"subdivisions": d.Subdivisions,
	}
}

// DataFromMap is the inverse of ToMap. Missing fields keep their zero value
// except subdivisions, which defaults to DefaultSubdivisions.
func DataFromMap(m map[string]any) (Data, error) {
	d := Data{Subdivisions: DefaultSubdivisions}
	r := plainmap.NewReader(m)
	r.Ints("beats", &d.Beats)
	r.Ints("onsets", &d.Onsets)
	r.Float("bpm", &d.BPM)
	r.Float("confidence", &d.Confidence)
	r.Int("subdivisions", &d.Subdivisions)
	if err := r.Err(); err != nil {
		return Data{}, fmt.Errorf("beat data: %w", err)
	}
	if d.Subdivisions < 1 {
		d.Subdivisions = 1
	}
	return d, nil
}
