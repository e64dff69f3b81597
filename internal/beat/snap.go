package beat

import (
	"math"
	"sort"

	"github.com/banshee-data/motionscript/internal/funscript"
)

// snapToleranceFrac is the share of a beat interval within which an action
// is pulled toward the grid.
const snapToleranceFrac = 0.6

// nearestGridPoint returns the grid point closest to t; ties go to the
// earlier point. grid must be ascending and non-empty.
func nearestGridPoint(grid []int, t int) int {
	i := sort.SearchInts(grid, t)
	if i == len(grid) {
		return grid[i-1]
	}
	if i == 0 {
		return grid[0]
	}
	if t-grid[i-1] <= grid[i]-t {
		return grid[i-1]
	}
	return grid[i]
}

// Snap pulls each action's timestamp toward its nearest grid point by
// strength percent (0-100) when that point is within 60% of a beat interval
// at bpm. It returns a new slice, in input order, and the number of actions
// whose timestamp changed. Callers re-sort and dedupe the result. Empty
// actions or grid is a no-op.
func Snap(actions []funscript.Action, grid []int, bpm, strength float64) ([]funscript.Action, int) {
	out := make([]funscript.Action, len(actions))
	copy(out, actions)
	if len(actions) == 0 || len(grid) == 0 {
		return out, 0
	}
	s := math.Max(0, math.Min(100, strength)) / 100
	tol := 60000 / math.Max(1, bpm) * snapToleranceFrac

	moved := 0
	for i, a := range out {
		g := nearestGridPoint(grid, a.At)
		if math.Abs(float64(g-a.At)) > tol {
			continue
		}
		at := int(float64(a.At) + float64(g-a.At)*s)
		if at != a.At {
			out[i].At = at
			moved++
		}
	}
	return out, moved
}
