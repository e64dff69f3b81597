// Package simplify reduces and smooths recorded action lists.
package simplify

import (
	"math"

	"github.com/banshee-data/motionscript/internal/funscript"
)

// posScale is the full position range. Segment time is normalised onto the
// same scale so epsilon means the same thing for a 50 ms and a 5 s segment.
const posScale = 100.0

// PerpendicularDistance is the distance from p to the chord a-b after the
// chord's time span is stretched onto 0-100.
func PerpendicularDistance(p, a, b funscript.Action) float64 {
	span := math.Max(1, float64(b.At-a.At))
	px := float64(p.At-a.At) / span * posScale
	py := float64(p.Pos)
	y0, y1 := float64(a.Pos), float64(b.Pos)
	dy := y1 - y0
	return math.Abs(dy*px-posScale*py+posScale*y0) / math.Hypot(posScale, dy)
}

type span struct{ lo, hi int }

// RDP simplifies actions with the Ramer-Douglas-Peucker algorithm. The
// first and last actions always survive. Segments are tracked as index
// ranges over the input with an explicit stack; only the keep mask and the
// result are allocated. A negative epsilon is treated as zero.
func RDP(actions []funscript.Action, epsilon float64) []funscript.Action {
	n := len(actions)
	if n <= 2 {
		return append([]funscript.Action(nil), actions...)
	}
	epsilon = math.Max(0, epsilon)

	keep := make([]bool, n)
	keep[0], keep[n-1] = true, true
	stack := []span{{0, n - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.hi-s.lo < 2 {
			continue
		}
		maxDist, maxIdx := 0.0, -1
		for i := s.lo + 1; i < s.hi; i++ {
			if d := PerpendicularDistance(actions[i], actions[s.lo], actions[s.hi]); d > maxDist {
				maxDist, maxIdx = d, i
			}
		}
		if maxIdx < 0 || maxDist <= epsilon {
			continue
		}
		keep[maxIdx] = true
		stack = append(stack, span{s.lo, maxIdx}, span{maxIdx, s.hi})
	}

	out := make([]funscript.Action, 0, n)
	for i, k := range keep {
		if k {
			out = append(out, actions[i])
		}
	}
	return out
}

// MovingAverage replaces each position with the mean of a window centred on
// it. The window holds window/2 values either side and is clipped at the
// ends, so edge values average fewer neighbours. Results are rounded and
// clamped to 0-100.
func MovingAverage(positions []int, window int) []int {
	half := max(0, window/2)
	out := make([]int, len(positions))
	for i := range positions {
		lo := max(0, i-half)
		hi := min(len(positions), i+half+1)
		sum := 0
		for _, p := range positions[lo:hi] {
			sum += p
		}
		out[i] = funscript.ClampPos(int(math.Round(float64(sum) / float64(hi-lo))))
	}
	return out
}
