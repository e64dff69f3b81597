package beat

import (
	"math"
	"sort"
)

const (
	gridTolerance    = 0.2
	gridOnsetPhases  = 40
	gridEvenPhases   = 50
	gridZeroSnapFrac = 0.1
)

// nearestDistance is the distance from t to the closest of the ascending
// onsets.
func nearestDistance(onsets []int, t float64) float64 {
	i := sort.Search(len(onsets), func(i int) bool { return float64(onsets[i]) >= t })
	best := math.Inf(1)
	if i < len(onsets) {
		best = float64(onsets[i]) - t
	}
	if i > 0 {
		best = math.Min(best, t-float64(onsets[i-1]))
	}
	return best
}

func phaseScore(phase, interval, tol float64, onsets []int, durationMs int) int {
	score := 0
	for t := phase; t < float64(durationMs); t += interval {
		if nearestDistance(onsets, t) <= tol {
			score++
		}
	}
	return score
}

// BuildBeatGrid lays evenly spaced beats at bpm across durationMs, choosing
// the phase that puts the most beats within 20% of an interval of a detected
// onset. Candidate phases are the first 40 onsets modulo the interval plus
// 50 evenly spaced offsets; the earliest best candidate wins. A first beat
// within 10% of an interval of zero is moved to zero.
func BuildBeatGrid(bpm float64, onsets []int, durationMs int) []int {
	if bpm <= 0 || len(onsets) == 0 || durationMs <= 0 {
		return nil
	}
	interval := 60000 / bpm
	tol := gridTolerance * interval

	candidates := make([]float64, 0, gridOnsetPhases+gridEvenPhases)
	for _, o := range onsets[:min(len(onsets), gridOnsetPhases)] {
		candidates = append(candidates, math.Mod(float64(o), interval))
	}
	for i := 0; i < gridEvenPhases; i++ {
		candidates = append(candidates, float64(i)*interval/gridEvenPhases)
	}

	bestPhase, bestScore := 0.0, -1
	for _, p := range candidates {
		if s := phaseScore(p, interval, tol, onsets, durationMs); s > bestScore {
			bestPhase, bestScore = p, s
		}
	}

	var beats []int
	for t := bestPhase; t < float64(durationMs); t += interval {
		beats = append(beats, int(t))
	}
	if len(beats) > 0 && float64(beats[0]) < gridZeroSnapFrac*interval {
		beats[0] = 0
	}
	return beats
}
