package beat

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Tempo search range in beats per minute.
const (
	MinBPM = 40.0
	MaxBPM = 200.0
)

const (
	// minTempoFrames is the shortest envelope worth autocorrelating.
	minTempoFrames = 100

	doubleLagWindow = 3
	halfLagWindow   = 2
	doubleLagRatio  = 0.8
	halfLagRatio    = 0.85

	ioiMinGap = 150
	ioiMaxGap = 2000
	ioiLowBPM = 50.0

	// Autocorrelation and IOI estimates further apart than this factor are
	// treated as disagreeing.
	crossCheckFactor = 1.8
	minConfidence    = 0.1
)

func inTempoRange(bpm float64) bool {
	return bpm >= MinBPM && bpm <= MaxBPM
}

// autocorrelate returns sum(env[i]*env[i+k]) for k in [0, maxLag].
func autocorrelate(env []float64, maxLag int) []float64 {
	ac := make([]float64, maxLag+1)
	for k := range ac {
		ac[k] = floats.Dot(env[:len(env)-k], env[k:])
	}
	return ac
}

func windowMax(ac []float64, centre, half int) float64 {
	lo, hi := max(0, centre-half), min(len(ac)-1, centre+half)
	if lo > hi {
		return 0
	}
	return floats.Max(ac[lo : hi+1])
}

// EstimateTempo finds the dominant beat period of an onset envelope sampled
// at sampleRate/hop frames per second. It returns (0, 0) when the envelope
// is too short or silent.
//
// The strongest autocorrelation lag in the MinBPM-MaxBPM window is refined
// by two octave checks. A strong peak near twice the lag favours half the
// tempo; a strong peak near half the original lag then favours double the
// tempo, and is allowed to undo the first correction. Confidence is the
// chosen peak relative to the envelope's energy.
func EstimateTempo(env []float64, sampleRate, hop int) (bpm, confidence float64) {
	n := len(env)
	if n < minTempoFrames || sampleRate <= 0 || hop <= 0 {
		return 0, 0
	}
	fps := float64(sampleRate) / float64(hop)
	minLag := max(1, int(fps*60/MaxBPM))
	maxLag := min(n-1, int(fps*60/MinBPM))
	if minLag >= maxLag {
		return 0, 0
	}

	ac := autocorrelate(env, min(n-1, 2*maxLag+doubleLagWindow))
	if ac[0] <= 0 {
		return 0, 0
	}

	peakLag := minLag + floats.MaxIdx(ac[minLag:maxLag+1])
	peak := ac[peakLag]
	if peak <= 0 {
		return 0, 0
	}
	bpm = 60 * fps / float64(peakLag)

	if dl := 2 * peakLag; dl < n {
		if local := windowMax(ac, dl, doubleLagWindow); local > doubleLagRatio*peak && inTempoRange(bpm/2) {
			bpm /= 2
			peak = local
		}
	}
	if hl := peakLag / 2; hl >= minLag {
		if local := windowMax(ac, hl, halfLagWindow); local > halfLagRatio*peak && inTempoRange(bpm*2) {
			bpm *= 2
		}
	}

	confidence = math.Max(0, math.Min(1, peak/(ac[0]+1e-10)))
	return bpm, confidence
}

// EstimateTempoFromIOI estimates tempo from the median gap between
// consecutive onsets (milliseconds), ignoring gaps outside 150-2000 ms, and
// folds the result into 50-200 BPM by octaves. It returns 0 with fewer than
// four onsets or three usable gaps.
func EstimateTempoFromIOI(onsets []int) float64 {
	if len(onsets) < 4 {
		return 0
	}
	var gaps []float64
	for i := 1; i < len(onsets); i++ {
		if g := onsets[i] - onsets[i-1]; g > ioiMinGap && g < ioiMaxGap {
			gaps = append(gaps, float64(g))
		}
	}
	if len(gaps) < 3 {
		return 0
	}
	sort.Float64s(gaps)
	m := len(gaps)
	median := gaps[m/2]
	if m%2 == 0 {
		median = (gaps[m/2-1] + gaps[m/2]) / 2
	}
	bpm := 60000 / median
	for bpm > MaxBPM {
		bpm /= 2
	}
	for bpm < ioiLowBPM {
		bpm *= 2
	}
	return bpm
}

// crossCheck prefers the IOI tempo when it disagrees with the
// autocorrelation tempo by more than an octave-ish factor, halving
// confidence. A missing autocorrelation tempo counts as a disagreement.
func crossCheck(acBPM, conf, ioiBPM float64) (float64, float64) {
	if ioiBPM <= 0 {
		return acBPM, conf
	}
	if acBPM <= 0 {
		return ioiBPM, math.Max(minConfidence, conf*0.5)
	}
	r := acBPM / ioiBPM
	if r > crossCheckFactor || r < 1/crossCheckFactor {
		return ioiBPM, math.Max(minConfidence, conf*0.5)
	}
	return acBPM, conf
}
