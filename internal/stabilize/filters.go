package stabilize

import "math"

// Stage is a pre-map filter over a timestamped scalar stream. Timestamps are
// in seconds.
type Stage interface {
	Filter(x, t float64) float64
	Reset()
}

// IntStage is a post-map filter over 0-100 integer values.
type IntStage interface {
	Filter(v int) int
	Reset()
}

// SpikeRejector suppresses single-frame outliers with a one-frame delay. A
// jump larger than Threshold is held and the previous value emitted; the
// next sample either confirms the jump (it lands near the held value) or
// discards it.
type SpikeRejector struct {
	Threshold float64

	prev    float64
	held    float64
	hasPrev bool
	hasHeld bool
}

// NewSpikeRejector returns a rejector with the given threshold.
func NewSpikeRejector(threshold float64) *SpikeRejector {
	return &SpikeRejector{Threshold: threshold}
}

// Filter ignores t; the gate is purely amplitude based.
func (f *SpikeRejector) Filter(x, _ float64) float64 {
	if !f.hasPrev {
		f.prev, f.hasPrev = x, true
		return x
	}
	if f.hasHeld {
		if math.Abs(x-f.held) < f.Threshold {
			f.prev = f.held
		}
		f.hasHeld = false
	}
	if math.Abs(x-f.prev) > f.Threshold {
		f.held, f.hasHeld = x, true
		return f.prev
	}
	f.prev = x
	return x
}

func (f *SpikeRejector) Reset() {
	f.prev, f.held = 0, 0
	f.hasPrev, f.hasHeld = false, false
}

// minElapsed floors the elapsed time so a repeated timestamp cannot divide
// by zero.
const minElapsed = 1e-6

// OneEuro is the adaptive low-pass filter of Casiez et al. Slow movement is
// smoothed with a cutoff near MinCutoff; fast movement raises the cutoff by
// Beta times the filtered speed, trading jitter for lag.
type OneEuro struct {
	MinCutoff float64
	Beta      float64
	DCutoff   float64

	xPrev  float64
	dxPrev float64
	tPrev  float64
	primed bool
}

// NewOneEuro returns a filter with a derivative cutoff of 1 Hz.
func NewOneEuro(minCutoff, beta float64) *OneEuro {
	return &OneEuro{MinCutoff: minCutoff, Beta: beta, DCutoff: 1.0}
}

func smoothingFactor(te, cutoff float64) float64 {
	r := 2 * math.Pi * cutoff * te
	return r / (r + 1)
}

func (f *OneEuro) Filter(x, t float64) float64 {
	if !f.primed {
		f.xPrev, f.dxPrev, f.tPrev, f.primed = x, 0, t, true
		return x
	}
	te := t - f.tPrev
	if te <= 0 {
		te = minElapsed
	}
	f.tPrev = t

	aD := smoothingFactor(te, f.DCutoff)
	dx := (x - f.xPrev) / te
	dxHat := aD*dx + (1-aD)*f.dxPrev

	cutoff := f.MinCutoff + f.Beta*math.Abs(dxHat)
	a := smoothingFactor(te, cutoff)
	xHat := a*x + (1-a)*f.xPrev

	f.xPrev, f.dxPrev = xHat, dxHat
	return xHat
}

func (f *OneEuro) Reset() {
	f.xPrev, f.dxPrev, f.tPrev, f.primed = 0, 0, 0, false
}

// SlewRateLimiter caps |dx/dt| at MaxRate units per second. A sample that
// does not advance time repeats the previous output.
type SlewRateLimiter struct {
	MaxRate float64

	prev   float64
	tPrev  float64
	primed bool
}

func NewSlewRateLimiter(maxRate float64) *SlewRateLimiter {
	return &SlewRateLimiter{MaxRate: maxRate}
}

func (f *SlewRateLimiter) Filter(x, t float64) float64 {
	if !f.primed {
		f.prev, f.tPrev, f.primed = x, t, true
		return x
	}
	dt := t - f.tPrev
	if dt <= 0 {
		return f.prev
	}
	f.tPrev = t

	maxDelta := f.MaxRate * dt
	delta := x - f.prev
	if math.Abs(delta) > maxDelta {
		delta = math.Copysign(maxDelta, delta)
	}
	f.prev += delta
	return f.prev
}

func (f *SlewRateLimiter) Reset() {
	f.prev, f.tPrev, f.primed = 0, 0, false
}

// JerkLimiter caps how fast the output velocity may change. Velocity is
// derived from consecutive outputs and starts at zero.
type JerkLimiter struct {
	MaxJerk float64

	prev    float64
	velPrev float64
	tPrev   float64
	primed  bool
}

func NewJerkLimiter(maxJerk float64) *JerkLimiter {
	return &JerkLimiter{MaxJerk: maxJerk}
}

func (f *JerkLimiter) Filter(x, t float64) float64 {
	if !f.primed {
		f.prev, f.velPrev, f.tPrev, f.primed = x, 0, t, true
		return x
	}
	dt := t - f.tPrev
	if dt <= 0 {
		return f.prev
	}
	f.tPrev = t

	vel := (x - f.prev) / dt
	accel := (vel - f.velPrev) / dt
	maxAccel := f.MaxJerk * dt
	if math.Abs(accel) > maxAccel {
		accel = math.Copysign(maxAccel, accel)
		vel = f.velPrev + accel*dt
	}

	f.prev += vel * dt
	f.velPrev = vel
	return f.prev
}

func (f *JerkLimiter) Reset() {
	f.prev, f.velPrev, f.tPrev, f.primed = 0, 0, 0, false
}

// DeadzoneFilter repeats the last emitted value until the input moves at
// least Threshold away from it.
type DeadzoneFilter struct {
	Threshold float64

	last   int
	primed bool
}

func NewDeadzoneFilter(threshold float64) *DeadzoneFilter {
	return &DeadzoneFilter{Threshold: threshold}
}

func (f *DeadzoneFilter) Filter(v int) int {
	if !f.primed {
		f.last, f.primed = v, true
		return v
	}
	if math.Abs(float64(v-f.last)) >= f.Threshold {
		f.last = v
	}
	return f.last
}

func (f *DeadzoneFilter) Reset() {
	f.last, f.primed = 0, false
}

// HysteresisFilter suppresses small reversals. A direction is latched by a
// first move of at least Band; moves in the latched direction always pass;
// a reversal needs at least twice Band.
type HysteresisFilter struct {
	Band float64

	last      int
	direction int
	primed    bool
}

func NewHysteresisFilter(band float64) *HysteresisFilter {
	return &HysteresisFilter{Band: band}
}

func (f *HysteresisFilter) Filter(v int) int {
	if !f.primed {
		f.last, f.primed = v, true
		return v
	}
	delta := v - f.last
	mag := math.Abs(float64(delta))

	switch {
	case f.direction == 0:
		if mag < f.Band {
			return f.last
		}
	case (f.direction > 0 && delta > 0) || (f.direction < 0 && delta < 0):
		f.last = v
		return v
	case mag < 2*f.Band:
		return f.last
	}
	f.direction = sign(delta)
	f.last = v
	return v
}

func (f *HysteresisFilter) Reset() {
	f.last, f.direction, f.primed = 0, 0, false
}

func sign(d int) int {
	if d > 0 {
		return 1
	}
	return -1
}
