package calibration

import (
	"math"
	"sync"

	"github.com/banshee-data/motionscript/internal/axis"
)

// State is the calibration shared between the poll loop and any number of
// editors or previews. Every mutation bumps Version so readers can notice
// changes without comparing whole sets.
type State struct {
	mu      sync.RWMutex
	set     Set
	version uint64
}

// NewState wraps an initial set.
func NewState(s Set) *State {
	return &State{set: s}
}

// Snapshot returns a copy of the current set.
func (st *State) Snapshot() Set {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.set
}

// Version increases by one on every mutation.
func (st *State) Version() uint64 {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.version
}

// Update applies fn to the set under the write lock.
func (st *State) Update(fn func(*Set)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.set)
	st.version++
}

// Replace swaps in a whole set, for example one loaded from storage.
func (st *State) Replace(s Set) {
	st.Update(func(cur *Set) { *cur = s })
}

// Calibrate sets the window of one axis.
func (st *State) Calibrate(a axis.Axis, min, max float64) {
	if !a.Valid() {
		return
	}
	st.Update(func(s *Set) {
		s[a].Min, s[a].Max = min, max
	})
}

// SetInverted flips the output direction of one axis.
func (st *State) SetInverted(a axis.Axis, inverted bool) {
	if !a.Valid() {
		return
	}
	st.Update(func(s *Set) { s[a].Inverted = inverted })
}

// SetSensitivity applies one sensitivity to all axes.
func (st *State) SetSensitivity(v float64) {
	st.Update(func(s *Set) { s.SetSensitivity(v) })
}

// Recenter recenters all axes on raw.
func (st *State) Recenter(raw [axis.Count]float64) {
	st.Update(func(s *Set) { s.Recenter(raw) })
}

// Map maps raw through the current set.
func (st *State) Map(raw [axis.Count]float64) [axis.Count]int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.set.Map(raw)
}

// AutoMargin widens an auto-calibrated window by this fraction of the
// observed span on each side.
const AutoMargin = 0.05

// AutoCalibrator records the extent of each axis while the user sweeps the
// controller through its range of motion.
type AutoCalibrator struct {
	mu     sync.Mutex
	active bool
	min    [axis.Count]float64
	max    [axis.Count]float64
}

// Start clears previous observations and begins recording.
func (ac *AutoCalibrator) Start() {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.active = true
	for i := range ac.min {
		ac.min[i] = math.Inf(1)
		ac.max[i] = math.Inf(-1)
	}
}

// Active reports whether a sweep is in progress.
func (ac *AutoCalibrator) Active() bool {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	return ac.active
}

// Observe folds in one raw reading. It is a no-op when not active.
func (ac *AutoCalibrator) Observe(raw [axis.Count]float64) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if !ac.active {
		return
	}
	for i, v := range raw {
		ac.min[i] = math.Min(ac.min[i], v)
		ac.max[i] = math.Max(ac.max[i], v)
	}
}

// Finish stops recording and writes the widened extents into st for every
// axis that moved. It returns which axes were updated; nothing changes when
// no sweep was active.
func (ac *AutoCalibrator) Finish(st *State) [axis.Count]bool {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	var applied [axis.Count]bool
	if !ac.active {
		return applied
	}
	ac.active = false
	lo, hi := ac.min, ac.max
	st.Update(func(s *Set) {
		for i := range s {
			if lo[i] >= hi[i] {
				continue
			}
			margin := (hi[i] - lo[i]) * AutoMargin
			s[i].Min, s[i].Max = lo[i]-margin, hi[i]+margin
			applied[i] = true
		}
	})
	return applied
}
