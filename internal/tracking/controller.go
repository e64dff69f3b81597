package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/motionscript/internal/axis"
	"github.com/banshee-data/motionscript/internal/calibration"
	"github.com/banshee-data/motionscript/internal/monitoring"
	"github.com/banshee-data/motionscript/internal/stabilize"
	"github.com/banshee-data/motionscript/internal/timeutil"
)

const (
	DefaultPollRate    = 90.0
	DefaultHistorySize = 50
)

// Options configures a Controller. Zero fields take defaults.
type Options struct {
	PollRate    float64
	Preset      string
	HistorySize int
	Clock       timeutil.Clock
	Metrics     *Metrics
}

type stateCallback struct {
	id int
	fn func(ControllerState)
}

type buttonCallback struct {
	id     int
	button Button
	fn     func()
}

// Controller runs the poll loop for one Source.
type Controller struct {
	source   Source
	cal      *calibration.State
	clock    timeutil.Clock
	metrics  *Metrics
	interval time.Duration
	epoch    time.Time

	// pipeMu guards the filter pipeline: Kalman filters, stabilizers, axis
	// locks and the auto-calibrator feed.
	pipeMu     sync.Mutex
	kalman     [axis.Count]*stabilize.Kalman1D
	stab       *stabilize.Manager
	locked     [axis.Count]bool
	lockValue  [axis.Count]float64
	calVersion uint64
	auto       calibration.AutoCalibrator

	// lastFiltered is the newest tracked filtered vector; untracked polls
	// leave it alone.
	lastFiltered [axis.Count]float64
	hasTracked   bool

	// mu guards the published state, history and callbacks.
	mu       sync.Mutex
	state    ControllerState
	history  []ControllerState
	histSize int
	onState  []stateCallback
	onButton []buttonCallback
	nextID   int
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewController builds a controller reading src and mapping through cal.
func NewController(src Source, cal *calibration.State, opts Options) (*Controller, error) {
	if src == nil {
		return nil, errors.New("tracking: nil source")
	}
	if cal == nil {
		cal = calibration.NewState(calibration.DefaultSet())
	}
	if opts.PollRate <= 0 {
		opts.PollRate = DefaultPollRate
	}
	if opts.Preset == "" {
		opts.Preset = stabilize.DefaultPreset
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	stab, err := stabilize.NewManager(opts.Preset)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		source:     src,
		cal:        cal,
		clock:      opts.Clock,
		metrics:    opts.Metrics,
		interval:   time.Duration(float64(time.Second) / opts.PollRate),
		epoch:      opts.Clock.Now(),
		stab:       stab,
		calVersion: cal.Version(),
		histSize:   opts.HistorySize,
	}
	for _, a := range axis.All {
		c.kalman[a] = stabilize.NewKalman1D(stabilize.DefaultProcessNoise, stabilize.DefaultMeasurementNoise)
	}
	c.state = untrackedState(0, c.epoch)
	return c, nil
}

func untrackedState(seq uint64, t time.Time) ControllerState {
	st := ControllerState{Seq: seq, Time: t}
	for i := range st.Mapped {
		st.Mapped[i] = calibration.Midpoint
	}
	return st
}

// Interval is the time between polls.
func (c *Controller) Interval() time.Duration { return c.interval }

// Calibration returns the shared calibration handle.
func (c *Controller) Calibration() *calibration.State { return c.cal }

// Start runs the poll loop on a new goroutine until Stop or ctx ends.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return errors.New("tracking: controller already running")
	}
	ctx, c.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	c.done = done
	go func() {
		defer close(done)
		if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Opsf("tracking: poll loop stopped: %v", err)
		}
	}()
	return nil
}

// Stop ends a loop started with Start and waits for it to exit.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run polls on every tick until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()
	monitoring.Diagf("tracking: polling every %s", c.interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			c.PollOnce(ctx)
		}
	}
}

// PollOnce reads the source, runs the pipeline, publishes the result and
// fires callbacks. It is what Run calls on every tick.
func (c *Controller) PollOnce(ctx context.Context) ControllerState {
	now := c.clock.Now()
	c.mu.Lock()
	seq := c.state.Seq + 1
	c.mu.Unlock()

	st := untrackedState(seq, now)
	sample, err := c.source.Read(ctx)
	switch {
	case err == nil && sample.Tracked:
		c.process(&st, sample)
	case err == nil, errors.Is(err, ErrNotTracked):
		c.metrics.Untracked.Inc()
	default:
		c.metrics.SourceErrors.Inc()
		c.metrics.Untracked.Inc()
		monitoring.Tracef("tracking: source read: %v", err)
	}
	c.metrics.PollSeconds.Observe(c.clock.Since(now).Seconds())
	c.metrics.Polls.Inc()

	c.publish(st)
	return st
}

func (c *Controller) process(st *ControllerState, sample RawSample) {
	c.pipeMu.Lock()
	defer c.pipeMu.Unlock()

	if v := c.cal.Version(); v != c.calVersion {
		c.stab.ResetAll()
		c.calVersion = v
	}
	t := c.clock.Since(c.epoch).Seconds()
	raw := sample.Axes()
	for _, a := range axis.All {
		v := c.kalman[a].Update(raw[a])
		v = c.stab.Process(a, v, t)
		if c.locked[a] {
			v = c.lockValue[a]
		}
		st.Filtered[a] = v
	}

	mapped := c.cal.Map(st.Filtered)
	for _, a := range axis.All {
		mapped[a] = c.stab.PostMap(a, mapped[a])
	}
	st.Mapped = mapped
	st.Tracked = true
	st.Buttons = sample.Buttons
	st.Thumbstick = sample.Thumbstick
	c.lastFiltered, c.hasTracked = st.Filtered, true
	c.auto.Observe(st.Filtered)
}

func (c *Controller) publish(st ControllerState) {
	c.mu.Lock()
	prev := c.state.Buttons
	c.state = st
	c.history = append(c.history, st)
	if over := len(c.history) - c.histSize; over > 0 {
		c.history = append(c.history[:0], c.history[over:]...)
	}
	var buttons []buttonCallback
	if pressed := st.Buttons &^ prev; pressed != 0 {
		for _, cb := range c.onButton {
			if pressed.Has(cb.button) {
				buttons = append(buttons, cb)
			}
		}
	}
	states := append([]stateCallback(nil), c.onState...)
	c.mu.Unlock()

	for _, cb := range buttons {
		c.safeCall(cb.button.String(), cb.fn)
	}
	for _, cb := range states {
		c.safeCall("state", func() { cb.fn(st) })
	}
}

func (c *Controller) safeCall(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.CallbackPanics.Inc()
			monitoring.Diagf("tracking: %s callback panicked: %v", name, r)
		}
	}()
	fn()
}

// State returns the most recent published state.
func (c *Controller) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns up to HistorySize recent states, oldest first.
func (c *Controller) History() []ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ControllerState(nil), c.history...)
}

// OnState registers fn to receive every published state. The returned func
// unregisters it.
func (c *Controller) OnState(fn func(ControllerState)) (remove func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.onState = append(c.onState, stateCallback{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, cb := range c.onState {
			if cb.id == id {
				c.onState = append(c.onState[:i:i], c.onState[i+1:]...)
				return
			}
		}
	}
}

// OnButton registers fn to run when button b goes from released to
// pressed. The returned func unregisters it.
func (c *Controller) OnButton(b Button, fn func()) (remove func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.onButton = append(c.onButton, buttonCallback{id: id, button: b, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, cb := range c.onButton {
			if cb.id == id {
				c.onButton = append(c.onButton[:i:i], c.onButton[i+1:]...)
				return
			}
		}
	}
}

// LockAxis freezes a at its last tracked filtered value. It fails with
// ErrNotTracked before the first tracked sample.
func (c *Controller) LockAxis(a axis.Axis) error {
	if !a.Valid() {
		return fmt.Errorf("lock axis: invalid %s", a)
	}
	c.pipeMu.Lock()
	defer c.pipeMu.Unlock()
	if !c.hasTracked {
		return fmt.Errorf("lock axis %s: %w", a, ErrNotTracked)
	}
	c.locked[a], c.lockValue[a] = true, c.lastFiltered[a]
	return nil
}

// UnlockAxis resumes live tracking of a. Its stabilizer is reset so the
// output does not lag from the frozen value.
func (c *Controller) UnlockAxis(a axis.Axis) error {
	if !a.Valid() {
		return fmt.Errorf("unlock axis: invalid %s", a)
	}
	c.pipeMu.Lock()
	defer c.pipeMu.Unlock()
	if c.locked[a] {
		c.locked[a] = false
		c.stab.ResetAxis(a)
	}
	return nil
}

func (c *Controller) AxisLocked(a axis.Axis) bool {
	if !a.Valid() {
		return false
	}
	c.pipeMu.Lock()
	defer c.pipeMu.Unlock()
	return c.locked[a]
}

// ToggleAxisLock flips the lock on a and returns the new state.
func (c *Controller) ToggleAxisLock(a axis.Axis) (bool, error) {
	if c.AxisLocked(a) {
		return false, c.UnlockAxis(a)
	}
	return true, c.LockAxis(a)
}

// SetPreset switches every axis to a named stabilization preset.
func (c *Controller) SetPreset(name string) error {
	c.pipeMu.Lock()
	defer c.pipeMu.Unlock()
	return c.stab.SetPreset(name)
}

func (c *Controller) Preset() string {
	c.pipeMu.Lock()
	defer c.pipeMu.Unlock()
	return c.stab.PresetName()
}

// UpdateStabilization runs fn with exclusive access to the stabilizers,
// for per-axis overrides and persistence.
func (c *Controller) UpdateStabilization(fn func(*stabilize.Manager) error) error {
	c.pipeMu.Lock()
	defer c.pipeMu.Unlock()
	return fn(c.stab)
}

// ResetFilters clears every Kalman filter and stabilizer.
func (c *Controller) ResetFilters() {
	c.pipeMu.Lock()
	defer c.pipeMu.Unlock()
	for _, k := range c.kalman {
		k.Reset()
	}
	c.stab.ResetAll()
}

// Recenter shifts every calibration window so the last tracked position
// maps to the midpoint. It fails with ErrNotTracked before the first
// tracked sample.
func (c *Controller) Recenter() error {
	c.pipeMu.Lock()
	pos, ok := c.lastFiltered, c.hasTracked
	c.pipeMu.Unlock()
	if !ok {
		return fmt.Errorf("recenter: %w", ErrNotTracked)
	}
	c.cal.Recenter(pos)
	return nil
}

// StartAutoCalibration begins recording the extent of each axis.
func (c *Controller) StartAutoCalibration() { c.auto.Start() }

func (c *Controller) AutoCalibrating() bool { return c.auto.Active() }

// FinishAutoCalibration applies the recorded extents and reports which
// axes changed.
func (c *Controller) FinishAutoCalibration() [axis.Count]bool {
	applied := c.auto.Finish(c.cal)
	monitoring.Opsf("tracking: auto-calibration applied to %v", applied)
	return applied
}

// Close stops the loop and closes the source.
func (c *Controller) Close() error {
	c.Stop()
	return c.source.Close()
}
