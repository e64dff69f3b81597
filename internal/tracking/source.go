package tracking

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/banshee-data/motionscript/internal/timeutil"
)

// ErrNotTracked is returned by a Source that has no sample to offer yet.
var ErrNotTracked = errors.New("tracking: no sample available")

// Source produces raw controller samples on demand. Read must not block
// for longer than a poll interval; sources fed asynchronously return their
// most recent sample.
type Source interface {
	Read(ctx context.Context) (RawSample, error)
	Close() error
}

// latest is the single-slot mailbox shared by asynchronously fed sources.
type latest struct {
	mu     sync.Mutex
	sample RawSample
	have   bool
	err    error
}

func (l *latest) set(s RawSample) {
	l.mu.Lock()
	l.sample, l.have = s, true
	l.mu.Unlock()
}

func (l *latest) fail(err error) {
	l.mu.Lock()
	if l.err == nil {
		l.err = err
	}
	l.mu.Unlock()
}

func (l *latest) get() (RawSample, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return RawSample{}, l.err
	}
	if !l.have {
		return RawSample{}, ErrNotTracked
	}
	return l.sample, nil
}

// SineSource synthesises a controller moving smoothly through its range.
// It stands in for hardware in demos and tests.
type SineSource struct {
	clock timeutil.Clock
	start time.Time
	// Period of the stroke motion.
	Period time.Duration
}

func NewSineSource(clock timeutil.Clock) *SineSource {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &SineSource{clock: clock, start: clock.Now(), Period: 2 * time.Second}
}

func (s *SineSource) Read(context.Context) (RawSample, error) {
	t := s.clock.Since(s.start).Seconds()
	w := 2 * math.Pi / s.Period.Seconds()
	var out RawSample
	out.Tracked = true
	out.Position = [3]float64{
		0.1 * math.Sin(w*t/2),
		0.75 + 0.4*math.Sin(w*t),
		0.15 * math.Cos(w*t),
	}
	out.Rotation = [3]float64{
		20 * math.Sin(w*t),
		30 * math.Sin(w*t/3),
		15 * math.Cos(w*t/2),
	}
	return out, nil
}

func (s *SineSource) Close() error { return nil }

// ScriptedSource replays a fixed list of samples, repeating the last one.
type ScriptedSource struct {
	mu      sync.Mutex
	samples []RawSample
	next    int
	closed  bool
}

func NewScriptedSource(samples ...RawSample) *ScriptedSource {
	return &ScriptedSource{samples: samples}
}

func (s *ScriptedSource) Read(context.Context) (RawSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return RawSample{}, errors.New("tracking: source closed")
	}
	if len(s.samples) == 0 {
		return RawSample{}, ErrNotTracked
	}
	out := s.samples[min(s.next, len(s.samples)-1)]
	if s.next < len(s.samples) {
		s.next++
	}
	return out, nil
}

// Push appends samples to the script.
func (s *ScriptedSource) Push(samples ...RawSample) {
	s.mu.Lock()
	s.samples = append(s.samples, samples...)
	s.mu.Unlock()
}

func (s *ScriptedSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
