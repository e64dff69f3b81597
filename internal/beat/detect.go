package beat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/motionscript/internal/audio"
	"github.com/banshee-data/motionscript/internal/monitoring"
)

var (
	// ErrAudioUnavailable means no waveform could be obtained for the input.
	ErrAudioUnavailable = errors.New("beat: audio unavailable")
	// ErrNoOnsets means the waveform produced neither a tempo nor onsets.
	ErrNoOnsets = errors.New("beat: no onsets detected")
)

// Options tunes the analysis. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	WindowSize     int
	HopSize        int
	ThresholdRatio float64
	MinDistance    int
	Subdivisions   int
}

func DefaultOptions() Options {
	return Options{
		WindowSize:     1024,
		HopSize:        512,
		ThresholdRatio: 0.3,
		MinDistance:    4,
		Subdivisions:   DefaultSubdivisions,
	}
}

// ProgressFunc receives analysis progress in [0, 1].
type ProgressFunc func(fraction float64)

// progress clamps reports to [0, 1] and never lets them go backwards.
type progress struct {
	fn   ProgressFunc
	last float64
}

func (p *progress) report(f float64) {
	if p.fn == nil {
		return
	}
	f = math.Max(p.last, math.Min(1, math.Max(0, f)))
	p.last = f
	p.fn(f)
}

// Analysis is the full result of Analyze: the persisted Data plus the
// intermediate signals useful for plotting.
type Analysis struct {
	Data
	Envelope   []float64
	FrameRate  float64
	DurationMs int
	// TempoBPM is the autocorrelation estimate before cross-checking and
	// IOIBPM the inter-onset estimate; either may be 0.
	TempoBPM float64
	IOIBPM   float64
}

// Analyze runs the onset, tempo and grid pipeline over a mono waveform.
// A nil spectrum factory selects NewSpectrum. It returns ErrNoOnsets when
// nothing rhythmic is found; a result is never partial.
func Analyze(ctx context.Context, samples []float64, sampleRate int, opts Options, spectrum SpectrumFactory, fn ProgressFunc) (*Analysis, error) {
	if sampleRate <= 0 || len(samples) == 0 {
		return nil, ErrNoOnsets
	}
	if spectrum == nil {
		spectrum = NewSpectrum
	}
	if opts.WindowSize <= 0 || opts.HopSize <= 0 {
		def := DefaultOptions()
		opts.WindowSize, opts.HopSize = def.WindowSize, def.HopSize
	}
	p := &progress{fn: fn}
	p.report(0)

	a := &Analysis{
		FrameRate:  float64(sampleRate) / float64(opts.HopSize),
		DurationMs: int(float64(len(samples)) / float64(sampleRate) * 1000),
	}
	a.Subdivisions = max(1, opts.Subdivisions)

	a.Envelope = SpectralFlux(samples, opts.WindowSize, opts.HopSize, spectrum(opts.WindowSize))
	p.report(0.2)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frames := PickPeaks(a.Envelope, opts.ThresholdRatio, opts.MinDistance)
	a.Onsets = FramesToMs(frames, opts.HopSize, sampleRate)
	p.report(0.3)

	bpm, conf := EstimateTempo(a.Envelope, sampleRate, opts.HopSize)
	a.TempoBPM = bpm
	p.report(0.5)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.IOIBPM = EstimateTempoFromIOI(a.Onsets)
	bpm, conf = crossCheck(bpm, conf, a.IOIBPM)
	p.report(0.7)

	if bpm > 0 {
		a.Beats = BuildBeatGrid(bpm, a.Onsets, a.DurationMs)
	}
	p.report(0.8)

	if len(a.Beats) == 0 {
		if len(a.Onsets) == 0 {
			return nil, ErrNoOnsets
		}
		monitoring.Diagf("beat: no tempo from %d onsets, using onsets as beats", len(a.Onsets))
		a.Beats = append([]int(nil), a.Onsets...)
		bpm, conf = 0, 0
	}

	a.BPM = math.Round(bpm*10) / 10
	a.Confidence = math.Round(conf*100) / 100
	p.report(1)
	return a, nil
}

// Detector extracts audio from a media file and analyses it.
type Detector struct {
	Source   audio.Source
	Spectrum SpectrumFactory
	Options  Options
	Progress ProgressFunc
}

// NewDetector returns a Detector over src with default options.
func NewDetector(src audio.Source) *Detector {
	return &Detector{Source: src, Spectrum: NewSpectrum, Options: DefaultOptions()}
}

// Detect analyses the audio track of path. Extraction failures are reported
// as ErrAudioUnavailable wrapping the extraction error.
func (d *Detector) Detect(ctx context.Context, path string) (*Analysis, error) {
	if d.Source == nil {
		return nil, ErrAudioUnavailable
	}
	start := time.Now()
	res := d.Source.Extract(ctx, path)
	if !res.OK() {
		monitoring.Opsf("beat: no audio for %s: %s", path, res.Status)
		return nil, fmt.Errorf("%w: %w", ErrAudioUnavailable, res.Err())
	}

	a, err := Analyze(ctx, res.Samples, res.SampleRate, d.Options, d.Spectrum, d.Progress)
	if err != nil {
		return nil, fmt.Errorf("analyse %s: %w", path, err)
	}
	monitoring.Opsf("beat: %s: %.1f BPM (confidence %.2f), %d beats, %d onsets in %s",
		path, a.BPM, a.Confidence, len(a.Beats), len(a.Onsets), time.Since(start).Round(time.Millisecond))
	return a, nil
}
