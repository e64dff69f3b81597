package beat

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motionscript/internal/audio"
	"github.com/banshee-data/motionscript/internal/funscript"
)

// clickTrack returns seconds of silence with a 0.9 impulse every step
// samples.
func clickTrack(rate, seconds, step int) []float64 {
	s := make([]float64, rate*seconds)
	for i := 0; i < len(s); i += step {
		s[i] = 0.9
	}
	return s
}

func medianSpacing(beats []int) float64 {
	d := make([]int, 0, len(beats))
	for i := 1; i < len(beats); i++ {
		d = append(d, beats[i]-beats[i-1])
	}
	sort.Ints(d)
	return float64(d[len(d)/2])
}

func TestAnalyze_ClickTrack(t *testing.T) {
	tests := []struct {
		name    string
		step    int
		bpmTol  float64
		checkIO bool
	}{
		// A period of exactly 22 hops, so onsets quantise without drift.
		{"hop aligned", 22 * testHop, 0.01, true},
		{"120 bpm", testRate / 2, 0.05, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trueBPM := float64(testRate) * 60 / float64(tt.step)
			interval := 60000 / trueBPM

			a, err := Analyze(context.Background(), clickTrack(testRate, 20, tt.step), testRate, DefaultOptions(), nil, nil)
			require.NoError(t, err)

			assert.InEpsilon(t, trueBPM, a.BPM, tt.bpmTol)
			if tt.checkIO {
				assert.InEpsilon(t, trueBPM, a.IOIBPM, 0.01)
			}
			require.Greater(t, len(a.Beats), 30)
			assert.InEpsilon(t, interval, medianSpacing(a.Beats), 0.05)
			assert.True(t, sort.IntsAreSorted(a.Beats))
			assert.GreaterOrEqual(t, a.Confidence, 0.0)
			assert.LessOrEqual(t, a.Confidence, 1.0)
			assert.Equal(t, 20000, a.DurationMs)
			assert.Equal(t, DefaultSubdivisions, a.Subdivisions)
		})
	}
}

func TestAnalyze_Silence(t *testing.T) {
	_, err := Analyze(context.Background(), make([]float64, testRate*2), testRate, DefaultOptions(), nil, nil)
	assert.ErrorIs(t, err, ErrNoOnsets)

	_, err = Analyze(context.Background(), nil, testRate, DefaultOptions(), nil, nil)
	assert.ErrorIs(t, err, ErrNoOnsets)
}

func TestAnalyze_OnsetFallback(t *testing.T) {
	// Two clicks: onsets but far too little envelope for a tempo.
	s := make([]float64, testRate)
	s[testRate/4] = 0.9
	s[3*testRate/4] = 0.9
	a, err := Analyze(context.Background(), s, testRate, DefaultOptions(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, a.BPM)
	assert.Zero(t, a.Confidence)
	assert.Equal(t, a.Onsets, a.Beats)
	assert.NotEmpty(t, a.Beats)
}

func TestAnalyze_ShortClipUsesIOITempo(t *testing.T) {
	// Too short for the autocorrelation lag range, but four clicks give
	// three usable gaps.
	s := make([]float64, testRate*2)
	for _, sec := range []float64{0.25, 0.75, 1.25, 1.75} {
		s[int(sec*testRate)] = 0.9
	}
	a, err := Analyze(context.Background(), s, testRate, DefaultOptions(), nil, nil)
	require.NoError(t, err)
	require.Len(t, a.Onsets, 4)

	assert.Zero(t, a.TempoBPM)
	assert.InEpsilon(t, 120.0, a.IOIBPM, 0.05)
	assert.InDelta(t, a.IOIBPM, a.BPM, 0.1)
	assert.Equal(t, 0.1, a.Confidence)
	assert.NotEmpty(t, a.Beats)
	assert.True(t, sort.IntsAreSorted(a.Beats))
}

func TestAnalyze_Progress(t *testing.T) {
	var seen []float64
	_, err := Analyze(context.Background(), clickTrack(testRate, 5, testRate/2), testRate, DefaultOptions(), nil,
		func(f float64) { seen = append(seen, f) })
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	assert.True(t, sort.Float64sAreSorted(seen), "progress went backwards: %v", seen)
	assert.Equal(t, 0.0, seen[0])
	assert.Equal(t, 1.0, seen[len(seen)-1])
}

func TestAnalyze_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Analyze(ctx, clickTrack(testRate, 2, testRate/2), testRate, DefaultOptions(), nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProgress_Monotonic(t *testing.T) {
	var seen []float64
	p := &progress{fn: func(f float64) { seen = append(seen, f) }}
	for _, f := range []float64{-1, 0.4, 0.2, 2} {
		p.report(f)
	}
	assert.Equal(t, []float64{0, 0.4, 0.4, 1}, seen)

	(&progress{}).report(0.5)
}

func TestDetector(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		_, err := NewDetector(audio.Unavailable{}).Detect(context.Background(), "clip.mp4")
		assert.ErrorIs(t, err, ErrAudioUnavailable)

		_, err = (&Detector{}).Detect(context.Background(), "clip.mp4")
		assert.ErrorIs(t, err, ErrAudioUnavailable)
	})

	t.Run("static", func(t *testing.T) {
		src := audio.Static{Samples: clickTrack(testRate, 10, testRate/2), SampleRate: testRate}
		a, err := NewDetector(src).Detect(context.Background(), "clip.mp4")
		require.NoError(t, err)
		assert.NotEmpty(t, a.Beats)
	})

	t.Run("silent", func(t *testing.T) {
		src := audio.Static{Samples: make([]float64, testRate), SampleRate: testRate}
		_, err := NewDetector(src).Detect(context.Background(), "clip.mp4")
		assert.True(t, errors.Is(err, ErrNoOnsets))
	})
}

type countingSpectrum struct {
	Spectrum
	calls int
}

func (c *countingSpectrum) Magnitudes(dst, frame []float64) []float64 {
	c.calls++
	return c.Spectrum.Magnitudes(dst, frame)
}

func TestSpectralFlux(t *testing.T) {
	s := make([]float64, 4096)
	s[2048] = 1
	spec := &countingSpectrum{Spectrum: NewSpectrum(1024)}
	env := SpectralFlux(s, 1024, 512, spec)

	require.Len(t, env, 9)
	assert.Equal(t, 9, spec.calls)
	assert.Zero(t, env[0])
	assert.InDelta(t, 1.0, env[4], 1e-9, "impulse lands in the centre of frame 4")
	for _, v := range env {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0+1e-12)
	}

	assert.Nil(t, SpectralFlux(nil, 1024, 512, spec))
}

func TestPickPeaks(t *testing.T) {
	env := make([]float64, 100)
	env[20] = 1
	env[22] = 0.9
	env[60] = 0.8
	if diff := cmp.Diff([]int{20, 60}, PickPeaks(env, 0.3, 4)); diff != "" {
		t.Errorf("PickPeaks mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, PickPeaks(make([]float64, 50), 0.3, 4))
	assert.Equal(t, []int{0, 23, 46}, FramesToMs([]int{0, 1, 2}, 512, 22050))
}

func TestBuildBeatGrid(t *testing.T) {
	every := func(start, n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = start + 500*i
		}
		return out
	}

	t.Run("on phase", func(t *testing.T) {
		got := BuildBeatGrid(120, every(0, 20), 10000)
		if diff := cmp.Diff(every(0, 20), got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("near zero snaps", func(t *testing.T) {
		got := BuildBeatGrid(120, every(30, 20), 10000)
		want := every(30, 20)
		want[0] = 0
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("degenerate", func(t *testing.T) {
		assert.Nil(t, BuildBeatGrid(0, every(0, 4), 1000))
		assert.Nil(t, BuildBeatGrid(120, nil, 1000))
	})
}

func TestSnap(t *testing.T) {
	grid := (&Data{Beats: []int{0, 1000, 2000}, Subdivisions: 4}).Grid()
	actions := []funscript.Action{{At: 260, Pos: 10}, {At: 1000, Pos: 90}, {At: 1490, Pos: 40}}

	t.Run("full strength", func(t *testing.T) {
		got, n := Snap(actions, grid, 60, 100)
		assert.Equal(t, []funscript.Action{{At: 250, Pos: 10}, {At: 1000, Pos: 90}, {At: 1500, Pos: 40}}, got)
		assert.Equal(t, 2, n)
	})

	t.Run("zero strength", func(t *testing.T) {
		got, n := Snap(actions, grid, 60, 0)
		assert.Equal(t, actions, got)
		assert.Zero(t, n)
	})

	t.Run("half strength", func(t *testing.T) {
		got, _ := Snap(actions, grid, 60, 50)
		assert.Equal(t, 255, got[0].At)
		assert.Equal(t, 1495, got[2].At)
	})

	t.Run("outside tolerance", func(t *testing.T) {
		// 240 BPM gives a 150 ms tolerance.
		got, n := Snap([]funscript.Action{{At: 500, Pos: 1}}, []int{0, 1000}, 240, 100)
		assert.Equal(t, 500, got[0].At)
		assert.Zero(t, n)
	})

	t.Run("tie goes earlier", func(t *testing.T) {
		got, _ := Snap([]funscript.Action{{At: 500, Pos: 1}}, []int{0, 1000}, 60, 100)
		assert.Zero(t, got[0].At)
	})

	t.Run("empty", func(t *testing.T) {
		got, n := Snap(nil, grid, 60, 100)
		assert.Empty(t, got)
		assert.Zero(t, n)
		got, n = Snap(actions, nil, 60, 100)
		assert.Equal(t, actions, got)
		assert.Zero(t, n)
	})
}
