package beat

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Spectrum computes the magnitude spectrum of a real frame.
type Spectrum interface {
	// Magnitudes writes len(frame)/2+1 bin magnitudes into dst, growing it
	// if needed, and returns it.
	Magnitudes(dst, frame []float64) []float64
}

// SpectrumFactory builds a Spectrum for a fixed frame size.
type SpectrumFactory func(size int) Spectrum

type gonumSpectrum struct {
	fft   *fourier.FFT
	coeff []complex128
}

// NewSpectrum returns a Spectrum backed by gonum's real FFT.
func NewSpectrum(size int) Spectrum {
	return &gonumSpectrum{
		fft:   fourier.NewFFT(size),
		coeff: make([]complex128, size/2+1),
	}
}

func (g *gonumSpectrum) Magnitudes(dst, frame []float64) []float64 {
	g.coeff = g.fft.Coefficients(g.coeff, frame)
	if cap(dst) < len(g.coeff) {
		dst = make([]float64, len(g.coeff))
	}
	dst = dst[:len(g.coeff)]
	for i, c := range g.coeff {
		dst[i] = cmplx.Abs(c)
	}
	return dst
}

// SpectralFlux returns the onset envelope of samples: one value per hop,
// the summed positive change in spectral magnitude from the previous frame,
// normalised so the largest value is 1. The signal is zero padded by half a
// window on each side so frame i is centred on sample i*hop.
func SpectralFlux(samples []float64, win, hop int, spec Spectrum) []float64 {
	if len(samples) == 0 || win <= 0 || hop <= 0 {
		return nil
	}
	padded := make([]float64, len(samples)+win)
	copy(padded[win/2:], samples)
	nFrames := (len(padded)-win)/hop + 1

	hann := make([]float64, win)
	for i := range hann {
		hann[i] = 1
	}
	hann = window.Hann(hann)

	frame := make([]float64, win)
	var prev, cur []float64
	flux := make([]float64, nFrames)
	for f := 0; f < nFrames; f++ {
		off := f * hop
		for i := range frame {
			frame[i] = padded[off+i] * hann[i]
		}
		cur = spec.Magnitudes(cur, frame)
		if f > 0 {
			sum := 0.0
			for i, m := range cur {
				if d := m - prev[i]; d > 0 {
					sum += d
				}
			}
			flux[f] = sum
		}
		prev, cur = cur, prev
	}

	if peak := floats.Max(flux); peak > 0 {
		floats.Scale(1/peak, flux)
	}
	return flux
}

// PickPeaks returns the frame indices of onsets in env. A frame qualifies
// when it exceeds an adaptive threshold (local mean plus ratio times the
// local standard deviation, floored at 0.05), is no smaller than either
// neighbour, and lies at least minDistance frames after the previous peak.
func PickPeaks(env []float64, ratio float64, minDistance int) []int {
	n := len(env)
	if n < 3 {
		return nil
	}
	w := max(16, n/50)
	var peaks []int
	for i := 1; i < n-1; i++ {
		v := env[i]
		if v < env[i-1] || v < env[i+1] {
			continue
		}
		if len(peaks) > 0 && i-peaks[len(peaks)-1] < minDistance {
			continue
		}
		mean, std := stat.PopMeanStdDev(env[max(0, i-w):min(n, i+w)], nil)
		if v > mean+ratio*max(std, 0.05) {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// FramesToMs converts envelope frame indices to millisecond timestamps.
func FramesToMs(frames []int, hop, sampleRate int) []int {
	out := make([]int, len(frames))
	for i, f := range frames {
		out[i] = int(float64(f) * float64(hop) / float64(sampleRate) * 1000)
	}
	return out
}
