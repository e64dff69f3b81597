// Package audio extracts mono PCM waveforms from media files for beat
// analysis.
//
// Extraction never panics or returns a bare error: a Source reports a Result
// whose Status says whether samples are usable, so callers can degrade to
// "no beat data" without special casing tool or decode failures.
package audio

import (
	"context"
	"encoding/binary"
	"fmt"
)

// DefaultSampleRate keeps analysis cheap while leaving enough bandwidth for
// percussive onsets.
const DefaultSampleRate = 22050

// Status classifies an extraction attempt.
type Status int

const (
	StatusOK Status = iota
	StatusTimedOut
	StatusToolMissing
	StatusDecodeFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTimedOut:
		return "timed out"
	case StatusToolMissing:
		return "tool missing"
	case StatusDecodeFailed:
		return "decode failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Result is the outcome of an extraction. Samples are normalised to
// [-1, 1) and only meaningful when Status is StatusOK.
type Result struct {
	Status     Status
	Samples    []float64
	SampleRate int
	// Detail carries the underlying error or tool output for logs.
	Detail error
}

// OK reports whether the result carries a usable waveform.
func (r Result) OK() bool {
	return r.Status == StatusOK && len(r.Samples) > 0 && r.SampleRate > 0
}

// DurationMs is the waveform length in whole milliseconds.
func (r Result) DurationMs() int {
	if r.SampleRate <= 0 {
		return 0
	}
	return int(float64(len(r.Samples)) / float64(r.SampleRate) * 1000)
}

// Err converts a failed result into an error, or nil when OK.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	if r.Detail != nil {
		return fmt.Errorf("audio extraction %s: %w", r.Status, r.Detail)
	}
	return fmt.Errorf("audio extraction %s", r.Status)
}

// Source produces a mono waveform for a media file.
type Source interface {
	Extract(ctx context.Context, path string) Result
}

// DecodePCM16LE converts signed 16-bit little-endian mono PCM to floats in
// [-1, 1). A trailing odd byte is ignored.
func DecodePCM16LE(b []byte) []float64 {
	out := make([]float64, len(b)/2)
	for i := range out {
		out[i] = float64(int16(binary.LittleEndian.Uint16(b[2*i:]))) / 32768.0
	}
	return out
}

// Static serves a waveform already held in memory.
type Static struct {
	Samples    []float64
	SampleRate int
}

func (s Static) Extract(context.Context, string) Result {
	if len(s.Samples) == 0 || s.SampleRate <= 0 {
		return Result{Status: StatusDecodeFailed, Detail: fmt.Errorf("empty waveform")}
	}
	return Result{Status: StatusOK, Samples: s.Samples, SampleRate: s.SampleRate}
}

// Unavailable is the Source used when no extraction tool is configured.
type Unavailable struct{}

func (Unavailable) Extract(context.Context, string) Result {
	return Result{Status: StatusToolMissing}
}
