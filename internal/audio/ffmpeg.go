package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/motionscript/internal/monitoring"
)

// DefaultTimeout bounds a single extraction.
const DefaultTimeout = 120 * time.Second

// FFmpeg extracts audio by running the ffmpeg binary and reading raw PCM
// from its stdout.
type FFmpeg struct {
	Path       string
	SampleRate int
	Timeout    time.Duration

	lookPath func(string) (string, error)
}

// NewFFmpeg returns an extractor. Zero values select "ffmpeg" on PATH,
// DefaultSampleRate and DefaultTimeout.
func NewFFmpeg(path string, sampleRate int, timeout time.Duration) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FFmpeg{Path: path, SampleRate: sampleRate, Timeout: timeout, lookPath: exec.LookPath}
}

// Args returns the ffmpeg command line for path, excluding the binary.
func (f *FFmpeg) Args(path string) []string {
	return []string{
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(f.SampleRate),
		"-acodec", "pcm_s16le",
		"-f", "s16le",
		"pipe:1",
	}
}

// Extract runs ffmpeg on path. It never returns a partial waveform.
func (f *FFmpeg) Extract(ctx context.Context, path string) Result {
	bin, err := f.lookPath(f.Path)
	if err != nil {
		monitoring.Opsf("audio: ffmpeg not available at %q: %v", f.Path, err)
		return Result{Status: StatusToolMissing, Detail: err}
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, f.Args(path)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		monitoring.Opsf("audio: ffmpeg timed out after %s on %s", f.Timeout, path)
		return Result{Status: StatusTimedOut, Detail: ctx.Err()}
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		monitoring.Opsf("audio: ffmpeg failed on %s: %v: %s", path, err, msg)
		return Result{Status: StatusDecodeFailed, Detail: fmt.Errorf("%w: %s", err, msg)}
	}
	if stdout.Len() < 2 {
		return Result{Status: StatusDecodeFailed, Detail: fmt.Errorf("no audio stream in %s", path)}
	}

	samples := DecodePCM16LE(stdout.Bytes())
	monitoring.Diagf("audio: extracted %d samples at %d Hz from %s in %s",
		len(samples), f.SampleRate, path, time.Since(start).Round(time.Millisecond))
	return Result{Status: StatusOK, Samples: samples, SampleRate: f.SampleRate}
}
