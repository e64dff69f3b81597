// Package beat derives rhythmic structure from an audio waveform and uses it
// to retime recorded motion.
//
// The pipeline is:
//
//	waveform -> spectral-flux onset envelope -> adaptive peak picking (onsets)
//	         -> autocorrelation tempo with octave correction
//	         -> inter-onset-interval cross-check
//	         -> phase-searched beat grid
//
// Analysis is a batch computation that takes seconds on a full-length video;
// callers run it off the interactive path and observe progress through a
// ProgressFunc, which always receives non-decreasing values in [0, 1].
//
// Audio comes from an injected audio.Source and spectra from an injected
// Spectrum, so a host without ffmpeg degrades to ErrAudioUnavailable rather
// than failing to build or crashing.
package beat
