package stabilize

// Default noise terms for the per-axis pre-filter run by the poll loop.
const (
	DefaultProcessNoise     = 0.005
	DefaultMeasurementNoise = 0.05
)

// Kalman1D is a constant-position scalar Kalman filter used to take the
// edge off sensor jitter before the stabilization chain.
type Kalman1D struct {
	ProcessNoise     float64
	MeasurementNoise float64

	estimate float64
	errCov   float64
	primed   bool
}

// NewKalman1D returns a filter with unit initial error covariance.
func NewKalman1D(processNoise, measurementNoise float64) *Kalman1D {
	return &Kalman1D{ProcessNoise: processNoise, MeasurementNoise: measurementNoise, errCov: 1}
}

// Update folds in a measurement and returns the new estimate. The first
// measurement is returned unchanged.
func (k *Kalman1D) Update(z float64) float64 {
	if !k.primed {
		k.estimate, k.primed = z, true
		return z
	}
	predErr := k.errCov + k.ProcessNoise
	gain := predErr / (predErr + k.MeasurementNoise)
	k.estimate += gain * (z - k.estimate)
	k.errCov = (1 - gain) * predErr
	return k.estimate
}

func (k *Kalman1D) Reset() {
	k.estimate, k.errCov, k.primed = 0, 1, false
}
