// Package stabilize turns noisy controller samples into steady values.
//
// Every axis owns an AxisStabilizer with two chains:
//
//	pre-map  (raw units):    spike rejection -> one-euro -> slew limit -> jerk limit
//	post-map (0-100 ints):   deadzone -> hysteresis
//
// Each stage can be switched off independently through Config; a disabled
// stage is the identity. Rotation axes are measured in degrees while
// position axes are in meters, so the raw-unit thresholds (spike, slew,
// jerk) are multiplied by RotationScale for pitch, yaw and roll. The
// post-map bands are already in output units and are never scaled.
//
// Filters keep per-stream state and are not safe for concurrent use. The
// tracking poll loop owns them.
package stabilize
