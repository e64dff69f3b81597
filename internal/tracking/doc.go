// Package tracking acquires 6-DOF controller samples and turns them into
// calibrated 0-100 axis positions on a fixed-rate poll loop.
//
// A Source yields raw samples (metres and degrees). The Controller polls it
// at PollRate, runs each axis through a Kalman pre-filter, the stabilize
// pre-map chain, axis locks, calibration mapping and the post-map chain,
// then publishes the newest ControllerState to a mutex-guarded slot that
// readers copy from. Filter state is owned by the poll loop; configuration
// changes from other goroutines take the same short pipeline lock.
//
// Callbacks registered with OnState and OnButton run synchronously on the
// poll goroutine. They must return quickly. A panicking callback is
// recovered, counted and logged; it never stops the loop.
package tracking
