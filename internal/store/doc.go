// Package store persists projects, beat analyses, calibrations and
// stabilization settings in a SQLite database.
//
// Structured values are stored as JSON documents built from the plain-map
// forms their packages already expose (beat.Data.ToMap, calibration
// Set.ToMap, stabilize Manager.ConfigsToMap), so the schema does not
// change when a config gains a field. The schema itself is managed by
// embedded golang-migrate migrations applied on Open.
package store
