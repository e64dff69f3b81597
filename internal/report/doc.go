// Package report renders beat analyses and authored tracks for review:
// a PNG of the onset envelope with detected onsets and beats, and an
// interactive HTML chart of a track laid over its beat grid.
package report
