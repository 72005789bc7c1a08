package keyframe

import "github.com/canvasdb/placeviewer/internal/sysram"

// maxConcurrentTilesCeiling bounds how many tiles are ever built at once
// regardless of available RAM or the caller's request; the build is
// I/O-bound, so fan-out well beyond GOMAXPROCS can still help, but
// unbounded fan-out just exhausts file descriptors on wide canvases.
const maxConcurrentTilesCeiling = 32

// resolveConcurrency turns the CLI's --concurrency value into an errgroup
// limit: 0 means "auto" and defers to sysram.ConcurrencyHint; a positive
// value is an explicit override, still capped at the ceiling.
func resolveConcurrency(requested int) int {
	if requested <= 0 {
		return sysram.ConcurrencyHint(maxConcurrentTilesCeiling)
	}
	if requested > maxConcurrentTilesCeiling {
		return maxConcurrentTilesCeiling
	}
	return requested
}
