// Package tilename implements the on-disk naming contract shared by the
// ingestor, the keyframe builder, and the dataset registry (spec.md §6):
// "{prefix}_log_{tile_x}_{tile_y}.bin" and "{prefix}_frame_{tile_x}_{tile_y}.bin".
package tilename

import (
	"fmt"
	"regexp"
)

// LogName returns the placement-log filename for tile (x, y) under prefix.
func LogName(prefix string, x, y int) string {
	return fmt.Sprintf("%s_log_%d_%d.bin", prefix, x, y)
}

// FrameName returns the keyframe filename for tile (x, y) under prefix.
func FrameName(prefix string, x, y int) string {
	return fmt.Sprintf("%s_frame_%d_%d.bin", prefix, x, y)
}

// logNameRe matches a placement-log basename, same pattern as the original
// lecafard/placeviewer keyframe command's REGEX_LOG.
var logNameRe = regexp.MustCompile(`^([A-Za-z0-9-]+)_log_([0-9]+)_([0-9]+)\.bin$`)

// frameNameRe matches a keyframe-file basename.
var frameNameRe = regexp.MustCompile(`^([A-Za-z0-9-]+)_frame_([0-9]+)_([0-9]+)\.bin$`)

// ParseLogName extracts the prefix and tile coordinates from a placement-log
// basename (not a full path). ok is false if name doesn't match the
// convention.
func ParseLogName(name string) (prefix string, x, y int, ok bool) {
	return parseTileName(logNameRe, name)
}

// ParseFrameName extracts the prefix and tile coordinates from a keyframe
// basename (not a full path).
func ParseFrameName(name string) (prefix string, x, y int, ok bool) {
	return parseTileName(frameNameRe, name)
}

func parseTileName(re *regexp.Regexp, name string) (prefix string, x, y int, ok bool) {
	m := re.FindStringSubmatch(name)
	if m == nil {
		return "", 0, 0, false
	}
	var xi, yi int
	if _, err := fmt.Sscanf(m[2], "%d", &xi); err != nil {
		return "", 0, 0, false
	}
	if _, err := fmt.Sscanf(m[3], "%d", &yi); err != nil {
		return "", 0, 0, false
	}
	return m[1], xi, yi, true
}
