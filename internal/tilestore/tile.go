// Package tilestore opens placement logs and their companion keyframe
// files as read-only memory maps and exposes zero-copy views over them.
// A Tile is immutable after Load/LoadWithFrames.
package tilestore

import (
	"github.com/canvasdb/placeviewer/internal/apperr"
	"github.com/canvasdb/placeviewer/internal/mmapfile"
	"github.com/canvasdb/placeviewer/internal/record"
)

// Tile is an in-memory handle onto one tile's placement log and, if
// present, its keyframe companion. Both files are memory-mapped for the
// lifetime of the Tile.
type Tile struct {
	Start    uint64 // absolute epoch-seconds anchor
	Count    uint32 // number of placement records
	UIDCount uint32 // max observed uid + 1
	StartX   uint16 // tile origin, canvas x
	StartY   uint16 // tile origin, canvas y
	Size     uint16 // tile edge

	FrameCount    uint32 // 0 if no keyframe file
	FrameInterval uint32 // 0 if no keyframe file

	placements *mmapfile.File
	frames     *mmapfile.File // nil if no keyframe file
}

// Load opens a placement log only, with no keyframe companion.
func Load(placementPath string) (*Tile, error) {
	return load(placementPath, "")
}

// LoadWithFrames opens a placement log and its keyframe companion.
func LoadWithFrames(placementPath, framePath string) (*Tile, error) {
	return load(placementPath, framePath)
}

func load(placementPath, framePath string) (*Tile, error) {
	pm, err := mmapfile.Open(placementPath)
	if err != nil {
		return nil, apperr.IO("opening placement log "+placementPath, err)
	}
	ph, err := record.ReadPlacementHeader(pm.Data, 0)
	if err != nil {
		pm.Close()
		return nil, err
	}

	t := &Tile{
		Start:      ph.Start,
		Count:      ph.Count,
		UIDCount:   ph.UIDCount,
		StartX:     ph.StartX,
		StartY:     ph.StartY,
		Size:       ph.Size,
		placements: pm,
	}

	if framePath == "" {
		return t, nil
	}

	fm, err := mmapfile.Open(framePath)
	if err != nil {
		pm.Close()
		return nil, apperr.IO("opening keyframe file "+framePath, err)
	}
	kh, err := record.ReadKeyframeHeader(fm.Data, ph.Size)
	if err != nil {
		pm.Close()
		fm.Close()
		return nil, err
	}
	if kh.StartX != ph.StartX || kh.StartY != ph.StartY {
		pm.Close()
		fm.Close()
		return nil, apperr.HeaderMismatch(
			"placement/keyframe origin mismatch: placements=(%d,%d) keyframe=(%d,%d)",
			ph.StartX, ph.StartY, kh.StartX, kh.StartY)
	}

	t.frames = fm
	t.FrameCount = kh.Count
	t.FrameInterval = kh.Interval
	return t, nil
}

// Close releases both memory mappings. Safe to call once.
func (t *Tile) Close() error {
	var err error
	if t.placements != nil {
		if e := t.placements.Close(); e != nil {
			err = e
		}
	}
	if t.frames != nil {
		if e := t.frames.Close(); e != nil {
			err = e
		}
	}
	return err
}

// PlacementAt returns the single placement at index idx without decoding
// the whole slice.
func (t *Tile) PlacementAt(idx int) (record.Placement, error) {
	off := record.PlacementHeaderSize + idx*record.PlacementSize
	return record.ReadRecordAt(t.placements.Data, off)
}

// Frame returns the decoded snapshot at keyframe index idx and the
// placement offset it represents (idx*interval). idx is clamped to
// [0, FrameCount-1]. ok is false if there is no keyframe file.
func (t *Tile) Frame(idx uint32) (startOffset uint32, cells []uint32, ok bool) {
	if t.frames == nil || t.FrameCount == 0 {
		return 0, nil, false
	}
	if idx >= t.FrameCount {
		idx = t.FrameCount - 1
	}
	n := int(t.Size) * int(t.Size)
	off := record.KeyframeHeaderSize + int(idx)*n*4
	buf := t.frames.Data
	if off+n*4 > len(buf) {
		return 0, nil, false
	}
	cells = make([]uint32, n)
	for i := 0; i < n; i++ {
		cells[i] = record.CellAt(buf[off:], i)
	}
	return idx * t.FrameInterval, cells, true
}
