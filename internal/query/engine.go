// Package query implements Q1 (image at timestamp), Q2 (diff between two
// timestamps), and Q3 (pixels by user) on top of a tilestore.Tile: locate
// the nearest preceding keyframe, bound the replay window, apply
// placements in order, return a pixel buffer.
package query

import (
	"math"
	"sort"

	"github.com/canvasdb/placeviewer/internal/apperr"
	"github.com/canvasdb/placeviewer/internal/record"
	"github.com/canvasdb/placeviewer/internal/tilestore"
)

// Frame is a size*size buffer of packed (uid<<8)|(color+1) cells. Call
// Release when done with it so the backing array can be reused.
type Frame struct {
	Size  int
	Cells []uint32
}

// Release returns the frame's backing buffer to the pool. The Frame must
// not be used afterward.
func (f Frame) Release() {
	putCells(f.Size, f.Cells)
}

// newBlankFrame returns a Frame seeded with record.BlankCell everywhere,
// matching the semantics of a keyframe-less tile or keyframe index 0.
func newBlankFrame(size int) Frame {
	cells := getCells(size)
	for i := range cells {
		cells[i] = record.BlankCell
	}
	return Frame{Size: size, Cells: cells}
}

// apply replays placements at indices [lo, hi] (inclusive) from t onto
// cells, in order, so later placements overwrite earlier ones at the same
// pixel. Reads go straight through the tile's zero-copy mmap view.
func apply(t *tilestore.Tile, cells []uint32, size int, lo, hi int) {
	for i := lo; i <= hi; i++ {
		p, err := t.PlacementAt(i)
		if err != nil {
			return
		}
		cells[int(p.X)+int(p.Y)*size] = record.EncodeCell(p.UID, p.Color)
	}
}

// ImageAtTimestamp answers Q1: the image at absolute wall-clock timestamp.
func ImageAtTimestamp(t *tilestore.Tile, timestamp uint64) (Frame, error) {
	size := int(t.Size)
	count := int(t.Count)

	if timestamp < t.Start {
		return Frame{}, apperr.NotFound("timestamp %d before tile start %d", timestamp, t.Start)
	}
	if count == 0 {
		return Frame{}, apperr.NotFound("tile has no placements")
	}

	rel := timestamp - t.Start
	var ts uint32
	if rel > math.MaxUint32 {
		last, err := t.PlacementAt(count - 1)
		if err != nil {
			return Frame{}, apperr.NotFound("tile has no placements")
		}
		ts = last.TS
	} else {
		ts = uint32(rel)
	}

	// Lower bound: smallest idx with placements[idx].ts >= ts.
	idx := sort.Search(count, func(i int) bool {
		p, err := t.PlacementAt(i)
		if err != nil {
			return true
		}
		return p.TS >= ts
	})
	if idx >= count {
		return Frame{}, apperr.NotFound("timestamp %d beyond last placement", timestamp)
	}

	var (
		startOffset uint32
		frame       Frame
	)
	if off, cells, ok := t.Frame(uint32(idx) / maxu32(t.FrameInterval, 1)); ok {
		startOffset = off
		frame = Frame{Size: size, Cells: cells}
	} else {
		frame = newBlankFrame(size)
	}

	apply(t, frame.Cells, size, int(startOffset), idx)
	return frame, nil
}

func maxu32(v, min uint32) uint32 {
	if v == 0 {
		return min
	}
	return v
}

// DiffForTimestamps answers Q2: the pixel-level difference between the
// images at t1 and t2. Output cell = 0 where equal, else the value from t2.
func DiffForTimestamps(t *tilestore.Tile, t1, t2 uint64) (Frame, error) {
	img1, err := ImageAtTimestamp(t, t1)
	if err != nil {
		return Frame{}, err
	}
	defer img1.Release()

	img2, err := ImageAtTimestamp(t, t2)
	if err != nil {
		return Frame{}, err
	}

	out := getCells(img2.Size)
	for i, b := range img2.Cells {
		if img1.Cells[i] != b {
			out[i] = b
		}
	}
	img2.Release()
	return Frame{Size: img2.Size, Cells: out}, nil
}

// MaskUser applies the uid-rem per-cell mask to a Q1 result without
// re-running the query (spec.md §4.5 rationale / §6 uid-rem route):
// out[i] = cell if (cell>>8) == uid else 0. frame is released.
func MaskUser(frame Frame, uid uint32) Frame {
	out := getCells(frame.Size)
	for i, c := range frame.Cells {
		if c>>8 == uid {
			out[i] = c
		}
	}
	frame.Release()
	return Frame{Size: frame.Size, Cells: out}
}

// ImageForUser answers Q3: the set of pixels placed by user_id, last
// placement wins, transparent (0) elsewhere.
func ImageForUser(t *tilestore.Tile, userID uint32) (Frame, error) {
	if userID >= t.UIDCount {
		return Frame{}, apperr.NotFound("user %d >= uid_count %d", userID, t.UIDCount)
	}

	size := int(t.Size)
	cells := getCells(size) // already zeroed: transparent background
	count := int(t.Count)
	for i := 0; i < count; i++ {
		p, err := t.PlacementAt(i)
		if err != nil {
			break
		}
		if p.UID == userID {
			cells[int(p.X)+int(p.Y)*size] = record.EncodeCell(p.UID, p.Color)
		}
	}
	return Frame{Size: size, Cells: cells}, nil
}
