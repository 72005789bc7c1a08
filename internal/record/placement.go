// Package record implements the packed little-endian binary layouts shared
// by placement logs and keyframe files: the Placement record and the two
// header kinds, plus read/write primitives that map structured records to
// and from byte buffers without introducing padding.
package record

import (
	"encoding/binary"
	"io"
)

// PlacementSize is the fixed on-disk size of a Placement record, in bytes.
const PlacementSize = 14

// Placement is one timestamped paint event of a single pixel by one user,
// tile-local. The on-disk layout is little-endian with no padding:
//
//	ts    u32  seconds offset from tile.start
//	uid   u32  stable user identifier, 0-based dense
//	x     u16  tile-local column, 0 <= x < size
//	y     u16  tile-local row, 0 <= y < size
//	color u8   palette index, 0 <= color < palette_size
//	isblk u8   1 if expanded from a rectangle, else 0
//
// Within a log, ts is non-decreasing.
type Placement struct {
	TS    uint32
	UID   uint32
	X     uint16
	Y     uint16
	Color uint8
	IsBlk uint8
}

// PutPlacement encodes p into buf[0:PlacementSize]. buf must have at least
// PlacementSize bytes.
func PutPlacement(buf []byte, p Placement) {
	binary.LittleEndian.PutUint32(buf[0:4], p.TS)
	binary.LittleEndian.PutUint32(buf[4:8], p.UID)
	binary.LittleEndian.PutUint16(buf[8:10], p.X)
	binary.LittleEndian.PutUint16(buf[10:12], p.Y)
	buf[12] = p.Color
	buf[13] = p.IsBlk
}

// PlacementAt reads a Placement from buf[0:PlacementSize] without copying
// more than necessary. buf must have at least PlacementSize bytes; callers
// that hold a memory-mapped byte slice get a zero-copy view this way.
func PlacementAt(buf []byte) Placement {
	return Placement{
		TS:    binary.LittleEndian.Uint32(buf[0:4]),
		UID:   binary.LittleEndian.Uint32(buf[4:8]),
		X:     binary.LittleEndian.Uint16(buf[8:10]),
		Y:     binary.LittleEndian.Uint16(buf[10:12]),
		Color: buf[12],
		IsBlk: buf[13],
	}
}

// WritePlacement writes p to w in the packed on-disk layout.
func WritePlacement(w io.Writer, p Placement) error {
	var buf [PlacementSize]byte
	PutPlacement(buf[:], p)
	if _, err := w.Write(buf[:]); err != nil {
		return errIO("writing placement", err)
	}
	return nil
}

// ReadRecordAt reads the Placement at byte offset off within buf, returning
// a record.Error of KindShortRead if the range is out of bounds.
func ReadRecordAt(buf []byte, off int) (Placement, error) {
	if off < 0 || off+PlacementSize > len(buf) {
		return Placement{}, errShortRead(PlacementSize, len(buf)-off)
	}
	return PlacementAt(buf[off : off+PlacementSize]), nil
}

// Placements returns a decoded view over count consecutive Placement
// records starting at byte offset off in buf. It allocates one Placement
// per record; callers reading directly off a memory map who want a
// zero-copy view should index into buf themselves via PlacementAt.
func Placements(buf []byte, off int, count int) ([]Placement, error) {
	need := count * PlacementSize
	if off < 0 || off+need > len(buf) {
		return nil, errShortRead(need, len(buf)-off)
	}
	out := make([]Placement, count)
	for i := 0; i < count; i++ {
		out[i] = PlacementAt(buf[off+i*PlacementSize : off+(i+1)*PlacementSize])
	}
	return out, nil
}
