package record

import (
	"encoding/binary"
	"io"
)

// Version magic constants for the two header kinds (spec.md §3).
const (
	PlacementVersion uint16 = 0x4200
	KeyframeVersion  uint16 = 0x6900
)

// PlacementHeaderSize is the fixed on-disk size of a PlacementHeader.
const PlacementHeaderSize = 2 + 2 + 2 + 2 + 8 + 4 + 4 // 24 bytes

// PlacementHeader is the first record of every placement-log file.
type PlacementHeader struct {
	Version  uint16 // must equal PlacementVersion
	Size     uint16 // tile edge
	StartX   uint16 // tile origin, canvas x
	StartY   uint16 // tile origin, canvas y
	Start    uint64 // absolute epoch-seconds anchor
	Count    uint32 // number of Placement records following
	UIDCount uint32 // max observed uid + 1
}

// PutPlacementHeader encodes h into buf[0:PlacementHeaderSize].
func PutPlacementHeader(buf []byte, h PlacementHeader) {
	binary.LittleEndian.PutUint16(buf[0:2], h.Version)
	binary.LittleEndian.PutUint16(buf[2:4], h.Size)
	binary.LittleEndian.PutUint16(buf[4:6], h.StartX)
	binary.LittleEndian.PutUint16(buf[6:8], h.StartY)
	binary.LittleEndian.PutUint64(buf[8:16], h.Start)
	binary.LittleEndian.PutUint32(buf[16:20], h.Count)
	binary.LittleEndian.PutUint32(buf[20:24], h.UIDCount)
}

// PlacementHeaderAt decodes a PlacementHeader from buf[0:PlacementHeaderSize].
func PlacementHeaderAt(buf []byte) PlacementHeader {
	return PlacementHeader{
		Version:  binary.LittleEndian.Uint16(buf[0:2]),
		Size:     binary.LittleEndian.Uint16(buf[2:4]),
		StartX:   binary.LittleEndian.Uint16(buf[4:6]),
		StartY:   binary.LittleEndian.Uint16(buf[6:8]),
		Start:    binary.LittleEndian.Uint64(buf[8:16]),
		Count:    binary.LittleEndian.Uint32(buf[16:20]),
		UIDCount: binary.LittleEndian.Uint32(buf[20:24]),
	}
}

// WritePlacementHeader writes h to w in the packed on-disk layout.
func WritePlacementHeader(w io.Writer, h PlacementHeader) error {
	var buf [PlacementHeaderSize]byte
	PutPlacementHeader(buf[:], h)
	if _, err := w.Write(buf[:]); err != nil {
		return errIO("writing placement header", err)
	}
	return nil
}

// ReadPlacementHeader reads and validates a PlacementHeader from buf.
// wantSize, when non-zero, is the caller-declared tile edge; a mismatch is
// a KindSizeMismatch error.
func ReadPlacementHeader(buf []byte, wantSize uint16) (PlacementHeader, error) {
	if len(buf) < PlacementHeaderSize {
		return PlacementHeader{}, errShortRead(PlacementHeaderSize, len(buf))
	}
	h := PlacementHeaderAt(buf)
	if h.Version != PlacementVersion {
		return PlacementHeader{}, errVersion(PlacementVersion, h.Version)
	}
	if wantSize != 0 && h.Size != wantSize {
		return PlacementHeader{}, errSizeMismatch(wantSize, h.Size)
	}
	return h, nil
}

// KeyframeHeaderSize is the fixed on-disk size of a KeyframeHeader.
const KeyframeHeaderSize = 2 + 2 + 2 + 2 + 4 + 4 // 16 bytes

// KeyframeHeader is the first record of every keyframe file.
type KeyframeHeader struct {
	Version  uint16 // must equal KeyframeVersion
	Size     uint16 // tile edge
	StartX   uint16 // tile origin, canvas x
	StartY   uint16 // tile origin, canvas y
	Interval uint32 // placements per keyframe
	Count    uint32 // number of snapshot frames
}

// PutKeyframeHeader encodes h into buf[0:KeyframeHeaderSize].
func PutKeyframeHeader(buf []byte, h KeyframeHeader) {
	binary.LittleEndian.PutUint16(buf[0:2], h.Version)
	binary.LittleEndian.PutUint16(buf[2:4], h.Size)
	binary.LittleEndian.PutUint16(buf[4:6], h.StartX)
	binary.LittleEndian.PutUint16(buf[6:8], h.StartY)
	binary.LittleEndian.PutUint32(buf[8:12], h.Interval)
	binary.LittleEndian.PutUint32(buf[12:16], h.Count)
}

// KeyframeHeaderAt decodes a KeyframeHeader from buf[0:KeyframeHeaderSize].
func KeyframeHeaderAt(buf []byte) KeyframeHeader {
	return KeyframeHeader{
		Version:  binary.LittleEndian.Uint16(buf[0:2]),
		Size:     binary.LittleEndian.Uint16(buf[2:4]),
		StartX:   binary.LittleEndian.Uint16(buf[4:6]),
		StartY:   binary.LittleEndian.Uint16(buf[6:8]),
		Interval: binary.LittleEndian.Uint32(buf[8:12]),
		Count:    binary.LittleEndian.Uint32(buf[12:16]),
	}
}

// WriteKeyframeHeader writes h to w in the packed on-disk layout.
func WriteKeyframeHeader(w io.Writer, h KeyframeHeader) error {
	var buf [KeyframeHeaderSize]byte
	PutKeyframeHeader(buf[:], h)
	if _, err := w.Write(buf[:]); err != nil {
		return errIO("writing keyframe header", err)
	}
	return nil
}

// ReadKeyframeHeader reads and validates a KeyframeHeader from buf.
func ReadKeyframeHeader(buf []byte, wantSize uint16) (KeyframeHeader, error) {
	if len(buf) < KeyframeHeaderSize {
		return KeyframeHeader{}, errShortRead(KeyframeHeaderSize, len(buf))
	}
	h := KeyframeHeaderAt(buf)
	if h.Version != KeyframeVersion {
		return KeyframeHeader{}, errVersion(KeyframeVersion, h.Version)
	}
	if wantSize != 0 && h.Size != wantSize {
		return KeyframeHeader{}, errSizeMismatch(wantSize, h.Size)
	}
	return h, nil
}

// CellAt decodes the u32 LE frame cell at pixel index idx within buf, where
// buf starts at the first cell of a frame. Cell layout: (uid << 8) | (color + 1).
func CellAt(buf []byte, idx int) uint32 {
	return binary.LittleEndian.Uint32(buf[idx*4 : idx*4+4])
}

// PutCell encodes a frame cell value at pixel index idx within buf.
func PutCell(buf []byte, idx int, v uint32) {
	binary.LittleEndian.PutUint32(buf[idx*4:idx*4+4], v)
}

// EncodeCell packs a uid/color pair into a frame cell value.
func EncodeCell(uid uint32, color uint8) uint32 {
	return (uid << 8) | uint32(color+1)
}

// BlankCell is the seed value of a blank frame: uid 0, color+1 = 1.
const BlankCell uint32 = 1
