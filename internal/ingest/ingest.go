// Package ingest streams a CSV of placements and shards the output into one
// packed placement-log file per tile (spec.md §4.2). Canvas/tile dimensions
// must be evenly divisible; malformed CSV rows are skipped (and logged when
// verbose is set), but I/O errors on output are fatal to the run.
package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/canvasdb/placeviewer/internal/apperr"
	"github.com/canvasdb/placeviewer/internal/progress"
	"github.com/canvasdb/placeviewer/internal/record"
	"github.com/canvasdb/placeviewer/internal/tilename"
)

// csvBufferSize matches the 4MB read buffer the original Rust ingestor
// configured for its CSV reader.
const csvBufferSize = 4 << 20

// Stats summarizes one ingestion run.
type Stats struct {
	RowsProcessed int64
	RowsSkipped   int64
	TilesWritten  int
}

// tileWriter accumulates one tile's placement log on disk while the header
// is backpatched at the end.
type tileWriter struct {
	file     *os.File
	buf      *bufio.Writer
	tileX    uint16
	tileY    uint16
	size     uint16
	count    uint32
	uidCount uint32
}

// Run ingests csvPath into prefix_log_{x}_{y}.bin files under prefix,
// sharded by a sizeTile x sizeTile grid over a sizeX x sizeY canvas.
func Run(csvPath, prefix string, sizeX, sizeY, sizeTile uint16, verbose bool) (Stats, error) {
	if sizeTile == 0 || sizeX%sizeTile != 0 || sizeY%sizeTile != 0 {
		return Stats{}, apperr.ConfigInvalid(
			"canvas %dx%d is not evenly divisible by tile edge %d", sizeX, sizeY, sizeTile)
	}
	tilesX := int(sizeX / sizeTile)
	tilesY := int(sizeY / sizeTile)

	writers, err := openTileWriters(prefix, tilesX, tilesY, sizeTile)
	if err != nil {
		return Stats{}, err
	}
	defer func() {
		for _, w := range writers {
			w.file.Close()
		}
	}()

	f, err := os.Open(csvPath)
	if err != nil {
		return Stats{}, apperr.IO("opening csv "+csvPath, err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReaderSize(f, csvBufferSize))
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	// First row is the column header; discard it.
	if _, err := r.Read(); err != nil && err != io.EOF {
		return Stats{}, apperr.IO("reading csv header", err)
	}

	bar := progress.New("ingest", 0)
	defer bar.Finish()

	var (
		stats  Stats
		t0     uint64
		haveT0 bool
	)

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if verbose {
				log.Printf("ingest: skipping malformed row: %v", err)
			}
			stats.RowsSkipped++
			bar.Increment()
			continue
		}

		rec, ok := parseRow(verbose, row)
		if !ok {
			stats.RowsSkipped++
			bar.Increment()
			continue
		}

		if !haveT0 {
			t0 = rec.ts
			haveT0 = true
		}
		if rec.ts < t0 {
			if verbose {
				log.Printf("ingest: skipping out-of-order row (ts=%d before t0=%d)", rec.ts, t0)
			}
			stats.RowsSkipped++
			bar.Increment()
			continue
		}
		tsRel := uint32(rec.ts - t0)

		written := 0
		for _, px := range rec.pixels(sizeX, sizeY) {
			if px.x >= sizeX || px.y >= sizeY {
				if verbose {
					log.Printf("ingest: skipping out-of-canvas pixel (%d,%d)", px.x, px.y)
				}
				continue
			}
			tileX := px.x / sizeTile
			tileY := px.y / sizeTile
			w := writers[int(tileX)+int(tileY)*tilesX]

			p := record.Placement{
				TS:    tsRel,
				UID:   rec.uid,
				X:     px.x - tileX*sizeTile,
				Y:     px.y - tileY*sizeTile,
				Color: rec.color,
				IsBlk: px.isBlk,
			}
			if err := record.WritePlacement(w.buf, p); err != nil {
				return stats, apperr.IO(fmt.Sprintf("writing placement for tile (%d,%d)", tileX, tileY), err)
			}
			w.count++
			if rec.uid+1 > w.uidCount {
				w.uidCount = rec.uid + 1
			}
			written++
		}

		// A row none of whose pixels land on the canvas counts as skipped.
		if written == 0 {
			stats.RowsSkipped++
		} else {
			stats.RowsProcessed++
		}
		bar.Increment()
	}

	if err := finalizeTileWriters(writers, t0); err != nil {
		return stats, err
	}
	stats.TilesWritten = len(writers)
	return stats, nil
}

func openTileWriters(prefix string, tilesX, tilesY int, sizeTile uint16) ([]*tileWriter, error) {
	writers := make([]*tileWriter, 0, tilesX*tilesY)
	var placeholder [record.PlacementHeaderSize]byte
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			path := tilename.LogName(prefix, tx, ty)
			f, err := os.Create(path)
			if err != nil {
				return nil, apperr.IO("creating "+path, err)
			}
			if _, err := f.Write(placeholder[:]); err != nil {
				f.Close()
				return nil, apperr.IO("reserving header in "+path, err)
			}
			writers = append(writers, &tileWriter{
				file:  f,
				buf:   bufio.NewWriter(f),
				tileX: uint16(tx) * sizeTile,
				tileY: uint16(ty) * sizeTile,
				size:  sizeTile,
			})
		}
	}
	return writers, nil
}

func finalizeTileWriters(writers []*tileWriter, start uint64) error {
	for _, w := range writers {
		if err := w.buf.Flush(); err != nil {
			return apperr.IO("flushing "+w.file.Name(), err)
		}
		if _, err := w.file.Seek(0, io.SeekStart); err != nil {
			return apperr.IO("seeking "+w.file.Name(), err)
		}
		h := record.PlacementHeader{
			Version:  record.PlacementVersion,
			Size:     w.size,
			StartX:   w.tileX,
			StartY:   w.tileY,
			Start:    start,
			Count:    w.count,
			UIDCount: w.uidCount,
		}
		if err := record.WritePlacementHeader(w.file, h); err != nil {
			return err
		}
	}
	return nil
}

type pixelRef struct {
	x, y  uint16
	isBlk uint8
}

type parsedRow struct {
	ts      uint64
	uid     uint32
	color   uint8
	x, y    uint16
	x2, y2  uint16
	hasRect bool
}

// pixels expands a parsed row into its constituent pixels, row-major over
// the rectangle when x2/y2 are present (spec.md §4.2: "their order is
// row-major over the rectangle").
func (r parsedRow) pixels(sizeX, sizeY uint16) []pixelRef {
	if !r.hasRect {
		return []pixelRef{{x: r.x, y: r.y, isBlk: 0}}
	}
	x0, x1 := r.x, r.x2
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	y0, y1 := r.y, r.y2
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	out := make([]pixelRef, 0, (int(x1-x0)+1)*(int(y1-y0)+1))
	for y := y0; ; y++ {
		for x := x0; ; x++ {
			out = append(out, pixelRef{x: x, y: y, isBlk: 1})
			if x == x1 {
				break
			}
		}
		if y == y1 {
			break
		}
	}
	return out
}

// parseRow parses one CSV row of columns
// ts,user_id,x_coordinate,y_coordinate,x2_coordinate,y2_coordinate,color.
// The two secondary coordinates are optional (empty string). ok is false
// if the row is malformed; the failure is logged only when verbose is set
// (caller always treats the row as skipped regardless).
func parseRow(verbose bool, row []string) (parsedRow, bool) {
	if len(row) < 7 {
		if verbose {
			log.Printf("ingest: row has %d fields, want 7", len(row))
		}
		return parsedRow{}, false
	}

	ts, err := strconv.ParseUint(row[0], 10, 64)
	if err != nil {
		if verbose {
			log.Printf("ingest: bad ts %q: %v", row[0], err)
		}
		return parsedRow{}, false
	}
	uid, err := strconv.ParseUint(row[1], 10, 32)
	if err != nil {
		if verbose {
			log.Printf("ingest: bad user_id %q: %v", row[1], err)
		}
		return parsedRow{}, false
	}
	x, err := strconv.ParseUint(row[2], 10, 16)
	if err != nil {
		if verbose {
			log.Printf("ingest: bad x_coordinate %q: %v", row[2], err)
		}
		return parsedRow{}, false
	}
	y, err := strconv.ParseUint(row[3], 10, 16)
	if err != nil {
		if verbose {
			log.Printf("ingest: bad y_coordinate %q: %v", row[3], err)
		}
		return parsedRow{}, false
	}
	color, err := strconv.ParseUint(row[6], 10, 8)
	if err != nil {
		if verbose {
			log.Printf("ingest: bad color %q: %v", row[6], err)
		}
		return parsedRow{}, false
	}

	out := parsedRow{ts: ts, uid: uint32(uid), x: uint16(x), y: uint16(y), color: uint8(color)}

	if row[4] != "" && row[5] != "" {
		x2, err := strconv.ParseUint(row[4], 10, 16)
		if err != nil {
			if verbose {
				log.Printf("ingest: bad x2_coordinate %q: %v", row[4], err)
			}
			return parsedRow{}, false
		}
		y2, err := strconv.ParseUint(row[5], 10, 16)
		if err != nil {
			if verbose {
				log.Printf("ingest: bad y2_coordinate %q: %v", row[5], err)
			}
			return parsedRow{}, false
		}
		out.x2, out.y2, out.hasRect = uint16(x2), uint16(y2), true
	}

	return out, true
}
