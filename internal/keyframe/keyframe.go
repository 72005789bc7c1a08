// Package keyframe builds the periodic-snapshot companion files for
// placement logs (spec.md §4.3): a blank seed frame followed by one
// snapshot every interval placements, so query time is bounded to a replay
// of at most interval-1 records plus one O(size^2) frame.
package keyframe

import (
	"bufio"
	"context"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/canvasdb/placeviewer/internal/apperr"
	"github.com/canvasdb/placeviewer/internal/progress"
	"github.com/canvasdb/placeviewer/internal/record"
	"github.com/canvasdb/placeviewer/internal/tilename"
	"github.com/canvasdb/placeviewer/internal/tilestore"
)

// Build builds one keyframe file per entry in logPaths, in parallel, each
// tile's build atomic: the frame file either lands in full or not at all.
// concurrency is the caller's requested fan-out limit; 0 auto-sizes it from
// available RAM via sysram.ConcurrencyHint.
func Build(ctx context.Context, logPaths []string, interval uint32, concurrency int) error {
	if interval == 0 {
		return apperr.ConfigInvalid("keyframe interval must be > 0")
	}

	bar := progress.New("keyframe", int64(len(logPaths)))
	defer bar.Finish()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency(concurrency))

	for _, logPath := range logPaths {
		logPath := logPath
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			defer bar.Increment()
			return buildOne(logPath, interval)
		})
	}
	return g.Wait()
}

// framePathFor derives "{dir}/{prefix}_frame_{x}_{y}.bin" from a
// "{dir}/{prefix}_log_{x}_{y}.bin" path.
func framePathFor(logPath string) (string, bool) {
	dir := filepath.Dir(logPath)
	prefix, x, y, ok := tilename.ParseLogName(filepath.Base(logPath))
	if !ok {
		return "", false
	}
	return filepath.Join(dir, tilename.FrameName(prefix, x, y)), true
}

func buildOne(logPath string, interval uint32) error {
	framePath, ok := framePathFor(logPath)
	if !ok {
		return apperr.ConfigInvalid("%q does not match the {prefix}_log_{x}_{y}.bin naming convention", logPath)
	}

	tile, err := tilestore.Load(logPath)
	if err != nil {
		return err
	}
	defer tile.Close()

	size := int(tile.Size)
	count := int(tile.Count)
	frameCount := uint32(count)/interval + 1

	tmpPath := framePath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return apperr.IO("creating "+tmpPath, err)
	}
	// Atomic-per-tile: on any error below, drop the partial temp file
	// rather than leave a half-written frame file in place.
	ok2 := false
	defer func() {
		f.Close()
		if !ok2 {
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(f)
	h := record.KeyframeHeader{
		Version:  record.KeyframeVersion,
		Size:     tile.Size,
		StartX:   tile.StartX,
		StartY:   tile.StartY,
		Interval: interval,
		Count:    frameCount,
	}
	if err := record.WriteKeyframeHeader(w, h); err != nil {
		return err
	}

	cells := make([]uint32, size*size)
	for i := range cells {
		cells[i] = record.BlankCell
	}
	if err := writeFrame(w, cells); err != nil {
		return err
	}
	framesWritten := uint32(1)

	nextFrameAt := int(interval)
	for idx := 0; idx < count; idx++ {
		p, err := tile.PlacementAt(idx)
		if err != nil {
			return err
		}
		cells[int(p.X)+int(p.Y)*size] = record.EncodeCell(p.UID, p.Color)

		if idx+1 == nextFrameAt && framesWritten < frameCount {
			if err := writeFrame(w, cells); err != nil {
				return err
			}
			framesWritten++
			nextFrameAt += int(interval)
		}
	}
	for framesWritten < frameCount {
		if err := writeFrame(w, cells); err != nil {
			return err
		}
		framesWritten++
	}

	if err := w.Flush(); err != nil {
		return apperr.IO("flushing "+tmpPath, err)
	}
	if err := f.Close(); err != nil {
		return apperr.IO("closing "+tmpPath, err)
	}
	if err := os.Rename(tmpPath, framePath); err != nil {
		return apperr.IO("renaming "+tmpPath+" to "+framePath, err)
	}
	ok2 = true
	return nil
}

func writeFrame(w *bufio.Writer, cells []uint32) error {
	var buf [4]byte
	for _, c := range cells {
		buf[0] = byte(c)
		buf[1] = byte(c >> 8)
		buf[2] = byte(c >> 16)
		buf[3] = byte(c >> 24)
		if _, err := w.Write(buf[:]); err != nil {
			return apperr.IO("writing frame cell", err)
		}
	}
	return nil
}
