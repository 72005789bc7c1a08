package query

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/canvasdb/placeviewer/internal/record"
	"github.com/canvasdb/placeviewer/internal/tilestore"
)

// writeLog writes a minimal placement log file with the given placements
// and returns its path. start is tile.start (epoch seconds).
func writeLog(t *testing.T, dir string, size uint16, start uint64, placements []record.Placement) string {
	t.Helper()
	path := filepath.Join(dir, "test_log_0_0.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var uidCount uint32
	for _, p := range placements {
		if p.UID+1 > uidCount {
			uidCount = p.UID + 1
		}
	}

	h := record.PlacementHeader{
		Version:  record.PlacementVersion,
		Size:     size,
		StartX:   0,
		StartY:   0,
		Start:    start,
		Count:    uint32(len(placements)),
		UIDCount: uidCount,
	}
	if err := record.WritePlacementHeader(f, h); err != nil {
		t.Fatal(err)
	}
	for _, p := range placements {
		if err := record.WritePlacement(f, p); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

// Scenario 1 from spec.md §8: canvas 4x4, tile edge 2, two placements.
func TestImageAtTimestamp_Scenario1(t *testing.T) {
	dir := t.TempDir()
	start := uint64(1000)
	path := writeLog(t, dir, 2, start, []record.Placement{
		{TS: 0, UID: 0, X: 0, Y: 0, Color: 3, IsBlk: 0},
		{TS: 5, UID: 1, X: 1, Y: 1, Color: 7, IsBlk: 0},
	})
	tile, err := tilestore.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer tile.Close()

	frame, err := ImageAtTimestamp(tile, start+10)
	if err != nil {
		t.Fatalf("ImageAtTimestamp: %v", err)
	}
	defer frame.Release()

	if got, want := frame.Cells[0], uint32(4); got != want {
		t.Errorf("cell(0,0) = %d, want %d", got, want)
	}
	for i := 1; i < 4; i++ {
		if i == 3 {
			continue // (1,1) set by second placement
		}
		if got := frame.Cells[i]; got != record.BlankCell {
			t.Errorf("cell[%d] = %d, want blank %d", i, got, record.BlankCell)
		}
	}
	want := (uint32(1) << 8) | 8
	if got := frame.Cells[3]; got != want {
		t.Errorf("cell(1,1) = %d, want %d", got, want)
	}
}

// Scenario 2 from spec.md §8: timestamp before tile.start is NotFound.
func TestImageAtTimestamp_BeforeStart(t *testing.T) {
	dir := t.TempDir()
	start := uint64(1000)
	path := writeLog(t, dir, 2, start, []record.Placement{
		{TS: 0, UID: 0, X: 0, Y: 0, Color: 3},
	})
	tile, err := tilestore.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer tile.Close()

	_, err = ImageAtTimestamp(tile, start-1)
	if err == nil {
		t.Fatal("expected NotFound error")
	}
}

func TestImageForUser_SinglePixel(t *testing.T) {
	dir := t.TempDir()
	start := uint64(0)
	path := writeLog(t, dir, 4, start, []record.Placement{
		{TS: 0, UID: 0, X: 0, Y: 0, Color: 1},
		{TS: 1, UID: 1, X: 2, Y: 3, Color: 9},
	})
	tile, err := tilestore.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer tile.Close()

	frame, err := ImageForUser(tile, 1)
	if err != nil {
		t.Fatalf("ImageForUser: %v", err)
	}
	defer frame.Release()

	nonzero := 0
	want := record.EncodeCell(1, 9)
	for i, c := range frame.Cells {
		if c != 0 {
			nonzero++
			if i != 2+3*4 {
				t.Errorf("non-zero cell at unexpected index %d", i)
			}
			if c != want {
				t.Errorf("cell value = %d, want %d", c, want)
			}
		}
	}
	if nonzero != 1 {
		t.Errorf("got %d non-zero cells, want 1", nonzero)
	}
}

func TestImageForUser_UnknownUser(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, 2, 0, []record.Placement{
		{TS: 0, UID: 0, X: 0, Y: 0, Color: 1},
	})
	tile, err := tilestore.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer tile.Close()

	if _, err := ImageForUser(tile, 5); err == nil {
		t.Fatal("expected NotFound for user >= uid_count")
	}
}

func TestDiffForTimestamps(t *testing.T) {
	dir := t.TempDir()
	start := uint64(0)
	path := writeLog(t, dir, 2, start, []record.Placement{
		{TS: 0, UID: 0, X: 0, Y: 0, Color: 1},
		{TS: 10, UID: 1, X: 1, Y: 0, Color: 2},
	})
	tile, err := tilestore.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer tile.Close()

	diff, err := DiffForTimestamps(tile, start+1, start+20)
	if err != nil {
		t.Fatalf("DiffForTimestamps: %v", err)
	}
	defer diff.Release()

	if diff.Cells[0] != 0 {
		t.Errorf("cell(0,0) changed, want 0 (unchanged between t1 and t2)")
	}
	if diff.Cells[1] == 0 {
		t.Errorf("cell(1,0) unchanged, want non-zero diff")
	}
}
