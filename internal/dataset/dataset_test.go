package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/canvasdb/placeviewer/internal/record"
)

func writeTileLog(t *testing.T, dir, prefix string, tx, ty int, size uint16) {
	t.Helper()
	path := filepath.Join(dir, prefix+"_log_"+itoa(tx)+"_"+itoa(ty)+".bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	h := record.PlacementHeader{
		Version: record.PlacementVersion,
		Size:    size,
		StartX:  uint16(tx) * size,
		StartY:  uint16(ty) * size,
	}
	if err := record.WritePlacementHeader(f, h); err != nil {
		t.Fatal(err)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestLoad_RowMajorOrderAndPalette(t *testing.T) {
	dir := t.TempDir()
	for ty := 0; ty < 2; ty++ {
		for tx := 0; tx < 2; tx++ {
			writeTileLog(t, dir, "city", tx, ty, 2)
		}
	}

	cfg := DatasetConfig{
		Name:     "city",
		Prefix:   "city",
		Palette:  []uint32{0x000000, 0xFF0000},
		SizeX:    4,
		SizeY:    4,
		SizeTile: 2,
	}
	ds, err := Load(dir, cfg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer ds.Close()

	if len(ds.Palette) != 3*3 {
		t.Fatalf("Palette len = %d, want 9 (3 slots x 3 bytes)", len(ds.Palette))
	}
	if ds.Palette[0] != 0xFF || ds.Palette[1] != 0xFF || ds.Palette[2] != 0xFF {
		t.Errorf("slot 0 = %v, want white", ds.Palette[0:3])
	}
	if ds.TrnsPalette[0] != 0 || ds.TrnsPalette[1] != 255 {
		t.Errorf("TrnsPalette = %v, want [0, 255, 255]", ds.TrnsPalette)
	}

	tile := ds.GetTile(1, 1)
	if tile == nil {
		t.Fatal("GetTile(1,1) = nil")
	}
	if tile.StartX != 2 || tile.StartY != 2 {
		t.Errorf("tile(1,1) origin = (%d,%d), want (2,2)", tile.StartX, tile.StartY)
	}
	if ds.GetTile(2, 0) != nil {
		t.Error("GetTile(2,0) should be out of range")
	}
}

func TestLoadRegistry_RejectsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeTileLog(t, dir, "a", 0, 0, 2)

	cfg := Config{Datasets: []DatasetConfig{
		{Name: "dup", Prefix: "a", SizeX: 2, SizeY: 2, SizeTile: 2},
		{Name: "dup", Prefix: "a", SizeX: 2, SizeY: 2, SizeTile: 2},
	}}
	if _, err := LoadRegistry(dir, cfg); err == nil {
		t.Fatal("expected ConfigInvalid for duplicate dataset name")
	}
}

func TestLoad_RejectsIndivisibleTiling(t *testing.T) {
	dir := t.TempDir()
	cfg := DatasetConfig{Name: "bad", Prefix: "bad", SizeX: 5, SizeY: 4, SizeTile: 2}
	if _, err := Load(dir, cfg); err == nil {
		t.Fatal("expected ConfigInvalid for non-divisible canvas/tile size")
	}
}

func TestLoad_RejectsMismatchedTileCount(t *testing.T) {
	dir := t.TempDir()
	writeTileLog(t, dir, "partial", 0, 0, 2)
	cfg := DatasetConfig{Name: "partial", Prefix: "partial", SizeX: 4, SizeY: 4, SizeTile: 2}
	if _, err := Load(dir, cfg); err == nil {
		t.Fatal("expected ConfigInvalid when fewer tile files than grid requires")
	}
}
