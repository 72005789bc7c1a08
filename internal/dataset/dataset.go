// Package dataset is the configuration-driven catalog of canvases
// (spec.md §4.6): each named dataset owns a synthesized RGB/transparency
// palette, canvas and tile dimensions, and the set of Tiles backing it,
// indexed in row-major order.
package dataset

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/canvasdb/placeviewer/internal/apperr"
	"github.com/canvasdb/placeviewer/internal/tilename"
	"github.com/canvasdb/placeviewer/internal/tilestore"
)

// Dataset is one named canvas and its backing tiles.
type Dataset struct {
	Name     string
	SizeX    uint16
	SizeY    uint16
	SizeTile uint16

	// Palette is palette_size*3 RGB bytes, with a synthetic 0xFFFFFF (white)
	// slot prepended to the configured palette.
	Palette []byte
	// TrnsPalette is the parallel transparency palette: 0 for slot 0
	// (unpainted), 255 for every other slot.
	TrnsPalette []byte

	tilesPerRow int
	tilesPerCol int
	tiles       []*tilestore.Tile // row-major, x + y*tilesPerRow
}

// GetTile returns the tile at tile-grid coordinates (x, y), or nil if out
// of range.
func (d *Dataset) GetTile(x, y int) *tilestore.Tile {
	if x < 0 || y < 0 || x >= d.tilesPerRow || y >= d.tilesPerCol {
		return nil
	}
	return d.tiles[x+y*d.tilesPerRow]
}

// Close releases every tile's memory mappings.
func (d *Dataset) Close() error {
	var first error
	for _, t := range d.tiles {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// synthesizePalette prepends white to the configured palette and splays
// each 24-bit color into R, G, B bytes (spec.md §4.6).
func synthesizePalette(colors []uint32) (rgb, trns []byte) {
	n := len(colors) + 1
	rgb = make([]byte, n*3)
	trns = make([]byte, n)

	rgb[0], rgb[1], rgb[2] = 0xFF, 0xFF, 0xFF
	trns[0] = 0
	for i, c := range colors {
		rgb[(i+1)*3+0] = byte(c >> 16)
		rgb[(i+1)*3+1] = byte(c >> 8)
		rgb[(i+1)*3+2] = byte(c)
		trns[i+1] = 255
	}
	return rgb, trns
}

// pairedTiles finds the log/keyframe file pairs for a prefix rooted at dir
// and loads them, sorted by (start_y, start_x) as required by spec.md §9's
// row-major assertion.
func pairedTiles(dir, prefix string) ([]*tilestore.Tile, error) {
	logMatches, err := filepath.Glob(filepath.Join(dir, prefix+"_log_*_*.bin"))
	if err != nil {
		return nil, apperr.IO("globbing placement logs for "+prefix, err)
	}
	frameMatches, err := filepath.Glob(filepath.Join(dir, prefix+"_frame_*_*.bin"))
	if err != nil {
		return nil, apperr.IO("globbing keyframes for "+prefix, err)
	}
	if len(frameMatches) > 0 && len(frameMatches) != len(logMatches) {
		return nil, apperr.PairingMismatch(
			"dataset %q: %d placement logs but %d keyframe files", prefix, len(logMatches), len(frameMatches))
	}

	frameByCoord := make(map[[2]int]string, len(frameMatches))
	for _, fp := range frameMatches {
		_, x, y, ok := tilename.ParseFrameName(filepath.Base(fp))
		if !ok {
			return nil, apperr.ConfigInvalid("%q does not match the keyframe naming convention", fp)
		}
		frameByCoord[[2]int{x, y}] = fp
	}

	type entry struct {
		x, y int
		tile *tilestore.Tile
	}
	entries := make([]entry, 0, len(logMatches))
	for _, lp := range logMatches {
		_, x, y, ok := tilename.ParseLogName(filepath.Base(lp))
		if !ok {
			return nil, apperr.ConfigInvalid("%q does not match the placement-log naming convention", lp)
		}
		var (
			t   *tilestore.Tile
			err error
		)
		if fp, hasFrame := frameByCoord[[2]int{x, y}]; hasFrame {
			t, err = tilestore.LoadWithFrames(lp, fp)
		} else {
			t, err = tilestore.Load(lp)
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{x: x, y: y, tile: t})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].y != entries[j].y {
			return entries[i].y < entries[j].y
		}
		return entries[i].x < entries[j].x
	})

	tiles := make([]*tilestore.Tile, len(entries))
	for i, e := range entries {
		tiles[i] = e.tile
	}
	return tiles, nil
}

// assertRowMajor verifies the sorted tile sequence matches the
// (ty*tilesPerRow + tx) row-major index the query path assumes (spec.md
// §9 open question / REDESIGN FLAGS).
func assertRowMajor(tiles []*tilestore.Tile, tilesPerRow int) error {
	for i, t := range tiles {
		tx := int(t.StartX) / int(t.Size)
		ty := int(t.StartY) / int(t.Size)
		want := ty*tilesPerRow + tx
		if want != i {
			return apperr.ConfigInvalid(
				"tile (%d,%d) sorts to index %d but row-major order expects %d", tx, ty, i, want)
		}
	}
	return nil
}

// Load builds a Dataset from cfg, rooted at dir: the prefix's log and
// keyframe file patterns are resolved relative to dir.
func Load(dir string, cfg DatasetConfig) (*Dataset, error) {
	if cfg.SizeTile == 0 || cfg.SizeX%cfg.SizeTile != 0 || cfg.SizeY%cfg.SizeTile != 0 {
		return nil, apperr.ConfigInvalid(
			"dataset %q: canvas %dx%d not divisible by tile edge %d", cfg.Name, cfg.SizeX, cfg.SizeY, cfg.SizeTile)
	}

	tilesPerRow := int(cfg.SizeX / cfg.SizeTile)
	tilesPerCol := int(cfg.SizeY / cfg.SizeTile)

	tiles, err := pairedTiles(dir, cfg.Prefix)
	if err != nil {
		return nil, err
	}
	if len(tiles) != tilesPerRow*tilesPerCol {
		return nil, apperr.ConfigInvalid(
			"dataset %q: found %d tile files, want %d for a %dx%d grid",
			cfg.Name, len(tiles), tilesPerRow*tilesPerCol, tilesPerRow, tilesPerCol)
	}
	if err := assertRowMajor(tiles, tilesPerRow); err != nil {
		return nil, fmt.Errorf("dataset %q: %w", cfg.Name, err)
	}

	rgb, trns := synthesizePalette(cfg.Palette)

	return &Dataset{
		Name:        cfg.Name,
		SizeX:       cfg.SizeX,
		SizeY:       cfg.SizeY,
		SizeTile:    cfg.SizeTile,
		Palette:     rgb,
		TrnsPalette: trns,
		tilesPerRow: tilesPerRow,
		tilesPerCol: tilesPerCol,
		tiles:       tiles,
	}, nil
}

// Registry is the collection of loaded datasets, keyed by name.
type Registry struct {
	byName map[string]*Dataset
}

// LoadRegistry loads every dataset named in cfg, rooted at dir. Duplicate
// dataset names are rejected per spec.md §4.6.
func LoadRegistry(dir string, cfg Config) (*Registry, error) {
	reg := &Registry{byName: make(map[string]*Dataset, len(cfg.Datasets))}
	for _, dc := range cfg.Datasets {
		if _, exists := reg.byName[dc.Name]; exists {
			return nil, apperr.ConfigInvalid("duplicate dataset name %q", dc.Name)
		}
		ds, err := Load(dir, dc)
		if err != nil {
			return nil, err
		}
		reg.byName[dc.Name] = ds
	}
	return reg, nil
}

// Get looks up a dataset by name.
func (r *Registry) Get(name string) (*Dataset, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Close releases every dataset's tiles.
func (r *Registry) Close() error {
	var first error
	for _, d := range r.byName {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
