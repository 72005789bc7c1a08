package dataset

import (
	"os"

	"sigs.k8s.io/yaml"

	"github.com/canvasdb/placeviewer/internal/apperr"
)

// Config is the top-level configuration document (spec.md §6): a YAML file
// with a single "datasets" list.
type Config struct {
	Datasets []DatasetConfig `json:"datasets"`
}

// DatasetConfig describes one named dataset's on-disk layout.
type DatasetConfig struct {
	Name     string   `json:"name"`
	Prefix   string   `json:"prefix"`
	Palette  []uint32 `json:"palette"`
	SizeX    uint16   `json:"size_x"`
	SizeY    uint16   `json:"size_y"`
	SizeTile uint16   `json:"size_tile"`
}

// LoadConfig reads and unmarshals a YAML config document from path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, apperr.IO("reading config "+path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, apperr.ConfigInvalid("parsing %s: %v", path, err)
	}
	return cfg, nil
}
