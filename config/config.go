// Package config holds the YAML-configurable build settings for the tiler,
// grounded on the teacher's recast.BuildSettings / recast.yml: a plain
// struct unmarshaled with gopkg.in/yaml.v2, with DefaultSettings supplying
// the spec's constants as defaults rather than hard-coded literals.
package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// BuildSettings controls tile geometry and output limits for a tiled build.
type BuildSettings struct {
	// GridDeg is the side length, in degrees, of a tile's native grid cell.
	GridDeg float64 `yaml:"gridDeg"`
	// BufferDeg is how far beyond a tile's native bounds points are pulled
	// in when building that tile's mesh.
	BufferDeg float64 `yaml:"bufferDeg"`
	// EdgeProximityDeg is how close a query position must be to a tile edge
	// before the query engine also loads the neighboring tile.
	EdgeProximityDeg float64 `yaml:"edgeProximityDeg"`
	// PerturbSeed seeds the hull builder's deterministic perturbation LCG.
	PerturbSeed uint64 `yaml:"perturbSeed"`
	// MaxTileBytes bounds the size of a single serialized tile file; builds
	// exceeding it fail loudly rather than silently truncating.
	MaxTileBytes int64 `yaml:"maxTileBytes"`
	// LRUCapacity bounds the number of decoded tiles the query engine keeps
	// resident at once.
	LRUCapacity int `yaml:"lruCapacity"`
}

// DefaultSettings returns the spec's defaults: 5° grid, 0.5° buffer, 1°
// edge proximity, the spec's fixed perturbation seed, a 128 MiB tile cap,
// and a 50-tile LRU.
func DefaultSettings() BuildSettings {
	return BuildSettings{
		GridDeg:          5,
		BufferDeg:        0.5,
		EdgeProximityDeg: 1,
		PerturbSeed:      0x9E3779B9,
		MaxTileBytes:     128 << 20,
		LRUCapacity:      50,
	}
}

// Load reads build settings from a YAML file at path, starting from
// DefaultSettings so an incomplete file only overrides what it specifies.
func Load(path string) (BuildSettings, error) {
	s := DefaultSettings()
	buf, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("config: Load %s: %w", path, err)
	}
	if err := yaml.Unmarshal(buf, &s); err != nil {
		return s, fmt.Errorf("config: Load %s: %w", path, err)
	}
	return s, nil
}

// Save writes s to path in YAML form, refusing to overwrite an existing
// file (callers needing overwrite confirmation ask the user first, per the
// teacher's `recast config` command).
func Save(s BuildSettings, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: Save: %s already exists", path)
	}
	buf, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}
