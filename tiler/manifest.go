package tiler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/chrissteinbach/geotiles/config"
)

// TileEntry is one manifest row, per spec.md §3/§6.
type TileEntry struct {
	ID       TileID  `json:"id"`
	Row      int     `json:"row"`
	Col      int     `json:"col"`
	South    float64 `json:"south"`
	North    float64 `json:"north"`
	West     float64 `json:"west"`
	East     float64 `json:"east"`
	Articles int     `json:"articles"`
	Bytes    int     `json:"bytes"`
	Hash     string  `json:"hash,omitempty"`
}

// TileIndex is the manifest written alongside a tiled build's binary files.
type TileIndex struct {
	Version   int         `json:"version"`
	GridDeg   float64     `json:"gridDeg"`
	BufferDeg float64     `json:"bufferDeg"`
	Generated string      `json:"generated"`
	Tiles     []TileEntry `json:"tiles"`
}

// UnmarshalManifest supports a missing per-entry "hash" field for forward
// compatibility (spec.md §9 "Runtime reflection"): json.Unmarshal already
// leaves Hash as its zero value "" when the key is absent, so no custom
// UnmarshalJSON is required beyond the `omitempty` tag on encode.
func UnmarshalManifest(data []byte) (*TileIndex, error) {
	var idx TileIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("tiler: manifest: %w", err)
	}
	return &idx, nil
}

// sha256Prefix returns the first 8 hex characters of the SHA-256 of data.
func sha256Prefix(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:8]
}

// buildManifest assembles a TileIndex from entries, sorted by id, stamped
// with now (the manifest's only non-deterministic field).
func buildManifest(s config.BuildSettings, entries []TileEntry, now time.Time) *TileIndex {
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return &TileIndex{
		Version:   1,
		GridDeg:   s.GridDeg,
		BufferDeg: s.BufferDeg,
		Generated: now.UTC().Format(time.RFC3339),
		Tiles:     entries,
	}
}
