// Package tiler partitions geotagged records onto a fixed lat/lon grid,
// builds one spherical Delaunay mesh per populated tile (with a buffer so
// edge vertices keep valid neighbors), and writes the binary tile files
// plus a manifest describing them.
package tiler

import (
	"fmt"
	"math"

	"github.com/chrissteinbach/geotiles/config"
	"github.com/chrissteinbach/geotiles/records"
)

// TileID identifies a grid cell as a zero-padded "RR-CC" string.
type TileID string

// RowCol formats a tile's grid row and column as its zero-padded "RR-CC"
// TileID.
func RowCol(row, col int) TileID {
	return TileID(fmt.Sprintf("%02d-%02d", row, col))
}

// TileFor returns the (row, col) of the tile containing (lat, lon), on a
// grid of gridDeg-degree cells: row = floor((lat+90)/gridDeg), col =
// floor((lon+180)/gridDeg).
func TileFor(lat, lon, gridDeg float64) (row, col int) {
	row = int(math.Floor((lat + 90) / gridDeg))
	col = int(math.Floor((lon + 180) / gridDeg))
	return row, col
}

// Rows and Cols return the grid dimensions for a given cell size: 36 rows,
// 72 cols at the spec's default 5°.
func Rows(gridDeg float64) int { return int(math.Round(180 / gridDeg)) }
func Cols(gridDeg float64) int { return int(math.Round(360 / gridDeg)) }

// Bounds is a tile's native geographic box, half-open on both axes:
// [South, North) x [West, East).
type Bounds struct {
	South, North, West, East float64
}

// BoundsFor returns the native bounds of tile (row, col).
func BoundsFor(row, col int, gridDeg float64) Bounds {
	return Bounds{
		South: float64(row)*gridDeg - 90,
		North: float64(row+1)*gridDeg - 90,
		West:  float64(col)*gridDeg - 180,
		East:  float64(col+1)*gridDeg - 180,
	}
}

// Buffered expands b by buf degrees on every side.
func (b Bounds) Buffered(buf float64) Bounds {
	return Bounds{South: b.South - buf, North: b.North + buf, West: b.West - buf, East: b.East + buf}
}

// containsNative reports whether (lat, lon) lies in this tile's half-open
// native interval.
func (b Bounds) containsNative(lat, lon float64) bool {
	return lat >= b.South && lat < b.North && lon >= b.West && lon < b.East
}

// containsBuffered reports whether (lat, lon) lies in the closed, buffered
// interval [South-buf, North+buf] x [West-buf, East+buf] (buf is already
// folded into b by Buffered).
func (b Bounds) containsBuffered(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}

// collectTileArticles partitions recs into the native set (half-open
// interval) and the buffered set (closed interval expanded by buf degrees)
// for the tile at native bounds nb.
func collectTileArticles(recs []records.Record, nb Bounds, buf float64) (native, buffered []records.Record) {
	bb := nb.Buffered(buf)
	for _, r := range recs {
		if nb.containsNative(r.Lat, r.Lon) {
			native = append(native, r)
		}
		if bb.containsBuffered(r.Lat, r.Lon) {
			buffered = append(buffered, r)
		}
	}
	return native, buffered
}

// populatedTiles groups recs by native tile, returning only tiles with at
// least one native record, sorted by (row, col).
func populatedTiles(recs []records.Record, s config.BuildSettings) []struct{ Row, Col int } {
	seen := make(map[[2]int]bool)
	for _, r := range recs {
		row, col := TileFor(r.Lat, r.Lon, s.GridDeg)
		seen[[2]int{row, col}] = true
	}
	out := make([]struct{ Row, Col int }, 0, len(seen))
	for rc := range seen {
		out = append(out, struct{ Row, Col int }{rc[0], rc[1]})
	}
	sortRowCol(out)
	return out
}

func sortRowCol(tiles []struct{ Row, Col int }) {
	for i := 1; i < len(tiles); i++ {
		for j := i; j > 0; j-- {
			a, b := tiles[j-1], tiles[j]
			if a.Row < b.Row || (a.Row == b.Row && a.Col <= b.Col) {
				break
			}
			tiles[j-1], tiles[j] = tiles[j], tiles[j-1]
		}
	}
}
