package hull

import (
	"math"

	"github.com/chrissteinbach/geotiles/sphere"
)

// grid is a cubic acceleration structure over [-1,1]^3. Each cell stores the
// index of the last face whose centroid fell in it; this is a hint for the
// seed search, not a membership index, so overwrite-on-insert semantics are
// correct by construction.
//
// Grounded on the teacher's crowd.ProximityGrid: same cell-hash idiom, but a
// dense 3D array of single-slot hints instead of a hashed bucket chain with
// an item pool, since the hull only ever needs the most recent occupant of a
// cell, never every point an area ever held.
type grid struct {
	side  int
	cells []int32 // face index, or -1 if empty
}

func newGrid(n int) *grid {
	side := int(math.Ceil(math.Cbrt(float64(n))))
	if side < 8 {
		side = 8
	}
	if side > 128 {
		side = 128
	}
	g := &grid{side: side, cells: make([]int32, side*side*side)}
	for i := range g.cells {
		g.cells[i] = -1
	}
	return g
}

func (g *grid) cellIndex(p sphere.Point) int {
	clampCoord := func(v float64) int {
		i := int((v + 1) / 2 * float64(g.side))
		if i < 0 {
			i = 0
		}
		if i >= g.side {
			i = g.side - 1
		}
		return i
	}
	ix, iy, iz := clampCoord(p.X), clampCoord(p.Y), clampCoord(p.Z)
	return (ix*g.side+iy)*g.side + iz
}

// set records face as the hint for the cell containing p.
func (g *grid) set(p sphere.Point, face int32) {
	g.cells[g.cellIndex(p)] = face
}

// hint returns the last face recorded for the cell containing p, or -1.
func (g *grid) hint(p sphere.Point) int32 {
	return g.cells[g.cellIndex(p)]
}
