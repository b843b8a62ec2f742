// Package delaunay extracts a navigable spherical Delaunay mesh from a
// convex hull, and answers point-location and k-nearest-neighbor queries
// against it.
package delaunay

import (
	"math"

	"github.com/chrissteinbach/geotiles/geoerr"
	"github.com/chrissteinbach/geotiles/hull"
	"github.com/chrissteinbach/geotiles/sphere"
)

// Triangle is a Delaunay triangle: the same shape as a hull.Face, plus a
// precomputed spherical circumcenter and circumradius used only during
// extraction and testing (the serialized form omits them).
type Triangle struct {
	Vertices     [3]int32
	Neighbors    [3]int32
	Circumcenter sphere.Point
	Circumradius float64
}

// Vertex is a position on the unit sphere plus the index of one incident
// triangle, used as the walk's entry point.
type Vertex struct {
	Point    sphere.Point
	Triangle int32
}

// SphericalDelaunay is the extracted mesh: vertices, triangles, and the map
// from compact vertex indices back to the caller's original point indices.
// Points that are not on the hull (impossible for unit-sphere input under
// perturbation, but tolerated) are excluded.
type SphericalDelaunay struct {
	Vertices        []Vertex
	Triangles       []Triangle
	OriginalIndices []int // compact vertex index -> input point index
}

// Extract builds a SphericalDelaunay from a hull. Every face of h becomes a
// Triangle; vertex indices are remapped from the hull's input-point space to
// a compact vertex space containing only points that appear in at least one
// face.
func Extract(h *hull.Hull) (*SphericalDelaunay, error) {
	usedBy := make(map[int32]int32) // set of input point indices seen in any face (values unused)
	order := make([]int32, 0, len(h.Points))
	for _, f := range h.Faces {
		for _, v := range f.Vertices {
			if _, ok := usedBy[v]; !ok {
				usedBy[v] = 0
				order = append(order, v)
			}
		}
	}
	// Stable compaction: vertex compact index follows first-seen order over
	// faces so extraction is deterministic given a deterministic hull.
	compactOf := make(map[int32]int32, len(order))
	originalIndices := make([]int, len(order))
	for i, v := range order {
		compactOf[v] = int32(i)
		originalIndices[i] = int(v)
	}

	vertices := make([]Vertex, len(order))
	for i, v := range order {
		vertices[i] = Vertex{Point: h.Points[v], Triangle: -1}
	}

	triangles := make([]Triangle, len(h.Faces))
	for i, f := range h.Faces {
		var cv [3]int32
		for k, v := range f.Vertices {
			cv[k] = compactOf[v]
		}
		a, b, c := h.Points[f.Vertices[0]], h.Points[f.Vertices[1]], h.Points[f.Vertices[2]]
		center := sphere.Circumcenter(a, b, c)
		radius := sphere.SphericalDistance(center, a)

		for _, k := range []float64{
			sphere.SphericalDistance(center, b),
			sphere.SphericalDistance(center, c),
		} {
			if math.Abs(k-radius) > 1e-10 {
				geoerr.Invariant("circumradius", "circumcenter not equidistant from triangle vertices")
			}
		}

		triangles[i] = Triangle{
			Vertices:     cv,
			Neighbors:    f.Neighbors,
			Circumcenter: center,
			Circumradius: radius,
		}
		for k, vi := range cv {
			if vertices[vi].Triangle == -1 {
				vertices[vi].Triangle = int32(i)
			}
			_ = k
		}
	}

	for i, v := range vertices {
		if v.Triangle == -1 {
			geoerr.Invariant("incident-triangle", "vertex has no incident triangle after extraction")
		}
		_ = i
	}

	return &SphericalDelaunay{
		Vertices:        vertices,
		Triangles:       triangles,
		OriginalIndices: originalIndices,
	}, nil
}
