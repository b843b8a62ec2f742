package delaunay

import (
	"sort"

	"github.com/arl/assertgo"

	"github.com/chrissteinbach/geotiles/sphere"
)

// ErrWalkExhausted is returned by LocateTriangle in release builds when the
// step bound is hit without converging. Under the mesh's invariants this
// never happens in practice; debug builds assert instead (Open Question 3).
type ErrWalkExhausted struct{}

func (ErrWalkExhausted) Error() string { return "triangle walk exceeded its step bound" }

// LocateTriangle walks the mesh from start (default: the query's own guess
// of vertices[0]'s incident triangle when start < 0) looking for the
// triangle whose three edges all have the query point on their left (or on
// the great circle itself). The first strictly-negative edge found at each
// step determines the next triangle to cross into.
func (m *SphericalDelaunay) LocateTriangle(query sphere.Point, start int32) (int32, error) {
	if start < 0 {
		start = m.Vertices[0].Triangle
	}
	bound := len(m.Triangles)
	if bound < 100 {
		bound = 100
	}
	cur := start
	for step := 0; step < bound; step++ {
		tri := m.Triangles[cur]
		a, b, c := m.vtx(tri, 0), m.vtx(tri, 1), m.vtx(tri, 2)
		sides := [3]float64{
			sphere.SideOfGreatCircle(a, b, query),
			sphere.SideOfGreatCircle(b, c, query),
			sphere.SideOfGreatCircle(c, a, query),
		}
		crossed := -1
		for e, s := range sides {
			if s < 0 {
				crossed = e
				break
			}
		}
		if crossed == -1 {
			return cur, nil
		}
		next := tri.Neighbors[crossed]
		assert.True(next != -1, "LocateTriangle: triangle %d has no neighbor across edge %d", cur, crossed)
		cur = next
	}
	assert.True(false, "LocateTriangle: walk exceeded its %d-step bound", bound)
	return cur, ErrWalkExhausted{}
}

func (m *SphericalDelaunay) vtx(t Triangle, pos int) sphere.Point {
	return m.Vertices[t.Vertices[pos]].Point
}

// vertexNeighbors returns the vertices adjacent to v, discovered by rotating
// through the triangle fan around v: starting at its incident triangle,
// recording the next vertex in CCW order, then crossing the edge that
// contains v to continue the rotation, until the starting triangle is seen
// again.
func (m *SphericalDelaunay) vertexNeighbors(v int32) []int32 {
	start := m.Vertices[v].Triangle
	var neighbors []int32
	cur := start
	for {
		tri := m.Triangles[cur]
		pos := -1
		for i, vv := range tri.Vertices {
			if vv == v {
				pos = i
				break
			}
		}
		assert.True(pos != -1, "vertexNeighbors: triangle %d does not contain vertex %d", cur, v)
		next := tri.Vertices[(pos+1)%3]
		neighbors = append(neighbors, next)
		cur = tri.Neighbors[pos]
		if cur == start {
			break
		}
	}
	return neighbors
}

// FindNearest locates the 1-nearest vertex to query: it locates the
// containing triangle, seeds with its closest vertex, then greedily walks
// the Delaunay vertex graph, moving to any neighbor strictly closer, until
// no neighbor improves on the current best.
func (m *SphericalDelaunay) FindNearest(query sphere.Point, start int32) (int32, error) {
	tri, err := m.LocateTriangle(query, start)
	if err != nil {
		if _, ok := err.(ErrWalkExhausted); !ok {
			return -1, err
		}
	}
	t := m.Triangles[tri]
	best := t.Vertices[0]
	bestDist := sphere.SphericalDistance(m.Vertices[best].Point, query)
	for _, v := range t.Vertices[1:] {
		d := sphere.SphericalDistance(m.Vertices[v].Point, query)
		if d < bestDist {
			best, bestDist = v, d
		}
	}

	for {
		improved := false
		for _, n := range m.vertexNeighbors(best) {
			d := sphere.SphericalDistance(m.Vertices[n].Point, query)
			if d < bestDist {
				best, bestDist = n, d
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return best, nil
}

// Neighbor is one result of a k-nearest query: a vertex's compact index,
// its original input-point index, and its angular distance from the query.
type Neighbor struct {
	VertexIndex   int32
	OriginalIndex int
	Distance      float64
}

// FindKNearest returns the k vertices nearest to query. It seeds with the
// 1-NN from FindNearest, then does a breadth-first expansion over the
// Delaunay vertex graph until at least max(2k, k+6) candidates have been
// collected, sorts them by spherical distance, and returns the first k.
//
// This BFS radius heuristic (Open Question 1) is empirically exact for
// small k on roughly uniform spherical data but is not provably optimal for
// pathological point distributions.
func (m *SphericalDelaunay) FindKNearest(query sphere.Point, k int, start int32) ([]Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}
	seed, err := m.FindNearest(query, start)
	if err != nil {
		return nil, err
	}

	target := 2 * k
	if alt := k + 6; alt > target {
		target = alt
	}

	visited := map[int32]bool{seed: true}
	queue := []int32{seed}
	candidates := []int32{seed}
	for len(queue) > 0 && len(candidates) < target {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range m.vertexNeighbors(cur) {
			if visited[n] {
				continue
			}
			visited[n] = true
			queue = append(queue, n)
			candidates = append(candidates, n)
		}
	}

	results := make([]Neighbor, len(candidates))
	for i, v := range candidates {
		results[i] = Neighbor{
			VertexIndex:   v,
			OriginalIndex: m.OriginalIndices[v],
			Distance:      sphere.SphericalDistance(m.Vertices[v].Point, query),
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
