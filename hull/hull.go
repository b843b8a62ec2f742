// Package hull computes the incremental 3D convex hull of points on the unit
// sphere. Its faces are exactly the spherical Delaunay triangulation: see
// package delaunay for the extraction step that turns a Hull into a
// navigable mesh.
package hull

import (
	"math"
	"sort"

	"github.com/arl/assertgo"

	"github.com/chrissteinbach/geotiles/geoerr"
	"github.com/chrissteinbach/geotiles/sphere"
)

// perturbSeed is the LCG seed used to jitter input points off of any
// coincidence/collinearity/coplanarity before geometric work starts.
const perturbSeed uint64 = 0x9E3779B9

// Face is a triangular hull face: three vertex indices in CCW order as seen
// from outside the hull, and three neighbor face indices such that
// Neighbors[i] shares the directed edge Vertices[i]->Vertices[(i+1)%3] (the
// twin's edge runs in the reverse direction).
type Face struct {
	Vertices  [3]int32
	Neighbors [3]int32
}

// Hull is the original input points plus the compacted face list. Owned
// exclusively by the builder during construction; callers extract a
// delaunay.SphericalDelaunay from it and then discard it.
type Hull struct {
	Points []sphere.Point
	Faces  []Face
}

// liveFace tracks a Face plus whether it is still part of the hull; dead
// slots are tombstoned rather than removed mid-build (per the spec's
// "arena + indices, not owned pointers" guidance) and compacted once at the
// end.
type liveFace struct {
	Face
	live bool
}

type builder struct {
	orig      []sphere.Point // caller's points, never mutated
	perturbed []sphere.Point // used only for orient3D tests
	faces     []liveFace
	edges     *edgeMap
	grid      *grid
	liveCount int
	lastHint  int32
	history   [2]int32 // most recently visited faces during a walk, to avoid oscillation
}

// Build computes the convex hull of pts, which must lie on (or near) the
// unit sphere, using the default perturbation seed. Returns
// geoerr.ErrDegenerateInput if all points are coincident, collinear, or
// coplanar, or if there are fewer than 4 points.
func Build(pts []sphere.Point) (*Hull, error) {
	return BuildWithSeed(pts, perturbSeed)
}

// BuildWithSeed is Build with an explicit perturbation seed, threaded
// through rather than read from process-wide state (spec.md §9 "Global
// mutable state": "a pure implementation threads the RNG explicitly"),
// for callers honoring a config.BuildSettings.PerturbSeed override.
func BuildWithSeed(pts []sphere.Point, seed uint64) (*Hull, error) {
	if len(pts) < 4 {
		return nil, geoerr.ErrDegenerateInput
	}
	i0, i1, i2, i3, ok := findSeed(pts, 0)
	if !ok {
		return nil, geoerr.ErrDegenerateInput
	}

	b := &builder{
		orig:      pts,
		perturbed: perturb(pts, seed),
		edges:     newEdgeMap(len(pts)),
		grid:      newGrid(len(pts)),
		lastHint:  -1,
	}

	// Re-locate the seed on the perturbed copy: perturbation can only push
	// points further from degeneracy, never closer, so the same indices
	// remain a valid non-degenerate seed.
	b.seedTetrahedron(i0, i1, i2, i3)

	seeded := map[int]bool{i0: true, i1: true, i2: true, i3: true}
	for i, p := range b.perturbed {
		if seeded[i] {
			continue
		}
		b.insert(int32(i), p)
	}

	return b.compact(), nil
}

// perturb returns a shadow copy of pts where each coordinate is offset by a
// deterministic pseudo-random value of magnitude <= 1e-6, then re-normalized
// to the unit sphere. The perturbed copy lifts every input point to be
// strictly exterior to the seed tetrahedron's interior.
func perturb(pts []sphere.Point, seed uint64) []sphere.Point {
	rng := newLCG(seed)
	out := make([]sphere.Point, len(pts))
	for i, p := range pts {
		jittered := sphere.Point{
			X: p.X + rng.signedUnit()*1e-6,
			Y: p.Y + rng.signedUnit()*1e-6,
			Z: p.Z + rng.signedUnit()*1e-6,
		}
		out[i] = sphere.Normalize(jittered)
	}
	return out
}

// lcg is a linear congruential generator seeded deterministically so that
// two builds over identical input produce a bit-identical hull.
type lcg struct {
	state uint64
}

func newLCG(seed uint64) *lcg {
	return &lcg{state: seed}
}

func (l *lcg) next() uint64 {
	l.state = l.state*6364136223846793005 + 1442695040888963407
	return l.state
}

// signedUnit returns a pseudo-random value in [-1, 1).
func (l *lcg) signedUnit() float64 {
	v := float64(l.next()>>11) / float64(1<<53)
	return v*2 - 1
}

// findSeed scans pts (starting at from) for four pairwise non-coincident,
// non-collinear, non-coplanar indices. Returns ok=false if none exist, which
// means the whole set is degenerate.
func findSeed(pts []sphere.Point, from int) (i0, i1, i2, i3 int, ok bool) {
	const eps = 1e-12
	n := len(pts)
	for a := from; a < n; a++ {
		for b := a + 1; b < n; b++ {
			if sphere.Norm(sphere.Sub(pts[b], pts[a])) < eps {
				continue
			}
			for c := b + 1; c < n; c++ {
				cross := sphere.Cross(sphere.Sub(pts[b], pts[a]), sphere.Sub(pts[c], pts[a]))
				if sphere.Norm(cross) < eps {
					continue
				}
				for d := c + 1; d < n; d++ {
					vol := sphere.Orient3D(pts[a], pts[b], pts[c], pts[d])
					if math.Abs(vol) < eps {
						continue
					}
					return a, b, c, d, true
				}
			}
		}
	}
	return 0, 0, 0, 0, false
}

// seedTetrahedron builds the four initial faces of the tetrahedron (i0, i1,
// i2, i3), each oriented so its outward normal points away from the vertex
// it omits.
func (b *builder) seedTetrahedron(i0, i1, i2, i3 int) {
	idx := [4]int32{int32(i0), int32(i1), int32(i2), int32(i3)}
	// The four faces, each omitting idx[omit].
	combos := [4][3]int{{1, 2, 3}, {0, 2, 3}, {0, 1, 3}, {0, 1, 2}}
	for omit, combo := range combos {
		v := [3]int32{idx[combo[0]], idx[combo[1]], idx[combo[2]]}
		opposite := idx[omit]
		a, c, d := b.perturbed[v[0]], b.perturbed[v[1]], b.perturbed[v[2]]
		if sphere.Orient3D(a, c, d, b.perturbed[opposite]) > 0 {
			v[1], v[2] = v[2], v[1]
		}
		b.addFace(v)
	}
}

// addFace appends a new live face with the given CCW vertex winding,
// registers its directed edges, links any existing twins found in the edge
// map, and updates the spatial grid. Returns the new face's index.
func (b *builder) addFace(v [3]int32) int32 {
	idx := int32(len(b.faces))
	f := liveFace{Face: Face{Vertices: v, Neighbors: [3]int32{-1, -1, -1}}, live: true}
	b.faces = append(b.faces, f)
	b.liveCount++

	for e := 0; e < 3; e++ {
		a, bb := v[e], v[(e+1)%3]
		b.edges.put(a, bb, edgeRef{face: idx, pos: int8(e)})
		if twin, ok := b.edges.get(bb, a); ok {
			b.faces[idx].Neighbors[e] = twin.face
			if twin.face != idx {
				b.faces[twin.face].Neighbors[twin.pos] = idx
			}
		}
	}
	b.grid.set(b.faceCentroid(idx), idx)
	return idx
}

func (b *builder) faceCentroid(idx int32) sphere.Point {
	v := b.faces[idx].Vertices
	sum := sphere.Add(sphere.Add(b.perturbed[v[0]], b.perturbed[v[1]]), b.perturbed[v[2]])
	return sphere.Normalize(sum)
}

func ceilSqrt(n int) int {
	return int(math.Ceil(math.Sqrt(float64(n))))
}

// insert adds the point at index pi (with perturbed position p) to the
// hull, per the spec's insertion algorithm: seed search, BFS horizon
// discovery, destroy-and-rebuild.
func (b *builder) insert(pi int32, p sphere.Point) {
	seed, found := b.findVisibleFace(p)
	if !found {
		// p is interior under perturbation; tolerated, not an error.
		return
	}

	visible := b.bfsVisible(seed, p)
	horizon := b.horizonEdges(visible)

	for f := range visible {
		b.removeFace(f)
	}

	newFaces := make([]int32, 0, len(horizon))
	for _, he := range horizon {
		v := [3]int32{he.a, he.b, pi}
		nf := b.addFace(v)
		// Edge 0 (a->b) already linked to the surviving neighbor by addFace's
		// generic twin lookup (the neighbor's reverse edge b->a is still
		// registered). Assert that link happened as expected.
		assert.True(b.faces[nf].Neighbors[0] == he.neighbor,
			"horizon edge %d->%d expected neighbor %d, addFace linked %d",
			he.a, he.b, he.neighbor, b.faces[nf].Neighbors[0])
		newFaces = append(newFaces, nf)
	}
	_ = newFaces
}

type horizonEdge struct {
	a, b     int32
	neighbor int32 // the non-visible face across this edge
}

// findVisibleFace implements the spec's four-tier seed search: greedy walk
// from the previous insertion's hint face, then from the grid cell, then a
// bounded BFS, then a last-resort linear scan.
func (b *builder) findVisibleFace(p sphere.Point) (int32, bool) {
	start := b.lastHint
	if start == -1 || !b.faces[start].live {
		start = b.anyLiveFace()
	}
	if start == -1 {
		return -1, false
	}

	walkBound := 6 * ceilSqrt(b.liveCount)
	if f, ok := b.greedyWalk(start, p, walkBound); ok {
		b.lastHint = f
		return f, true
	}

	gridStart := b.grid.hint(p)
	if gridStart != -1 && b.faces[gridStart].live {
		if f, ok := b.greedyWalk(gridStart, p, walkBound); ok {
			b.lastHint = f
			return f, true
		}
	}

	bfsBound := 500
	if alt := 4 * ceilSqrt(b.liveCount); alt > bfsBound {
		bfsBound = alt
	}
	if f, ok := b.bfsSearch(start, p, bfsBound); ok {
		b.lastHint = f
		return f, true
	}

	for i := range b.faces {
		if b.faces[i].live && sphere.Orient3D(b.vtx(int32(i), 0), b.vtx(int32(i), 1), b.vtx(int32(i), 2), p) > 0 {
			b.lastHint = int32(i)
			return int32(i), true
		}
	}
	return -1, false
}

func (b *builder) anyLiveFace() int32 {
	for i := range b.faces {
		if b.faces[i].live {
			return int32(i)
		}
	}
	return -1
}

func (b *builder) vtx(face int32, pos int) sphere.Point {
	return b.perturbed[b.faces[face].Vertices[pos]]
}

// greedyWalk steps from start toward p, guided by the centroid dot-product
// heuristic, up to bound steps. The two-back history prevents oscillation
// between a pair of faces.
func (b *builder) greedyWalk(start int32, p sphere.Point, bound int) (int32, bool) {
	b.history[0], b.history[1] = -1, -1
	cur := start
	for step := 0; step < bound; step++ {
		f := b.faces[cur]
		if sphere.Orient3D(b.vtx(cur, 0), b.vtx(cur, 1), b.vtx(cur, 2), p) > 0 {
			return cur, true
		}
		best := int32(-1)
		bestDot := math.Inf(-1)
		for _, n := range f.Neighbors {
			if n == -1 || !b.faces[n].live {
				continue
			}
			if n == b.history[0] || n == b.history[1] {
				continue
			}
			d := sphere.Dot(b.faceCentroid(n), p)
			if d > bestDot {
				bestDot = d
				best = n
			}
		}
		if best == -1 {
			// every neighbor is in the recent history; allow revisiting to
			// avoid getting stuck entirely.
			for _, n := range f.Neighbors {
				if n != -1 && b.faces[n].live {
					d := sphere.Dot(b.faceCentroid(n), p)
					if d > bestDot {
						bestDot = d
						best = n
					}
				}
			}
		}
		if best == -1 {
			return -1, false
		}
		b.history[0], b.history[1] = cur, b.history[0]
		cur = best
	}
	return -1, false
}

// bfsSearch explores face adjacency breadth-first from start, up to bound
// faces, looking for one visible from p.
func (b *builder) bfsSearch(start int32, p sphere.Point, bound int) (int32, bool) {
	visited := make(map[int32]bool, bound)
	queue := []int32{start}
	visited[start] = true
	explored := 0
	for len(queue) > 0 && explored < bound {
		cur := queue[0]
		queue = queue[1:]
		explored++
		if sphere.Orient3D(b.vtx(cur, 0), b.vtx(cur, 1), b.vtx(cur, 2), p) > 0 {
			return cur, true
		}
		for _, n := range b.faces[cur].Neighbors {
			if n != -1 && b.faces[n].live && !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}
	return -1, false
}

// bfsVisible returns the set of faces visible from p, reached by BFS from
// seed over face adjacency. Visible faces form a connected region.
func (b *builder) bfsVisible(seed int32, p sphere.Point) map[int32]bool {
	visible := map[int32]bool{seed: true}
	queue := []int32{seed}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range b.faces[cur].Neighbors {
			if n == -1 || visible[n] || !b.faces[n].live {
				continue
			}
			if sphere.Orient3D(b.vtx(n, 0), b.vtx(n, 1), b.vtx(n, 2), p) > 0 {
				visible[n] = true
				queue = append(queue, n)
			}
		}
	}
	return visible
}

// horizonEdges collects the directed edges of visible faces whose twin face
// is not visible: these bound the cap of faces being removed.
func (b *builder) horizonEdges(visible map[int32]bool) []horizonEdge {
	// Visit faces in index order, not map order, so new faces are created
	// in the same order on every build.
	order := make([]int32, 0, len(visible))
	for f := range visible {
		order = append(order, f)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	var edges []horizonEdge
	for _, f := range order {
		v := b.faces[f].Vertices
		for e := 0; e < 3; e++ {
			n := b.faces[f].Neighbors[e]
			if n != -1 && visible[n] {
				continue
			}
			edges = append(edges, horizonEdge{
				a:        v[e],
				b:        v[(e+1)%3],
				neighbor: n,
			})
		}
	}
	return edges
}

// removeFace tombstones a face and unregisters its directed edges.
func (b *builder) removeFace(idx int32) {
	f := b.faces[idx]
	if !f.live {
		return
	}
	for e := 0; e < 3; e++ {
		a, bb := f.Vertices[e], f.Vertices[(e+1)%3]
		b.edges.delete(a, bb)
	}
	b.faces[idx].live = false
	b.liveCount--
}

// compact removes tombstoned slots from the face list and remaps neighbor
// indices, so the resulting Hull has no gaps.
func (b *builder) compact() *Hull {
	remap := make([]int32, len(b.faces))
	out := make([]Face, 0, b.liveCount)
	for i, f := range b.faces {
		if f.live {
			remap[i] = int32(len(out))
			out = append(out, f.Face)
		} else {
			remap[i] = -1
		}
	}
	for i := range out {
		for e := 0; e < 3; e++ {
			n := out[i].Neighbors[e]
			if n == -1 {
				continue
			}
			assert.True(remap[n] != -1, "compact: face %d neighbor %d was tombstoned", i, n)
			out[i].Neighbors[e] = remap[n]
		}
	}
	return &Hull{Points: b.orig, Faces: out}
}
