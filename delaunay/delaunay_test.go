package delaunay

import (
	"math"
	"testing"

	"github.com/chrissteinbach/geotiles/hull"
	"github.com/chrissteinbach/geotiles/sphere"
)

func octahedronPoints() []sphere.Point {
	return []sphere.Point{
		{X: 1, Y: 0, Z: 0}, {X: -1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0}, {X: 0, Y: -1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 0, Y: 0, Z: -1},
	}
}

func icosahedronPoints() []sphere.Point {
	phi := (1 + math.Sqrt(5)) / 2
	raw := [][3]float64{
		{-1, phi, 0}, {1, phi, 0}, {-1, -phi, 0}, {1, -phi, 0},
		{0, -1, phi}, {0, 1, phi}, {0, -1, -phi}, {0, 1, -phi},
		{phi, 0, -1}, {phi, 0, 1}, {-phi, 0, -1}, {-phi, 0, 1},
	}
	pts := make([]sphere.Point, len(raw))
	for i, r := range raw {
		pts[i] = sphere.Normalize(sphere.Point{X: r[0], Y: r[1], Z: r[2]})
	}
	return pts
}

func buildMesh(t *testing.T, pts []sphere.Point) (*hull.Hull, *SphericalDelaunay) {
	t.Helper()
	h, err := hull.Build(pts)
	if err != nil {
		t.Fatalf("hull.Build: %v", err)
	}
	d, err := Extract(h)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return h, d
}

func assertAdjacencySymmetric(t *testing.T, faces []hull.Face) {
	t.Helper()
	for i, f := range faces {
		for e, n := range f.Neighbors {
			if n < 0 || int(n) >= len(faces) {
				t.Fatalf("face %d neighbor %d out of range", i, n)
			}
			a, b := f.Vertices[e], f.Vertices[(e+1)%3]
			other := faces[n]
			found := false
			for oe, on := range other.Neighbors {
				if int(on) == i {
					oa, ob := other.Vertices[oe], other.Vertices[(oe+1)%3]
					if oa == b && ob == a {
						found = true
					}
				}
			}
			if !found {
				t.Errorf("face %d edge %d (%d->%d) has no reversed twin in neighbor face %d", i, e, a, b, n)
			}
		}
	}
}

func TestOctahedronHasEightFaces(t *testing.T) {
	h, _ := buildMesh(t, octahedronPoints())
	if len(h.Faces) != 8 {
		t.Errorf("octahedron hull has %d faces, want 8", len(h.Faces))
	}
	assertAdjacencySymmetric(t, h.Faces)
}

func TestOctahedronFindNearest(t *testing.T) {
	_, d := buildMesh(t, octahedronPoints())

	query := sphere.Normalize(sphere.Point{X: 3, Y: 0.1, Z: 0.1})
	v, err := d.FindNearest(query, -1)
	if err != nil {
		t.Fatalf("FindNearest: %v", err)
	}
	if got := d.Vertices[v].Point; math.Abs(got.X-1) > 1e-9 || math.Abs(got.Y) > 1e-9 || math.Abs(got.Z) > 1e-9 {
		t.Errorf("FindNearest(%v) = %v, want (1,0,0)", query, got)
	}

	query2 := sphere.Point{X: 0, Y: 0, Z: 1}
	neighbors, err := d.FindKNearest(query2, 1, -1)
	if err != nil {
		t.Fatalf("FindKNearest: %v", err)
	}
	if len(neighbors) != 1 {
		t.Fatalf("FindKNearest returned %d results, want 1", len(neighbors))
	}
	if neighbors[0].Distance != 0 {
		t.Errorf("nearest vertex to (0,0,1) has distance %v, want 0", neighbors[0].Distance)
	}
}

func TestIcosahedronEulerAndCircumradii(t *testing.T) {
	h, d := buildMesh(t, icosahedronPoints())
	wantFaces := 2*12 - 4
	if len(h.Faces) != wantFaces {
		t.Errorf("icosahedron hull has %d faces, want %d", len(h.Faces), wantFaces)
	}
	assertAdjacencySymmetric(t, h.Faces)

	r0 := d.Triangles[0].Circumradius
	for i, tri := range d.Triangles {
		if math.Abs(tri.Circumradius-r0) > 1e-10 {
			t.Errorf("triangle %d circumradius %v, want %v", i, tri.Circumradius, r0)
		}
		if math.Abs(sphere.Norm(tri.Circumcenter)-1) > 1e-10 {
			t.Errorf("triangle %d circumcenter not unit length", i)
		}
	}
}

func TestWorldCitiesParisNearest(t *testing.T) {
	cities := []struct {
		name     string
		lat, lon float64
	}{
		{"Paris", 48.8566, 2.3522},
		{"NYC", 40.7128, -74.0060},
		{"Sydney", -33.8688, 151.2093},
		{"Tokyo", 35.6762, 139.6503},
		{"Rio", -22.9068, -43.1729},
		{"Moscow", 55.7558, 37.6173},
		{"Nairobi", -1.2921, 36.8219},
		{"London", 51.5074, -0.1278},
		{"Buenos Aires", -34.6037, -58.3816},
		{"Singapore", 1.3521, 103.8198},
	}
	pts := make([]sphere.Point, len(cities))
	for i, c := range cities {
		pts[i] = sphere.ToCartesian(sphere.LatLon{Lat: c.lat, Lon: c.lon})
	}

	h, d := buildMesh(t, pts)
	if len(h.Faces) != 16 {
		t.Errorf("world cities hull has %d faces, want 16", len(h.Faces))
	}

	query := sphere.ToCartesian(sphere.LatLon{Lat: 48.5, Lon: 2.0})
	v, err := d.FindNearest(query, -1)
	if err != nil {
		t.Fatalf("FindNearest: %v", err)
	}
	got := cities[d.OriginalIndices[v]].name
	if got != "Paris" {
		t.Errorf("FindNearest(48.5,2.0) = %v, want Paris", got)
	}
}

func bruteForceNearest(pts []sphere.Point, query sphere.Point) int {
	best := 0
	bestDist := sphere.SphericalDistance(pts[0], query)
	for i, p := range pts[1:] {
		d := sphere.SphericalDistance(p, query)
		if d < bestDist {
			best, bestDist = i+1, d
		}
	}
	return best
}

func TestFindNearestMatchesBruteForce(t *testing.T) {
	rng := newDeterministicPoints(40)
	_, d := buildMesh(t, rng)

	for i := 0; i < 100; i++ {
		q := deterministicQuery(i)
		v, err := d.FindNearest(q, -1)
		if err != nil {
			t.Fatalf("FindNearest: %v", err)
		}
		want := bruteForceNearest(rng, q)
		got := d.OriginalIndices[v]
		if got != want {
			gotDist := sphere.SphericalDistance(rng[got], q)
			wantDist := sphere.SphericalDistance(rng[want], q)
			if math.Abs(gotDist-wantDist) > 1e-9 {
				t.Errorf("query %d: FindNearest picked point %d (dist %v), brute force picked %d (dist %v)",
					i, got, gotDist, want, wantDist)
			}
		}
	}
}

// newDeterministicPoints and deterministicQuery generate reproducible
// pseudo-random points/queries without depending on math/rand's global
// state, so the test is stable across Go versions.
func newDeterministicPoints(n int) []sphere.Point {
	pts := make([]sphere.Point, n)
	state := uint64(12345)
	next := func() float64 {
		state = state*6364136223846793005 + 1442695040888963407
		return float64(state>>11) / float64(1<<53)
	}
	for i := range pts {
		lat := next()*180 - 90
		lon := next()*360 - 180
		pts[i] = sphere.ToCartesian(sphere.LatLon{Lat: lat, Lon: lon})
	}
	return pts
}

func deterministicQuery(i int) sphere.Point {
	state := uint64(99991 + i*7919)
	state = state*6364136223846793005 + 1442695040888963407
	lat := (float64(state>>11)/float64(1<<53))*180 - 90
	state = state*6364136223846793005 + 1442695040888963407
	lon := (float64(state>>11)/float64(1<<53))*360 - 180
	return sphere.ToCartesian(sphere.LatLon{Lat: lat, Lon: lon})
}
