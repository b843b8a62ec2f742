package delaunay

import (
	"testing"

	"github.com/chrissteinbach/geotiles/sphere"
)

func TestLocateTriangleReturnsContainingFace(t *testing.T) {
	_, d := buildMesh(t, icosahedronPoints())

	for i := 0; i < 30; i++ {
		q := deterministicQuery(i)
		tri, err := d.LocateTriangle(q, -1)
		if err != nil {
			t.Fatalf("LocateTriangle: %v", err)
		}
		a, b, c := d.vtx(d.Triangles[tri], 0), d.vtx(d.Triangles[tri], 1), d.vtx(d.Triangles[tri], 2)
		sides := []float64{
			sphere.SideOfGreatCircle(a, b, q),
			sphere.SideOfGreatCircle(b, c, q),
			sphere.SideOfGreatCircle(c, a, q),
		}
		for _, s := range sides {
			if s < -1e-10 {
				t.Errorf("query %d: located triangle %d has edge with side %v, want >= -1e-10", i, tri, s)
			}
		}
	}
}

func TestFindKNearestDeduplicatesNothingWithinOneMesh(t *testing.T) {
	_, d := buildMesh(t, newDeterministicPoints(50))

	q := deterministicQuery(0)
	got, err := d.FindKNearest(q, 5, -1)
	if err != nil {
		t.Fatalf("FindKNearest: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("FindKNearest returned %d results, want 5", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Distance < got[i-1].Distance {
			t.Errorf("results not sorted ascending: %v then %v", got[i-1].Distance, got[i].Distance)
		}
	}
	seen := map[int]bool{}
	for _, n := range got {
		if seen[n.OriginalIndex] {
			t.Errorf("duplicate original index %d in results", n.OriginalIndex)
		}
		seen[n.OriginalIndex] = true
	}
}

func TestFindKNearestMatchesBruteForce(t *testing.T) {
	pts := newDeterministicPoints(60)
	_, d := buildMesh(t, pts)

	q := deterministicQuery(3)
	const k = 4
	got, err := d.FindKNearest(q, k, -1)
	if err != nil {
		t.Fatalf("FindKNearest: %v", err)
	}

	type scored struct {
		idx  int
		dist float64
	}
	all := make([]scored, len(pts))
	for i, p := range pts {
		all[i] = scored{i, sphere.SphericalDistance(p, q)}
	}
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].dist < all[i].dist {
				all[i], all[j] = all[j], all[i]
			}
		}
	}

	wantKthDist := all[k-1].dist
	gotKthDist := got[len(got)-1].Distance
	if gotKthDist > wantKthDist+1e-9 {
		t.Errorf("FindKNearest k-th distance %v exceeds brute-force k-th distance %v", gotKthDist, wantKthDist)
	}
}
