// Package sphere provides the geometric primitives used to build and query
// a spherical Delaunay triangulation: conversions between geographic
// coordinates and unit-sphere points, spherical distance, and the
// orientation predicate the hull builder walks on.
package sphere

import "math"

// Point is a point in 3D space, used exclusively to represent positions on
// the unit sphere. Every vertex of a triangulation is unit length within
// 1e-10.
type Point struct {
	X, Y, Z float64
}

// LatLon is a geographic coordinate in degrees. Lat is in [-90, 90], Lon is
// in [-180, 180].
type LatLon struct {
	Lat, Lon float64
}

// ToCartesian projects a geographic coordinate onto the unit sphere.
func ToCartesian(ll LatLon) Point {
	phi := ll.Lat * math.Pi / 180
	lambda := ll.Lon * math.Pi / 180
	cosPhi := math.Cos(phi)
	return Point{
		X: cosPhi * math.Cos(lambda),
		Y: cosPhi * math.Sin(lambda),
		Z: math.Sin(phi),
	}
}

// ToLatLon converts a unit-sphere point back to geographic coordinates.
// Longitude is undefined at the poles and returns 0 there.
func ToLatLon(p Point) LatLon {
	lat := math.Asin(clamp(p.Z, -1, 1))
	lon := math.Atan2(p.Y, p.X)
	return LatLon{
		Lat: lat * 180 / math.Pi,
		Lon: lon * 180 / math.Pi,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Add returns a+b.
func Add(a, b Point) Point { return Point{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

// Sub returns a-b.
func Sub(a, b Point) Point { return Point{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

// Scale returns p scaled by s.
func Scale(p Point, s float64) Point { return Point{p.X * s, p.Y * s, p.Z * s} }

// Dot returns the dot product of a and b.
func Dot(a, b Point) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

// Cross returns the cross product a x b.
func Cross(a, b Point) Point {
	return Point{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

// Norm returns the Euclidean length of p.
func Norm(p Point) float64 { return math.Sqrt(Dot(p, p)) }

// Normalize returns p scaled to unit length. Normalizing the zero vector
// returns the zero vector.
func Normalize(p Point) Point {
	n := Norm(p)
	if n == 0 {
		return p
	}
	return Scale(p, 1/n)
}

// SphericalDistance returns the angular distance, in radians, between two
// unit-sphere points.
func SphericalDistance(a, b Point) float64 {
	return math.Acos(clamp(Dot(a, b), -1, 1))
}

// Haversine returns the angular distance, in radians, between two
// unit-sphere points using the numerically stabler half-angle form. Agrees
// with SphericalDistance to within 1e-9.
func Haversine(a, b Point) float64 {
	d := Sub(b, a)
	chordSq := Dot(d, d)
	halfChord := math.Sqrt(chordSq) / 2
	return 2 * math.Asin(clamp(halfChord, -1, 1))
}

// SideOfGreatCircle returns dot(cross(a,b), p). It is positive when p is to
// the left of the directed arc a->b, zero when p lies on the great circle
// through a and b, negative otherwise.
func SideOfGreatCircle(a, b, p Point) float64 {
	return Dot(Cross(a, b), p)
}

// Circumcenter returns the spherical circumcenter of the triangle (a,b,c):
// the unit vector equidistant, in spherical distance, from all three
// vertices, flipped into the triangle's own hemisphere.
func Circumcenter(a, b, c Point) Point {
	n := Cross(Sub(b, a), Sub(c, a))
	centroid := Add(Add(a, b), c)
	if Dot(n, centroid) < 0 {
		n = Scale(n, -1)
	}
	return Normalize(n)
}
