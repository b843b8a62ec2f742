package sphere

// Orient3D returns the signed volume of the tetrahedron (a,b,c,d), expanded
// as det([b-a; c-a; d-a]). It is positive when d lies on the side of the
// plane (a,b,c) that the normal (b-a)x(c-a) points to.
//
// Native double precision is used throughout; no extended-precision filter
// is required because the hull builder's perturbation keeps magnitudes well
// above the precision floor.
func Orient3D(a, b, c, d Point) float64 {
	ab := Sub(b, a)
	ac := Sub(c, a)
	ad := Sub(d, a)

	// det([ab; ac; ad]) expanded along the first row as three 2x2 minors.
	m00 := ac.Y*ad.Z - ac.Z*ad.Y
	m01 := ac.X*ad.Z - ac.Z*ad.X
	m02 := ac.X*ad.Y - ac.Y*ad.X

	return ab.X*m00 - ab.Y*m01 + ab.Z*m02
}
