package hull

// edgeRef locates a directed edge by the face that owns it and the edge's
// position (0, 1, or 2) within that face's vertex list.
type edgeRef struct {
	face int32
	pos  int8
}

// edgeKey encodes the directed edge a->b numerically for fast map lookups,
// per the spec's preferred encoding (Open Question 2): a*n+b fits in 64 bits
// as long as n < 2^32, and is faster than a string key.
func edgeKey(a, b int32, n int) int64 {
	return int64(a)*int64(n) + int64(b)
}

// edgeMap is the half-edge twin map: a directed edge is held by at most one
// live face at a time. Every live face registers its three directed edges;
// every face removal deletes them.
type edgeMap struct {
	n int
	m map[int64]edgeRef
}

func newEdgeMap(n int) *edgeMap {
	return &edgeMap{n: n, m: make(map[int64]edgeRef, 4*n)}
}

func (e *edgeMap) put(a, b int32, ref edgeRef) {
	e.m[edgeKey(a, b, e.n)] = ref
}

func (e *edgeMap) get(a, b int32) (edgeRef, bool) {
	ref, ok := e.m[edgeKey(a, b, e.n)]
	return ref, ok
}

func (e *edgeMap) delete(a, b int32) {
	delete(e.m, edgeKey(a, b, e.n))
}
