// Package tilequery answers k-nearest-neighbor queries against a set of
// loaded tiles, fanning a single query out across whichever tiles are
// resident and deduplicating results by title across overlapping buffers.
//
// The bounded, oldest-evicted tile map is grounded on the teacher's
// crowd.PathQueue / NavMeshQuery resource pools: a fixed-capacity slot set
// where insertion past capacity evicts the least-recently-touched entry,
// generalized here from path-queue slots to decoded tile meshes.
package tilequery

import (
	"container/list"
	"sort"

	"github.com/chrissteinbach/geotiles/delaunay"
	"github.com/chrissteinbach/geotiles/sphere"
	"github.com/chrissteinbach/geotiles/tiler"
)

// Tile is one loaded tile: its decoded mesh plus per-vertex article titles.
type Tile struct {
	Mesh   *delaunay.SphericalDelaunay
	Titles []string
}

// TiledQuery holds the immutable manifest plus the mutable set of currently
// loaded tiles. Mutation of the tile map/LRU is not internally synchronized
// (spec §5): a caller sharing a TiledQuery across goroutines must wrap
// addTile/findNearest in its own mutex.
type TiledQuery struct {
	Manifest *tiler.TileIndex
	capacity int

	byID map[tiler.TileID]*Tile
	lru  *list.List
	elem map[tiler.TileID]*list.Element

	entryByID map[tiler.TileID]tiler.TileEntry
}

// New returns a TiledQuery over manifest with no tiles loaded yet, evicting
// the least-recently-touched tile once more than capacity are resident.
func New(manifest *tiler.TileIndex, capacity int) *TiledQuery {
	if capacity <= 0 {
		capacity = 50
	}
	entryByID := make(map[tiler.TileID]tiler.TileEntry, len(manifest.Tiles))
	for _, e := range manifest.Tiles {
		entryByID[e.ID] = e
	}
	return &TiledQuery{
		Manifest:  manifest,
		capacity:  capacity,
		byID:      make(map[tiler.TileID]*Tile),
		lru:       list.New(),
		elem:      make(map[tiler.TileID]*list.Element),
		entryByID: entryByID,
	}
}

// Loaded reports whether id is currently resident.
func (q *TiledQuery) Loaded(id tiler.TileID) bool {
	_, ok := q.byID[id]
	return ok
}

// AddTile inserts or replaces the decoded tile at id, touching the LRU. When
// more than capacity tiles are resident, the least-recently-touched tile is
// evicted from the in-memory map (spec §4.8 addTile).
func (q *TiledQuery) AddTile(id tiler.TileID, t *Tile) {
	q.byID[id] = t
	if el, ok := q.elem[id]; ok {
		q.lru.MoveToFront(el)
	} else {
		q.elem[id] = q.lru.PushFront(id)
	}
	for len(q.byID) > q.capacity {
		oldest := q.lru.Back()
		if oldest == nil {
			break
		}
		evictID := oldest.Value.(tiler.TileID)
		q.lru.Remove(oldest)
		delete(q.elem, evictID)
		delete(q.byID, evictID)
	}
}

// touch records id as most-recently-used without changing its contents.
func (q *TiledQuery) touch(id tiler.TileID) {
	if el, ok := q.elem[id]; ok {
		q.lru.MoveToFront(el)
	}
}

// Selection is the result of tilesForPosition: the tile a position's native
// coordinates fall in, plus any cardinal/corner neighbors near enough to its
// edges to matter, restricted to tiles present in the manifest.
type Selection struct {
	Primary  tiler.TileID
	Adjacent []tiler.TileID
}

// defaultEdgeProximityDeg mirrors the spec's default; callers needing a different
// threshold use TilesForPositionWithProximity.
const defaultEdgeProximityDeg = 1

// TilesForPosition computes the native tile for (lat, lon) and, for each
// tile edge within the default edge proximity, includes the cardinal (and,
// if two edges both qualify, corner) neighbor — longitude wraps through
// col 0↔(cols-1), latitude clamps at row 0 and the last row. Tiles absent
// from the manifest are excluded from both Primary and Adjacent.
func (q *TiledQuery) TilesForPosition(lat, lon float64) Selection {
	return q.TilesForPositionWithProximity(lat, lon, defaultEdgeProximityDeg)
}

// TilesForPositionWithProximity is TilesForPosition with an explicit edge
// proximity threshold in degrees, for callers using a non-default
// config.BuildSettings.EdgeProximityDeg.
func (q *TiledQuery) TilesForPositionWithProximity(lat, lon, edgeProximityDeg float64) Selection {
	gridDeg := q.Manifest.GridDeg
	rows := tiler.Rows(gridDeg)
	cols := tiler.Cols(gridDeg)
	row, col := tiler.TileFor(lat, lon, gridDeg)
	b := tiler.BoundsFor(row, col, gridDeg)

	primary := tiler.RowCol(row, col)
	sel := Selection{}
	if _, ok := q.entryByID[primary]; ok {
		sel.Primary = primary
	}

	nearSouth := lat-b.South <= edgeProximityDeg
	nearNorth := b.North-lat <= edgeProximityDeg
	nearWest := lon-b.West <= edgeProximityDeg
	nearEast := b.East-lon <= edgeProximityDeg

	southRow, hasSouth := row-1, row > 0
	northRow, hasNorth := row+1, row < rows-1
	westCol := (col - 1 + cols) % cols
	eastCol := (col + 1) % cols

	add := func(r, c int) {
		id := tiler.RowCol(r, c)
		if _, ok := q.entryByID[id]; ok {
			sel.Adjacent = append(sel.Adjacent, id)
		}
	}

	if nearSouth && hasSouth {
		add(southRow, col)
	}
	if nearNorth && hasNorth {
		add(northRow, col)
	}
	if nearWest {
		add(row, westCol)
	}
	if nearEast {
		add(row, eastCol)
	}
	// Corner neighbors only when two adjacent edges are both near.
	if nearSouth && hasSouth && nearWest {
		add(southRow, westCol)
	}
	if nearSouth && hasSouth && nearEast {
		add(southRow, eastCol)
	}
	if nearNorth && hasNorth && nearWest {
		add(northRow, westCol)
	}
	if nearNorth && hasNorth && nearEast {
		add(northRow, eastCol)
	}

	return sel
}

// Result is one deduplicated k-NN hit.
type Result struct {
	Title    string  `json:"title"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Distance float64 `json:"distance"`
}

// FindNearest fans a k-NN query out across every currently loaded tile,
// deduplicates hits by title (keeping the smallest distance — the same
// article can appear in more than one tile's buffered set), sorts ascending
// by distance, and returns at most k results. Returns nil if no tiles are
// loaded.
func (q *TiledQuery) FindNearest(lat, lon float64, k int) []Result {
	if len(q.byID) == 0 || k <= 0 {
		return nil
	}
	query := sphere.ToCartesian(sphere.LatLon{Lat: lat, Lon: lon})

	best := make(map[string]Result)
	for id, t := range q.byID {
		neighbors, err := t.Mesh.FindKNearest(query, k, -1)
		if err != nil {
			continue
		}
		q.touch(id)
		for _, n := range neighbors {
			title := t.Titles[n.VertexIndex]
			ll := sphere.ToLatLon(t.Mesh.Vertices[n.VertexIndex].Point)
			cur, ok := best[title]
			if !ok || n.Distance < cur.Distance {
				best[title] = Result{Title: title, Lat: ll.Lat, Lon: ll.Lon, Distance: n.Distance}
			}
		}
	}

	out := make([]Result, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) > k {
		out = out[:k]
	}
	return out
}
