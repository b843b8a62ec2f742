package tiler

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/chrissteinbach/geotiles/buildlog"
	"github.com/chrissteinbach/geotiles/config"
	"github.com/chrissteinbach/geotiles/meshbin"
	"github.com/chrissteinbach/geotiles/records"
)

func TestTileForMatchesGridArithmetic(t *testing.T) {
	cases := []struct {
		lat, lon  float64
		wantRow   int
		wantCol   int
	}{
		{10, 0, 20, 36},
		{9.99, 0, 19, 36},
		{-89, 0, 0, 36},
		{89, 0, 35, 36},
	}
	for _, c := range cases {
		row, col := TileFor(c.lat, c.lon, 5)
		if row != c.wantRow || col != c.wantCol {
			t.Errorf("TileFor(%v,%v,5) = (%d,%d), want (%d,%d)", c.lat, c.lon, row, col, c.wantRow, c.wantCol)
		}
	}
}

func TestBoundsForRoundTripsTileFor(t *testing.T) {
	b := BoundsFor(20, 36, 5)
	if b.South != 10 || b.North != 15 || b.West != 0 || b.East != 5 {
		t.Errorf("BoundsFor(20,36,5) = %+v, want {10,15,0,5}", b)
	}
	row, col := TileFor(12, 2, 5)
	if row != 20 || col != 36 {
		t.Errorf("TileFor(12,2,5) = (%d,%d), want (20,36)", row, col)
	}
}

func TestCollectTileArticlesHalfOpenVsBuffered(t *testing.T) {
	nb := Bounds{South: 10, North: 15, West: 0, East: 5}
	recs := []records.Record{
		{Title: "inside", Lat: 12, Lon: 2},
		{Title: "on-north-edge", Lat: 15, Lon: 2},    // excluded from native (half-open), included buffered
		{Title: "just-outside", Lat: 15.3, Lon: 2},   // within 0.5 buffer, included buffered only
		{Title: "far-outside", Lat: 20, Lon: 2},      // outside both
	}
	native, buffered := collectTileArticles(recs, nb, 0.5)
	if len(native) != 1 || native[0].Title != "inside" {
		t.Errorf("native = %v, want [inside]", native)
	}
	wantBuffered := map[string]bool{"inside": true, "on-north-edge": true, "just-outside": true}
	if len(buffered) != len(wantBuffered) {
		t.Fatalf("buffered = %v, want %d entries", buffered, len(wantBuffered))
	}
	for _, r := range buffered {
		if !wantBuffered[r.Title] {
			t.Errorf("buffered contains unexpected record %q", r.Title)
		}
	}
}

func TestPopulatedTilesSortedAndDeduped(t *testing.T) {
	recs := []records.Record{
		{Title: "a", Lat: 12, Lon: 2},
		{Title: "b", Lat: 12, Lon: 3},
		{Title: "c", Lat: -80, Lon: -170},
	}
	s := config.DefaultSettings()
	tiles := populatedTiles(recs, s)
	if len(tiles) != 2 {
		t.Fatalf("populatedTiles = %v, want 2 distinct tiles", tiles)
	}
	if !(tiles[0].Row < tiles[1].Row || (tiles[0].Row == tiles[1].Row && tiles[0].Col < tiles[1].Col)) {
		t.Errorf("populatedTiles not sorted: %v", tiles)
	}
}

// threeTileArticles spreads 30 synthetic articles across 3 distinct 5deg
// tiles, 10 articles apiece, clustered away from every tile boundary so the
// 0.5deg buffer never pulls a point into a neighboring tile.
func threeTileArticles() []records.Record {
	var recs []records.Record
	centers := []struct{ lat, lon float64 }{
		{12, 2},   // tile (20,36)
		{12, 22},  // tile (20,40)
		{-37.5, 102.5}, // tile (10,56)
	}
	state := uint64(42)
	next := func() float64 {
		state = state*6364136223846793005 + 1442695040888963407
		return float64(state>>11) / float64(1<<53)
	}
	for ci, c := range centers {
		for i := 0; i < 10; i++ {
			dlat := (next() - 0.5) * 2 // +/- 1 deg, safely inside a 5deg tile with 0.5deg buffer
			dlon := (next() - 0.5) * 2
			recs = append(recs, records.Record{
				Title: tileArticleName(ci, i),
				Lat:   c.lat + dlat,
				Lon:   c.lon + dlon,
			})
		}
	}
	return recs
}

func tileArticleName(tile, i int) string {
	return string(rune('A'+tile)) + string(rune('0'+i))
}

func TestBuildProducesOneTilePerCluster(t *testing.T) {
	recs := threeTileArticles()
	s := config.DefaultSettings()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	res, err := Build(context.Background(), recs, s, now, buildlog.New())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Manifest.Tiles) != 3 {
		t.Fatalf("manifest has %d tiles, want 3: %+v", len(res.Manifest.Tiles), res.Manifest.Tiles)
	}

	totalArticles := 0
	for _, e := range res.Manifest.Tiles {
		if e.Articles < 1 {
			t.Errorf("tile %s has %d native articles, want >=1", e.ID, e.Articles)
		}
		data, ok := res.Files[e.ID]
		if !ok {
			t.Fatalf("manifest references tile %s with no corresponding file", e.ID)
		}
		if len(data) != e.Bytes {
			t.Errorf("tile %s: manifest says %d bytes, file has %d", e.ID, e.Bytes, len(data))
		}
		if got := sha256Prefix(data); got != e.Hash {
			t.Errorf("tile %s: manifest hash %s does not match recomputed %s", e.ID, e.Hash, got)
		}
		decoded, err := meshbin.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("tile %s: Decode: %v", e.ID, err)
		}
		if len(decoded.Mesh.Vertices) < 10 {
			t.Errorf("tile %s decoded with %d vertices, want >= 10", e.ID, len(decoded.Mesh.Vertices))
		}
		totalArticles += e.Articles
	}
	if totalArticles != 30 {
		t.Errorf("sum of tile Articles = %d, want 30", totalArticles)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	recs := threeTileArticles()
	s := config.DefaultSettings()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	res1, err := Build(context.Background(), recs, s, now, buildlog.New())
	if err != nil {
		t.Fatalf("Build #1: %v", err)
	}
	res2, err := Build(context.Background(), recs, s, now, buildlog.New())
	if err != nil {
		t.Fatalf("Build #2: %v", err)
	}
	if len(res1.Manifest.Tiles) != len(res2.Manifest.Tiles) {
		t.Fatalf("tile counts differ across rebuilds: %d vs %d", len(res1.Manifest.Tiles), len(res2.Manifest.Tiles))
	}
	for _, e1 := range res1.Manifest.Tiles {
		var e2 *TileEntry
		for i := range res2.Manifest.Tiles {
			if res2.Manifest.Tiles[i].ID == e1.ID {
				e2 = &res2.Manifest.Tiles[i]
				break
			}
		}
		if e2 == nil {
			t.Fatalf("tile %s present in build #1 but not #2", e1.ID)
		}
		if e1.Hash != e2.Hash {
			t.Errorf("tile %s hash differs across rebuilds: %s vs %s", e1.ID, e1.Hash, e2.Hash)
		}
	}
}

func TestBuildRejectsEmptyInput(t *testing.T) {
	s := config.DefaultSettings()
	_, err := Build(context.Background(), nil, s, time.Now(), nil)
	if err == nil {
		t.Fatal("Build with no records: want error, got nil")
	}
}
