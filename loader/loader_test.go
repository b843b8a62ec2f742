package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/chrissteinbach/geotiles/delaunay"
	"github.com/chrissteinbach/geotiles/geoerr"
	"github.com/chrissteinbach/geotiles/hull"
	"github.com/chrissteinbach/geotiles/meshbin"
	"github.com/chrissteinbach/geotiles/sphere"
	"github.com/chrissteinbach/geotiles/tiler"
)

func octahedronTileBytes(t *testing.T) []byte {
	t.Helper()
	pts := []sphere.Point{
		{X: 1, Y: 0, Z: 0}, {X: -1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0}, {X: 0, Y: -1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 0, Y: 0, Z: -1},
	}
	h, err := hull.Build(pts)
	if err != nil {
		t.Fatalf("hull.Build: %v", err)
	}
	mesh, err := delaunay.Extract(h)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	titles := make([]string, len(mesh.Vertices))
	for i := range titles {
		titles[i] = "v"
	}
	data, err := meshbin.Encode(mesh, titles)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

type memCache struct {
	tiles     map[string][]byte
	manifests map[string]*tiler.TileIndex
}

func newMemCache() *memCache {
	return &memCache{tiles: make(map[string][]byte), manifests: make(map[string]*tiler.TileIndex)}
}

func (c *memCache) GetTile(lang string, id tiler.TileID) ([]byte, bool) {
	d, ok := c.tiles[lang+"/"+string(id)]
	return d, ok
}
func (c *memCache) PutTile(lang string, id tiler.TileID, data []byte) {
	c.tiles[lang+"/"+string(id)] = data
}
func (c *memCache) GetManifest(lang string) (*tiler.TileIndex, bool) {
	m, ok := c.manifests[lang]
	return m, ok
}
func (c *memCache) PutManifest(lang string, idx *tiler.TileIndex) {
	c.manifests[lang] = idx
}

type fakeFetcher struct {
	manifest   *tiler.TileIndex
	tiles      map[tiler.TileID][]byte
	manifestErr error
	tileErr    error
}

func (f *fakeFetcher) FetchManifest(ctx context.Context, lang string) (*tiler.TileIndex, error) {
	if f.manifestErr != nil {
		return nil, f.manifestErr
	}
	return f.manifest, nil
}

func (f *fakeFetcher) FetchTile(ctx context.Context, lang string, id tiler.TileID) ([]byte, error) {
	if f.tileErr != nil {
		return nil, f.tileErr
	}
	data, ok := f.tiles[id]
	if !ok {
		return nil, errors.New("no such tile")
	}
	return data, nil
}

func TestLoadTileFetchesAndCaches(t *testing.T) {
	data := octahedronTileBytes(t)
	entry := tiler.TileEntry{ID: "00-00", Bytes: len(data), Hash: sha256Prefix(data)}
	fetcher := &fakeFetcher{tiles: map[tiler.TileID][]byte{"00-00": data}}
	cache := newMemCache()
	l := New(fetcher, cache, "en")

	tile, err := l.LoadTile(context.Background(), entry)
	if err != nil {
		t.Fatalf("LoadTile: %v", err)
	}
	if len(tile.Mesh.Vertices) != 6 {
		t.Errorf("decoded %d vertices, want 6", len(tile.Mesh.Vertices))
	}
	if cached, ok := cache.GetTile("en", "00-00"); !ok || string(cached) != string(data) {
		t.Errorf("LoadTile did not populate the cache")
	}
}

func TestLoadTilePrefersCacheWhenHashMatches(t *testing.T) {
	data := octahedronTileBytes(t)
	entry := tiler.TileEntry{ID: "00-00", Bytes: len(data), Hash: sha256Prefix(data)}
	cache := newMemCache()
	cache.PutTile("en", "00-00", data)
	// A fetcher that errors proves the cache path was taken, not a fetch.
	fetcher := &fakeFetcher{tileErr: errors.New("network down")}
	l := New(fetcher, cache, "en")

	tile, err := l.LoadTile(context.Background(), entry)
	if err != nil {
		t.Fatalf("LoadTile: %v", err)
	}
	if len(tile.Mesh.Vertices) != 6 {
		t.Errorf("decoded %d vertices, want 6", len(tile.Mesh.Vertices))
	}
}

func TestLoadTileHashMismatchIsManifestMismatch(t *testing.T) {
	data := octahedronTileBytes(t)
	entry := tiler.TileEntry{ID: "00-00", Bytes: len(data), Hash: "deadbeef"}
	fetcher := &fakeFetcher{tiles: map[tiler.TileID][]byte{"00-00": data}}
	cache := newMemCache()
	l := New(fetcher, cache, "en")

	_, err := l.LoadTile(context.Background(), entry)
	if !errors.Is(err, geoerr.ErrManifestMismatch) {
		t.Fatalf("LoadTile hash mismatch: got %v, want ErrManifestMismatch", err)
	}
}

func TestLoadManifestFallsBackToCacheOnFetchError(t *testing.T) {
	cached := &tiler.TileIndex{Version: 1}
	cache := newMemCache()
	cache.PutManifest("en", cached)
	fetcher := &fakeFetcher{manifestErr: errors.New("network down")}
	l := New(fetcher, cache, "en")

	got, err := l.LoadManifest(context.Background())
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if got != cached {
		t.Errorf("LoadManifest did not fall back to the cached manifest")
	}
}

func TestLoadManifestErrorsWithNoFetchAndNoCache(t *testing.T) {
	cache := newMemCache()
	fetcher := &fakeFetcher{manifestErr: errors.New("network down")}
	l := New(fetcher, cache, "en")

	if _, err := l.LoadManifest(context.Background()); err == nil {
		t.Fatal("LoadManifest: want error when fetch fails and nothing is cached")
	}
}
