// Package loader fetches per-tile binary data and the manifest from an
// external source, verifies each tile's hash against its manifest entry,
// and hands decoded tiles to tilequery. The fetch itself is an external
// collaborator (spec.md §1 "Out of scope"); this package defines the
// boundary (TileFetcher), the Cache it consults, and a reference
// disk-backed Cache (DiskCache).
package loader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chrissteinbach/geotiles/geoerr"
	"github.com/chrissteinbach/geotiles/meshbin"
	"github.com/chrissteinbach/geotiles/tiler"
	"github.com/chrissteinbach/geotiles/tilequery"
)

// TileFetcher is the network/disk boundary a loader is built on: fetch the
// manifest for a language, and fetch one tile's raw bytes by id. Both
// return a non-nil error on failure. A fetcher backed by HTTP reports a 404
// for the manifest (no tiled data) as an ordinary error; LoadManifest treats
// it like any other fetch failure and falls back to the cached manifest.
type TileFetcher interface {
	FetchManifest(ctx context.Context, lang string) (*tiler.TileIndex, error)
	FetchTile(ctx context.Context, lang string, id tiler.TileID) ([]byte, error)
}

// Cache is the persistent store a Loader consults before fetching: tiles
// keyed by (lang, id), and the last manifest seen per language (served back
// when the network is unreachable, per spec.md §4.9).
type Cache interface {
	GetTile(lang string, id tiler.TileID) ([]byte, bool)
	PutTile(lang string, id tiler.TileID, data []byte)
	GetManifest(lang string) (*tiler.TileIndex, bool)
	PutManifest(lang string, idx *tiler.TileIndex)
}

// Loader ties a TileFetcher and a Cache together: for each tile it needs,
// it prefers a cache hit whose hash matches the manifest, falling back to
// a fetch, verify, and cache-store.
type Loader struct {
	Fetcher TileFetcher
	Cache   Cache
	Lang    string
}

// New returns a Loader for lang backed by fetcher and cache.
func New(fetcher TileFetcher, cache Cache, lang string) *Loader {
	return &Loader{Fetcher: fetcher, Cache: cache, Lang: lang}
}

// LoadManifest fetches the current manifest. If the fetch fails, it serves
// the last cached manifest instead (spec.md §4.9: "if the network is
// unreachable, the loader may serve the last cached manifest"); only if
// neither is available does it return an error.
func (l *Loader) LoadManifest(ctx context.Context) (*tiler.TileIndex, error) {
	idx, err := l.Fetcher.FetchManifest(ctx, l.Lang)
	if err == nil {
		l.Cache.PutManifest(l.Lang, idx)
		return idx, nil
	}
	if cached, ok := l.Cache.GetManifest(l.Lang); ok {
		return cached, nil
	}
	return nil, fmt.Errorf("loader: LoadManifest: %w", err)
}

// LoadTile fetches and decodes tile id against entry, preferring an
// already-cached copy whose hash matches. A cached copy whose hash does not
// match is ignored and the tile is fetched again. A fetched tile whose byte
// length or hash does not match entry is reported as
// geoerr.ErrManifestMismatch and is neither cached nor returned.
func (l *Loader) LoadTile(ctx context.Context, entry tiler.TileEntry) (*tilequery.Tile, error) {
	if cached, ok := l.Cache.GetTile(l.Lang, entry.ID); ok {
		if sha256Prefix(cached) == entry.Hash {
			return decodeTile(cached)
		}
	}

	data, err := l.Fetcher.FetchTile(ctx, l.Lang, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("loader: LoadTile %s: %w", entry.ID, err)
	}
	if len(data) != entry.Bytes || sha256Prefix(data) != entry.Hash {
		return nil, fmt.Errorf("loader: LoadTile %s: %w", entry.ID, geoerr.ErrManifestMismatch)
	}
	l.Cache.PutTile(l.Lang, entry.ID, data)
	return decodeTile(data)
}

func decodeTile(data []byte) (*tilequery.Tile, error) {
	decoded, err := meshbin.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &tilequery.Tile{Mesh: decoded.Mesh, Titles: decoded.Titles}, nil
}

// sha256Prefix mirrors tiler's unexported helper of the same name: the
// first 8 hex characters of the SHA-256 of data. Duplicated rather than
// exported across the package boundary, since it is a three-line leaf
// function with no shared state to keep in sync.
func sha256Prefix(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:8]
}

// DiskCache is a reference Cache implementation backed by a local
// directory: tiles at {dir}/{lang}/{id}.bin, manifests at
// {dir}/{lang}/index.json. It is safe for concurrent use.
type DiskCache struct {
	dir string
	mu  sync.RWMutex
}

// NewDiskCache returns a DiskCache rooted at dir. It does not create dir;
// PutTile and PutManifest create the directories they write into.
func NewDiskCache(dir string) *DiskCache {
	return &DiskCache{dir: dir}
}

func (c *DiskCache) tilePath(lang string, id tiler.TileID) string {
	return filepath.Join(c.dir, lang, string(id)+".bin")
}

func (c *DiskCache) manifestPath(lang string) string {
	return filepath.Join(c.dir, lang, "index.json")
}

func (c *DiskCache) GetTile(lang string, id tiler.TileID) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, err := os.ReadFile(c.tilePath(lang, id))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *DiskCache) PutTile(lang string, id tiler.TileID, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path := c.tilePath(lang, id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(path, data, 0o644)
}

func (c *DiskCache) GetManifest(lang string) (*tiler.TileIndex, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, err := os.ReadFile(c.manifestPath(lang))
	if err != nil {
		return nil, false
	}
	idx, err := tiler.UnmarshalManifest(data)
	if err != nil {
		return nil, false
	}
	return idx, true
}

func (c *DiskCache) PutManifest(lang string, idx *tiler.TileIndex) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path := c.manifestPath(lang)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(path, data, 0o644)
}
