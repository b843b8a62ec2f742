package tiler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chrissteinbach/geotiles/buildlog"
	"github.com/chrissteinbach/geotiles/config"
	"github.com/chrissteinbach/geotiles/delaunay"
	"github.com/chrissteinbach/geotiles/geoerr"
	"github.com/chrissteinbach/geotiles/hull"
	"github.com/chrissteinbach/geotiles/meshbin"
	"github.com/chrissteinbach/geotiles/records"
	"github.com/chrissteinbach/geotiles/sphere"
)

const (
	phasePartition buildlog.Phase = "partition"
	phaseTiles     buildlog.Phase = "tiles"
	phaseManifest  buildlog.Phase = "manifest"
)

// Result is the outcome of a tiled build: the manifest and, for each tile
// actually written, its serialized bytes (useful to callers that want to
// stream tiles somewhere other than the local filesystem).
type Result struct {
	Manifest *TileIndex
	Files    map[TileID][]byte
}

// Build partitions recs onto s's grid, builds and serializes one tile per
// populated cell (skipping cells whose buffered point set is degenerate or
// too small), and returns the manifest plus every tile's bytes. now is
// passed in explicitly, not read from the clock, so the caller controls the
// manifest's only non-deterministic field and the build itself stays a pure
// function of (recs, s).
func Build(ctx context.Context, recs []records.Record, s config.BuildSettings, now time.Time, log *buildlog.Context) (*Result, error) {
	log.StartTimer(phasePartition)
	tiles := populatedTiles(recs, s)
	log.StopTimer(phasePartition)
	if len(tiles) == 0 {
		return nil, fmt.Errorf("tiler: Build: %w: no populated tiles in input", geoerr.ErrDegenerateInput)
	}

	var (
		mu      sync.Mutex
		entries []TileEntry
		files   = make(map[TileID][]byte)
	)

	log.StartTimer(phaseTiles)
	g, gctx := errgroup.WithContext(ctx)
	// Tile builds are independent once their buffered point set is
	// selected (spec.md §5); fan them out, one goroutine per tile, with at
	// most GOMAXPROCS tile builds running at once.
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, t := range tiles {
		t := t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, data, ok, err := buildOneTile(recs, s, t.Row, t.Col)
			if err != nil {
				return fmt.Errorf("tile %s: %w", RowCol(t.Row, t.Col), err)
			}
			if !ok {
				log.Log(buildlog.Warning, "tile %s skipped: degenerate or too few points", RowCol(t.Row, t.Col))
				return nil
			}
			mu.Lock()
			entries = append(entries, entry)
			files[entry.ID] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.StopTimer(phaseTiles)

	if len(entries) == 0 {
		return nil, fmt.Errorf("tiler: Build: %w: every populated tile was degenerate", geoerr.ErrDegenerateInput)
	}

	log.StartTimer(phaseManifest)
	manifest := buildManifest(s, entries, now)
	log.StopTimer(phaseManifest)

	return &Result{Manifest: manifest, Files: files}, nil
}

// buildOneTile builds and serializes the tile at (row, col). ok is false
// when the tile should simply be omitted (too few buffered points, or a
// degenerate buffered set) rather than failing the whole build.
func buildOneTile(recs []records.Record, s config.BuildSettings, row, col int) (entry TileEntry, data []byte, ok bool, err error) {
	nb := BoundsFor(row, col, s.GridDeg)
	native, buffered := collectTileArticles(recs, nb, s.BufferDeg)
	if len(buffered) < 4 {
		return TileEntry{}, nil, false, nil
	}

	pts := make([]sphere.Point, len(buffered))
	titles := make([]string, len(buffered))
	for i, r := range buffered {
		pts[i] = sphere.ToCartesian(sphere.LatLon{Lat: r.Lat, Lon: r.Lon})
		titles[i] = r.Title
	}

	h, err := hull.BuildWithSeed(pts, s.PerturbSeed)
	if err != nil {
		if errors.Is(err, geoerr.ErrDegenerateInput) {
			return TileEntry{}, nil, false, nil
		}
		return TileEntry{}, nil, false, err
	}
	mesh, err := delaunay.Extract(h)
	if err != nil {
		return TileEntry{}, nil, false, err
	}

	// The mesh only contains hull vertices, which under perturbation is
	// every input point; titles must be reindexed the same way.
	meshTitles := make([]string, len(mesh.Vertices))
	for i, origIdx := range mesh.OriginalIndices {
		meshTitles[i] = titles[origIdx]
	}

	encoded, err := meshbin.Encode(mesh, meshTitles)
	if err != nil {
		return TileEntry{}, nil, false, err
	}
	if s.MaxTileBytes > 0 && int64(len(encoded)) > s.MaxTileBytes {
		return TileEntry{}, nil, false, fmt.Errorf("tile exceeds MaxTileBytes (%d > %d)", len(encoded), s.MaxTileBytes)
	}

	id := RowCol(row, col)
	entry = TileEntry{
		ID:       id,
		Row:      row,
		Col:      col,
		South:    nb.South,
		North:    nb.North,
		West:     nb.West,
		East:     nb.East,
		Articles: len(native),
		Bytes:    len(encoded),
		Hash:     sha256Prefix(encoded),
	}
	return entry, encoded, true, nil
}

// WriteFiles writes every tile in res to dir/{id}.bin and the manifest to
// dir/index.json.
func WriteFiles(res *Result, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("tiler: WriteFiles: %w", err)
	}
	for id, data := range res.Files {
		path := filepath.Join(dir, string(id)+".bin")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("tiler: WriteFiles: %s: %w", path, err)
		}
	}
	manifestJSON, err := json.MarshalIndent(res.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("tiler: WriteFiles: manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "index.json"), manifestJSON, 0o644)
}
